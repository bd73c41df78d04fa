package affinity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"playlistomatic/internal/domain"
)

func items(channels ...string) []domain.WatchlistItem {
	out := make([]domain.WatchlistItem, 0, len(channels))
	for i, c := range channels {
		out = append(out, domain.WatchlistItem{ID: string(rune('a' + i)), ChannelName: c})
	}
	return out
}

func TestCountChannelsOrdersByCountThenAppearance(t *testing.T) {
	got := CountChannels(items("B", "A", "", "A", "C", "B", "A"))
	want := []domain.ChannelAffinity{
		{ChannelName: "A", Count: 3},
		{ChannelName: "B", Count: 2},
		{ChannelName: "C", Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d channels, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	tied := CountChannels(items("Y", "X"))
	if tied[0].ChannelName != "Y" {
		t.Fatalf("expected first appearance to break ties, got %+v", tied)
	}
}

func TestMergeKeepsPersistedOrderAndCategories(t *testing.T) {
	persisted := []domain.ChannelAffinity{
		{ChannelName: "ChefTube", Category: "Cooking", Count: 9},
		{ChannelName: "Gone", Category: "Music", Count: 4},
		{ChannelName: "Unsorted"},
	}
	observed := []domain.ChannelAffinity{
		{ChannelName: "NewBig", Count: 5},
		{ChannelName: "ChefTube", Count: 2},
		{ChannelName: "NewSmall", Count: 1},
	}

	got := Merge(persisted, observed)
	names := make([]string, 0, len(got))
	for _, r := range got {
		names = append(names, r.ChannelName)
	}
	if strings.Join(names, ",") != "ChefTube,Gone,Unsorted,NewBig,NewSmall" {
		t.Fatalf("unexpected order %v", names)
	}
	if got[0].Category != "Cooking" || got[0].Count != 2 {
		t.Fatalf("expected category kept and count refreshed, got %+v", got[0])
	}
	if got[1].Count != 4 {
		t.Fatalf("expected unobserved row untouched, got %+v", got[1])
	}
	if got[3].Category != "" {
		t.Fatalf("expected new channel uncurated, got %+v", got[3])
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	observed := CountChannels(items("A", "B", "A"))
	once := Merge(nil, observed)
	twice := Merge(once, observed)
	if len(once) != len(twice) {
		t.Fatalf("expected stable merge, got %+v vs %+v", once, twice)
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("row %d changed: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestLookupSkipsUncurated(t *testing.T) {
	m := Lookup([]domain.ChannelAffinity{
		{ChannelName: "ChefTube", Category: "Cooking"},
		{ChannelName: "Unsorted"},
	})
	if len(m) != 1 || m["ChefTube"] != "Cooking" {
		t.Fatalf("unexpected lookup %v", m)
	}
}

func TestParseStripsQuotesAndCarriageReturns(t *testing.T) {
	input := "channelName;category\r\n\"ChefTube\";\"Cooking\"\r\n\r\nUnsorted;;\r\n"
	rows, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", rows)
	}
	if rows[0] != (domain.ChannelAffinity{ChannelName: "ChefTube", Category: "Cooking"}) {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[1].ChannelName != "Unsorted" || rows[1].Category != "" {
		t.Fatalf("unexpected second row %+v", rows[1])
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	rows, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected empty table, got %+v, %v", rows, err)
	}
}

func TestSaveWritesCuratableRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channelList.csv")
	rows := []domain.ChannelAffinity{
		{ChannelName: "ChefTube", Category: "Cooking", Count: 3},
		{ChannelName: "Unsorted", Count: 1},
	}
	if err := Save(path, rows); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "channelName;category\nChefTube;Cooking\nUnsorted;;\n"
	if string(data) != want {
		t.Fatalf("expected %q, got %q", want, data)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(back) != 2 || back[0].Category != "Cooking" {
		t.Fatalf("unexpected reload %+v", back)
	}
}
