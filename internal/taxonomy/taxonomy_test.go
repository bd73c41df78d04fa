package taxonomy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"playlistomatic/internal/domain"
)

const listing = `./01 - Projects/Home Renovation
./01 - Projects/🎥Hold Projektek/Video Edit
./02 - Areas/Fitness
./02 - Areas/🏭Munka
./03 - Resources/📚🌲Life
./03 - Resources/Technology
./03 - Resources/Apple Books
./03 - Resources/attachments
./03 - Resources/Filmek

./02 - Areas/Fitness
Music/Jazz
`

func TestExtractDefaultRules(t *testing.T) {
	set, err := Extract(listing, DefaultRules())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got := strings.Join(set.Labels(), "|")
	want := "Home Renovation|Fitness|Technology|MusicJazz"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestExtractHandlesCRLF(t *testing.T) {
	set, err := Extract("./02 - Areas/Fitness\r\n./03 - Resources/Technology\r\n", DefaultRules())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !set.Contains("Fitness") || !set.Contains("Technology") {
		t.Fatalf("unexpected labels %v", set.Labels())
	}
}

func TestExtractNormalizesUnicode(t *testing.T) {
	decomposed := "Cafe\u0301"
	composed := "Caf\u00e9"
	set, err := Extract(decomposed+"\n"+composed+"\n", Rules{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if set.Len() != 1 || !set.Contains(composed) {
		t.Fatalf("expected a single NFC label, got %q", set.Labels())
	}
}

func TestExtractEmptyIsConfigurationError(t *testing.T) {
	_, err := Extract("./03 - Resources/attachments\n./02 - Areas/🏭Munka\n", DefaultRules())
	if !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCustomRulesRename(t *testing.T) {
	rules, err := ParseRules([]byte(`
strip: ["areas/"]
rename:
  - contains: "Történelem"
    label: "HISTORY"
drop_labels_containing: ["tmp"]
`))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	set, err := Extract("areas/Magyar Történelem\nareas/tmp\nareas/Chess\n", rules)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Join(set.Labels(), "|") != "HISTORY|Chess" {
		t.Fatalf("unexpected labels %q", set.Labels())
	}
}

func TestLoadRulesEmptyPathUsesDefaults(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules.Strip) != len(DefaultRules().Strip) || len(rules.DropLabelsContaining) == 0 {
		t.Fatalf("expected default rules, got %+v", rules)
	}
}

func TestReadAndWriteFiltered(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "categories.txt")
	if err := os.WriteFile(src, []byte(listing), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	set, err := Read(src, DefaultRules())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	out := filepath.Join(dir, "categoriesFiltered.txt")
	if err := WriteFiltered(out, set); err != nil {
		t.Fatalf("WriteFiltered: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "Home Renovation\nFitness\nTechnology\nMusicJazz" {
		t.Fatalf("unexpected filtered file %q", data)
	}
}
