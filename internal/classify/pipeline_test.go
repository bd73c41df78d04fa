package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"playlistomatic/internal/domain"
	"playlistomatic/internal/storage/resultfile"
)

type fakeOracle struct {
	calls  []string
	labels map[string]domain.Label
	errs   map[string]error
}

func (f *fakeOracle) Classify(_ context.Context, text string) (domain.Label, error) {
	f.calls = append(f.calls, text)
	for prefix, err := range f.errs {
		if strings.HasPrefix(text, prefix) {
			return domain.Label{}, err
		}
	}
	for prefix, label := range f.labels {
		if strings.HasPrefix(text, prefix) {
			return label, nil
		}
	}
	return domain.Label{Category: "Technology", Rationale: "default"}, nil
}

type memRecorder struct {
	results  []domain.ClassificationResult
	failures []domain.Failure
	err      error
}

func (m *memRecorder) RecordResult(r domain.ClassificationResult) error {
	m.results = append(m.results, r)
	return m.err
}

func (m *memRecorder) RecordFailure(f domain.Failure) error {
	m.failures = append(m.failures, f)
	return m.err
}

func mustCategories(t *testing.T, labels ...string) domain.CategorySet {
	t.Helper()
	set, err := domain.NewCategorySet(labels)
	if err != nil {
		t.Fatalf("NewCategorySet: %v", err)
	}
	return set
}

func TestEmptyWatchlistYieldsEmptyOutcome(t *testing.T) {
	oracle := &fakeOracle{}
	out, err := Classify(context.Background(), nil, mustCategories(t, "Technology"), nil, nil, oracle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Results) != 0 || len(out.Failures) != 0 || len(oracle.calls) != 0 {
		t.Fatalf("expected empty outcome, got %+v", out)
	}
}

func TestEmptyCategorySetIsConfigurationError(t *testing.T) {
	oracle := &fakeOracle{}
	items := []domain.WatchlistItem{{ID: "a", Title: "x"}}
	_, err := Classify(context.Background(), items, domain.CategorySet{}, nil, nil, oracle)
	if !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(oracle.calls) != 0 {
		t.Fatalf("expected no oracle calls, got %d", len(oracle.calls))
	}
}

func TestScenarioFreshClassification(t *testing.T) {
	oracle := &fakeOracle{labels: map[string]domain.Label{
		"Gaming PC Build": {Category: "Technology", Rationale: "hardware"},
	}}
	items := []domain.WatchlistItem{{ID: "a", Title: "Gaming PC Build", ChannelName: "TechReviews", Link: "http://x/a"}}

	out, err := Classify(context.Background(), items, mustCategories(t, "Technology", "Cooking"), nil, nil, oracle)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(out.Failures) != 0 || len(out.Results) != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	r := out.Results[0]
	if r.ID != "a" || r.Category != "Technology" || r.Rationale != "hardware" || r.Link != "http://x/a" || r.ChannelName != "TechReviews" {
		t.Fatalf("unexpected result %+v", r)
	}
	if oracle.calls[0] != "Gaming PC Build by TechReviews" {
		t.Fatalf("unexpected oracle text %q", oracle.calls[0])
	}
	if out.Stats.Classified != 1 || out.Stats.Total != 1 {
		t.Fatalf("unexpected stats %+v", out.Stats)
	}
}

func TestScenarioCacheHitSkipsOracle(t *testing.T) {
	oracle := &fakeOracle{}
	cache := resultfile.NewCache([]domain.ClassificationResult{
		{ID: "a", Title: "Old title", Link: "http://old/a", Category: "Cooking", ChannelName: "TechReviews", Rationale: "earlier"},
	})
	items := []domain.WatchlistItem{{ID: "a", Title: "Gaming PC Build", ChannelName: "TechReviews", Link: "http://x/a"}}

	out, err := Classify(context.Background(), items, mustCategories(t, "Technology", "Cooking"), nil, cache, oracle)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(oracle.calls) != 0 {
		t.Fatalf("expected no oracle calls, got %v", oracle.calls)
	}
	r := out.Results[0]
	if r.Category != "Cooking" || r.Rationale != "earlier" {
		t.Fatalf("expected cached label, got %+v", r)
	}
	if r.Title != "Gaming PC Build" || r.Link != "http://x/a" {
		t.Fatalf("expected refreshed title and link, got %+v", r)
	}
	if out.Stats.Cached != 1 {
		t.Fatalf("unexpected stats %+v", out.Stats)
	}
}

func TestCacheLookupUsesNormalizedID(t *testing.T) {
	oracle := &fakeOracle{}
	cache := resultfile.NewCache([]domain.ClassificationResult{{ID: "abc123", Category: "Cooking"}})
	items := []domain.WatchlistItem{{ID: "abc123&list=xyz", Title: "Soup"}}

	out, err := Classify(context.Background(), items, mustCategories(t, "Cooking"), nil, cache, oracle)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(oracle.calls) != 0 {
		t.Fatalf("expected cache hit, oracle saw %v", oracle.calls)
	}
	if out.Results[0].ID != "abc123&list=xyz" || out.Results[0].Category != "Cooking" {
		t.Fatalf("unexpected result %+v", out.Results[0])
	}
}

func TestAffinityHintIsAppended(t *testing.T) {
	oracle := &fakeOracle{}
	affinities := []domain.ChannelAffinity{
		{ChannelName: "ChefTube", Category: "Cooking", Count: 3},
		{ChannelName: "Unsorted", Count: 1},
	}
	items := []domain.WatchlistItem{
		{ID: "a", Title: "Knife skills", ChannelName: "ChefTube"},
		{ID: "b", Title: "Random", ChannelName: "Unsorted"},
	}

	if _, err := Classify(context.Background(), items, mustCategories(t, "Cooking", "Technology"), affinities, nil, oracle); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	want := `Knife skills by ChefTube (channel "ChefTube" is usually categorized as "Cooking")`
	if oracle.calls[0] != want {
		t.Fatalf("expected %q, got %q", want, oracle.calls[0])
	}
	if strings.Contains(oracle.calls[1], "usually") {
		t.Fatalf("expected no hint for uncurated channel, got %q", oracle.calls[1])
	}
}

func TestAffinityHintMatchesPaddedChannelName(t *testing.T) {
	oracle := &fakeOracle{}
	affinities := []domain.ChannelAffinity{{ChannelName: "ChefTube", Category: "Cooking", Count: 2}}
	items := []domain.WatchlistItem{{ID: "s", Title: "Soup", ChannelName: "ChefTube "}}

	if _, err := Classify(context.Background(), items, mustCategories(t, "Cooking", "Technology"), affinities, nil, oracle); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(oracle.calls) != 1 || !strings.Contains(oracle.calls[0], `(channel "ChefTube" is usually categorized as "Cooking")`) {
		t.Fatalf("expected hint for padded channel name, got %q", oracle.calls)
	}
}

func TestPartialFailureIsIsolated(t *testing.T) {
	oracle := &fakeOracle{errs: map[string]error{
		"Broken": &domain.OracleTransportError{Provider: "openai", StatusCode: 503, Err: errors.New("unavailable")},
	}}
	recorder := &memRecorder{}
	items := []domain.WatchlistItem{
		{ID: "a", Title: "First"},
		{ID: "b", Title: "Broken"},
		{ID: "c", Title: "Third"},
	}

	out, err := Classify(context.Background(), items, mustCategories(t, "Technology"), nil, nil, oracle, WithRecorder(recorder))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(out.Results) != 2 || out.Results[0].ID != "a" || out.Results[1].ID != "c" {
		t.Fatalf("expected n-1 results in order, got %+v", out.Results)
	}
	if len(out.Failures) != 1 || out.Failures[0].ID != "b" {
		t.Fatalf("expected one failure for b, got %+v", out.Failures)
	}
	if !domain.IsRecoverable(out.Failures[0].Err) {
		t.Fatalf("expected recoverable failure, got %v", out.Failures[0].Err)
	}
	if len(recorder.results) != 2 || len(recorder.failures) != 1 {
		t.Fatalf("recorder saw %d results and %d failures", len(recorder.results), len(recorder.failures))
	}
}

func TestRecorderErrorsDoNotAbort(t *testing.T) {
	recorder := &memRecorder{err: errors.New("disk full")}
	items := []domain.WatchlistItem{{ID: "a", Title: "One"}, {ID: "b", Title: "Two"}}
	out, err := Classify(context.Background(), items, mustCategories(t, "Technology"), nil, nil, &fakeOracle{}, WithRecorder(recorder))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("expected both results, got %+v", out.Results)
	}
}

func TestRerunWithSeededCacheIsIdempotent(t *testing.T) {
	categories := mustCategories(t, "Technology", "Cooking")
	items := []domain.WatchlistItem{
		{ID: "a", Title: "GPU", ChannelName: "TechChan", Link: "l1", NumberOfViews: "10"},
		{ID: "b&index=2", Title: "Soup", ChannelName: "ChefTube", Link: "l2"},
	}
	first := &fakeOracle{labels: map[string]domain.Label{"Soup": {Category: "Cooking", Rationale: "food"}}}
	out1, err := Classify(context.Background(), items, categories, nil, nil, first)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := &fakeOracle{}
	out2, err := Classify(context.Background(), items, categories, nil, resultfile.NewCache(out1.Results), second)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.calls) != 0 {
		t.Fatalf("expected zero oracle calls on rerun, got %v", second.calls)
	}
	if len(out1.Results) != len(out2.Results) {
		t.Fatalf("result count changed: %d vs %d", len(out1.Results), len(out2.Results))
	}
	for i := range out1.Results {
		if out1.Results[i] != out2.Results[i] {
			t.Fatalf("result %d changed: %+v vs %+v", i, out1.Results[i], out2.Results[i])
		}
	}
}

func TestDuplicatesWithinRunAreSkipped(t *testing.T) {
	oracle := &fakeOracle{}
	items := []domain.WatchlistItem{
		{ID: "a", Title: "One"},
		{ID: "a&list=WL", Title: "One again"},
	}
	out, err := Classify(context.Background(), items, mustCategories(t, "Technology"), nil, nil, oracle)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(out.Results) != 1 || len(oracle.calls) != 1 || out.Stats.Skipped != 1 {
		t.Fatalf("expected first occurrence only, got %+v calls=%d", out, len(oracle.calls))
	}
}

func TestStaleCachedCategoryIsCarriedForward(t *testing.T) {
	cache := resultfile.NewCache([]domain.ClassificationResult{{ID: "a", Category: "Retired"}})
	out, err := Classify(context.Background(), []domain.WatchlistItem{{ID: "a", Title: "x"}}, mustCategories(t, "Technology"), nil, cache, &fakeOracle{})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.Results[0].Category != "Retired" {
		t.Fatalf("expected cached category kept, got %+v", out.Results[0])
	}
}

func TestCancellationReturnsPartialOutcome(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	oracle := &cancellingOracle{cancel: cancel}
	items := []domain.WatchlistItem{{ID: "a", Title: "One"}, {ID: "b", Title: "Two"}}

	out, err := Classify(ctx, items, mustCategories(t, "Technology"), nil, nil, oracle)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].ID != "a" {
		t.Fatalf("expected first result kept, got %+v", out.Results)
	}
}

type cancellingOracle struct {
	cancel context.CancelFunc
}

func (c *cancellingOracle) Classify(context.Context, string) (domain.Label, error) {
	c.cancel()
	return domain.Label{Category: "Technology"}, nil
}

func TestLimiterIsConsulted(t *testing.T) {
	limiter := rate.NewLimiter(rate.Inf, 1)
	items := []domain.WatchlistItem{{ID: "a", Title: "One"}, {ID: "b", Title: "Two"}}
	out, err := Classify(context.Background(), items, mustCategories(t, "Technology"), nil, nil, &fakeOracle{}, WithLimiter(limiter))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.Stats.Classified != 2 {
		t.Fatalf("unexpected stats %+v", out.Stats)
	}
}
