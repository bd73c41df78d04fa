package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/time/rate"

	"playlistomatic/internal/affinity"
	"playlistomatic/internal/classify"
	"playlistomatic/internal/config"
	"playlistomatic/internal/domain"
	"playlistomatic/internal/integrations/llm"
	slackbot "playlistomatic/internal/integrations/slack"
	"playlistomatic/internal/integrations/youtube"
	"playlistomatic/internal/report"
	"playlistomatic/internal/storage/atomicfile"
	"playlistomatic/internal/storage/resultfile"
	"playlistomatic/internal/storage/sqlite"
	"playlistomatic/internal/taxonomy"
	"playlistomatic/internal/watchlist"
)

type runOptions struct {
	playlists bool
	category  string
}

// Swapped in tests.
var (
	newPlaylistAPI = youtube.NewServiceAPI
	feedURL        = defaultFeedURL
	now            = time.Now
)

var defaultFeedURL = watchlist.PlaylistFeedURL

// runClassify is the default command: clean the taxonomy, refresh the channel
// table, classify what the cache does not know yet, then write the result
// file and the markdown report.
func runClassify(ctx context.Context, cfg config.Config, categoryPath, watchlistPath string, opts runOptions) (classify.Outcome, error) {
	rules, err := taxonomy.LoadRules(cfg.TaxonomyRulesPath)
	if err != nil {
		return classify.Outcome{}, &domain.ConfigurationError{Reason: fmt.Sprintf("taxonomy rules: %v", err)}
	}
	categories, err := taxonomy.Read(categoryPath, rules)
	if err != nil {
		return classify.Outcome{}, err
	}
	log.Printf("taxonomy categories=%d path=%s", categories.Len(), categoryPath)
	if err := taxonomy.WriteFiltered(cfg.FilteredListPath, categories); err != nil {
		log.Printf("taxonomy write filtered error path=%s: %v", cfg.FilteredListPath, err)
	}

	items, err := loadWatchlist(watchlistPath)
	if err != nil {
		return classify.Outcome{}, err
	}
	affinities, err := refreshChannels(cfg, items)
	if err != nil {
		log.Printf("channels refresh error: %v", err)
	}

	cache, err := resultfile.Load(cfg.ResultsPath)
	if err != nil {
		log.Printf("cache cold start: %v", err)
	}

	db, err := sqlite.InitDB(cfg.HistoryDBPath)
	if err != nil {
		log.Printf("history disabled path=%s: %v", cfg.HistoryDBPath, err)
	} else {
		defer db.Close()
		journaled, err := sqlite.JournalResults(db)
		if err != nil {
			log.Printf("history journal read error: %v", err)
		}
		before := cache.Len()
		cache.Add(journaled...)
		log.Printf("cache entries=%d journal_added=%d", cache.Len(), cache.Len()-before)
	}

	if err := cfg.RequireOracle(); err != nil {
		return classify.Outcome{}, &domain.ConfigurationError{Reason: err.Error()}
	}
	oracle, err := llm.New(cfg, categories)
	if err != nil {
		return classify.Outcome{}, err
	}

	var classifyOpts []classify.Option
	if cfg.LLMRequestsPerSecond > 0 {
		classifyOpts = append(classifyOpts, classify.WithLimiter(rate.NewLimiter(rate.Limit(cfg.LLMRequestsPerSecond), 1)))
	}
	journal := startJournal(db, oracle)
	if journal != nil {
		classifyOpts = append(classifyOpts, classify.WithRecorder(journal))
	}

	log.Printf("classify start items=%d provider=%s model=%s", len(items), oracle.Provider(), oracle.Model())
	outcome, err := classify.Classify(ctx, items, categories, affinities, cache, oracle, classifyOpts...)
	if err != nil {
		// Progress so far is in the journal; the result file keeps the last
		// complete run.
		interruptJournal(journal, outcome.Stats)
		return outcome, err
	}

	if err := resultfile.Save(cfg.ResultsPath, outcome.Results); err != nil {
		interruptJournal(journal, outcome.Stats)
		return outcome, fmt.Errorf("save results: %w", err)
	}
	log.Printf("results saved path=%s results=%d", cfg.ResultsPath, len(outcome.Results))
	if journal != nil {
		s := outcome.Stats
		if ferr := journal.Finish(s.Total, s.Cached, s.Classified, s.Failed); ferr != nil {
			log.Printf("history finish error run=%s: %v", journal.RunID(), ferr)
		}
	}

	printSummary(outcome)
	slackbot.NewNotifier(cfg).PostSummary(outcome)

	if err := publish(ctx, cfg, outcome.Results, report.OutputName(watchlistPath), opts); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func startJournal(db *sql.DB, oracle llm.Oracle) *sqlite.Journal {
	if db == nil {
		return nil
	}
	journal, err := sqlite.StartRun(db, oracle.Provider(), oracle.Model())
	if err != nil {
		log.Printf("history start error: %v", err)
		return nil
	}
	return journal
}

func interruptJournal(journal *sqlite.Journal, s classify.Stats) {
	if journal == nil {
		return
	}
	if err := journal.Interrupt(s.Total, s.Cached, s.Classified, s.Failed); err != nil {
		log.Printf("history interrupt error run=%s: %v", journal.RunID(), err)
	}
}

// runRender re-renders a previously written result file.
func runRender(ctx context.Context, cfg config.Config, categorizedPath string, opts runOptions) error {
	results, err := resultfile.Read(categorizedPath)
	if err != nil {
		return err
	}
	return publish(ctx, cfg, results, report.OutputName(categorizedPath), opts)
}

func publish(ctx context.Context, cfg config.Config, results []domain.ClassificationResult, name string, opts runOptions) error {
	path, err := report.WriteReportFile(report.Render(results, now()), cfg.ReportOutputDir, name)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	printInfo(fmt.Sprintf("Report written to %s", path))

	if !opts.playlists {
		return nil
	}
	api, err := newPlaylistAPI(ctx, cfg)
	if err != nil {
		return &domain.ConfigurationError{Reason: err.Error()}
	}
	summary, err := youtube.NewSink(api, cfg).CreatePlaylists(ctx, report.GroupByCategory(results), opts.category)
	if err != nil {
		return err
	}
	printInfo(fmt.Sprintf("Playlists created=%d skipped=%d videos=%d failed=%d",
		len(summary.Created), len(summary.Skipped), summary.Inserted, summary.InsertFailed))
	return nil
}

func loadWatchlist(path string) ([]domain.WatchlistItem, error) {
	items, err := watchlist.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("watchlist not found: %s", path)
		}
		return nil, err
	}
	return items, nil
}

// refreshChannels merges the watchlist's channels into the channel table and
// returns the merged rows.
func refreshChannels(cfg config.Config, items []domain.WatchlistItem) ([]domain.ChannelAffinity, error) {
	persisted, err := affinity.Load(cfg.ChannelTablePath)
	if err != nil {
		return nil, fmt.Errorf("load channel table: %w", err)
	}
	merged := affinity.Merge(persisted, affinity.CountChannels(items))
	log.Printf("channels persisted=%d total=%d new=%d", len(persisted), len(merged), len(merged)-len(persisted))
	if err := affinity.Save(cfg.ChannelTablePath, merged); err != nil {
		return merged, fmt.Errorf("save channel table: %w", err)
	}
	return merged, nil
}

func runFeed(ctx context.Context, playlistID, outPath string) (int, error) {
	items, err := watchlist.FromFeed(ctx, feedURL(playlistID))
	if err != nil {
		return 0, err
	}
	err = atomicfile.WriteFile(outPath, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(items)
	})
	return len(items), err
}
