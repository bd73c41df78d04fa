// Package classify maps watchlist items to one category each. Items already
// present in the cache never reach the oracle, so a rerun only pays for what
// is new.
package classify

import (
	"context"
	"fmt"
	"strings"
	"log"

	"golang.org/x/time/rate"

	"playlistomatic/internal/affinity"
	"playlistomatic/internal/domain"
)

// Oracle labels a single passage with a member of the run's category set.
type Oracle interface {
	Classify(ctx context.Context, text string) (domain.Label, error)
}

// Cache answers by normalized id.
type Cache interface {
	Lookup(normalizedID string) (domain.ClassificationResult, bool)
}

// Recorder persists outcomes as they happen.
type Recorder interface {
	RecordResult(domain.ClassificationResult) error
	RecordFailure(domain.Failure) error
}

type Stats struct {
	Total      int
	Cached     int
	Classified int
	Failed     int
	Skipped    int
}

type Outcome struct {
	Results  []domain.ClassificationResult
	Failures []domain.Failure
	Stats    Stats
}

type Option func(*options)

type options struct {
	recorder Recorder
	limiter  *rate.Limiter
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithLimiter spaces oracle calls. Calls stay sequential either way.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// Classify walks items in order. Per-item oracle errors are collected in
// Outcome.Failures and never stop the run. The only returned errors are a
// *domain.ConfigurationError for an empty category set and ctx.Err() on
// cancellation, in which case the outcome holds everything done so far.
func Classify(
	ctx context.Context,
	items []domain.WatchlistItem,
	categories domain.CategorySet,
	affinities []domain.ChannelAffinity,
	cache Cache,
	oracle Oracle,
	opts ...Option,
) (Outcome, error) {
	if categories.Len() == 0 {
		return Outcome{}, &domain.ConfigurationError{Reason: "no categories found"}
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	out := Outcome{Stats: Stats{Total: len(items)}}
	if len(items) == 0 {
		return out, nil
	}
	if oracle == nil {
		return Outcome{}, &domain.ConfigurationError{Reason: "no label oracle configured"}
	}

	hints := affinity.Lookup(affinities)
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		key := domain.NormalizeID(item.ID)
		if seen[key] {
			out.Stats.Skipped++
			log.Printf("classify item=%s status=skipped reason=duplicate", item.ID)
			continue
		}
		seen[key] = true

		if cache != nil {
			if cached, ok := cache.Lookup(key); ok {
				result := mergeCached(item, cached)
				if result.Category != "" && !categories.Contains(result.Category) {
					log.Printf("classify item=%s status=cached stale_category=%q", item.ID, result.Category)
				} else {
					log.Printf("classify item=%s status=cached category=%q", item.ID, result.Category)
				}
				out.Results = append(out.Results, result)
				out.Stats.Cached++
				o.record(result)
				continue
			}
		}

		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return out, err
			}
		}

		label, err := oracle.Classify(ctx, OracleText(item, hints[strings.TrimSpace(item.ChannelName)]))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			failure := domain.Failure{ID: item.ID, Title: item.Title, Err: err}
			log.Printf("classify item=%s status=failed recoverable=%t err=%v", item.ID, domain.IsRecoverable(err), err)
			out.Failures = append(out.Failures, failure)
			out.Stats.Failed++
			o.recordFailure(failure)
			continue
		}

		result := domain.ClassificationResult{
			ID:            item.ID,
			Title:         item.Title,
			Link:          item.Link,
			Category:      label.Category,
			ChannelName:   item.ChannelName,
			NumberOfViews: item.NumberOfViews,
			Rationale:     label.Rationale,
		}
		log.Printf("classify item=%s status=classified category=%q", item.ID, label.Category)
		out.Results = append(out.Results, result)
		out.Stats.Classified++
		o.record(result)
	}
	return out, nil
}

// OracleText is the passage handed to the oracle: "<title> by <channel>",
// followed by the channel's usual category when one is on file.
func OracleText(item domain.WatchlistItem, hint string) string {
	text := fmt.Sprintf("%s by %s", item.Title, item.ChannelName)
	if hint != "" {
		text += fmt.Sprintf(` (channel "%s" is usually categorized as "%s")`, strings.TrimSpace(item.ChannelName), hint)
	}
	return text
}

// mergeCached keeps the cached label fields and refreshes what may have
// changed upstream.
func mergeCached(item domain.WatchlistItem, cached domain.ClassificationResult) domain.ClassificationResult {
	merged := cached
	merged.ID = item.ID
	merged.Title = item.Title
	if item.Link != "" {
		merged.Link = item.Link
	}
	if item.NumberOfViews != "" {
		merged.NumberOfViews = item.NumberOfViews
	}
	if merged.ChannelName == "" {
		merged.ChannelName = item.ChannelName
	}
	return merged
}

func (o options) record(r domain.ClassificationResult) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordResult(r); err != nil {
		log.Printf("classify recorder error item=%s: %v", r.ID, err)
	}
}

func (o options) recordFailure(f domain.Failure) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.RecordFailure(f); err != nil {
		log.Printf("classify recorder error item=%s: %v", f.ID, err)
	}
}
