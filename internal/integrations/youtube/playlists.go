// Package youtube mirrors categories as playlists on the signed-in account.
package youtube

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"playlistomatic/internal/domain"
	"playlistomatic/internal/retry"
)

type Sink struct {
	api      API
	prefix   string
	privacy  string
	limiter  *rate.Limiter
	pause    time.Duration
	retryCfg retry.Config
}

func NewSink(api API, cfg Config) *Sink {
	limit := rate.Inf
	if cfg.YouTubeInsertsPerSec > 0 {
		limit = rate.Limit(cfg.YouTubeInsertsPerSec)
	}
	return &Sink{
		api:      api,
		prefix:   cfg.YouTubePlaylistPrefix,
		privacy:  cfg.YouTubePlaylistPrivacy,
		limiter:  rate.NewLimiter(limit, 1),
		pause:    time.Duration(cfg.YouTubePlaylistPauseMS) * time.Millisecond,
		retryCfg: retry.Default(),
	}
}

type Summary struct {
	Created      []string
	Skipped      []string
	Inserted     int
	InsertFailed int
}

// CreatePlaylists creates one playlist per group, or only for the group named
// only when it is non-empty. Groups whose prefixed title already exists are
// left alone. Failed video inserts are logged and skipped.
func (s *Sink) CreatePlaylists(ctx context.Context, groups []Group, only string) (Summary, error) {
	var summary Summary

	var titles []string
	err := retry.Do(ctx, "list playlists", s.retryCfg, apiRetryPolicy, func(ctx context.Context) error {
		var err error
		titles, err = s.api.PlaylistTitles(ctx)
		return err
	})
	if err != nil {
		return summary, fmt.Errorf("list playlists: %w", err)
	}
	existing := make(map[string]bool, len(titles))
	for _, t := range titles {
		existing[t] = true
	}

	first := true
	for _, g := range groups {
		if only != "" && g.Category != only {
			continue
		}
		results := categorized(g.Results)
		if len(results) == 0 {
			log.Printf("youtube skipping group without category name=%q videos=%d", g.Category, len(g.Results))
			continue
		}
		title := s.prefix + g.Category
		if existing[title] {
			log.Printf("youtube playlist exists title=%q, skipping", title)
			summary.Skipped = append(summary.Skipped, title)
			continue
		}

		if !first && s.pause > 0 {
			select {
			case <-time.After(s.pause):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
		first = false

		var playlistID string
		err := retry.Do(ctx, "create playlist", s.retryCfg, apiRetryPolicy, func(ctx context.Context) error {
			var err error
			playlistID, err = s.api.CreatePlaylist(ctx, title, "Playlist for "+g.Category, s.privacy)
			return err
		})
		if err != nil {
			return summary, fmt.Errorf("create playlist %q: %w", title, err)
		}
		existing[title] = true
		summary.Created = append(summary.Created, title)
		log.Printf("youtube playlist created title=%q id=%s videos=%d", title, playlistID, len(results))

		for _, r := range results {
			if err := s.limiter.Wait(ctx); err != nil {
				return summary, err
			}
			videoID := domain.NormalizeID(r.ID)
			err := retry.Do(ctx, "insert video", s.retryCfg, apiRetryPolicy, func(ctx context.Context) error {
				return s.api.InsertVideo(ctx, playlistID, videoID)
			})
			if err != nil {
				if ctx.Err() != nil {
					return summary, ctx.Err()
				}
				log.Printf("youtube insert failed playlist=%s video=%s: %v", playlistID, videoID, err)
				summary.InsertFailed++
				continue
			}
			summary.Inserted++
		}
	}
	return summary, nil
}

// categorized drops results that only landed in a group through the
// report's placeholder for an empty category.
func categorized(results []domain.ClassificationResult) []domain.ClassificationResult {
	out := make([]domain.ClassificationResult, 0, len(results))
	for _, r := range results {
		if r.Category != "" {
			out = append(out, r)
		}
	}
	return out
}
