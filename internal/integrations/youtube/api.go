package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"playlistomatic/internal/retry"
)

// API is the slice of the Data API the playlist sink needs.
type API interface {
	PlaylistTitles(ctx context.Context) ([]string, error)
	CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error)
	InsertVideo(ctx context.Context, playlistID, videoID string) error
}

// Swapped in tests.
var oauthEndpoint = google.Endpoint

func oauthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     oauthEndpoint,
		Scopes:       []string{yt.YoutubeScope},
	}
}

type serviceAPI struct {
	svc *yt.Service
}

// NewServiceAPI authenticates with the configured refresh token.
func NewServiceAPI(ctx context.Context, cfg Config) (API, error) {
	if err := cfg.RequireYouTube(); err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, externalHTTPClient)
	ts := oauthConfig(cfg).TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return newServiceAPI(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
}

func newServiceAPI(ctx context.Context, opts ...option.ClientOption) (API, error) {
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &serviceAPI{svc: svc}, nil
}

func (s *serviceAPI) PlaylistTitles(ctx context.Context) ([]string, error) {
	var titles []string
	err := s.svc.Playlists.List([]string{"snippet"}).
		Mine(true).
		MaxResults(50).
		Pages(ctx, func(resp *yt.PlaylistListResponse) error {
			for _, p := range resp.Items {
				if p.Snippet != nil {
					titles = append(titles, p.Snippet.Title)
				}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return titles, nil
}

func (s *serviceAPI) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	playlist := &yt.Playlist{
		Snippet: &yt.PlaylistSnippet{Title: title, Description: description},
		Status:  &yt.PlaylistStatus{PrivacyStatus: privacy},
	}
	created, err := s.svc.Playlists.Insert([]string{"snippet", "status"}, playlist).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if created.Id == "" {
		return "", errors.New("playlist created but no id was returned")
	}
	return created.Id, nil
}

func (s *serviceAPI) InsertVideo(ctx context.Context, playlistID, videoID string) error {
	item := &yt.PlaylistItem{
		Snippet: &yt.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &yt.ResourceId{Kind: "youtube#video", VideoId: videoID},
		},
	}
	_, err := s.svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do()
	return err
}

// apiRetryPolicy retries throttling and server faults. A 403 is retried only
// for the per-user rate limit reasons; an exhausted daily quota is final.
// Retry-After, when present, sets the wait.
func apiRetryPolicy(err error) retry.Verdict {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Verdict{}
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return retry.Verdict{Retry: true}
	}
	after := retryAfter(gerr.Header)
	switch {
	case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
		return retry.Verdict{Retry: true, After: after}
	case gerr.Code == http.StatusForbidden:
		for _, item := range gerr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return retry.Verdict{Retry: true, After: after}
			}
		}
	}
	return retry.Verdict{}
}

func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
