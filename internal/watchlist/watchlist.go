// Package watchlist loads the items to classify, either from an exported JSON
// file or from a playlist's public RSS feed.
package watchlist

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"playlistomatic/internal/domain"
	"playlistomatic/internal/httpx"
)

const feedBaseURL = "https://www.youtube.com/feeds/videos.xml"

// LoadFile reads a JSON array of watchlist items.
func LoadFile(path string) ([]domain.WatchlistItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []domain.WatchlistItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse watchlist %s: %w", path, err)
	}
	return items, nil
}

func PlaylistFeedURL(playlistID string) string {
	return feedBaseURL + "?playlist_id=" + url.QueryEscape(playlistID)
}

// FromFeed fetches and parses a playlist feed.
func FromFeed(ctx context.Context, feedURL string) ([]domain.WatchlistItem, error) {
	fp := gofeed.NewParser()
	fp.Client = httpx.ExternalHTTPClient()
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	return itemsFromFeed(feed), nil
}

// ParseFeed converts feed XML already in hand.
func ParseFeed(r io.Reader) ([]domain.WatchlistItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return itemsFromFeed(feed), nil
}

func itemsFromFeed(feed *gofeed.Feed) []domain.WatchlistItem {
	items := make([]domain.WatchlistItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		id := cmp.Or(extensionValue(entry.Extensions, "yt", "videoId"), strings.TrimPrefix(entry.GUID, "yt:video:"))
		if id == "" {
			continue
		}
		item := domain.WatchlistItem{
			ID:            id,
			Title:         entry.Title,
			Link:          entry.Link,
			NumberOfViews: domain.ViewCount(viewCount(entry.Extensions)),
		}
		if len(entry.Authors) > 0 && entry.Authors[0] != nil {
			item.ChannelName = entry.Authors[0].Name
		}
		items = append(items, item)
	}
	return items
}

func extensionValue(exts ext.Extensions, ns, name string) string {
	values := exts[ns][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

// viewCount digs media:group/media:community/media:statistics@views.
func viewCount(exts ext.Extensions) string {
	groups := exts["media"]["group"]
	if len(groups) == 0 {
		return ""
	}
	community := groups[0].Children["community"]
	if len(community) == 0 {
		return ""
	}
	stats := community[0].Children["statistics"]
	if len(stats) == 0 {
		return ""
	}
	return stats[0].Attrs["views"]
}
