// Package affinity tracks which category each channel usually lands in.
// The table is curated by hand: the tool only appends new channels and
// refreshes counts.
package affinity

import (
	"sort"
	"strings"

	"playlistomatic/internal/domain"
)

// CountChannels tallies distinct channel names, most frequent first. Ties
// keep first-appearance order. Items without a channel are ignored.
func CountChannels(items []domain.WatchlistItem) []domain.ChannelAffinity {
	index := make(map[string]int)
	var out []domain.ChannelAffinity
	for _, item := range items {
		name := strings.TrimSpace(item.ChannelName)
		if name == "" {
			continue
		}
		if i, ok := index[name]; ok {
			out[i].Count++
			continue
		}
		index[name] = len(out)
		out = append(out, domain.ChannelAffinity{ChannelName: name, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Merge folds freshly observed channels into the persisted table. Persisted
// rows keep their position and category, their count is refreshed from the
// observation. Unknown channels are appended uncurated in observed order.
func Merge(persisted, observed []domain.ChannelAffinity) []domain.ChannelAffinity {
	counts := make(map[string]int, len(observed))
	for _, o := range observed {
		counts[o.ChannelName] = o.Count
	}

	seen := make(map[string]bool, len(persisted))
	merged := make([]domain.ChannelAffinity, 0, len(persisted)+len(observed))
	for _, p := range persisted {
		if seen[p.ChannelName] {
			continue
		}
		seen[p.ChannelName] = true
		if c, ok := counts[p.ChannelName]; ok {
			p.Count = c
		}
		merged = append(merged, p)
	}

	var fresh []domain.ChannelAffinity
	for _, o := range observed {
		if seen[o.ChannelName] {
			continue
		}
		seen[o.ChannelName] = true
		fresh = append(fresh, domain.ChannelAffinity{ChannelName: o.ChannelName, Count: o.Count})
	}
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Count > fresh[j].Count })
	return append(merged, fresh...)
}

// Lookup maps channel name to curated category. Uncurated rows are omitted.
func Lookup(rows []domain.ChannelAffinity) map[string]string {
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		if r.Category == "" {
			continue
		}
		name := strings.TrimSpace(r.ChannelName)
		if _, ok := out[name]; !ok {
			out[name] = r.Category
		}
	}
	return out
}
