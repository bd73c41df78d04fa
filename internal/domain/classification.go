package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// CompositeIDSeparator starts the suffix some exports append to a video id
// (for example "abc123&list=WL&index=4").
const CompositeIDSeparator = "&"

type WatchlistItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Link          string    `json:"link"`
	ChannelName   string    `json:"channelName"`
	NumberOfViews ViewCount `json:"numberOfViews,omitempty"`
}

type ClassificationResult struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Link          string    `json:"link"`
	Category      string    `json:"category,omitempty"`
	ChannelName   string    `json:"channelName"`
	NumberOfViews ViewCount `json:"numberOfViews,omitempty"`
	Rationale     string    `json:"reason,omitempty"`
}

// UnmarshalJSON also accepts the misspelled "reson" key written by older
// versions of the result file.
func (r *ClassificationResult) UnmarshalJSON(data []byte) error {
	type plain ClassificationResult
	var aux struct {
		plain
		Reson string `json:"reson"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = ClassificationResult(aux.plain)
	if r.Rationale == "" {
		r.Rationale = aux.Reson
	}
	return nil
}

type ChannelAffinity struct {
	ChannelName string
	Category    string
	Count       int
}

type Label struct {
	Category  string
	Rationale string
}

type Failure struct {
	ID    string
	Title string
	Err   error
}

func (f Failure) Error() string {
	if f.Err == nil {
		return f.ID
	}
	return f.ID + ": " + f.Err.Error()
}

// NormalizeID strips the composite suffix so that "abc123" and
// "abc123&list=xyz" resolve to the same item.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if idx := strings.Index(id, CompositeIDSeparator); idx >= 0 {
		id = id[:idx]
	}
	return strings.TrimSpace(id)
}

// ViewCount keeps whatever the watchlist exporter wrote: scrapers emit both
// plain numbers and display strings such as "1.2M views".
type ViewCount string

func (v *ViewCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ViewCount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = ViewCount(n.String())
	return nil
}

func (v ViewCount) MarshalJSON() ([]byte, error) {
	s := string(v)
	if s == "" {
		return []byte("null"), nil
	}
	if _, err := json.Number(s).Int64(); err == nil {
		return []byte(s), nil
	}
	return json.Marshal(s)
}
