// Package report renders classified results as a markdown page with one
// table per category.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"playlistomatic/internal/domain"
)

// Uncategorized heads results that carry no category.
const Uncategorized = "Uncategorized"

type Group struct {
	Category string
	Results  []domain.ClassificationResult
}

// GroupByCategory buckets results, categories in first-appearance order.
func GroupByCategory(results []domain.ClassificationResult) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range results {
		category := r.Category
		if category == "" {
			category = Uncategorized
		}
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, Group{Category: category})
		}
		groups[i].Results = append(groups[i].Results, r)
	}
	return groups
}

func Render(results []domain.ClassificationResult, generatedAt time.Time) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "File generated at %s\n\n", generatedAt.UTC().Format(time.RFC3339))
	for _, g := range GroupByCategory(results) {
		fmt.Fprintf(&buf, "## %s\n", g.Category)
		buf.WriteString("| Title | Url |\n")
		buf.WriteString("| --- | --- |\n")
		for _, r := range g.Results {
			fmt.Fprintf(&buf, "| [%s](%s) | %s |\n", strings.ReplaceAll(r.Title, "|", ""), r.Link, r.Link)
		}
	}
	return buf.String()
}

// OutputName maps "data/watchlistCategory.json" to "watchlistCategory.md".
func OutputName(resultsPath string) string {
	base := filepath.Base(resultsPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".md"
}

func WriteReportFile(content, outputDir, name string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, name)
	return path, os.WriteFile(path, []byte(content), 0644)
}
