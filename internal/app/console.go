package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"playlistomatic/internal/classify"
	"playlistomatic/internal/domain"
	"playlistomatic/internal/storage/sqlite"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
)

var stdout io.Writer = os.Stdout

func printError(text string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(text))
}

func printInfo(text string) {
	fmt.Fprintln(stdout, infoStyle.Render(text))
}

func printSummary(out classify.Outcome) {
	fmt.Fprintln(stdout, headerStyle.Render("Classification summary"))
	fmt.Fprintln(stdout, successStyle.Render(fmt.Sprintf("  ✓ %d classified", out.Stats.Classified)))
	fmt.Fprintln(stdout, infoStyle.Render(fmt.Sprintf("  · %d from cache", out.Stats.Cached)))
	if out.Stats.Skipped > 0 {
		fmt.Fprintln(stdout, infoStyle.Render(fmt.Sprintf("  · %d duplicates skipped", out.Stats.Skipped)))
	}
	if out.Stats.Failed > 0 {
		fmt.Fprintln(stdout, warningStyle.Render(fmt.Sprintf("  ✗ %d failed", out.Stats.Failed)))
		for _, f := range out.Failures {
			fmt.Fprintln(stdout, warningStyle.Render(fmt.Sprintf("    %s %s: %v", f.ID, f.Title, f.Err)))
		}
	}
}

func printChannels(rows []domain.ChannelAffinity) {
	fmt.Fprintln(stdout, headerStyle.Render(fmt.Sprintf("Channels (%d)", len(rows))))
	for _, r := range rows {
		category := r.Category
		if category == "" {
			category = "-"
		}
		fmt.Fprintf(stdout, "  %-40s %4d  %s\n", r.ChannelName, r.Count, infoStyle.Render(category))
	}
}

func printHistory(runs []sqlite.Run, failures []sqlite.FailureRecord) {
	fmt.Fprintln(stdout, headerStyle.Render("Recent runs"))
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "  none")
	}
	for _, r := range runs {
		finished := r.Status
		if r.FinishedAt.Valid {
			finished += " " + r.FinishedAt.Time.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(stdout, "  %s  %s/%s  total=%d new=%d cached=%d failed=%d  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Provider, r.Model,
			r.Total, r.Classified, r.Cached, r.Failed, finished)
	}
	if len(failures) == 0 {
		return
	}
	fmt.Fprintln(stdout, headerStyle.Render("Recent failures"))
	for _, f := range failures {
		msg := strings.ReplaceAll(f.Error, "\n", " ")
		fmt.Fprintln(stdout, warningStyle.Render(fmt.Sprintf("  %s %s: %s", f.ItemID, f.Title, msg)))
	}
}
