// Package slackbot posts a short run summary to a Slack channel.
package slackbot

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
)

const maxListedFailures = 5

type poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

type Notifier struct {
	api       poster
	channelID string
}

// NewNotifier returns nil when Slack is not configured; a nil Notifier is a
// no-op.
func NewNotifier(cfg Config, opts ...slack.Option) *Notifier {
	if !cfg.SlackConfigured() {
		return nil
	}
	return &Notifier{
		api:       slack.New(cfg.SlackBotToken, opts...),
		channelID: cfg.SlackChannelID,
	}
}

func FormatSummary(out Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Classified %d items: %d new, %d cached, %d failed",
		out.Stats.Total, out.Stats.Classified, out.Stats.Cached, out.Stats.Failed)
	if out.Stats.Skipped > 0 {
		fmt.Fprintf(&b, " (%d duplicates skipped)", out.Stats.Skipped)
	}
	for i, f := range out.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "\n• …and %d more", len(out.Failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(&b, "\n• `%s` %s: %v", f.ID, f.Title, f.Err)
	}
	return b.String()
}

// PostSummary never fails the run; errors are logged.
func (n *Notifier) PostSummary(out Outcome) {
	if n == nil {
		return
	}
	_, _, err := n.api.PostMessage(n.channelID, slack.MsgOptionText(FormatSummary(out), false))
	if err != nil {
		log.Printf("slack summary error channel=%s: %v", n.channelID, err)
		return
	}
	log.Printf("slack summary posted channel=%s", n.channelID)
}
