// Package notify pushes the morning summary to Slack. It is a read-only
// consumer of the store: it formats the today view, it never writes items.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"digiman/pkg/todo"
)

const defaultPostURL = "https://slack.com/api/chat.postMessage"

// SlackPusher sends formatted messages via chat.postMessage.
type SlackPusher struct {
	BotToken string
	Channel  string // channel ID or user ID for a DM
	PostURL  string
	Client   *http.Client
}

// NewSlackPusher creates a pusher for the given bot token and channel.
func NewSlackPusher(botToken, channel string) *SlackPusher {
	return &SlackPusher{
		BotToken: botToken,
		Channel:  channel,
		PostURL:  defaultPostURL,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// PushToday formats and posts the daily summary. An empty view still posts,
// so a quiet day is distinguishable from a broken push.
func (p *SlackPusher) PushToday(ctx context.Context, view todo.TodayView, suggestions int) error {
	if p.BotToken == "" || p.Channel == "" {
		return fmt.Errorf("slack push: bot token or channel not configured")
	}
	return p.post(ctx, FormatToday(view, suggestions))
}

// FormatToday renders the today view as Slack mrkdwn.
func FormatToday(view todo.TodayView, suggestions int) string {
	var sb strings.Builder
	sb.WriteString("*Good morning — here's today:*\n")

	section := func(header string, items []todo.Item) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(fmt.Sprintf("\n*%s*\n", header))
		for _, item := range items {
			sb.WriteString("• " + item.Title)
			if item.SourceContext != "" {
				sb.WriteString(fmt.Sprintf(" _( %s )_", item.SourceContext))
			}
			sb.WriteString("\n")
		}
	}

	section(fmt.Sprintf("Overdue (%d)", len(view.Overdue)), view.Overdue)
	section("Due today", view.Today)
	section("This week", view.ThisWeek)

	if len(view.Overdue)+len(view.Today)+len(view.ThisWeek) == 0 {
		sb.WriteString("\nNothing scheduled. Enjoy the slack.\n")
	}
	if suggestions > 0 {
		sb.WriteString(fmt.Sprintf("\n_%d suggestion(s) waiting for triage._\n", suggestions))
	}
	return sb.String()
}

func (p *SlackPusher) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": p.Channel,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("slack push: marshal: %w", err)
	}

	postURL := p.PostURL
	if postURL == "" {
		postURL = defaultPostURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("slack push: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.BotToken)

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("slack push: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("slack push: read response: %w", err)
	}
	if !gjson.GetBytes(body, "ok").Bool() {
		return fmt.Errorf("slack push: %s", gjson.GetBytes(body, "error").String())
	}
	return nil
}
