package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"digiman/pkg/todo"
)

const defaultSlackAPIRoot = "https://slack.com/api"

// Slack pulls @mentions of the configured user from every channel the bot
// is a member of, using bot-token-compatible APIs (conversations.list +
// conversations.history, not search.messages which needs a user token).
type Slack struct {
	BotToken string
	UserID   string
	APIRoot  string
	Client   *http.Client
}

// NewSlack creates a Slack adapter. The HTTP client carries a 15s timeout
// so a hung API call cannot hold the sync lock.
func NewSlack(botToken, userID string) *Slack {
	return &Slack{
		BotToken: botToken,
		UserID:   userID,
		APIRoot:  defaultSlackAPIRoot,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Name implements Adapter.
func (s *Slack) Name() string { return "slack" }

// PullSince scans member channels for messages mentioning the user since the
// cutoff. Thread parents get their replies appended so the extractor sees
// the whole exchange. Source IDs are "<channel>_<ts>", stable across pulls.
func (s *Slack) PullSince(ctx context.Context, since time.Time) ([]RawItem, error) {
	if s.BotToken == "" || s.UserID == "" {
		return nil, &UnavailableError{Source: s.Name(), Err: fmt.Errorf("bot token or user id not configured")}
	}

	channels, err := s.listChannels(ctx)
	if err != nil {
		return nil, &UnavailableError{Source: s.Name(), Err: err}
	}

	mention := fmt.Sprintf("<@%s>", s.UserID)
	oldest := fmt.Sprintf("%d", since.Unix())

	var items []RawItem
	for _, ch := range channels {
		history, err := s.call(ctx, "conversations.history", url.Values{
			"channel": {ch.id},
			"oldest":  {oldest},
			"limit":   {"100"},
		})
		if err != nil {
			// One unreadable channel should not sink the others.
			continue
		}

		for _, msg := range history.Get("messages").Array() {
			text := msg.Get("text").String()
			if !strings.Contains(text, mention) {
				continue
			}
			ts := msg.Get("ts").String()

			if threadTS := msg.Get("thread_ts").String(); threadTS != "" {
				if replies := s.threadText(ctx, ch.id, threadTS); replies != "" {
					text = replies
				}
			}

			items = append(items, RawItem{
				SourceType: todo.SourceSlack,
				SourceID:   fmt.Sprintf("%s_%s", ch.id, ts),
				Text:       text,
				Context:    "#" + ch.name,
			})
		}
	}
	return items, nil
}

type slackChannel struct {
	id   string
	name string
}

func (s *Slack) listChannels(ctx context.Context) ([]slackChannel, error) {
	var channels []slackChannel
	cursor := ""
	for {
		params := url.Values{
			"types":            {"public_channel,private_channel,mpim"},
			"exclude_archived": {"true"},
			"limit":            {"200"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		res, err := s.call(ctx, "conversations.list", params)
		if err != nil {
			return nil, err
		}
		for _, ch := range res.Get("channels").Array() {
			if !ch.Get("is_member").Bool() {
				continue
			}
			channels = append(channels, slackChannel{
				id:   ch.Get("id").String(),
				name: ch.Get("name").String(),
			})
		}
		cursor = res.Get("response_metadata.next_cursor").String()
		if cursor == "" {
			break
		}
	}
	return channels, nil
}

// threadText joins a thread's messages into one payload, oldest first.
func (s *Slack) threadText(ctx context.Context, channelID, threadTS string) string {
	res, err := s.call(ctx, "conversations.replies", url.Values{
		"channel": {channelID},
		"ts":      {threadTS},
		"limit":   {"50"},
	})
	if err != nil {
		return ""
	}
	var parts []string
	for _, msg := range res.Get("messages").Array() {
		if t := msg.Get("text").String(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func (s *Slack) call(ctx context.Context, method string, params url.Values) (gjson.Result, error) {
	root := s.APIRoot
	if root == "" {
		root = defaultSlackAPIRoot
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s?%s", root, method, params.Encode()), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("slack %s: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.BotToken)

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("slack %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("slack %s: read body: %w", method, err)
	}
	res := gjson.ParseBytes(body)
	if !res.Get("ok").Bool() {
		return gjson.Result{}, fmt.Errorf("slack %s: %s", method, res.Get("error").String())
	}
	return res, nil
}
