package extract

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
)

const extractionPrompt = `You are an action item extractor for a busy product manager. Extract ONLY concrete tasks that someone needs to DO.

RULES:
1. Every item MUST start with an action verb (Fix, Send, Build, Update, Ship, Create, Schedule, Follow up, etc.)
2. The "title" should be a clear, specific task (max 120 chars) including the WHAT and WHO if mentioned
3. The "description" MUST provide full context: WHY this matters, any deadlines or blockers mentioned, and who else is involved. Write 2-3 sentences.
4. Max 5 items per source. Confidence 0.9+ only for explicitly stated tasks.

REJECT (return an empty array if only these exist):
- Observations, summaries, status updates, vague intentions
- "Focus on X", "Think about Y", "Good progress on Z"

Return JSON:
{
  "action_items": [
    {"title": "Verb + specific task", "description": "2-3 sentences of context", "confidence": 0.95}
  ]
}

Only return the JSON, nothing else.`

const defaultModel = openai.ChatModelGPT4oMini

// OpenAI is the production extractor: one chat completion per raw item with
// the extraction prompt, bounded by a per-call timeout.
type OpenAI struct {
	client  openai.Client
	apiKey  string
	model   string
	timeout time.Duration
}

// NewOpenAI creates an extractor using the given API key. An empty model
// selects the default (small, fast) extraction model.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = defaultModel
	}
	return &OpenAI{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		apiKey:  apiKey,
		model:   model,
		timeout: 60 * time.Second,
	}
}

// Extract implements Extractor.
func (o *OpenAI) Extract(ctx context.Context, text string) ([]Candidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(text + "\n\n---\n\n" + extractionPrompt),
		},
	})
	if err != nil {
		return nil, &Error{Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}
	return ParseCandidates(resp.Choices[0].Message.Content), nil
}

// Available implements Probe with a bounded GET against the models endpoint.
// A missing API key short-circuits to false without a network call.
func (o *OpenAI) Available(ctx context.Context) bool {
	if o.apiKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.openai.com/v1/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ParseCandidates decodes the model's JSON reply, tolerating markdown code
// fences and dropping entries without a title.
func ParseCandidates(reply string) []Candidate {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var candidates []Candidate
	gjson.Get(reply, "action_items").ForEach(func(_, item gjson.Result) bool {
		title := strings.TrimSpace(item.Get("title").String())
		if title == "" {
			return true
		}
		candidates = append(candidates, Candidate{
			Title:       title,
			Description: strings.TrimSpace(item.Get("description").String()),
			Confidence:  item.Get("confidence").Float(),
		})
		return true
	})
	return candidates
}
