package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"booksms/common/redact"
)

const (
	defaultHostedBase  = "https://api.openai.com/v1"
	defaultHostedModel = "gpt-4o-mini"
	defaultTimeout     = 30 * time.Second
	defaultMaxTokens   = 512
)

//go:embed classify_schema.json
var classifySchemaJSON string

// classifySchema validates the JSON document the model returns before any
// field-level coercion happens. Compiled once at init; the schema is
// embedded, so a failure here is a programming error.
var classifySchema = jsonschema.MustCompileString("classify_schema.json", classifySchemaJSON)

// Config configures the OpenAI-compatible hosted classifier.
type Config struct {
	// APIKey is the bearer token used to authenticate against the API.
	// When empty the provider reports itself unavailable and the pipeline
	// never attempts a network call.
	APIKey string

	// BaseURL overrides the API endpoint. Useful for local models (Ollama),
	// Azure OpenAI, or any other OpenAI-compatible endpoint.
	// Defaults to https://api.openai.com/v1 when empty.
	BaseURL string

	// Model is the chat model to use. Defaults to gpt-4o-mini when empty
	// (cost-efficient, sufficient for intent extraction).
	Model string

	// Timeout is the HTTP request timeout. Defaults to 30 s — a slow
	// classification must never hold an SMS worker longer than that.
	Timeout time.Duration
}

// hostedProvider implements Provider using the OpenAI chat completions API
// with JSON-mode output to guarantee a parseable classification document.
type hostedProvider struct {
	cfg    Config
	client *http.Client
}

// NewHostedProvider returns a Provider backed by the OpenAI (or compatible)
// chat API. The returned provider is safe for concurrent use.
func NewHostedProvider(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultHostedBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultHostedModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &hostedProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Available reports whether a credential is configured. Pure predicate —
// no network call.
func (p *hostedProvider) Available() bool {
	return p.cfg.APIKey != ""
}

// --- minimal chat-completions wire types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatFormat struct {
	Type string `json:"type"` // "json_object"
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// classifyReply is the JSON document the model is instructed to produce.
type classifyReply struct {
	Intent           string         `json:"intent"`
	Confidence       float64        `json:"confidence"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	Reasoning        string         `json:"reasoning,omitempty"`
	FollowUpQuestion string         `json:"followUpQuestion,omitempty"`
}

// systemPromptTmpl is the instruction set sent as the "system" message.
// One printf verb is substituted at call time: the intent catalogue.
const systemPromptTmpl = `You are the intent classifier for an SMS assistant that manages a personal book collection.

Your only job is to translate the user's text message into a structured JSON classification.
You NEVER answer the user yourself — you only classify.

Intent catalogue (the only values you may produce):
%s

RULES (strict — do not deviate):
1. Respond ONLY with valid JSON. No markdown, no code fences, no text outside JSON.
2. "intent" must be one of the catalogue values above. If unsure, use "UNKNOWN".
3. "confidence" is your certainty in [0,1]. Be honest: garbled or off-topic text gets a low value.
4. "parameters" may contain: title, author, genre, query, rating (1-5), minRating (1-5),
   page, percent (0-100), limit, goal. Include only what the message states.
5. Ignore the sender identity; treat every message identically.
6. If the intent is clear but a required detail is missing (e.g. a progress update with
   no page or percent), keep the intent and set "followUpQuestion" to a short question.

JSON shape:
{
  "intent":           "<catalogue value>",
  "confidence":       0.0-1.0,
  "parameters":       {"title": "...", "page": 123},
  "reasoning":        "<one short sentence>",
  "followUpQuestion": "<only when a required detail is missing>"
}
`

// Classify sends the message to the hosted service and returns a
// ParsedIntent. Network and upstream failures come back as errors for the
// pipeline's retry/fallback policy; a reply that merely names an unknown
// intent is not an error — it degrades to IntentUnknown at reduced
// confidence instead.
func (p *hostedProvider) Classify(ctx context.Context, req Request) (*ParsedIntent, error) {
	if !p.Available() {
		return nil, ErrUnavailable
	}

	system := fmt.Sprintf(systemPromptTmpl, intentCatalogue())

	userPrompt := req.Message
	if req.PriorTurn != nil {
		userPrompt = priorTurnPreamble(req.PriorTurn) + userPrompt
	}

	body := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:      defaultMaxTokens,
		Temperature:    0,
		ResponseFormat: &chatFormat{Type: "json_object"},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("nlp: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("nlp: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("nlp: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, &UpstreamError{Status: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nlp: read response body: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("%w: decode API envelope: %v", ErrMalformedReply, err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("nlp: API error (%s): %s", chatResp.Error.Type, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrMalformedReply)
	}

	return parseClassifyReply(chatResp.Choices[0].Message.Content, req)
}

// parseClassifyReply turns the raw model output into a ParsedIntent:
// schema validation first, then field-level coercion that drops malformed
// parameters instead of failing the whole classification.
func parseClassifyReply(content string, req Request) (*ParsedIntent, error) {
	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("%w: decode classification JSON: %v (raw: %.120s)", ErrMalformedReply, err, content)
	}
	if err := classifySchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: schema validation: %v", ErrMalformedReply, err)
	}

	var reply classifyReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("%w: decode classification fields: %v", ErrMalformedReply, err)
	}

	pi := &ParsedIntent{
		RawMessage: req.Message,
		Confidence: clampFloat(reply.Confidence, 0, 1),
		Params:     coerceParams(reply.Parameters),
	}

	kind, ok := KnownIntent(reply.Intent)
	if !ok {
		// The model invented an intent. Not a failure: downgrade so the
		// confidence gate routes this to the unknown handler.
		slog.Debug("nlp: hosted reply named an unregistered intent",
			"intent", reply.Intent, "sender", redact.Phone(req.Sender))
		pi.Kind = IntentUnknown
		pi.Confidence = UnknownIntentConfidence
		return pi, nil
	}
	pi.Kind = kind

	if reply.FollowUpQuestion != "" {
		pi.NeedsMoreInfo = true
		pi.FollowUpQuestion = reply.FollowUpQuestion
	}
	applyNeedsMoreInfo(pi)

	return pi, nil
}

// coerceParams validates each parameter individually, clamping numeric
// ranges and silently dropping anything malformed. One bad field never
// fails the classification.
func coerceParams(raw map[string]any) Params {
	var p Params
	for key, val := range raw {
		switch strings.ToLower(key) {
		case "title":
			p.Title = asString(val)
		case "author":
			p.Author = asString(val)
		case "genre":
			p.Genre = strings.ToLower(asString(val))
		case "query":
			p.Query = asString(val)
		case "rating":
			p.Rating = asIntClamped(val, 1, 5)
		case "minrating", "min_rating":
			p.MinRating = asIntClamped(val, 1, 5)
		case "page":
			p.Page = asIntClamped(val, 0, 100000)
		case "percent":
			p.Percent = asIntClamped(val, 0, 100)
		case "limit":
			p.Limit = asIntClamped(val, 0, 50)
		case "goal":
			p.Goal = asIntClamped(val, 0, 10000)
		case "ordinal":
			p.Ordinal = asIntClamped(val, 0, 5)
		case "reference":
			p.Reference = asString(val)
		default:
			// Unknown parameter names are dropped.
		}
	}
	return p
}

// asString extracts a trimmed string, returning "" for non-strings.
func asString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// asIntClamped extracts an integer from a JSON number or numeric string and
// clamps it into [lo, hi]. Returns 0 (the "not provided" zero value) when
// the value is not numeric.
func asIntClamped(v any, lo, hi int) int {
	var n int
	switch t := v.(type) {
	case float64:
		n = int(t)
	case string:
		var err error
		n, err = parseInt(t)
		if err != nil {
			return 0
		}
	default:
		return 0
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	return n, err
}

func clampFloat(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

// intentCatalogue renders the known intent kinds for the system prompt.
func intentCatalogue() string {
	kinds := []IntentKind{
		IntentSearchBooks, IntentBookDetails, IntentAddBook, IntentRemoveBook,
		IntentRateBook, IntentUpdateProgress, IntentStartBook, IntentFinishBook,
		IntentCurrentlyReading, IntentReadingStats, IntentRecommend,
		IntentListBooks, IntentListGenres, IntentGenreFilter, IntentRatingFilter,
		IntentAuthorFilter, IntentComplexFilter, IntentUnreadBooks,
		IntentFinishedBooks, IntentFavoriteBooks, IntentTopRated,
		IntentRandomPick, IntentRecentlyAdded, IntentRecentlyFinished,
		IntentPagesLeft, IntentBookCount, IntentSetGoal, IntentReadingGoal,
		IntentWishlistAdd, IntentGreeting, IntentHelp, IntentUnknown,
	}
	var sb strings.Builder
	for _, k := range kinds {
		sb.WriteString(string(k))
		sb.WriteString("\n")
	}
	return sb.String()
}

// priorTurnPreamble renders the condensed prior-turn state that gives the
// model multi-turn continuity (e.g. the sender answering "page 200" after
// being asked what page they are on).
func priorTurnPreamble(t *TurnSummary) string {
	var sb strings.Builder
	sb.WriteString("(context from the previous turn: ")
	if t.LastIntent != "" {
		fmt.Fprintf(&sb, "last intent was %s", t.LastIntent)
	}
	if t.LastBookTitle != "" {
		if t.LastIntent != "" {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "the book under discussion is %q", t.LastBookTitle)
	}
	if t.PendingQuestion != "" {
		fmt.Fprintf(&sb, "; the assistant asked: %q", t.PendingQuestion)
	}
	sb.WriteString(")\n")
	return sb.String()
}
