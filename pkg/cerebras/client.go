package cerebras

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"socialsim/pkg/llm"
	"socialsim/pkg/logger"
)

const (
	defaultBaseURL  = "https://api.cerebras.ai/v1"
	classifierModel = "llama3.1-8b"
)

// thinkRegex matches <think>...</think> content, including newlines.
var thinkRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ModelConfig defines the ID and limits for the prioritized list.
type ModelConfig struct {
	ID       string
	MaxCtx   int
	MaxToken int
}

var PrioritizedModels = []ModelConfig{
	{ID: "llama-3.3-70b", MaxCtx: 65536, MaxToken: 2000},
	{ID: "qwen-3-235b-a22b-instruct-2507", MaxCtx: 65536, MaxToken: 2000},
	{ID: "gpt-oss-120b", MaxCtx: 65536, MaxToken: 2000},
	{ID: "llama3.1-8b", MaxCtx: 8192, MaxToken: 2000},
}

// KeyState tracks the health of an API key
type KeyState struct {
	Key          string
	FailureCount int
	LastUsed     time.Time
	LastSuccess  time.Time
}

// APIError captures non-2xx responses so callers can inspect the status.
type APIError struct {
	StatusCode int
	Body       string
}

const maxErrorBody = 512

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "... (truncated)"
	}
	return fmt.Sprintf("api status %d: %s", e.StatusCode, body)
}

type Client struct {
	keys      []*KeyState
	keyMu     sync.RWMutex
	clients   map[string]openai.Client
	clientsMu sync.RWMutex

	baseURL     string
	maxRetries  int
	temperature float64
	topP        float64
	models      []ModelConfig
	log         *logger.Logger
}

// NewClient creates a client with support for multiple API keys
// (comma-separated). Keys are rotated by failure count, least first.
func NewClient(apiKeys string, temperature, topP float64, models []ModelConfig, log *logger.Logger) *Client {
	if len(models) == 0 {
		models = PrioritizedModels
	}
	if log == nil {
		log = logger.Nop()
	}

	var keys []*KeyState
	for _, k := range strings.Split(apiKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, &KeyState{Key: k})
		}
	}
	if len(keys) == 0 {
		log.Warn("No Cerebras API keys provided")
	} else {
		log.Info("Loaded Cerebras API keys", "count", len(keys))
	}

	return &Client{
		keys:        keys,
		clients:     make(map[string]openai.Client),
		baseURL:     defaultBaseURL,
		maxRetries:  2,
		temperature: temperature,
		topP:        topP,
		models:      models,
		log:         log,
	}
}

func (c *Client) getClient(key string) openai.Client {
	c.clientsMu.RLock()
	if client, ok := c.clients[key]; ok {
		c.clientsMu.RUnlock()
		return client
	}
	c.clientsMu.RUnlock()

	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()
	client := openai.NewClient(
		option.WithBaseURL(c.baseURL),
		option.WithAPIKey(key),
		option.WithMaxRetries(c.maxRetries),
	)
	c.clients[key] = client
	return client
}

// getBestKey returns the API key with the least failures
func (c *Client) getBestKey() *KeyState {
	c.keyMu.RLock()
	defer c.keyMu.RUnlock()

	if len(c.keys) == 0 {
		return nil
	}
	best := c.keys[0]
	for _, k := range c.keys[1:] {
		if k.FailureCount < best.FailureCount {
			best = k
		}
	}
	return best
}

func (c *Client) recordSuccess(key *KeyState) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	key.LastSuccess = time.Now()
	key.LastUsed = time.Now()
	// Gradual recovery.
	if key.FailureCount > 0 {
		key.FailureCount--
	}
}

func (c *Client) recordFailure(key *KeyState) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	key.FailureCount++
	key.LastUsed = time.Now()
}

// Generate runs a structured turn, falling back through the model list and
// switching keys on rate limit or auth failures.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.Instruction + "\n\n" + schemaHint(req.Schema)),
	}
	for _, t := range req.History {
		if t.Role == llm.RoleModel {
			messages = append(messages, openai.AssistantMessage(t.Text))
		} else {
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}
	return c.complete(ctx, messages, c.temperature)
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, temperature float64) (string, error) {
	keyState := c.getBestKey()
	if keyState == nil {
		return "", fmt.Errorf("no API keys configured")
	}

	var lastErr error
	for _, modelConf := range c.models {
		c.log.Debug("Attempting Cerebras model", "model", modelConf.ID, "key_failures", keyState.FailureCount)
		start := time.Now()

		content, err := c.completeWithKey(ctx, keyState.Key, modelConf, messages, temperature)
		if err == nil {
			c.recordSuccess(keyState)
			c.log.Debug("Cerebras model success", "model", modelConf.ID, "took", time.Since(start))
			return content, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && isRateLimitOrAuth(apiErr.StatusCode) {
			c.recordFailure(keyState)
			if nextKey := c.getBestKey(); nextKey != nil && nextKey != keyState {
				c.log.Warn("Key rate limited or rejected, trying another key", "status", apiErr.StatusCode)
				keyState = nextKey
				content, err = c.completeWithKey(ctx, keyState.Key, modelConf, messages, temperature)
				if err == nil {
					c.recordSuccess(keyState)
					return content, nil
				}
			}
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = fmt.Errorf("model %s: %w", modelConf.ID, err)
	}

	c.recordFailure(keyState)
	return "", fmt.Errorf("all models exhausted. Last error: %w", lastErr)
}

func (c *Client) completeWithKey(ctx context.Context, key string, model ModelConfig, messages []openai.ChatCompletionMessageParamUnion, temperature float64) (string, error) {
	client := c.getClient(key)
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model.ID),
		Messages:    messages,
		Temperature: openai.Float(temperature),
		TopP:        openai.Float(c.topP),
	}
	if model.MaxToken > 0 {
		params.MaxTokens = openai.Int(int64(model.MaxToken))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var oaErr *openai.Error
		if errors.As(err, &oaErr) {
			return "", &APIError{StatusCode: oaErr.StatusCode, Body: oaErr.Message}
		}
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}

	content := strings.TrimSpace(thinkRegex.ReplaceAllString(resp.Choices[0].Message.Content, ""))
	if content == "" {
		return "", llm.ErrEmptyResponse
	}
	return content, nil
}

// Classify uses the small fast model to pick one of labels.
func (c *Client) Classify(ctx context.Context, text string, labels []string) (string, float64, error) {
	var labelsStr strings.Builder
	for i, label := range labels {
		fmt.Fprintf(&labelsStr, "%d. %s\n", i+1, label)
	}

	prompt := fmt.Sprintf(`Classify this chat message into exactly ONE of the following categories:

%s
Message to classify: %q

Output a JSON object with:
- "label": the exact category name that best matches
- "confidence": a number from 0.0 to 1.0 indicating how confident you are

Output ONLY valid JSON. Example: {"label": "NONE", "confidence": 0.85}`, labelsStr.String(), text)

	keyState := c.getBestKey()
	if keyState == nil {
		return labels[0], 0.5, fmt.Errorf("no API keys configured")
	}

	resp, err := c.completeWithKey(ctx, keyState.Key, ModelConfig{ID: classifierModel, MaxToken: 100}, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a content moderation classifier. Output only valid JSON."),
		openai.UserMessage(prompt),
	}, 0.1)
	if err != nil {
		c.recordFailure(keyState)
		return labels[0], 0.5, err
	}
	c.recordSuccess(keyState)

	var result struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(llm.StripCodeFence(resp)), &result); err != nil {
		return labels[0], 0.5, nil
	}
	return result.Label, result.Confidence, nil
}

// schemaHint spells out the expected JSON object, since the OpenAI
// compatible endpoint has no portable schema enforcement.
func schemaHint(s llm.Schema) string {
	if len(s.Fields) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Output ONLY a JSON object with these fields:\n")
	for _, f := range s.Fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(&b, "- %q (%s, %s): %s\n", f.Name, f.Type, req, f.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func isRateLimitOrAuth(status int) bool {
	return status == 429 || status == 401 || status == 403
}
