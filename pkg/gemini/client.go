package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"socialsim/pkg/config"
	"socialsim/pkg/llm"
	"socialsim/pkg/logger"
)

// ErrBlocked is returned when Gemini refuses the prompt outright.
var ErrBlocked = errors.New("gemini: prompt blocked")

// Client talks to the Gemini API for turns, classification and portraits.
type Client struct {
	client          *genai.Client
	model           string
	classifierModel string
	imageModel      string
	temperature     float32
	topP            float32
	log             *logger.Logger
}

func NewClient(ctx context.Context, apiKey string, settings config.ModelSettings, log *logger.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	return newClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}, settings, log)
}

func newClient(ctx context.Context, cc *genai.ClientConfig, settings config.ModelSettings, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	classifierModel := settings.ClassifierModel
	if classifierModel == "" {
		classifierModel = settings.Model
	}
	return &Client{
		client:          client,
		model:           settings.Model,
		classifierModel: classifierModel,
		imageModel:      settings.ImageModel,
		temperature:     float32(settings.Temperature),
		topP:            float32(settings.TopP),
		log:             log,
	}, nil
}

// Generate runs one structured turn and returns the raw JSON text.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.Instruction, genai.RoleUser),
		Temperature:       genai.Ptr(c.temperature),
		TopP:              genai.Ptr(c.topP),
		ResponseMIMEType:  "application/json",
		SafetySettings:    toSafetySettings(req.Safety),
	}
	if len(req.Schema.Fields) > 0 {
		cfg.ResponseSchema = toSchema(req.Schema)
	}

	contents := toContents(req.History)
	if len(contents) == 0 {
		// Gemini needs at least one user turn.
		contents = []*genai.Content{genai.NewContentFromText("(begin)", genai.RoleUser)}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate (%s): %w", c.model, err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	c.log.Debug("Gemini turn generated", "model", c.model, "chars", len(text))
	return text, nil
}

// Classify picks one of labels for text. Unparseable answers fall back to
// the first label with a 0.5 confidence.
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
- "confidence": a number from 0.0 to 1.0 indicating how confident you are`, labelsStr.String(), text)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText("You are a content moderation classifier. Output only valid JSON.", genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.1),
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"label":      {Type: genai.TypeString, Enum: labels},
				"confidence": {Type: genai.TypeNumber},
			},
			Required: []string{"label", "confidence"},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.classifierModel,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, cfg)
	if err != nil {
		return labels[0], 0.5, fmt.Errorf("gemini classify (%s): %w", c.classifierModel, err)
	}
	raw, err := responseText(resp)
	if err != nil {
		return labels[0], 0.5, err
	}

	var result struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &result); err != nil {
		return labels[0], 0.5, nil
	}
	return result.Label, result.Confidence, nil
}

// GenerateImage renders one image for prompt and returns its bytes and MIME type.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	if c.imageModel == "" {
		return nil, "", fmt.Errorf("gemini: no image model configured")
	}
	resp, err := c.client.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, "", fmt.Errorf("gemini image (%s): %w", c.imageModel, err)
	}
	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		mime := img.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return img.Image.ImageBytes, mime, nil
	}
	return nil, "", fmt.Errorf("gemini image (%s): %w", c.imageModel, llm.ErrEmptyResponse)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", llm.ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func toContents(history []llm.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := genai.RoleUser
		if t.Role == llm.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(role)))
	}
	return contents
}

func toSchema(s llm.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Fields)),
		Required:   s.Required(),
	}
	for _, f := range s.Fields {
		prop := &genai.Schema{Description: f.Description}
		switch f.Type {
		case llm.TypeInteger:
			prop.Type = genai.TypeInteger
		case llm.TypeBoolean:
			prop.Type = genai.TypeBoolean
		default:
			prop.Type = genai.TypeString
		}
		out.Properties[f.Name] = prop
	}
	return out
}

func toSafetySettings(settings []llm.SafetySetting) []*genai.SafetySetting {
	if len(settings) == 0 {
		return nil
	}
	out := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		out = append(out, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return out
}
