package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey string
	Model  string
	TopP   float32
	TopK   int32
}

// Gemini generates text with Google's Gemini models.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGemini creates a Gemini backend. Close releases the underlying client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-pro"
	}
	if cfg.TopP == 0 {
		cfg.TopP = 0.8
	}
	if cfg.TopK == 0 {
		cfg.TopK = 40
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Close releases the client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	m := g.client.GenerativeModel(g.cfg.Model)
	m.SetTopP(g.cfg.TopP)
	m.SetTopK(g.cfg.TopK)
	if req.Temperature != nil {
		m.SetTemperature(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}
	m.SafetySettings = safetySettings

	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.ImageBase64 != "" {
		img, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		parts = append(parts, genai.ImageData(imageFormat(req.ImageMIME), img))
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text, err := geminiText(resp)
	if err != nil {
		return nil, err
	}

	out := &Response{Text: text, Model: g.cfg.Model}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoContent
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrNoContent
	}
	return b.String(), nil
}

// imageFormat converts "image/png" to the "png" form genai expects.
func imageFormat(mime string) string {
	if mime == "" {
		return "jpeg"
	}
	return strings.TrimPrefix(mime, "image/")
}
