package llm

import (
	"context"
	"errors"
)

var (
	// ErrNoContent is returned when a backend answers without usable text.
	ErrNoContent = errors.New("llm: empty response")

	// ErrUnavailable is returned when a backend rejects or cannot serve a request.
	ErrUnavailable = errors.New("llm: backend unavailable")
)

// Request is a single-turn generation request.
type Request struct {
	// Purpose tags the call for metering ("alert", "summary", "receipt", "advice").
	Purpose string

	System string
	Prompt string

	// JSON asks the backend for a JSON object response.
	JSON bool

	MaxTokens   int
	Temperature *float32

	// ImageBase64 carries an optional image (without data-URL prefix).
	ImageBase64 string
	ImageMIME   string
}

// Usage is the token accounting reported for one call.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the text produced by a backend.
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// TextGenerator is the contract every text-generation backend implements.
type TextGenerator interface {
	// Name returns the backend identifier (e.g. "openai", "gemini").
	Name() string

	// Generate runs one request. Implementations make a single attempt.
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Temperature returns a pointer suitable for Request.Temperature.
func Temperature(t float32) *float32 {
	return &t
}
