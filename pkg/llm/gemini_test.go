package llm

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Track "), genai.Text("your spending.")}},
		}},
	}
	text, err := geminiText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Track your spending.", text)
}

func TestGeminiText_Empty(t *testing.T) {
	_, err := geminiText(nil)
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = geminiText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = geminiText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}}},
	})
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestImageFormat(t *testing.T) {
	assert.Equal(t, "jpeg", imageFormat(""))
	assert.Equal(t, "png", imageFormat("image/png"))
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}
