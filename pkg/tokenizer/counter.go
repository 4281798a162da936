package tokenizer

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// encodingForModel maps OpenAI model names to tiktoken encodings.
var encodingForModel = map[string]tokenizer.Encoding{
	"gpt-4o":        tokenizer.O200kBase,
	"gpt-4o-mini":   tokenizer.O200kBase,
	"gpt-4.1":       tokenizer.O200kBase,
	"gpt-4.1-mini":  tokenizer.O200kBase,
	"o1":            tokenizer.O200kBase,
	"o3-mini":       tokenizer.O200kBase,
	"gpt-4-turbo":   tokenizer.Cl100kBase,
	"gpt-4":         tokenizer.Cl100kBase,
	"gpt-3.5-turbo": tokenizer.Cl100kBase,
}

// charsPerToken is the rough ratio used when no exact encoding is known.
const charsPerToken = 4

// CountTokens returns the token count of text for the given provider and model.
// OpenAI models use tiktoken; other providers use a character estimate.
func CountTokens(text, provider, model string) (int64, error) {
	if provider != "openai" {
		return estimateTokens(text), nil
	}
	enc, err := codecFor(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}
	return int64(len(ids)), nil
}

// Truncate shortens text to at most maxTokens tokens. Text already within
// the limit, or a non-positive limit, is returned unchanged.
func Truncate(text, provider, model string, maxTokens int) (string, error) {
	if maxTokens <= 0 || text == "" {
		return text, nil
	}
	if provider != "openai" {
		runes := []rune(text)
		limit := maxTokens * charsPerToken
		if len(runes) <= limit {
			return text, nil
		}
		return string(runes[:limit]), nil
	}

	enc, err := codecFor(model)
	if err != nil {
		return "", err
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		return "", fmt.Errorf("encode text: %w", err)
	}
	if len(ids) <= maxTokens {
		return text, nil
	}
	out, err := enc.Decode(ids[:maxTokens])
	if err != nil {
		return "", fmt.Errorf("decode tokens: %w", err)
	}
	return out, nil
}

func codecFor(model string) (tokenizer.Codec, error) {
	encName, ok := encodingForModel[model]
	if !ok {
		encName = tokenizer.Cl100kBase
	}
	enc, err := tokenizer.Get(encName)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encName, err)
	}
	return enc, nil
}

// estimateTokens assumes four characters per token on average.
func estimateTokens(text string) int64 {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return 0
	}
	return int64((len(text) + charsPerToken - 1) / charsPerToken)
}

// CountPromptTokens counts a system and user prompt pair the way chat
// completions bill them, including per-message overhead.
func CountPromptTokens(system, prompt, provider, model string) (int64, error) {
	var total int64
	for _, part := range []string{system, prompt} {
		if part == "" {
			continue
		}
		n, err := CountTokens(part, provider, model)
		if err != nil {
			return 0, err
		}
		total += n + 4 // role and formatting
	}
	return total + 2, nil // reply priming
}
