package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ogulcanaydogan/budget-guardian/pkg/llm"
	"github.com/ogulcanaydogan/budget-guardian/pkg/model"
	"github.com/ogulcanaydogan/budget-guardian/pkg/tokenizer"
	"github.com/shopspring/decimal"
)

const (
	visionSystemPrompt = "You are an expert receipt analyzer. Extract the following information from the receipt image: store name, date, total amount, and items purchased with their individual prices. Format the response as a JSON object with these fields."
	visionPrompt       = "Analyze this receipt image and extract the details in JSON format with fields: storeName, date, totalAmount, items (array of {name, price})"
	textSystemPrompt   = "You are an expert receipt analyzer. Extract the following information from the receipt text: store name, date, total amount, and items purchased with their individual prices. Format the response as a JSON object with these fields."
	textPromptPrefix   = "Extract the details from this receipt text in JSON format with fields: storeName, date, totalAmount, items (array of {name, price}):\n\n"
)

// ScanRequest carries OCR text, an image, or both.
type ScanRequest struct {
	Text        string `json:"text"`
	ImageBase64 string `json:"image_base64"`
	ImageMIME   string `json:"image_mime,omitempty"`
}

// ScannerConfig tunes the AI paths.
type ScannerConfig struct {
	// AIText sends OCR text to the backend before falling back to regex.
	AIText bool
	// MaxPromptTokens truncates OCR text sent to the backend.
	MaxPromptTokens int
	// Model selects the token encoding used for truncation.
	Model   string
	Timeout time.Duration
}

// Scanner extracts receipts, preferring the AI backend and falling back to
// the regex extractor.
type Scanner struct {
	backend   llm.TextGenerator
	extractor *Extractor
	cfg       ScannerConfig
	logger    *slog.Logger
}

// NewScanner creates a scanner. A nil backend uses regex extraction only.
func NewScanner(backend llm.TextGenerator, extractor *Extractor, cfg ScannerConfig, logger *slog.Logger) *Scanner {
	if extractor == nil {
		extractor = NewExtractor(nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Scanner{backend: backend, extractor: extractor, cfg: cfg, logger: logger}
}

// Scan extracts a receipt. It fails only when the request has neither text
// nor image.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (model.ReceiptExtraction, error) {
	text := strings.TrimSpace(req.Text)
	image, mime := splitDataURL(strings.TrimSpace(req.ImageBase64), req.ImageMIME)
	if text == "" && image == "" {
		return model.ReceiptExtraction{}, fmt.Errorf("%w: either text or image must be provided", model.ErrInvalidInput)
	}

	if image != "" && s.backend != nil {
		out, err := s.scanAI(ctx, llm.Request{
			Purpose:     "receipt",
			System:      visionSystemPrompt,
			Prompt:      visionPrompt,
			JSON:        true,
			ImageBase64: image,
			ImageMIME:   mime,
		})
		if err == nil {
			return out, nil
		}
		s.logger.Warn("vision receipt extraction failed", "error", err)
	}

	if text != "" && s.cfg.AIText && s.backend != nil {
		prompt, err := tokenizer.Truncate(text, s.backend.Name(), s.cfg.Model, s.cfg.MaxPromptTokens)
		if err != nil {
			s.logger.Debug("truncate receipt text", "error", err)
			prompt = text
		}
		out, err := s.scanAI(ctx, llm.Request{
			Purpose: "receipt",
			System:  textSystemPrompt,
			Prompt:  textPromptPrefix + prompt,
			JSON:    true,
		})
		if err == nil {
			return out, nil
		}
		s.logger.Warn("text receipt extraction failed", "error", err)
	}

	if text == "" {
		return s.extractor.defaults(), nil
	}
	return s.extractor.Extract(text), nil
}

type aiReceipt struct {
	StoreName   string     `json:"storeName"`
	Date        string     `json:"date"`
	TotalAmount flexAmount `json:"totalAmount"`
	Items       []struct {
		Name  string     `json:"name"`
		Price flexAmount `json:"price"`
	} `json:"items"`
}

// flexAmount accepts 52.11, "52.11" or "₹52.11".
type flexAmount struct {
	decimal.Decimal
	set bool
}

func (f *flexAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	v, ok := ParseAmount(raw)
	if !ok {
		return fmt.Errorf("invalid amount %q", raw)
	}
	f.Decimal, f.set = v, true
	return nil
}

func (s *Scanner) scanAI(ctx context.Context, req llm.Request) (model.ReceiptExtraction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.backend.Generate(ctx, req)
	if err != nil {
		return model.ReceiptExtraction{}, err
	}

	var parsed aiReceipt
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return model.ReceiptExtraction{}, err
	}
	if strings.TrimSpace(parsed.StoreName) == "" && !parsed.TotalAmount.set && len(parsed.Items) == 0 {
		return model.ReceiptExtraction{}, fmt.Errorf("%w: response has no receipt fields", llm.ErrNoContent)
	}

	out := s.extractor.defaults()
	out.Source = SourceAI
	if name := strings.TrimSpace(parsed.StoreName); name != "" {
		out.StoreName = name
	}
	if date, ok := ParseDate(parsed.Date); ok {
		out.Date = date
	}
	if parsed.TotalAmount.set && !parsed.TotalAmount.IsNegative() {
		out.TotalAmount = parsed.TotalAmount.Decimal
	}
	for _, it := range parsed.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		out.Items = append(out.Items, model.ReceiptItem{Name: name, Price: it.Price.Decimal})
	}
	return out, nil
}

// splitDataURL strips a "data:image/png;base64," prefix and returns the
// payload and its MIME type.
func splitDataURL(image, mime string) (string, string) {
	if !strings.HasPrefix(image, "data:") {
		return image, mime
	}
	header, payload, ok := strings.Cut(image, ",")
	if !ok {
		return "", mime
	}
	header = strings.TrimPrefix(header, "data:")
	header = strings.TrimSuffix(header, ";base64")
	if header != "" {
		mime = header
	}
	return payload, mime
}
