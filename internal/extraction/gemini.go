package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for extraction and chat.
const DefaultModelName = "gemini-2.5-flash"

const extractionTemperature float32 = 0.1

// ContentGenerator is the subset of *genai.Models used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGeminiClient creates a Gemini API client. An empty apiKey lets the SDK
// read GEMINI_API_KEY or GOOGLE_API_KEY from the environment.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	return client, nil
}

// GeminiExtractor sends documents inline to a Gemini model.
type GeminiExtractor struct {
	models  ContentGenerator
	model   string
	clock   clock.Clock
	log     zerolog.Logger
	timeout time.Duration
}

// NewGeminiExtractor creates an extractor. An empty model selects
// DefaultModelName.
func NewGeminiExtractor(models ContentGenerator, model string, clk clock.Clock, log zerolog.Logger) *GeminiExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{models: models, model: model, clock: clk, log: log}
}

// WithTimeout bounds every model call. Zero leaves calls unbounded.
func (g *GeminiExtractor) WithTimeout(d time.Duration) *GeminiExtractor {
	g.timeout = d
	return g
}

// Extract implements Extractor.
func (g *GeminiExtractor) Extract(ctx context.Context, doc Document, docType domain.DocumentType, uc UserContext) Result {
	log := g.log.With().Str("file", doc.Name).Str("document_type", string(docType)).Logger()
	start := g.clock.Now()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	data, err := g.extract(ctx, doc, docType, uc)
	if err != nil {
		res := Failed(doc, docType, start, err)
		res.Retryable = errors.Is(err, ErrModelUnavailable)
		log.Error().Err(err).Bool("retryable", res.Retryable).Msg("document extraction failed")
		return res
	}

	log.Info().
		Int("transactions", len(data.Transactions)).
		Float64("confidence", data.Confidence).
		Msg("document extracted")

	return Result{
		Success:       true,
		ExtractedData: data,
		Metadata: Metadata{
			DocumentType:   data.DocumentType,
			ProcessingTime: start,
			FileName:       doc.Name,
			FileSize:       doc.Size(),
			Confidence:     data.Confidence,
		},
	}
}

func (g *GeminiExtractor) extract(ctx context.Context, doc Document, docType domain.DocumentType, uc UserContext) (ExtractedData, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: BuildPrompt(docType, uc)},
				{
					InlineData: &genai.Blob{
						MIMEType: doc.MIMEType,
						Data:     doc.Data,
					},
				},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(extractionTemperature),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		if transient(err) {
			return ExtractedData{}, fmt.Errorf("extract: generate content: %w: %w", ErrModelUnavailable, err)
		}
		return ExtractedData{}, fmt.Errorf("extract: generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return ExtractedData{}, fmt.Errorf("extract: %w", err)
	}

	data, err := ParseModelOutput(text, docType, NormalizeOptions{
		DocumentID: doc.Name,
		Today:      clock.Today(g.clock),
	})
	if err != nil {
		return ExtractedData{}, fmt.Errorf("extract: %w", err)
	}
	return data, nil
}

// ErrModelUnavailable marks model calls that may succeed when repeated.
var ErrModelUnavailable = errors.New("model unavailable")

// transient reports whether a failed model call is worth repeating: rate
// limits, timeouts, server errors and transport failures. Other API errors
// and caller cancellation are final.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= http.StatusInternalServerError ||
			apiErr.Code == http.StatusTooManyRequests ||
			apiErr.Code == http.StatusRequestTimeout
	}
	return true
}

// Errors describing unusable model responses.
var (
	ErrNoCandidates = errors.New("no valid response from model, it may have been blocked")
	ErrTruncated    = errors.New("response was truncated due to token limit, try a smaller or simpler document")
	ErrSafety       = errors.New("response was blocked for safety reasons")
	ErrRecitation   = errors.New("response was blocked due to recitation concerns")
	ErrEmptyText    = errors.New("no text content in model response")
)

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", ErrNoCandidates
	}

	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonMaxTokens:
		return "", ErrTruncated
	case genai.FinishReasonSafety:
		return "", ErrSafety
	case genai.FinishReasonRecitation:
		return "", ErrRecitation
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}
