package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang-market-aggregator/internal/aggregator/config"
	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/logger"

	"google.golang.org/genai"
)

// ContentGenerator is the part of the genai client the prediction adapter uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiPredictionAdapter asks a Gemini model for one forecast per call.
type GeminiPredictionAdapter struct {
	cfg       config.Gemini
	generator ContentGenerator
	logger    *logger.Logger
}

// NewGeminiPredictionAdapter creates the adapter. Without an api key it is
// built anyway and reports ErrAdapterUnavailable on every call.
func NewGeminiPredictionAdapter(ctx context.Context, cfg config.Gemini, log *logger.Logger) (*GeminiPredictionAdapter, error) {
	if cfg.APIKey == "" {
		return &GeminiPredictionAdapter{cfg: cfg, logger: log}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return NewGeminiPredictionAdapterWithGenerator(cfg, client.Models, log), nil
}

// NewGeminiPredictionAdapterWithGenerator creates the adapter around an existing generator.
func NewGeminiPredictionAdapterWithGenerator(cfg config.Gemini, generator ContentGenerator, log *logger.Logger) *GeminiPredictionAdapter {
	return &GeminiPredictionAdapter{cfg: cfg, generator: generator, logger: log}
}

func (a *GeminiPredictionAdapter) Name() string {
	return "gemini"
}

func (a *GeminiPredictionAdapter) Budget() Budget {
	return Budget{MaxConcurrent: a.cfg.Budget.MaxConcurrent, MinSpacing: a.cfg.Budget.MinSpacing}
}

func (a *GeminiPredictionAdapter) FetchPrediction(ctx context.Context, req PredictionRequest) (entity.Prediction, error) {
	if a.generator == nil {
		return entity.Prediction{}, fmt.Errorf("%w: gemini api key is not configured", ErrAdapterUnavailable)
	}

	prompt := BuildPredictionPrompt(req.Symbol, req.Timeframe, req.Quote)
	contents := []*genai.Content{genai.NewContentFromText(prompt, "user")}
	resp, err := a.generator.GenerateContent(ctx, a.cfg.Model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		a.logger.Warn("Failed to generate prediction", logger.ErrorField(err), logger.StringField("symbol", req.Symbol), logger.StringField("timeframe", string(req.Timeframe)))
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return entity.Prediction{}, &UpstreamError{Status: apiErr.Code, Message: apiErr.Message}
		}
		return entity.Prediction{}, err
	}

	result, err := parsePredictionResult(resp.Text())
	if err != nil {
		return entity.Prediction{}, err
	}
	return toPrediction(req, result), nil
}

func parsePredictionResult(text string) (*dto.PredictionResult, error) {
	raw := strings.TrimSpace(text)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &UpstreamError{Message: "empty response from model"}
	}

	var result dto.PredictionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &UpstreamError{Message: fmt.Sprintf("failed to unmarshal prediction: %v", err)}
	}
	if result.PredictedPrice <= 0 {
		return nil, &UpstreamError{Message: "prediction has no predicted_price"}
	}
	return &result, nil
}

// toPrediction fills change fields the model left out from the cycle's quote.
func toPrediction(req PredictionRequest, result *dto.PredictionResult) entity.Prediction {
	p := entity.Prediction{
		Symbol:            req.Symbol,
		Timeframe:         req.Timeframe,
		PredictedPrice:    result.PredictedPrice,
		Confidence:        clamp(result.Confidence, 0, 100),
		SupportingFactors: append([]string{}, result.SupportingFactors...),
		RiskFactors:       append([]string{}, result.RiskFactors...),
	}
	if result.PredictedChange != nil {
		p.PredictedChange = *result.PredictedChange
	} else if req.Quote != nil {
		p.PredictedChange = result.PredictedPrice - req.Quote.Price
	}
	if result.PredictedChangePercent != nil {
		p.PredictedChangePercent = *result.PredictedChangePercent
	} else if req.Quote != nil && req.Quote.Price != 0 {
		p.PredictedChangePercent = (result.PredictedPrice - req.Quote.Price) / req.Quote.Price * 100
	}
	return p
}
