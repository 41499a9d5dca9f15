package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/teamwerk/akquise-pilot/internal/ai"
	"github.com/teamwerk/akquise-pilot/internal/logger"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed rate_prompt.md
var ratePromptTemplate string

const defaultMaxLogLength = 200

// RateSuggester proposes hourly rates via Gemini. Called only for approved
// freelance applications, after the decision is already made.
type RateSuggester struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewRateSuggester builds a suggester on top of a content generator.
func NewRateSuggester(generator contentGenerator, log *zap.Logger, maxLogLength int) *RateSuggester {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &RateSuggester{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// SuggestRate asks the model for a rate proposal. The returned rate is never
// below the candidate's minimum rate.
func (s *RateSuggester) SuggestRate(ctx context.Context, req ai.RateRequest) (*ai.RateSuggestion, error) {
	prompt := buildRatePrompt(req)

	s.logger.Debug("gemini rate suggestion request",
		zap.String("candidate", req.CandidateName),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini rate suggestion response",
		zap.String("candidate", req.CandidateName),
		zap.String("response_preview", logger.TruncateForLog(raw, s.maxLogLen)),
	)

	suggestion, err := parseRateResponse(raw)
	if err != nil {
		return nil, err
	}

	if suggestion.Rate < req.MinRate {
		s.logger.Debug("raising suggested rate to candidate minimum",
			zap.Float64("suggested", suggestion.Rate),
			zap.Float64("minimum", req.MinRate),
		)
		suggestion.Rate = req.MinRate
	}

	suggestion.Raw = raw
	return suggestion, nil
}

func buildRatePrompt(req ai.RateRequest) string {
	template := ratePromptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Project: {{TITLE}}\n{{DESCRIPTION}}\nCandidate: {{CANDIDATE}} ({{ROLE}}), minimum rate {{MIN_RATE}}\nBudget: {{BUDGET}}\nMatch score: {{SCORE}}/100\nJSON Response:"
	}

	budget := "unknown"
	if req.BudgetMax > 0 {
		budget = fmt.Sprintf("%.0f - %.0f", req.BudgetMin, req.BudgetMax)
	}

	replacer := strings.NewReplacer(
		"{{TITLE}}", req.Title,
		"{{DESCRIPTION}}", req.Description,
		"{{CLIENT}}", req.ClientName,
		"{{CANDIDATE}}", req.CandidateName,
		"{{ROLE}}", req.CandidateRole,
		"{{MIN_RATE}}", fmt.Sprintf("%.0f", req.MinRate),
		"{{BUDGET}}", budget,
		"{{SCORE}}", strconv.Itoa(req.Score),
	)
	return replacer.Replace(template)
}

func parseRateResponse(raw string) (*ai.RateSuggestion, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini rate response: %w", err)
	}

	rate := coerceFloat(data["rate"])
	if math.IsNaN(rate) || rate <= 0 {
		return nil, fmt.Errorf("gemini rate response has no usable rate: %q", cleaned)
	}

	return &ai.RateSuggestion{
		Rate:      rate,
		Reasoning: coerceString(data["reasoning"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
