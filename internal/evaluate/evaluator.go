// Package evaluate scores finished interviews with an LLM. The backend
// is an OpenAI-compatible chat completions API (Groq in production);
// every failure path degrades to a default evaluation so ending an
// interview never fails on the evaluator.
package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/anishjha12309/itero/internal/agent"
	"github.com/anishjha12309/itero/internal/models"
	"github.com/anishjha12309/itero/internal/observability/logging"
	"github.com/anishjha12309/itero/internal/observability/metrics"
)

// Config holds the evaluation backend settings. An empty APIKey
// disables calls; Evaluate then returns the default evaluation.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Evaluator scores interviews.
type Evaluator struct {
	cfg    Config
	client *http.Client
	m      *metrics.Metrics
	logger zerolog.Logger
}

// New creates an evaluator.
func New(cfg Config) *Evaluator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	return &Evaluator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		m:      metrics.DefaultMetrics,
		logger: logging.WithComponent("evaluator"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Evaluate scores one finished interview. It never returns nil; on
// any failure the default evaluation comes back along with the error
// for logging.
func (e *Evaluator) Evaluate(ctx context.Context, interview *models.Interview) (*models.Evaluation, error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if e.m != nil {
			e.m.EvaluationsTotal.WithLabelValues(outcome).Inc()
			e.m.EvaluationDuration.Observe(time.Since(start).Seconds())
		}
	}()

	if e.cfg.APIKey == "" {
		outcome = "disabled"
		return DefaultEvaluation(), nil
	}

	trimmed := *interview
	trimmed.Transcript = trimTranscript(interview.Transcript, transcriptTokenBudget)
	if interview.Code != "" {
		trimmed.Code = agent.CodeContext(interview.Code, codeContextLines)
	}

	response, err := e.complete(ctx, buildPrompt(&trimmed))
	if err != nil {
		outcome = "backend_error"
		e.logger.Error().Err(err).Str("sessionId", interview.SessionID).Msg("Evaluation request failed")
		return DefaultEvaluation(), err
	}

	eval, err := parseEvaluation(response)
	if err != nil {
		outcome = "parse_error"
		e.logger.Error().Err(err).Str("sessionId", interview.SessionID).Msg("Evaluation response unparseable")
		return DefaultEvaluation(), err
	}

	e.logger.Info().
		Str("sessionId", interview.SessionID).
		Int("score", eval.OverallScore).
		Msg("Interview evaluated")
	return eval, nil
}

func (e *Evaluator) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat completions: status %d: %s", resp.StatusCode, detail)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completions: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
