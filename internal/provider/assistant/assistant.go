// Package assistant provisions the voice agent for an interview over
// the provider's REST API. Without an API key, or when the provider
// errors, creation falls back to a mock assistant so an interview can
// always start.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anishjha12309/itero/internal/observability/logging"
)

// Assistant identifies a provisioned voice agent.
type Assistant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Mock reports whether this assistant is a local stand-in rather than
// a provider resource.
func (a Assistant) Mock() bool {
	return strings.HasPrefix(a.ID, "mock-")
}

// Config holds the provider credentials. An empty APIKey selects mock
// mode.
type Config struct {
	APIKey  string
	BaseURL string
}

// Provider creates and deletes voice assistants.
type Provider struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// New creates an assistant provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.vapi.ai"
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logging.WithComponent("assistant-provider"),
	}
}

// assistantRequest is the provider's assistant creation body.
type assistantRequest struct {
	Name                  string           `json:"name"`
	Model                 modelConfig      `json:"model"`
	Voice                 voiceConfig      `json:"voice"`
	Transcriber           transcriberConf  `json:"transcriber"`
	FirstMessage          string           `json:"firstMessage"`
	SilenceTimeoutSeconds int              `json:"silenceTimeoutSeconds"`
	MaxDurationSeconds    int              `json:"maxDurationSeconds"`
}

type modelConfig struct {
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type voiceConfig struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type transcriberConf struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

const firstMessage = "Hello! I'm Sarah, your AI interviewer today. Welcome to your coding interview practice. I'll give you a problem to solve, and I'd like you to explain your thinking as you work through it. Ready to start?"

// Create provisions an assistant named after the session, primed with
// the given system prompt. Provider failures degrade to a mock
// assistant instead of failing the interview.
func (p *Provider) Create(ctx context.Context, sessionID, systemPrompt string) Assistant {
	name := fmt.Sprintf("Interview-%s", shortID(sessionID))

	if p.cfg.APIKey == "" {
		p.logger.Info().Msg("Using mock assistant (no API key configured)")
		return mockAssistant(name)
	}

	body, err := json.Marshal(assistantRequest{
		Name: name,
		Model: modelConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			Messages:    []chatMessage{{Role: "system", Content: systemPrompt}},
			Temperature: 0.7,
		},
		Voice: voiceConfig{
			Provider: "11labs",
			VoiceID:  "EXAVITQu4vr4xnSDxMaL",
		},
		Transcriber: transcriberConf{
			Provider: "deepgram",
			Model:    "nova-2",
			Language: "en",
		},
		FirstMessage:          firstMessage,
		SilenceTimeoutSeconds: 30,
		MaxDurationSeconds:    1800,
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to marshal assistant request")
		return mockAssistant(name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/assistant", bytes.NewReader(body))
	if err != nil {
		return mockAssistant(name)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Assistant creation failed, falling back to mock")
		return mockAssistant(name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		p.logger.Warn().
			Int("status", resp.StatusCode).
			Str("detail", string(detail)).
			Msg("Assistant API rejected creation, falling back to mock")
		return mockAssistant(name)
	}

	var created Assistant
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == "" {
		p.logger.Warn().Err(err).Msg("Unparseable assistant response, falling back to mock")
		return mockAssistant(name)
	}

	p.logger.Info().Str("assistantId", created.ID).Msg("Assistant created")
	return created
}

// Delete removes a provisioned assistant. Mock assistants are skipped;
// provider failures are logged and swallowed.
func (p *Provider) Delete(ctx context.Context, assistant Assistant) {
	if assistant.Mock() || p.cfg.APIKey == "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.cfg.BaseURL+"/assistant/"+assistant.ID, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn().Err(err).Str("assistantId", assistant.ID).Msg("Assistant deletion failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn().Int("status", resp.StatusCode).Str("assistantId", assistant.ID).Msg("Assistant deletion rejected")
	}
}

func mockAssistant(name string) Assistant {
	return Assistant{ID: "mock-" + uuid.NewString(), Name: name}
}

func shortID(sessionID string) string {
	if len(sessionID) > 8 {
		return sessionID[:8]
	}
	return sessionID
}
