// Package room mints video room credentials for interview sessions.
// Tokens are HS256 JWTs in the shape LiveKit-compatible media servers
// accept: an identity subject plus a "video" claim carrying the room
// grants.
package room

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotConfigured is returned when the provider credentials are
// missing.
var ErrNotConfigured = errors.New("room provider not configured")

// Credentials are what a candidate needs to join the interview room.
type Credentials struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	RoomName string `json:"roomName"`
}

// Config holds the media server credentials.
type Config struct {
	URL       string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

// Provider mints room join tokens.
type Provider struct {
	cfg Config
}

// videoGrant is the room permission claim. The candidate publishes a
// microphone track, subscribes to the agent and sends code over the
// data channel.
type videoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type roomClaims struct {
	jwt.RegisteredClaims
	Video videoGrant `json:"video"`
}

// New creates a room provider.
func New(cfg Config) *Provider {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 2 * time.Hour
	}
	return &Provider{cfg: cfg}
}

// Configured reports whether credentials are present.
func (p *Provider) Configured() bool {
	return p.cfg.APIKey != "" && p.cfg.APISecret != "" && p.cfg.URL != ""
}

// CreateRoom derives the session's room name and mints a join token
// for the candidate. Room naming convention: interview-{sessionId} for
// easy debugging.
func (p *Provider) CreateRoom(sessionID string) (*Credentials, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	roomName := fmt.Sprintf("interview-%s", sessionID)
	identity := fmt.Sprintf("candidate-%s", shortID(sessionID))

	now := time.Now()
	claims := roomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.cfg.APIKey,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.cfg.TokenTTL)),
		},
		Video: videoGrant{
			Room:           roomName,
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.cfg.APISecret))
	if err != nil {
		return nil, fmt.Errorf("sign room token: %w", err)
	}

	return &Credentials{
		Token:    token,
		URL:      p.cfg.URL,
		RoomName: roomName,
	}, nil
}

func shortID(sessionID string) string {
	if len(sessionID) > 8 {
		return sessionID[:8]
	}
	return sessionID
}
