// Package voice issues real-time room access tokens and starts voice bots.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/proxy"
)

var NowFunc = time.Now // mockable

type (
	SessionRequest struct {
		Room       string   `json:"room" validate:"required,notblank"`
		Identity   string   `json:"identity" validate:"required,notblank"`
		Name       string   `json:"name"`
		TTLSeconds *float64 `json:"ttl_seconds"`
	}

	Session struct {
		URL   string `json:"url"`
		Token string `json:"token"`
	}

	StartBotRequest struct {
		Room string `json:"room" validate:"required,notblank"`
	}

	StartBotResult struct {
		Status string          `json:"status"`
		Reason string          `json:"reason,omitempty"`
		Bot    json.RawMessage `json:"bot,omitempty"`
	}
)

func (sr *SessionRequest) Validate(validate *validator.Validate) error {
	sr.Room = core.CleanString(sr.Room)
	sr.Identity = core.CleanString(sr.Identity)
	return validate.Struct(sr)
}

func (br *StartBotRequest) Validate(validate *validator.Validate) error {
	br.Room = core.CleanString(br.Room)
	return validate.Struct(br)
}

type (
	ServiceInterface interface {
		// Ready reports a *core.ConfigError when the token settings are incomplete.
		Ready() error
		IssueToken(req SessionRequest) (Session, error)
		StartBot(ctx context.Context, req StartBotRequest) (StartBotResult, error)
	}

	Service struct {
		conf   core.LiveKitConfig
		client proxy.Doer
		// Issued is called after every signed token.
		Issued func(room string, ttl time.Duration)
	}
)

var _ ServiceInterface = (*Service)(nil)

// NewService returns the voice Service. A nil client means http.DefaultClient.
func NewService(conf core.LiveKitConfig, client proxy.Doer) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{conf: conf, client: client}
}

func (svc *Service) Ready() error {
	var missing []string
	if svc.conf.APIKey == "" {
		missing = append(missing, "LIVEKIT_API_KEY")
	}
	if svc.conf.APISecret == "" {
		missing = append(missing, "LIVEKIT_API_SECRET")
	}
	if svc.conf.URL == "" {
		missing = append(missing, "LIVEKIT_URL")
	}
	if len(missing) > 0 {
		return core.NewConfigError(missing...)
	}
	return nil
}

// IssueToken signs a fresh access token for req; tokens are never cached.
func (svc *Service) IssueToken(req SessionRequest) (Session, error) {
	if err := svc.Ready(); err != nil {
		return Session{}, err
	}

	ttl := ClampTTL(req.TTLSeconds)
	claims := NewClaims(svc.conf.APIKey, req.Identity, req.Name, req.Room, svc.conf.AgentName, ttl)
	token, err := SignToken(claims, svc.conf.APISecret)
	if err != nil {
		return Session{}, errors.Wrap(err, "signing access token")
	}
	if svc.Issued != nil {
		svc.Issued(req.Room, ttl)
	}
	return Session{URL: svc.conf.URL, Token: token}, nil
}

// StartBot asks the voice orchestrator to join req.Room. Without an orchestrator the
// agent dispatch embedded in the access token is relied upon and nothing is sent.
func (svc *Service) StartBot(ctx context.Context, req StartBotRequest) (StartBotResult, error) {
	if svc.conf.BotURL == "" {
		return StartBotResult{Status: "skipped", Reason: "agent dispatched via token"}, nil
	}

	payload, err := json.Marshal(map[string]string{
		"room":       req.Room,
		"agent_name": svc.conf.AgentName,
	})
	if err != nil {
		return StartBotResult{}, errors.Wrap(err, "encoding bot request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.conf.BotURL, bytes.NewReader(payload))
	if err != nil {
		return StartBotResult{}, errors.Wrap(err, "building bot request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := svc.client.Do(httpReq)
	if err != nil {
		return StartBotResult{}, core.NewUpstreamError("voice orchestrator", 0, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return StartBotResult{}, core.NewUpstreamError("voice orchestrator", resp.StatusCode, nil)
	}

	reply, err := proxy.Decode(resp)
	if err != nil {
		return StartBotResult{}, core.NewUpstreamError("voice orchestrator", 0, err)
	}
	if reply.Body != nil {
		_ = reply.Body.Close()
	}
	return StartBotResult{Status: "started", Bot: reply.JSON}, nil
}
