package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"analyst-alchemist/internal/config"
)

const maxBodyBytes = 4 << 20

// Response is a backend reply with its body normalised to JSON.
type Response struct {
	Status int
	Body   json.RawMessage
}

func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Client talks to the external backend rooted at API_PREFIX.
type Client struct {
	base string
	http *http.Client
	cb   *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func New(cfg config.ServerConfig, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(cfg.APIPrefix, "/"),
		http: &http.Client{Timeout: time.Duration(cfg.BackendTimeoutMS) * time.Millisecond},
	}
	trips := uint32(cfg.BackendBreakerTrips)
	if trips == 0 {
		trips = 5
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     time.Duration(cfg.BackendBreakerOpenMS) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("backend breaker state change")
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// serverError marks a 5xx reply so the breaker counts it.
type serverError struct{ resp *Response }

func (e *serverError) Error() string { return fmt.Sprintf("backend status %d", e.resp.Status) }

// Forward sends one request and returns whatever status the backend
// produced. The error is non-nil only when no reply was obtained.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, token string, body []byte) (*Response, error) {
	requestsTotal.Add(1)
	out, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.roundTrip(ctx, method, path, query, token, body)
		if err != nil {
			return nil, err
		}
		if resp.Status >= 500 {
			return resp, &serverError{resp: resp}
		}
		return resp, nil
	})
	if err != nil {
		var se *serverError
		if errors.As(err, &se) {
			failuresTotal.Add(1)
			return se.resp, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			breakerRejectsTotal.Add(1)
		} else {
			failuresTotal.Add(1)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out.(*Response), nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, token string, body []byte) (*Response, error) {
	u := c.base + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return &Response{Status: resp.StatusCode, Body: normalizeBody(b)}, nil
}

// normalizeBody keeps JSON bodies verbatim and wraps anything else as
// {"message": text}.
func normalizeBody(b []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	wrapped, _ := json.Marshal(map[string]string{"message": string(trimmed)})
	return wrapped
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, token string, in any) (json.RawMessage, error) {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return nil, err
		}
	}
	resp, err := c.Forward(ctx, method, path, query, token, body)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &APIError{Status: resp.Status, Body: resp.Body}
	}
	return resp.Body, nil
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (c *Client) Login(ctx context.Context, creds Credentials) (Token, error) {
	raw, err := c.call(ctx, http.MethodPost, "/auth/login", nil, "", creds)
	if err != nil {
		return Token{}, err
	}
	return DecodeToken(raw)
}

// DecodeToken reads a login reply; the access token is required.
func DecodeToken(raw []byte) (Token, error) {
	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil || tok.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: access_token", ErrMissingField)
	}
	if tok.TokenType == "" {
		tok.TokenType = "bearer"
	}
	return tok, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) (json.RawMessage, error) {
	return c.call(ctx, http.MethodPost, "/auth/register", nil, "", reg)
}

func (c *Client) ListAgents(ctx context.Context, token string, query url.Values) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, "/agents", query, token, nil)
}

func (c *Client) CreateAgent(ctx context.Context, token string, payload json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, http.MethodPost, "/agents", nil, token, payload)
}

func (c *Client) DeleteAgent(ctx context.Context, token, agentID string) error {
	_, err := c.call(ctx, http.MethodDelete, "/agents/"+url.PathEscape(agentID), nil, token, nil)
	return err
}

type CreateAgentV2Request struct {
	AgentName  string `json:"agent_name"`
	WorkflowID string `json:"workflow_id"`
	PersonaID  string `json:"persona_id"`
}

// CreateAgentV2 creates the agent remotely and returns its normalised id.
func (c *Client) CreateAgentV2(ctx context.Context, token string, req CreateAgentV2Request) (string, error) {
	raw, err := c.call(ctx, http.MethodPost, "/api/v2/agents", nil, token, req)
	if err != nil {
		return "", err
	}
	return AgentID(raw)
}

func (c *Client) ListStockActivities(ctx context.Context, token string) ([]Activity, error) {
	raw, err := c.call(ctx, http.MethodGet, "/api/v2/stock-activities", nil, token, nil)
	if err != nil {
		return nil, err
	}
	list, err := decodeActivities(raw)
	if err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return list, nil
}

func (c *Client) JoinActivity(ctx context.Context, token string, activityID FlexID) (json.RawMessage, error) {
	return c.call(ctx, http.MethodPost, "/api/v2/stock-activities/tasks", nil, token, map[string]FlexID{"activity_id": activityID})
}

// JoinCurrentActivity picks the active competition and enrols the user in it.
func (c *Client) JoinCurrentActivity(ctx context.Context, token string) (Activity, error) {
	list, err := c.ListStockActivities(ctx, token)
	if err != nil {
		return Activity{}, err
	}
	act, ok := PickActivity(list)
	if !ok {
		return Activity{}, ErrNoActivity
	}
	if _, err := c.JoinActivity(ctx, token, act.ID); err != nil {
		return Activity{}, err
	}
	return act, nil
}
