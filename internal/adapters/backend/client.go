// Package backend is the call client's view of the token server.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shivwng1/lvkit-main/internal/domain"
)

const DefaultTimeout = 10 * time.Second

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.Code)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client implements core.Backend over the server's JSON endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenRequest struct {
	RoomName        string `json:"room_name"`
	ParticipantName string `json:"participant_name"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) FetchConfig(ctx context.Context) (domain.ClientConfig, error) {
	var cfg domain.ClientConfig
	if err := c.do(ctx, "GET /config", http.MethodGet, "/config", nil, &cfg); err != nil {
		return domain.ClientConfig{}, err
	}
	return cfg, nil
}

func (c *Client) FetchToken(ctx context.Context, room domain.RoomName, identity domain.Identity) (domain.JoinCredential, error) {
	var resp tokenResponse
	req := tokenRequest{RoomName: string(room), ParticipantName: string(identity)}
	if err := c.do(ctx, "POST /token", http.MethodPost, "/token", req, &resp); err != nil {
		return domain.JoinCredential{}, err
	}
	if resp.Token == "" {
		return domain.JoinCredential{}, errors.New("POST /token: empty token in response")
	}
	return domain.JoinCredential{Token: resp.Token, Room: room, Identity: identity}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		log.Debug().Str("module", "adapters.backend").Str("op", op).Int("status", resp.StatusCode).Msg("backend error")
		return &StatusError{Op: op, Code: resp.StatusCode, Message: e.Error}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
