// File: internal/session/client.go

// Package session provisions remote browser sessions and drives them over
// CDP. The Client talks to a Steel-style REST API; the Gateway executes
// primitive commands against the provisioned browser.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

// Client provisions sessions against the configured API. It implements
// schemas.Provisioner.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ schemas.Provisioner = (*Client)(nil)

func NewClient(cfg config.SessionConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("session API key is required")
	}
	base, err := url.Parse(cfg.APIBaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid session API base URL %q", cfg.APIBaseURL)
	}
	return &Client{
		baseURL:    cfg.APIBaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.Named("session.client"),
	}, nil
}

type createSessionRequest struct {
	Dimensions   *schemas.Viewport `json:"dimensions,omitempty"`
	UseProxy     bool              `json:"useProxy"`
	SolveCaptcha bool              `json:"solveCaptcha"`
	BlockAds     bool              `json:"blockAds"`
	Timeout      int               `json:"timeout,omitempty"`
}

type sessionResponse struct {
	ID               string           `json:"id"`
	WebsocketURL     string           `json:"websocketUrl"`
	SessionViewerURL string           `json:"sessionViewerUrl"`
	Dimensions       schemas.Viewport `json:"dimensions"`
	Status           string           `json:"status"`
}

// CreateSession provisions a new remote browser with the requested
// viewport. Transient API failures are retried with exponential backoff.
func (c *Client) CreateSession(ctx context.Context, spec schemas.SessionSpec) (*schemas.BrowserSession, error) {
	reqBody := createSessionRequest{
		UseProxy:     spec.UseProxy,
		SolveCaptcha: spec.SolveCaptcha,
		BlockAds:     spec.BlockAds,
		Timeout:      spec.TimeoutMS,
	}
	if spec.Viewport.Width > 0 && spec.Viewport.Height > 0 {
		vp := spec.Viewport
		reqBody.Dimensions = &vp
	}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if resp.ID == "" || resp.WebsocketURL == "" {
		return nil, fmt.Errorf("session API returned incomplete session (id=%q)", resp.ID)
	}

	viewport := resp.Dimensions
	if viewport.Width == 0 || viewport.Height == 0 {
		viewport = spec.Viewport
	}

	c.logger.Info("Remote browser session created.",
		zap.String("session_id", resp.ID),
		zap.String("viewer_url", resp.SessionViewerURL),
		zap.Int("width", viewport.Width),
		zap.Int("height", viewport.Height))

	return &schemas.BrowserSession{
		ID:         resp.ID,
		ConnectURL: resp.WebsocketURL,
		ViewerURL:  resp.SessionViewerURL,
		Viewport:   viewport,
	}, nil
}

// ReleaseSession tells the API to tear the session down. Safe to call for
// sessions that already expired.
func (c *Client) ReleaseSession(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	path := fmt.Sprintf("/v1/sessions/%s/release", url.PathEscape(id))
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("failed to release session %s: %w", id, err)
	}
	c.logger.Info("Remote browser session released.", zap.String("session_id", id))
	return nil
}

// do executes one API call with retries on transient status codes.
func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 1 * time.Minute
	b.MaxInterval = 10 * time.Second
	requestID := uuid.NewString()

	operation := func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Steel-Api-Key", c.apiKey)
		req.Header.Set("X-Request-Id", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("Session API network error, retrying.", zap.Error(err))
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			err := fmt.Errorf("session API error: status %d, body: %s", resp.StatusCode, string(raw))
			switch resp.StatusCode {
			case http.StatusTooManyRequests, http.StatusInternalServerError,
				http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return err
			default:
				return backoff.Permanent(err)
			}
		}

		if respBody != nil {
			if err := json.Unmarshal(raw, respBody); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}
