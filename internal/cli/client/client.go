package client

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/domain"
)

const (
	defaultResponseTimeout = 30 * time.Second
	mimeEventStream        = "text/event-stream"
	mimeJSON               = "application/json"
)

// APIClient wraps Hertz Client for HTTP communication with the chat service
type APIClient struct {
	client          *client.Client
	server          string
	responseTimeout time.Duration
	preferStream    bool
	logger          *zap.Logger
}

// Option configures an APIClient
type Option func(*APIClient)

// WithResponseTimeout bounds the wait for a response's status and headers
func WithResponseTimeout(d time.Duration) Option {
	return func(c *APIClient) {
		if d > 0 {
			c.responseTimeout = d
		}
	}
}

// WithPreferStream asks the server for a streamed chat reply
func WithPreferStream(v bool) Option {
	return func(c *APIClient) { c.preferStream = v }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(c *APIClient) { c.logger = l }
}

// NewAPIClient creates a new API client
func NewAPIClient(server string, opts ...Option) (*APIClient, error) {
	normalizedServer, err := normalizeServerURL(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	// netpoll does not cope with streamed bodies, use the std dialer
	c, err := client.NewClient(
		client.WithDialTimeout(10*time.Second),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithResponseBodyStream(true),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	api := &APIClient{
		client:          c,
		server:          normalizedServer,
		responseTimeout: defaultResponseTimeout,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(api)
	}
	return api, nil
}

// Server returns the normalized base URL
func (c *APIClient) Server() string {
	return c.server
}

// normalizeServerURL normalizes server URL to ensure it has a scheme and no trailing slash
func normalizeServerURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server URL")
	}

	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// call describes one request issued through do
type call struct {
	method string
	path   string
	token  string
	accept string
	body   any
}

// do is the single request helper. It returns either a 2xx response, which the
// caller must release, or a *domain.DomainError:
//   - NetworkFailure when the request could not be sent or timed out
//   - AuthExpired on 401 for bearer-authenticated calls
//   - ServerRejected for any other non-2xx status
func (c *APIClient) do(ctx context.Context, rc call) (*protocol.Response, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()

	req.SetMethod(rc.method)
	req.SetRequestURI(c.server + rc.path)
	if rc.token != "" {
		req.Header.Set("Authorization", "Bearer "+rc.token)
	}
	if rc.accept != "" {
		req.Header.Set("Accept", rc.accept)
	}
	if rc.body != nil {
		bodyBytes, err := sonic.Marshal(rc.body)
		if err != nil {
			protocol.ReleaseRequest(req)
			protocol.ReleaseResponse(resp)
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		req.Header.SetContentTypeBytes([]byte(mimeJSON))
		req.SetBody(bodyBytes)
	}

	if err := c.roundTrip(ctx, req, resp); err != nil {
		c.logger.Warn("request failed",
			zap.String("method", rc.method),
			zap.String("path", rc.path),
			zap.Error(err))
		return nil, domain.NewNetworkError(err)
	}
	protocol.ReleaseRequest(req)

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return resp, nil
	}

	body := string(resp.Body())
	protocol.ReleaseResponse(resp)

	c.logger.Warn("server rejected request",
		zap.String("method", rc.method),
		zap.String("path", rc.path),
		zap.Int("status", status),
		zap.String("body", body))

	if status == consts.StatusUnauthorized && rc.token != "" {
		return nil, domain.NewAuthExpiredError(body)
	}
	return nil, domain.NewServerRejectedError(status, body, detailOf(body))
}

// roundTrip waits at most responseTimeout for the status line and headers.
// A streamed body is not covered by the bound.
func (c *APIClient) roundTrip(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	done := make(chan error, 1)
	go func() {
		done <- c.client.Do(ctx, req, resp)
	}()

	timer := time.NewTimer(c.responseTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			protocol.ReleaseRequest(req)
			protocol.ReleaseResponse(resp)
		}
		return err
	case <-timer.C:
		go abandon(done, resp)
		return fmt.Errorf("no response within %s", c.responseTimeout)
	case <-ctx.Done():
		go abandon(done, resp)
		return ctx.Err()
	}
}

// abandon waits out a round trip nobody waits for any more and drops its
// connection, so a late streamed body is not drained. req and resp are
// still owned by the client goroutine, so they are left to the GC.
func abandon(done <-chan error, resp *protocol.Response) {
	if err := <-done; err == nil {
		if fc, ok := resp.BodyStream().(forceCloser); ok {
			fc.ForceClose() //nolint:errcheck
		}
		resp.CloseBodyStream()
	}
}

// detailOf extracts the {"detail": "..."} message of an error body, if any
func detailOf(body string) string {
	if body == "" {
		return ""
	}
	var e struct {
		Detail any `json:"detail"`
	}
	if err := sonic.UnmarshalString(body, &e); err != nil {
		return ""
	}
	if s, ok := e.Detail.(string); ok {
		return s
	}
	return ""
}

// decodeJSON reads a whole 2xx body into out and releases resp
func decodeJSON(resp *protocol.Response, out any) error {
	defer protocol.ReleaseResponse(resp)

	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.NewMalformedResponseError("empty response body")
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return domain.NewMalformedResponseError(fmt.Sprintf("failed to parse response: %v", err))
	}
	return nil
}

// discard releases a response whose body is not needed
func discard(resp *protocol.Response) {
	resp.CloseBodyStream()
	protocol.ReleaseResponse(resp)
}
