package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Error is a transport or provider failure for a single send. It carries the
// raw status and body for audit logging; retry policy lives in the caller.
type Error struct {
	StatusCode int
	Body       string
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("gateway: %v", e.cause)
	}
	return fmt.Sprintf("gateway: unexpected status code: %d body=%q", e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error { return e.cause }

// ProviderResponse is what the provider returned for a successful send. The
// provider has no structured error schema, so Body is opaque text.
type ProviderResponse struct {
	StatusCode int
	Body       string
}

// Credentials identify this tenant against the SMS provider.
type Credentials struct {
	Username  string
	Password  string
	Shortcode string
	SenderID  string
	APIKey    string
}

// Client sends single text messages through the external HTTP SMS provider.
// It never retries; one call is one attempt.
type Client struct {
	endpoint string
	creds    Credentials
	client   *http.Client
	limiter  *rate.Limiter
	log      *slog.Logger
}

func NewClient(endpoint string, creds Credentials, sendsPerSec int, log *slog.Logger) *Client {
	if sendsPerSec <= 0 {
		sendsPerSec = 10
	}
	return &Client{
		endpoint: endpoint,
		creds:    creds,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(sendsPerSec), sendsPerSec),
		log:     log,
	}
}

// Send delivers one message to one recipient. phone must already be
// normalized to international format. Any 2xx response is treated as a
// best-effort success signal; everything else maps to *Error.
func (c *Client) Send(ctx context.Context, phone, message string) (*ProviderResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{cause: err}
	}

	q := url.Values{}
	q.Set("username", c.creds.Username)
	q.Set("password", c.creds.Password)
	q.Set("msg", message)
	q.Set("shortcode", c.creds.Shortcode)
	q.Set("sender_id", c.creds.SenderID)
	q.Set("phone", phone)
	q.Set("api_key", c.creds.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &Error{cause: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("gateway send failed", "phone", RedactPhone(phone), "error", err)
		return nil, &Error{cause: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("gateway rejected send",
			"phone", RedactPhone(phone),
			"status", resp.StatusCode,
		)
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.log.Debug("gateway accepted send", "phone", RedactPhone(phone), "status", resp.StatusCode)

	return &ProviderResponse{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}
