package goldapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"gold-rate/internal/apperr"
	"gold-rate/internal/rates"
)

const (
	userAgent    = "gold-rate/1.0 (github.com)"
	maxBodyBytes = 4 << 20
)

// Client is a rate-limited HTTP client for the gold price service.
// A singleflight.Group coalesces concurrent full-price fetches for the same
// location (the TUI and a prefetch can overlap).
type Client struct {
	http     *http.Client
	base     string
	limiter  *rate.Limiter
	clientID string
	group    singleflight.Group
}

// NewClient creates a client for base (e.g. https://host) allowing rps
// requests per second with a small burst. Per-request deadlines come from the
// caller's context; the HTTP client timeout is only a backstop.
func NewClient(base string, rps float64) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		base:    strings.TrimRight(base, "/"),
		limiter: rate.NewLimiter(rate.Limit(rps), 3),
	}
}

// SetClientID sets the X-Client-ID header sent with feedback.
func (c *Client) SetClientID(id string) { c.clientID = id }

// Base returns the service root URL.
func (c *Client) Base() string { return c.base }

// HealthCheck reports whether the service answers at all.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := c.newRequest(ctx, http.MethodGet, c.base+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// Cities returns location names matching a partial query.
func (c *Client) Cities(ctx context.Context, q string) ([]string, error) {
	u := fmt.Sprintf("%s/api/v1/cities?q=%s", c.base, url.QueryEscape(q))
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("cities %q: %w", q, err)
	}
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("cities %q: %v: %w", q, err, apperr.ErrMalformed)
	}
	return names, nil
}

// FullPrice fetches the full price payload for an exact location name.
// Concurrent calls for the same location share one request; a caller whose
// context ends first returns early with its own context error.
func (c *Client) FullPrice(ctx context.Context, city string) (*rates.PricePayload, error) {
	key := rates.Key(city)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.fullPrice(ctx, city)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, apperr.ErrCancelled) && ctx.Err() == nil {
				// Joined a flight whose owner gave up; fetch on our own context.
				c.group.Forget(key)
				return c.fullPrice(ctx, city)
			}
			return nil, res.Err
		}
		return res.Val.(*rates.PricePayload), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("full price %s: %w", city, classify(ctx, ctx.Err()))
	}
}

func (c *Client) fullPrice(ctx context.Context, city string) (*rates.PricePayload, error) {
	u := fmt.Sprintf("%s/api/v1/gold/full?city=%s", c.base, url.QueryEscape(city))
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("full price %s: %w", city, err)
	}
	p, err := rates.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("full price %s: %w", city, err)
	}
	return p, nil
}

// Feedback is a user message sent to the service.
type Feedback struct {
	Message string `json:"message"`
	City    string `json:"city,omitempty"`
	Email   string `json:"email,omitempty"`
}

// SubmitFeedback posts fb.
func (c *Client) SubmitFeedback(ctx context.Context, fb Feedback) error {
	if strings.TrimSpace(fb.Message) == "" {
		return errors.New("feedback message is empty")
	}
	data, err := json.Marshal(fb)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.base+"/api/v1/feedback", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.clientID != "" {
		req.Header.Set("X-Client-ID", c.clientID)
	}
	_, err = c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req)
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and maps every failure onto the apperr taxonomy.
func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		// Wait fails early, with ctx still live, when the next token lands
		// after the deadline.
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			return nil, fmt.Errorf("rate limit: %v: %w", err, apperr.ErrTimeout)
		}
		return nil, classify(ctx, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(ctx, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("status 404: %w", apperr.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("status %d: %s: %w", resp.StatusCode, snippet(body), apperr.ErrService)
	}
	return body, nil
}

// classify turns a transport error into a taxonomy error. Context state wins:
// a deadline is a timeout and a cancel is a supersession, whatever the
// transport reported.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%v: %w", err, apperr.ErrTimeout)
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return fmt.Errorf("%v: %w", err, apperr.ErrCancelled)
	case isOffline(err):
		return fmt.Errorf("%v: %w", err, apperr.ErrOffline)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%v: %w", err, apperr.ErrTimeout)
	}
	return fmt.Errorf("%v: %w", err, apperr.ErrService)
}

// isOffline reports dial and DNS failures, the cases where no request left
// the machine.
func isOffline(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 120 {
		s = s[:120] + "…"
	}
	return s
}
