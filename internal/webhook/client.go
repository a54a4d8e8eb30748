// Package webhook is the outbound HTTP caller the remote wallet
// adapter settles through. Timeout, retry budget, and backoff are an
// explicit policy so they can be tuned per operator and tested.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrTimeout covers network timeouts and cancelled deadlines.
	ErrTimeout = errors.New("webhook timeout")
	// ErrRejected is a definitive non-success answer from the
	// operator. Retrying will not help.
	ErrRejected = errors.New("webhook rejected")
)

type RetryPolicy struct {
	Timeout     time.Duration // per-attempt bound
	MaxRetries  int           // retries after the first attempt
	Backoff     time.Duration // first retry delay, doubles per retry
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Timeout: 5 * time.Second, MaxRetries: 2, Backoff: 200 * time.Millisecond}
}

type Client struct {
	inner  *http.Client
	policy RetryPolicy
}

func NewClient(policy RetryPolicy) *Client {
	if policy.Timeout <= 0 {
		policy.Timeout = 5 * time.Second
	}
	return &Client{inner: &http.Client{Timeout: policy.Timeout}, policy: policy}
}

// Sign returns the hex HMAC-SHA256 of body under the operator secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// PostJSON delivers a signed payload and decodes the response into
// out. Transport failures and 5xx answers are retried per policy; 4xx
// is a rejection and returned immediately. Callers make repeat
// delivery safe by embedding an idempotency key in the payload.
func (c *Client) PostJSON(ctx context.Context, url, secret string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.policy.Backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			case <-time.After(delay):
			}
			log.Debug().Str("url", url).Int("attempt", attempt).Msg("webhook retry")
		}

		status, body, err := c.post(ctx, url, secret, raw)
		switch {
		case err != nil:
			lastErr = err
			if errors.Is(err, context.Canceled) {
				return fmt.Errorf("%w: %v", ErrTimeout, err)
			}
		case status >= 200 && status < 300:
			if out == nil || len(body) == 0 {
				return nil
			}
			return json.Unmarshal(body, out)
		case status >= 500:
			lastErr = fmt.Errorf("webhook status %d", status)
		default:
			return fmt.Errorf("%w: status %d: %s", ErrRejected, status, truncate(body, 256))
		}
	}

	if isTimeout(lastErr) {
		return fmt.Errorf("%w: %v", ErrTimeout, lastErr)
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, url, secret string, raw []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(secret, raw))
	}

	resp, err := c.inner.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
