package service

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

	"github.com/linkpulse/internal/db"
	"github.com/linkpulse/internal/logging"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Publisher notifies the external platform that a post went live.
type Publisher interface {
	Publish(ctx context.Context, post db.Post) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LogPublisher only records the publication. It is the default when no webhook is configured.
type LogPublisher struct{}

// Publish logs the post. It fails only when ctx is already done.
func (LogPublisher) Publish(ctx context.Context, post db.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logging.Info().Uint("post_id", post.ID).Uint("user_id", post.UserID).Msg("publishing post to external platform")
	return nil
}

type webhookPayload struct {
	ID          uint       `json:"id"`
	UserID      uint       `json:"user_id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
}

// WebhookPublisher POSTs the post as JSON to a fixed URL. Any non-2xx answer is a failure.
type WebhookPublisher struct {
	url  string
	http httpDoer
	now  func() time.Time
}

// NewWebhookPublisher creates a publisher posting to url with a 30s client timeout.
func NewWebhookPublisher(url string) *WebhookPublisher {
	return &WebhookPublisher{
		url:  strings.TrimSpace(url),
		http: &http.Client{Timeout: 30 * time.Second},
		now:  time.Now,
	}
}

// SetHTTPClient swaps the HTTP client; nil restores the default one.
func (p *WebhookPublisher) SetHTTPClient(client httpDoer) {
	if client == nil {
		p.http = &http.Client{Timeout: 30 * time.Second}
		return
	}
	p.http = client
}

// Publish sends the post payload and treats any non-2xx status as a failure.
func (p *WebhookPublisher) Publish(ctx context.Context, post db.Post) error {
	body, err := json.Marshal(webhookPayload{
		ID:          post.ID,
		UserID:      post.UserID,
		Title:       post.Title,
		Body:        post.Body,
		ScheduledAt: post.ScheduledAt,
		PublishedAt: p.now().UTC(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook responded %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// BreakerConfig tunes the circuit breaker in front of a Publisher.
type BreakerConfig struct {
	Name string
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
}

// BreakerPublisher stops calling a failing platform for a while instead of burning
// the publish timeout on every due post.
type BreakerPublisher struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerPublisher wraps next in a breaker that opens after cfg.FailureThreshold
// consecutive failures (default 5) and stays open for cfg.OpenTimeout (default 30s).
func NewBreakerPublisher(next Publisher, cfg BreakerConfig) *BreakerPublisher {
	if cfg.Name == "" {
		cfg.Name = "external-publisher"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("publisher circuit breaker state changed")
		},
	}

	return &BreakerPublisher{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Publish forwards to the wrapped publisher unless the breaker is open.
func (p *BreakerPublisher) Publish(ctx context.Context, post db.Post) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.next.Publish(ctx, post)
	})
	return err
}

// State reports the breaker state for diagnostics.
func (p *BreakerPublisher) State() string {
	return p.cb.State().String()
}

// publishFailureReason labels a publish error for metrics. "skipped" means the post
// vanished and is not a failure.
func publishFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "skipped"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, ErrExternalPublish):
		return "error"
	default:
		return "storage"
	}
}
