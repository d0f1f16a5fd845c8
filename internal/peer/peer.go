// Package peer tells a peer chatbot what the talker just said.
package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// ErrNoURL is returned when the notifier has no peer address.
var ErrNoURL = errors.New("peer url is empty")

// Config configures a Notifier.
type Config struct {
	// URL is the peer chatbot base address, e.g. http://peer:8001.
	URL string

	// Timeout bounds one notification, including the rate limit wait
	// (defaults to 1s)
	Timeout time.Duration

	// Rate limit requests per minute (defaults to 60)
	RequestsPerMinute int

	// Client is the HTTP client (optional)
	Client *http.Client
}

// Notifier sends GET <url>/say/<text> to the peer.
type Notifier struct {
	base    string
	timeout time.Duration
	client  *http.Client

	// Rate limiting to avoid flooding the peer
	rateLimiter *rate.Limiter
}

// NewNotifier creates a notifier.
func NewNotifier(config Config) (*Notifier, error) {
	if config.URL == "" {
		return nil, ErrNoURL
	}
	if _, err := url.Parse(config.URL); err != nil {
		return nil, fmt.Errorf("invalid peer url: %w", err)
	}
	if config.Timeout == 0 {
		config.Timeout = time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 60
	}
	if config.Client == nil {
		config.Client = http.DefaultClient
	}

	return &Notifier{
		base:        strings.TrimRight(config.URL, "/"),
		timeout:     config.Timeout,
		client:      config.Client,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}, nil
}

// URL returns the peer base address.
func (n *Notifier) URL() string {
	return n.base
}

// Notify sends text to the peer. Text must already be free of markup.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	target := n.base + "/say/" + url.PathEscape(text)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building peer request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("peer request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	log.Info("Notified peer chatbot", "url", target, "status", resp.StatusCode)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("peer returned %s", resp.Status)
	}
	return nil
}
