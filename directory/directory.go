/*
Package directory talks to the user-directory service that owns account
holders: display names for history enrichment and email-to-owner
resolution for transfers by email.

The client is wrapped in a circuit breaker. The directory is a non-critical
collaborator: when it is down, history listings degrade to the "N/A"
placeholder, and the breaker keeps a dead directory from stalling every
listing on a full timeout.
*/
package directory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

// TokenSource supplies the service-to-service bearer token. Optional.
type TokenSource func() (string, error)

// Client implements wallet.Directory over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	token   TokenSource
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }
func WithTokenSource(ts TokenSource) Option { return func(cl *Client) { cl.token = ts } }
func WithLogger(l *zap.Logger) Option       { return func(cl *Client) { cl.logger = l } }

// NewClient creates a directory client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "directory",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip after 5 consecutive failures.
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

var _ wallet.Directory = (*Client)(nil)

// DisplayName resolves a user's display name.
func (c *Client) DisplayName(ctx context.Context, ownerID string) (string, error) {
	return c.get(ctx, c.baseURL+"/internal/wallet/get-user-by-id/"+url.PathEscape(ownerID))
}

// OwnerIDByEmail resolves the owner id behind an email address.
func (c *Client) OwnerIDByEmail(ctx context.Context, email string) (string, error) {
	return c.get(ctx, c.baseURL+"/internal/wallet/get-id-by-email?email="+url.QueryEscape(email))
}

func (c *Client) get(ctx context.Context, u string) (string, error) {
	body, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		if c.token != nil {
			tok, err := c.token()
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err != nil {
			return nil, err
		}
		return strings.TrimSpace(string(b)), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", wallet.ErrExternalLookup, err)
	}
	return body.(string), nil
}
