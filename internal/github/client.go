// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// ErrAuthFailed marks a compare call rejected by GitHub (401/403). The
// pipeline responds by invalidating the team's stored token.
var ErrAuthFailed = errors.New("github rejected the token")

// Totals are the exact line-change counts for one before...after range.
type Totals struct {
	LinesAdded   int
	LinesRemoved int
}

// Client wraps the go-github compare API used to enrich push events
// with exact line counts. Tokens are per-team, so a fresh underlying
// client is built per call.
type Client struct {
	baseURL string
	logger  *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	return &Client{logger: logger}
}

// WithBaseURL points all constructed clients at an alternate API root.
// Used by tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

// CompareTotals fetches the compare view for before...after and sums
// per-file additions and deletions.
func (c *Client) CompareTotals(ctx context.Context, token, repoFullName, before, after string) (Totals, error) {
	owner, name, err := splitRepo(repoFullName)
	if err != nil {
		return Totals{}, err
	}

	gh, err := c.newClient(ctx, token)
	if err != nil {
		return Totals{}, err
	}

	basehead := fmt.Sprintf("%s...%s", before, after)
	cmp, resp, err := gh.Repositories.CompareCommits(ctx, owner, name, before, after, &github.ListOptions{PerPage: 300})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return Totals{}, fmt.Errorf("%w: compare %s returned %d", ErrAuthFailed, basehead, resp.StatusCode)
		}
		return Totals{}, fmt.Errorf("comparing %s on %s: %w", basehead, repoFullName, err)
	}

	var totals Totals
	for _, f := range cmp.Files {
		totals.LinesAdded += f.GetAdditions()
		totals.LinesRemoved += f.GetDeletions()
	}

	c.logger.Debug("Compare totals fetched",
		"repo", repoFullName, "range", basehead,
		"added", totals.LinesAdded, "removed", totals.LinesRemoved)
	return totals, nil
}

// ValidateToken checks a pasted token against the authenticated-user
// endpoint before it is stored.
func (c *Client) ValidateToken(ctx context.Context, token string) error {
	gh, err := c.newClient(ctx, token)
	if err != nil {
		return err
	}
	if _, resp, err := gh.Users.Get(ctx, ""); err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: token validation returned %d", ErrAuthFailed, resp.StatusCode)
		}
		return fmt.Errorf("validating token: %w", err)
	}
	return nil
}

func (c *Client) newClient(ctx context.Context, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	gh := github.NewClient(oauth2.NewClient(ctx, ts))
	if c.baseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(c.baseURL, c.baseURL)
		if err != nil {
			return nil, err
		}
	}
	return gh, nil
}

func splitRepo(fullName string) (owner, name string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository %q is not in 'owner/name' form", fullName)
	}
	return parts[0], parts[1], nil
}
