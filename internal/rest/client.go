// Package rest is a small JSON-over-HTTP client shared by the OAuth-backed
// drivers. It handles request construction, bearer authentication, and error
// classification. It never retries: the core's contract is fail-fast, with
// retry policy left to the caller.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/browsekit/browsekit/internal/driver"
)

// maxErrorBody bounds how much of an error response body is kept for the
// error message.
const maxErrorBody = 2048

const userAgent = "browsekit/0.1"

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer per Go
// convention "accept interfaces, return structs" — the authz package
// provides the real implementation.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// staticToken is a TokenSource that always returns the same value. Used to
// pin one token across a multi-page listing so refresh happens at most once
// per top-level call.
type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

// StaticToken returns a TokenSource pinned to tok.
func StaticToken(tok string) TokenSource { return staticToken(tok) }

// Client is a JSON API client bound to one backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
}

// NewClient creates a client. token may be nil for unauthenticated backends.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
	}
}

// WithToken returns a copy of the client bound to the given token source.
// Used to scope a whole paginated traversal to one token acquisition.
func (c *Client) WithToken(token TokenSource) *Client {
	cp := *c
	cp.token = token

	return &cp
}

// Do executes an HTTP request against the backend. The path is appended to
// the client's base URL. For non-nil bodies, Content-Type is set to
// application/json. Non-2xx responses are drained, closed, and converted to
// a classified *driver.RequestError. The caller closes the response body on
// success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("rest: creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != nil {
		tok, tokErr := c.token.Token(ctx)
		if tokErr != nil {
			return nil, fmt.Errorf("%w: obtaining token: %w", driver.ErrNotAuthorized, tokErr)
		}

		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", driver.ErrTransport, method, path, err)
	}

	if err := ClassifyResponse(resp); err != nil {
		c.logger.Debug("backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return nil, err
	}

	return resp, nil
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("rest: decoding response: %w", err)
	}

	return nil
}

// PostJSON issues a POST with a JSON-encoded body and decodes the JSON
// response into out. in may be nil for empty bodies; out may be nil to
// discard the response.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("rest: encoding request body: %w", err)
		}

		body = bytes.NewReader(data)
	}

	resp, err := c.Do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("rest: decoding response: %w", err)
	}

	return nil
}

// ClassifyResponse converts a non-2xx response into a *driver.RequestError
// wrapping the matching sentinel, consuming and closing the body. Returns
// nil for 2xx responses, leaving the body open for the caller.
func ClassifyResponse(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	defer resp.Body.Close()

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	return &driver.RequestError{
		StatusCode: resp.StatusCode,
		Message:    string(detail),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// classifyStatus maps an HTTP status code to a sentinel error from the
// driver taxonomy.
func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return driver.ErrNotAuthorized
	case http.StatusNotFound:
		return driver.ErrNotFound
	default:
		return driver.ErrTransport
	}
}
