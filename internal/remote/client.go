// Package remote is the HTTP client for the books server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mrlokans/foxtales/internal/entities"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 1024
)

// TokenSource supplies the bearer token attached to requests. An empty token
// means the request is sent unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the books server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the transport timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// NewClient creates a client for the server at baseURL. An empty base URL
// yields relative request paths.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RemoteBook is a book as returned by /get_book, with its cover inlined.
type RemoteBook struct {
	entities.BookMetadata
	Cover string `json:"cover"`
}

type coverResponse struct {
	Cover string `json:"cover"`
}

// SetBookMetadata sends the authoritative document for a book. The body is
// the document's fields plus "book_id".
func (c *Client) SetBookMetadata(ctx context.Context, bookID string, document json.RawMessage) error {
	body, err := BuildMetadataPayload(bookID, document)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, "set_book_metadata", http.MethodPost, "/set_book_metadata", nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ListBooks returns the books available on the server.
func (c *Client) ListBooks(ctx context.Context) ([]entities.BookMetadata, error) {
	var books []entities.BookMetadata
	if err := c.getJSON(ctx, "list_books", "/list_books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// GetBook returns the metadata of a book.
func (c *Client) GetBook(ctx context.Context, id string) (*RemoteBook, error) {
	var book RemoteBook
	if err := c.getJSON(ctx, "get_book", "/get_book", url.Values{"identifier": {id}}, &book); err != nil {
		return nil, err
	}
	if book.Identifier == "" {
		book.Identifier = id
	}
	return &book, nil
}

// GetBookContent returns the chapter payloads of a book keyed by chapter identifier.
func (c *Client) GetBookContent(ctx context.Context, id string) (map[string]string, error) {
	content := make(map[string]string)
	if err := c.getJSON(ctx, "get_book_content", "/get_book_content", url.Values{"identifier": {id}}, &content); err != nil {
		return nil, err
	}
	return content, nil
}

// GetCover returns the base64 cover image of a book.
func (c *Client) GetCover(ctx context.Context, id string) (string, error) {
	var cover coverResponse
	if err := c.getJSON(ctx, "get_cover_b64", "/get_cover_b64", url.Values{"identifier": {id}}, &cover); err != nil {
		return "", err
	}
	return cover.Cover, nil
}

// BuildMetadataPayload merges "book_id" into a JSON object document.
func BuildMetadataPayload(bookID string, document json.RawMessage) ([]byte, error) {
	fields := make(map[string]json.RawMessage)
	if len(bytes.TrimSpace(document)) > 0 {
		if err := json.Unmarshal(document, &fields); err != nil {
			return nil, fmt.Errorf("document for book %s is not a JSON object: %w", bookID, err)
		}
		if fields == nil {
			fields = make(map[string]json.RawMessage)
		}
	}

	id, err := json.Marshal(bookID)
	if err != nil {
		return nil, err
	}
	fields["book_id"] = id

	return json.Marshal(fields)
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, dest any) error {
	resp, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// do sends a request and returns the response when the status is 2xx.
// Transport failures become TransientNetworkError unless the caller's
// context ended.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load auth token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return nil, &TransientNetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return resp, nil
}
