// Package client is a typed HTTP client for the pixl server.
//
// Read requests that fail with a network error or a 5xx status are retried
// with exponential backoff (see [httputil.Retry]). Requests that change
// state are sent once. Error responses come back as *errors.Error values
// carrying the server's code, so callers can use errors.Is on codes as
// they would in process:
//
//	c := client.New("http://localhost:3000")
//	if _, err := c.GetBook(ctx, "art.pxl"); perrors.Is(err, perrors.ErrCodeNotFound) {
//	    // create it
//	}
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pixlkit/pixl/pkg/api"
	"github.com/pixlkit/pixl/pkg/book"
	"github.com/pixlkit/pixl/pkg/buildinfo"
	"github.com/pixlkit/pixl/pkg/codec"
	"github.com/pixlkit/pixl/pkg/draw"
	perrors "github.com/pixlkit/pixl/pkg/errors"
	"github.com/pixlkit/pixl/pkg/events"
	"github.com/pixlkit/pixl/pkg/httputil"
	"github.com/pixlkit/pixl/pkg/observability"
	"github.com/pixlkit/pixl/pkg/render"
)

// DefaultURL is the address of a locally running server.
const DefaultURL = "http://localhost:3000"

const httpTimeout = 10 * time.Second

// Client talks to one pixl server.
type Client struct {
	base     *url.URL
	http     *http.Client
	stream   *http.Client
	attempts int
	delay    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for ordinary requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets how often read requests are attempted and the initial
// backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

// New returns a Client for the server at baseURL. An empty baseURL uses
// DefaultURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "invalid server URL %q", baseURL)
	}
	c := &Client{
		base:     u,
		http:     &http.Client{Timeout: httpTimeout},
		stream:   &http.Client{},
		attempts: 3,
		delay:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the server address.
func (c *Client) URL() string {
	return c.base.String()
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (*api.Health, error) {
	var out api.Health
	if err := c.do(ctx, http.MethodGet, "/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBooks returns the server's books.
func (c *Client) ListBooks(ctx context.Context) ([]codec.Info, error) {
	var out api.Books
	if err := c.do(ctx, http.MethodGet, "/books", nil, &out); err != nil {
		return nil, err
	}
	return out.Books, nil
}

// GetBook downloads a book with all of its pixels.
func (c *Client) GetBook(ctx context.Context, filename string) (*book.Book, error) {
	var out book.Book
	if err := c.do(ctx, http.MethodGet, bookPath(filename), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBook creates (or overwrites) a book on the server.
func (c *Client) CreateBook(ctx context.Context, req api.CreateBook) (*api.Created, error) {
	var out api.Created
	if err := c.do(ctx, http.MethodPost, "/books", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBook applies ops to a book and returns how many were applied.
func (c *Client) UpdateBook(ctx context.Context, filename string, ops []draw.Operation) (int, error) {
	var out api.Updated
	if err := c.do(ctx, http.MethodPut, bookPath(filename), api.UpdateBook{Operations: ops}, &out); err != nil {
		return 0, err
	}
	return out.OperationsApplied, nil
}

// GetPath returns the server's base path.
func (c *Client) GetPath(ctx context.Context) (string, error) {
	var out api.Path
	if err := c.do(ctx, http.MethodGet, "/path", nil, &out); err != nil {
		return "", err
	}
	return out.Path, nil
}

// SetPath changes the server's base path.
func (c *Client) SetPath(ctx context.Context, dir string) error {
	return c.do(ctx, http.MethodPut, "/path", api.Path{Path: dir}, nil)
}

// History returns the recorded events of a book newer than since. A zero
// since returns all of them.
func (c *Client) History(ctx context.Context, filename string, since time.Time) ([]events.Event, error) {
	path := bookPath(filename) + "/history"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.Format(time.RFC3339Nano))
	}
	var out api.History
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// ExportFrame downloads frame i of a book encoded as opts describes.
func (c *Client) ExportFrame(ctx context.Context, filename string, i int, opts render.Options) ([]byte, error) {
	q := url.Values{}
	if opts.Format != "" {
		q.Set("format", opts.Format)
	}
	if opts.Scale != 0 {
		q.Set("scale", strconv.Itoa(opts.Scale))
	}
	if opts.Raw {
		q.Set("raw", "true")
	}
	path := fmt.Sprintf("%s/frames/%d", bookPath(filename), i)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var data []byte
	err := c.send(ctx, http.MethodGet, path, nil, func(body io.Reader) error {
		var err error
		data, err = io.ReadAll(body)
		return err
	})
	return data, err
}

func bookPath(filename string) string {
	return "/books/" + url.PathEscape(filename)
}

// do sends in as a JSON body and decodes the response into out. Either
// may be nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "encode request")
		}
	}
	return c.send(ctx, method, path, body, func(r io.Reader) error {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(r).Decode(out); err != nil {
			return perrors.Wrap(perrors.ErrCodeInternal, err, "decode %s response", path)
		}
		return nil
	})
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, read func(io.Reader) error) error {
	attempt := func() error {
		return c.once(ctx, method, path, body, read)
	}
	if method != http.MethodGet {
		return unwrapRetryable(attempt())
	}
	return unwrapRetryable(httputil.Retry(ctx, c.attempts, c.delay, attempt))
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, read func(io.Reader) error) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, req.URL.Host, req.URL.Path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, req.URL.Host, req.URL.Path, err)
		return &httputil.RetryableError{Err: perrors.Wrap(perrors.ErrCodeInternal, err, "%s %s", method, path)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := checkResponse(resp); err != nil {
		return err
	}
	return read(resp.Body)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, r)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// checkResponse turns a non-2xx response into a coded error. 5xx errors
// are marked retryable.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body api.Error
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		body = api.Error{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))}
	}
	if body.Code == "" {
		body.Code = codeForStatus(resp.StatusCode)
	}

	err := body.Err()
	if resp.StatusCode >= 500 {
		return &httputil.RetryableError{Err: err}
	}
	return err
}

func codeForStatus(status int) perrors.Code {
	switch {
	case status == http.StatusNotFound:
		return perrors.ErrCodeNotFound
	case status == http.StatusNotImplemented:
		return perrors.ErrCodeUnsupported
	case status >= 400 && status < 500:
		return perrors.ErrCodeInvalidInput
	default:
		return perrors.ErrCodeInternal
	}
}

// unwrapRetryable strips the retry marker so callers see the coded error.
func unwrapRetryable(err error) error {
	if re, ok := err.(*httputil.RetryableError); ok {
		return re.Err
	}
	return err
}
