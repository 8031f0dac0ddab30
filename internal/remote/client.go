// Package remote is the gateway to the authoritative backend. Every call
// either succeeds with a well-formed response or fails with an
// *UnavailableError; callers treat the latter as "operate offline".
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/hard75/internal/imaging"
)

// API paths served by the backend.
const (
	PathList      = "/api/list"
	PathEntry     = "/api/entry"
	PathUploadURL = "/api/upload-url"
	PathImageURL  = "/api/image-url"
)

const (
	defaultTimeout   = 20 * time.Second
	maxResponseBytes = 10 << 20
	uploadWorkers    = 3
)

var remoteCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hard75_remote_calls_total",
	Help: "Remote gateway calls by operation and outcome.",
}, []string{"op", "outcome"})

type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote url %q must be http or https", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListByDate returns every remote row recorded for date.
func (c *Client) ListByDate(ctx context.Context, date string) ([]Row, error) {
	const op = "list"
	var resp ListResponse
	q := url.Values{"date": {date}}
	if err := c.doJSON(ctx, op, http.MethodGet, c.endpoint(PathList, q), nil, &resp); err != nil {
		return nil, c.fail(op, err)
	}
	if !resp.OK {
		return nil, c.fail(op, fmt.Errorf("server error %q", resp.Error))
	}
	if resp.Rows == nil {
		return nil, c.fail(op, fmt.Errorf("response has no rows"))
	}
	c.succeed(op)
	return resp.Rows, nil
}

// Save writes the entry fields for (req.Date, req.TaskKey) and returns the
// backend's opaque result.
func (c *Client) Save(ctx context.Context, req SaveRequest) (string, error) {
	const op = "save"
	var resp SaveResponse
	if err := c.doJSON(ctx, op, http.MethodPost, c.endpoint(PathEntry, nil), req, &resp); err != nil {
		return "", c.fail(op, err)
	}
	if !resp.OK {
		return "", c.fail(op, fmt.Errorf("server error %q", resp.Error))
	}
	c.succeed(op)
	return resp.Result, nil
}

// RequestUploadTarget returns the URL image bytes of contentType should be
// posted to.
func (c *Client) RequestUploadTarget(ctx context.Context, contentType string) (string, error) {
	const op = "upload_target"
	var resp URLResponse
	body := UploadTargetRequest{ContentType: contentType}
	if err := c.doJSON(ctx, op, http.MethodPost, c.endpoint(PathUploadURL, nil), body, &resp); err != nil {
		return "", c.fail(op, err)
	}
	if !resp.OK || resp.URL == nil || *resp.URL == "" {
		return "", c.fail(op, fmt.Errorf("no upload url (error %q)", resp.Error))
	}
	target, err := c.base.Parse(*resp.URL)
	if err != nil {
		return "", c.fail(op, fmt.Errorf("parse upload url: %w", err))
	}
	c.succeed(op)
	return target.String(), nil
}

// Upload posts data to target and returns the storage id it was stored under.
func (c *Client) Upload(ctx context.Context, target string, data []byte, contentType string) (string, error) {
	const op = "upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return "", c.fail(op, err)
	}
	req.Header.Set("Content-Type", contentType)

	var resp UploadResponse
	if err := c.do(req, &resp); err != nil {
		return "", c.fail(op, err)
	}
	id := resp.ID()
	if id == "" {
		return "", c.fail(op, fmt.Errorf("response has no storage id"))
	}
	c.succeed(op)
	return id, nil
}

// ResolveURL returns the public URL of an uploaded image. A missing object
// resolves to "".
func (c *Client) ResolveURL(ctx context.Context, storageID string) (string, error) {
	const op = "resolve_url"
	var resp URLResponse
	q := url.Values{"storageId": {storageID}}
	if err := c.doJSON(ctx, op, http.MethodGet, c.endpoint(PathImageURL, q), nil, &resp); err != nil {
		return "", c.fail(op, err)
	}
	if !resp.OK {
		return "", c.fail(op, fmt.Errorf("server error %q", resp.Error))
	}
	c.succeed(op)
	if resp.URL == nil {
		return "", nil
	}
	return *resp.URL, nil
}

// UploadImages uploads a batch and resolves each image's URL. The batch is
// all-or-nothing: any failure discards every result.
func (c *Client) UploadImages(ctx context.Context, blobs []imaging.Blob) ([]ImageRef, error) {
	refs := make([]ImageRef, len(blobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)
	for i, b := range blobs {
		g.Go(func() error {
			contentType := b.MIMEType
			if contentType == "" {
				contentType = imaging.OutputMIMEType
			}
			target, err := c.RequestUploadTarget(gctx, contentType)
			if err != nil {
				return err
			}
			id, err := c.Upload(gctx, target, b.Data, contentType)
			if err != nil {
				return err
			}
			u, err := c.ResolveURL(gctx, id)
			if err != nil {
				return err
			}
			refs[i] = ImageRef{StorageID: id, URL: u}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable("upload_batch", err)
	}
	return refs, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.base.JoinPath(path)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) doJSON(ctx context.Context, op, method, endpoint string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) fail(op string, err error) error {
	remoteCalls.WithLabelValues(op, "error").Inc()
	c.logger.Debug("remote call failed", "op", op, "error", err)
	return unavailable(op, err)
}

func (c *Client) succeed(op string) {
	remoteCalls.WithLabelValues(op, "ok").Inc()
}
