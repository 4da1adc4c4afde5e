// Package render is a client of the render service. It turns chart render
// requests into image URLs and document sources into SVG pages.
package render

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/labdoc/internal/lru"
	"github.com/stateful/labdoc/pkg/document/chart"
)

const (
	chartPath   = "/api/render/chart"
	previewPath = "/api/render/preview"

	defaultCacheSize = 64
	maxErrorBody     = 64 << 10
)

// Error is returned for responses other than 200 OK.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return "render failed"
	}
	return "render failed: " + e.Detail
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	charts     *lru.Cache[string]
	previews   *lru.Cache[[]string]
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCacheSize sets how many chart URLs and previews are remembered.
func WithCacheSize(n int) Option {
	return func(c *Client) {
		c.charts = lru.NewCache[string](n)
		c.previews = lru.NewCache[[]string](n)
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid render service url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid render service url %q", baseURL)
	}
	c := &Client{baseURL: u}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.charts == nil {
		WithCacheSize(defaultCacheSize)(c)
	}
	return c, nil
}

// RenderChart renders req and returns the image URL. Identical requests
// are answered from the cache.
func (c *Client) RenderChart(ctx context.Context, req chart.RenderRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return c.charts.GetOrCreate(digest(body), func() (string, error) {
		var result struct {
			URL string `json:"url"`
		}
		if err := c.post(ctx, chartPath, body, &result); err != nil {
			return "", err
		}
		if result.URL == "" {
			return "", &Error{Status: http.StatusOK, Detail: "empty image url"}
		}
		return result.URL, nil
	})
}

// Preview compiles a document source and returns one SVG string per page.
func (c *Client) Preview(ctx context.Context, source string) ([]string, error) {
	body, err := json.Marshal(struct {
		Source string `json:"source"`
	}{Source: source})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	pages, err := c.previews.GetOrCreate(digest(body), func() ([]string, error) {
		var result struct {
			Pages []string `json:"pages"`
		}
		if err := c.post(ctx, previewPath, body, &result); err != nil {
			return nil, err
		}
		return result.Pages, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), pages...), nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, result any) error {
	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to reach render service")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.readError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Wrap(err, "failed to decode render response")
	}
	return nil
}

// readError extracts the "detail" of an error response. Bodies that are
// not JSON are used verbatim.
func (c *Client) readError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	detail := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			detail = s
		} else {
			detail = string(payload.Detail)
		}
	}
	c.logger.Info("render service returned an error", zap.Int("status", resp.StatusCode), zap.String("detail", detail))
	return &Error{Status: resp.StatusCode, Detail: detail}
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
