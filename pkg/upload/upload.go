// Package upload sends files such as images and PDFs to the service and
// returns the public URL they are served from.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	uploadPath = "/api/upload"

	// DefaultMaxSize limits the size of a single upload.
	DefaultMaxSize = 20 << 20
)

var ErrTooLarge = errors.New("file exceeds the upload size limit")

// Error is returned for responses other than 200 OK.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("upload failed with status %d", e.Status)
	}
	return "upload failed: " + e.Detail
}

// Result describes an uploaded file.
type Result struct {
	URL      string
	MIMEType string
	Size     int64
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	maxSize    int64
	allowed    []string
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

func WithMaxSize(n int64) Option {
	return func(c *Client) {
		c.maxSize = n
	}
}

// WithAllowed restricts uploads to the given MIME types. Entries ending in
// "/*" match a whole family, like "image/*".
func WithAllowed(types ...string) Option {
	return func(c *Client) {
		c.allowed = types
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid upload service url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid upload service url %q", baseURL)
	}
	c := &Client{baseURL: u, maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// Upload sends the content of r under name. The MIME type is detected from
// the content, not from the name.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxSize+1))
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to read upload")
	}
	if int64(len(data)) > c.maxSize {
		return Result{}, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	if !c.accepts(mtype) {
		return Result{}, errors.Errorf("file type %s is not allowed", mtype.String())
	}
	c.logger.Debug("detected MIME type", zap.String("name", name), zap.String("mime", mtype.String()))

	body, contentType, err := encode(name, mtype, data)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(uploadPath).String(), body)
	if err != nil {
		return Result{}, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to reach upload service")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, c.readError(resp)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, errors.Wrap(err, "failed to decode upload response")
	}
	if result.URL == "" {
		return Result{}, &Error{Status: resp.StatusCode, Detail: "empty url"}
	}
	return Result{URL: result.URL, MIMEType: mtype.String(), Size: int64(len(data))}, nil
}

func (c *Client) accepts(mtype *mimetype.MIME) bool {
	if len(c.allowed) == 0 {
		return true
	}
	for _, a := range c.allowed {
		if family, ok := strings.CutSuffix(a, "/*"); ok {
			for m := mtype; m != nil; m = m.Parent() {
				if strings.HasPrefix(m.String(), family+"/") {
					return true
				}
			}
			continue
		}
		if mtype.Is(a) {
			return true
		}
	}
	return false
}

func encode(name string, mtype *mimetype.MIME, data []byte) (io.Reader, string, error) {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload" + mtype.Extension()
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", mtype.String())
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", errors.WithStack(err)
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.WithStack(err)
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) readError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	detail := strings.TrimSpace(string(data))
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Detail != "" {
		detail = payload.Detail
	}
	c.logger.Info("upload service returned an error", zap.Int("status", resp.StatusCode), zap.String("detail", detail))
	return &Error{Status: resp.StatusCode, Detail: detail}
}
