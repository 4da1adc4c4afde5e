package ai

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const chatPath = "/api/chat/ws"

// StreamError is sent by the backend in place of further events.
type StreamError struct {
	Detail string
}

func (e *StreamError) Error() string {
	if e.Detail == "" {
		return "chat stream failed"
	}
	return "chat stream failed: " + e.Detail
}

// frame is the wire form of a backend event.
type frame struct {
	Type   string `json:"type"`
	Model  string `json:"model,omitempty"`
	Text   string `json:"text,omitempty"`
	Usage  *Usage `json:"usage,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type remoteRequest struct {
	Prompt   string `json:"prompt"`
	Model    string `json:"model,omitempty"`
	Thinking bool   `json:"thinking"`
}

// Remote streams responses through the backend chat websocket.
type Remote struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
	logger *zap.Logger
}

var _ Streamer = (*Remote)(nil)

type RemoteOption func(*Remote)

func WithDialer(d *websocket.Dialer) RemoteOption {
	return func(r *Remote) {
		r.dialer = d
	}
}

// WithHeader adds headers to the websocket handshake.
func WithHeader(h http.Header) RemoteOption {
	return func(r *Remote) {
		r.header = h
	}
}

func WithRemoteLogger(logger *zap.Logger) RemoteOption {
	return func(r *Remote) {
		r.logger = logger
	}
}

// NewRemote accepts the http(s) base URL of the backend.
func NewRemote(baseURL string, opts ...RemoteOption) (*Remote, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid chat service url")
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, errors.Errorf("invalid chat service url %q", baseURL)
	}

	r := &Remote{url: u.JoinPath(chatPath).String()}
	for _, opt := range opts {
		opt(r)
	}
	if r.dialer == nil {
		r.dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r, nil
}

// Stream sends one request frame and relays event frames until the
// backend sends "done" or "error". Attachments are not supported.
func (r *Remote) Stream(ctx context.Context, req Request, fn func(Event) error) error {
	if len(req.Attachments) > 0 {
		return errors.New("the chat backend does not accept attachments")
	}

	conn, resp, err := r.dialer.DialContext(ctx, r.url, r.header)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", r.url)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	// Reads block without a deadline; closing the connection unblocks them.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(remoteRequest{Prompt: req.Prompt, Model: req.Model, Thinking: req.Thinking}); err != nil {
		return r.fail(ctx, errors.Wrap(err, "failed to send chat request"))
	}

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return r.fail(ctx, errors.Wrap(err, "chat stream ended unexpectedly"))
		}
		switch f.Type {
		case "done":
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case "error":
			return &StreamError{Detail: f.Detail}
		case string(EventMeta), string(EventThought), string(EventContent), string(EventUsage):
			if err := fn(Event{Type: EventType(f.Type), Model: f.Model, Text: f.Text, Usage: f.Usage}); err != nil {
				return err
			}
		default:
			r.logger.Debug("ignoring unknown chat frame", zap.String("type", f.Type))
		}
	}
}

func (r *Remote) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
