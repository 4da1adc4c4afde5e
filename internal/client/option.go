package client

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/henvic/httpretty"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

type Option func(http.RoundTripper) http.RoundTripper

func WithUserAgent(version string) Option {
	return setHeaderFn("User-Agent", func() (string, error) {
		return fmt.Sprintf("labdoc/%s (%s; %s)", version, runtime.GOOS, runtime.GOARCH), nil
	})
}

// WithRequestID tags every request with a fresh UUID unless the caller
// already set one.
func WithRequestID() Option {
	return setHeaderFn(RequestIDHeader, func() (string, error) {
		return uuid.NewString(), nil
	})
}

func WithLogger(log *zap.Logger) Option {
	return func(rt http.RoundTripper) http.RoundTripper {
		return funcTripper(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			log.Debug(
				"send a service request",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.String("request_id", r.Header.Get(RequestIDHeader)),
			)
			resp, err := rt.RoundTrip(r)
			if err != nil {
				log.Debug("service request failed", zap.Error(err), zap.Duration("latency", time.Since(start)))
				return resp, err
			}
			log.Debug(
				"received a service response",
				zap.Int("status", resp.StatusCode),
				zap.Duration("latency", time.Since(start)),
			)
			return resp, nil
		})
	}
}

// WithDump prints requests and responses to out.
func WithDump(out io.Writer) Option {
	logger := &httpretty.Logger{
		Time:            true,
		TLS:             false,
		Colors:          isTerminal(out),
		RequestHeader:   true,
		RequestBody:     true,
		ResponseHeader:  true,
		ResponseBody:    true,
		Formatters:      []httpretty.Formatter{&httpretty.JSONFormatter{}},
		MaxRequestBody:  4096,
		MaxResponseBody: 50000,
	}
	logger.SetOutput(out)
	return logger.RoundTripper
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewHTTPClient wraps the transport of client with opts. The first option
// is the outermost.
func NewHTTPClient(client *http.Client, timeout time.Duration, opts ...Option) *http.Client {
	if client == nil {
		client = &http.Client{
			Transport: http.DefaultTransport,
		}
	}
	if client.Transport == nil {
		client.Transport = http.DefaultTransport
	}
	if timeout > 0 {
		client.Timeout = timeout
	}
	for i := len(opts) - 1; i >= 0; i-- {
		client.Transport = opts[i](client.Transport)
	}
	return client
}

type funcTripper func(*http.Request) (*http.Response, error)

func (f funcTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func setHeaderFn(name string, valueGetter func() (string, error)) Option {
	return func(rt http.RoundTripper) http.RoundTripper {
		return funcTripper(func(r *http.Request) (*http.Response, error) {
			value, err := valueGetter()
			if err != nil {
				return nil, err
			}
			if r.Header.Get(name) == "" {
				r = r.Clone(r.Context())
				r.Header.Set(name, value)
			}
			return rt.RoundTrip(r)
		})
	}
}
