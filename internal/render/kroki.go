package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultKrokiURL is the public Kroki instance.
const DefaultKrokiURL = "https://kroki.io"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// KrokiOption configures a KrokiRenderer.
type KrokiOption func(*KrokiRenderer)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) KrokiOption {
	return func(r *KrokiRenderer) {
		if c != nil {
			r.client = c
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) KrokiOption {
	return func(r *KrokiRenderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithDefaultFormat sets the format used by Render.
func WithDefaultFormat(f Format) KrokiOption {
	return func(r *KrokiRenderer) {
		r.format = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) KrokiOption {
	return func(r *KrokiRenderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// KrokiRenderer renders Mermaid markup through a Kroki service.
type KrokiRenderer struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	format  Format
	logger  *zap.Logger
}

// NewKroki creates a renderer for the service at baseURL.
func NewKroki(baseURL string, opts ...KrokiOption) *KrokiRenderer {
	if baseURL == "" {
		baseURL = DefaultKrokiURL
	}
	r := &KrokiRenderer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		timeout: 10 * time.Second,
		format:  FormatSVG,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render renders markup in the default format.
func (r *KrokiRenderer) Render(ctx context.Context, markup string) (*Artifact, error) {
	return r.RenderFormat(ctx, markup, r.format)
}

// RenderFormat renders markup in format.
func (r *KrokiRenderer) RenderFormat(ctx context.Context, markup string, format Format) (*Artifact, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(markup) == "" {
		return nil, ErrEmptyMarkup
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/mermaid/%s", r.baseURL, format)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("creating render request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Accept", format.ContentType())

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		r.logger.Debug("render rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("format", string(format)),
			zap.Duration("elapsed", time.Since(start)))

		if resp.StatusCode == http.StatusBadRequest {
			if msg == "" {
				msg = "invalid diagram"
			}
			return nil, &Error{Message: msg}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("reading render response: %w", err)
	}

	r.logger.Debug("rendered",
		zap.String("format", string(format)),
		zap.Int("bytes", buf.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return &Artifact{
		Format:      format,
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
