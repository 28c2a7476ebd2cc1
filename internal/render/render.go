package render

import (
	"context"
	"fmt"
	"strings"
)

// Format is an output image format.
type Format string

// Supported formats.
const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSVG, FormatPNG, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Artifact is a rendered diagram.
type Artifact struct {
	Format      Format
	ContentType string
	Data        []byte
}

// Renderer renders markup to the default format.
type Renderer interface {
	Render(ctx context.Context, markup string) (*Artifact, error)
}

// FormatRenderer renders markup to a chosen format.
type FormatRenderer interface {
	Renderer
	RenderFormat(ctx context.Context, markup string, format Format) (*Artifact, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, markup string) (*Artifact, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, markup string) (*Artifact, error) {
	return f(ctx, markup)
}
