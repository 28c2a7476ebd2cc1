// Package export produces downloadable files from diagram markup.
//
// Image formats (svg, png, pdf) are rendered by a render.FormatRenderer.
// The mmd format is the raw markup and md wraps it in a Markdown document
// with a fenced mermaid block, which most Markdown viewers draw inline.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/render"
)

// Format is an export file format.
type Format string

// Export formats.
const (
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
	FormatPDF      Format = "pdf"
	FormatMermaid  Format = "mmd"
	FormatMarkdown Format = "md"
)

// Defaults.
const (
	DefaultName       = "mermaid-diagram"
	DefaultBackground = "#0a0a0a"
)

// Errors returned by Export.
var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrEmptyMarkup       = errors.New("nothing to export")
	ErrInvalidColor      = errors.New("invalid background color")
	ErrNoRenderer        = errors.New("no renderer configured")
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSVG, FormatPNG, FormatPDF, FormatMermaid, FormatMarkdown:
		return f, nil
	case "mermaid":
		return FormatMermaid, nil
	case "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// IsImage reports whether the format requires rendering.
func (f Format) IsImage() bool {
	return f == FormatSVG || f == FormatPNG || f == FormatPDF
}

// Options controls an export.
type Options struct {
	Format Format
	// Name is the base file name; DefaultName when empty.
	Name string
	// Background fills SVG exports. Empty leaves the SVG transparent.
	Background string
	// Title heads Markdown exports; Name is used when empty.
	Title string
}

// File is an exported file.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Exporter builds export files.
type Exporter struct {
	renderer render.FormatRenderer
	logger   *zap.Logger
}

// New creates an exporter. renderer may be nil if only text formats are used.
func New(renderer render.FormatRenderer, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{renderer: renderer, logger: logger}
}

// Export converts markup according to opts.
func (e *Exporter) Export(ctx context.Context, markup string, opts Options) (*File, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, ErrEmptyMarkup
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	name := FileName(opts.Name, format)

	switch format {
	case FormatMermaid:
		return &File{Name: name, ContentType: "text/plain; charset=utf-8", Data: []byte(markup)}, nil
	case FormatMarkdown:
		title := opts.Title
		if title == "" {
			title = strings.TrimSuffix(name, "."+string(format))
		}
		return &File{Name: name, ContentType: "text/markdown; charset=utf-8", Data: Markdown(title, markup)}, nil
	}

	if e.renderer == nil {
		return nil, ErrNoRenderer
	}
	artifact, err := e.renderer.RenderFormat(ctx, markup, render.Format(format))
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", format, err)
	}

	data := artifact.Data
	if format == FormatSVG && opts.Background != "" {
		if data, err = WithBackground(data, opts.Background); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("exported",
		zap.String("name", name),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)))

	return &File{Name: name, ContentType: artifact.ContentType, Data: data}, nil
}

// Markdown returns a Markdown document embedding markup.
func Markdown(title, markup string) []byte {
	var b strings.Builder
	if title != "" {
		b.WriteString("# ")
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	b.WriteString("```mermaid\n")
	b.WriteString(strings.TrimRight(markup, "\n"))
	b.WriteString("\n```\n")
	return []byte(b.String())
}

var (
	colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+)$`)
	svgOpenTag   = regexp.MustCompile(`(?s)<svg\b[^>]*>`)
	styleAttr    = regexp.MustCompile(`\sstyle="([^"]*)"`)
)

// WithBackground sets the background colour on the root <svg> element.
func WithBackground(svg []byte, color string) ([]byte, error) {
	if !colorPattern.MatchString(color) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColor, color)
	}

	loc := svgOpenTag.FindIndex(svg)
	if loc == nil {
		return nil, fmt.Errorf("%w: no <svg> element", ErrUnsupportedFormat)
	}

	tag := string(svg[loc[0]:loc[1]])
	decl := "background-color: " + color
	if m := styleAttr.FindStringSubmatchIndex(tag); m != nil {
		existing := strings.TrimSpace(tag[m[2]:m[3]])
		style := decl
		if existing != "" {
			style = decl + "; " + existing
		}
		tag = tag[:m[2]] + style + tag[m[3]:]
	} else {
		end := len(tag) - 1
		if strings.HasSuffix(tag, "/>") {
			end = len(tag) - 2
		}
		tag = tag[:end] + ` style="` + decl + `"` + tag[end:]
	}

	out := make([]byte, 0, len(svg)+len(decl)+16)
	out = append(out, svg[:loc[0]]...)
	out = append(out, tag...)
	out = append(out, svg[loc[1]:]...)
	return out, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns a filesystem-safe name for base with the format's
// extension.
func FileName(base string, format Format) string {
	base = strings.TrimSpace(base)
	base = strings.TrimSuffix(base, "."+string(format))
	base = unsafeName.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-.")
	if base == "" {
		base = DefaultName
	}
	return base + "." + string(format)
}

// WriteFile writes f into dir and returns the full path.
func WriteFile(dir string, f *File) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(f.Name))
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}
