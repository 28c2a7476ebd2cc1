package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mermaidflow/internal/render"
)

type stubRenderer struct {
	data   []byte
	err    error
	format render.Format
}

func (s *stubRenderer) Render(ctx context.Context, markup string) (*render.Artifact, error) {
	return s.RenderFormat(ctx, markup, render.FormatSVG)
}

func (s *stubRenderer) RenderFormat(_ context.Context, _ string, f render.Format) (*render.Artifact, error) {
	s.format = f
	if s.err != nil {
		return nil, s.err
	}
	return &render.Artifact{Format: f, ContentType: f.ContentType(), Data: s.data}, nil
}

func TestExport_SVGBackground(t *testing.T) {
	r := &stubRenderer{data: []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="10"><g/></svg>`)}
	e := New(r, nil)

	f, err := e.Export(context.Background(), "graph TD\nA-->B", Options{Format: FormatSVG, Background: DefaultBackground})
	require.NoError(t, err)

	assert.Equal(t, "mermaid-diagram.svg", f.Name)
	assert.Equal(t, "image/svg+xml", f.ContentType)
	assert.Equal(t,
		`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="10" style="background-color: #0a0a0a"><g/></svg>`,
		string(f.Data))
	assert.Equal(t, render.FormatSVG, r.format)
}

func TestExport_PNG(t *testing.T) {
	r := &stubRenderer{data: []byte{0x89, 'P', 'N', 'G'}}
	f, err := New(r, nil).Export(context.Background(), "graph TD", Options{Format: FormatPNG, Name: "my chart", Background: "#fff"})
	require.NoError(t, err)

	assert.Equal(t, "my-chart.png", f.Name)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, f.Data)
	assert.Equal(t, render.FormatPNG, r.format)
}

func TestExport_TextFormats(t *testing.T) {
	e := New(nil, nil)

	f, err := e.Export(context.Background(), "graph TD\nA-->B\n", Options{Format: "mermaid", Name: "flow"})
	require.NoError(t, err)
	assert.Equal(t, "flow.mmd", f.Name)
	assert.Equal(t, "graph TD\nA-->B\n", string(f.Data))

	f, err = e.Export(context.Background(), "graph TD\nA-->B\n", Options{Format: FormatMarkdown, Name: "flow"})
	require.NoError(t, err)
	assert.Equal(t, "flow.md", f.Name)
	assert.Equal(t, "# flow\n\n```mermaid\ngraph TD\nA-->B\n```\n", string(f.Data))
}

func TestExport_Errors(t *testing.T) {
	e := New(nil, nil)

	_, err := e.Export(context.Background(), " ", Options{Format: FormatSVG})
	assert.ErrorIs(t, err, ErrEmptyMarkup)

	_, err = e.Export(context.Background(), "graph TD", Options{Format: "gif"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = e.Export(context.Background(), "graph TD", Options{Format: FormatPDF})
	assert.ErrorIs(t, err, ErrNoRenderer)

	renderErr := &render.Error{Message: "Parse error"}
	_, err = New(&stubRenderer{err: renderErr}, nil).Export(context.Background(), "graph TD", Options{Format: FormatPDF})
	re, ok := render.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Parse error", re.Message)

	_, err = New(&stubRenderer{data: []byte("<svg/>")}, nil).Export(context.Background(), "graph TD",
		Options{Format: FormatSVG, Background: "red; x"})
	assert.ErrorIs(t, err, ErrInvalidColor)
}

func TestWithBackground(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"self closing", `<svg/>`, `<svg style="background-color: black"/>`},
		{"existing style", `<svg style="max-width: 100px;">x</svg>`, `<svg style="background-color: black; max-width: 100px;">x</svg>`},
		{"multiline tag", "<svg\n  id=\"a\">", "<svg\n  id=\"a\" style=\"background-color: black\">"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithBackground([]byte(tt.in), "black")
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err := WithBackground([]byte("<html/>"), "black")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		base   string
		format Format
		want   string
	}{
		{"", FormatSVG, "mermaid-diagram.svg"},
		{"  ", FormatPNG, "mermaid-diagram.png"},
		{"My Diagram", FormatPDF, "My-Diagram.pdf"},
		{"flow.svg", FormatSVG, "flow.svg"},
		{"../../etc/passwd", FormatMermaid, "etc-passwd.mmd"},
		{"Decisión", FormatMarkdown, "Decisi-n.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.base, tt.format), tt.base)
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteFile(dir, &File{Name: "flow.mmd", Data: []byte("graph TD")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "flow.mmd"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "graph TD", string(data))
}
