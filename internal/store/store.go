package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Diagram is a saved diagram.
type Diagram struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DiagramType string    `json:"diagram_type"`
	Code        string    `json:"mermaid_code"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Version is a past revision of a diagram's markup.
type Version struct {
	ID                string    `json:"id"`
	DiagramID         string    `json:"diagram_id"`
	Code              string    `json:"mermaid_code"`
	ChangeDescription string    `json:"change_description"`
	CreatedAt         time.Time `json:"created_at"`
}

// Patch holds the fields to change on a diagram. Nil fields are left alone.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Code        *string `json:"mermaid_code,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// Store persists diagrams and versions.
type Store interface {
	// ListDiagrams returns public diagrams plus those owned by userID,
	// newest first. An empty userID lists public diagrams only.
	ListDiagrams(ctx context.Context, userID string) ([]Diagram, error)

	GetDiagram(ctx context.Context, id string) (*Diagram, error)

	// CreateDiagram assigns ID, timestamps and DiagramType when unset.
	CreateDiagram(ctx context.Context, d *Diagram) (*Diagram, error)

	UpdateDiagram(ctx context.Context, id string, p Patch) (*Diagram, error)

	// DeleteDiagram removes the diagram and its versions.
	DeleteDiagram(ctx context.Context, id string) error

	CreateVersion(ctx context.Context, v *Version) (*Version, error)

	// ListVersions returns a diagram's versions, newest first.
	ListVersions(ctx context.Context, diagramID string) ([]Version, error)

	Close() error
}

// Option configures a store backend.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

func defaultOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator sets the function producing IDs.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// Config selects and configures a backend.
type Config struct {
	Driver        string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open creates the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(opts...), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path, opts...)
	case "redis":
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

// prepareDiagram validates d and fills in generated fields.
func (o options) prepareDiagram(d *Diagram) (Diagram, error) {
	if d == nil {
		return Diagram{}, fmt.Errorf("%w: nil diagram", ErrInvalid)
	}
	out := *d
	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		return Diagram{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if out.ID == "" {
		out.ID = o.newID()
	}
	if out.DiagramType == "" {
		out.DiagramType = DetectType(out.Code)
	}
	now := o.now().UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	return out, nil
}

// prepareVersion validates v and fills in generated fields.
func (o options) prepareVersion(v *Version) (Version, error) {
	if v == nil || v.DiagramID == "" {
		return Version{}, fmt.Errorf("%w: version needs a diagram id", ErrInvalid)
	}
	out := *v
	if out.ID == "" {
		out.ID = o.newID()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = o.now().UTC()
	}
	return out, nil
}

// apply returns d with p applied and UpdatedAt set to now.
func (p Patch) apply(d Diagram, now time.Time) (Diagram, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Diagram{}, fmt.Errorf("%w: title is required", ErrInvalid)
		}
		d.Title = title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Code != nil {
		d.Code = *p.Code
		d.DiagramType = DetectType(d.Code)
	}
	if p.IsPublic != nil {
		d.IsPublic = *p.IsPublic
	}
	d.UpdatedAt = now.UTC()
	return d, nil
}

// visible reports whether d appears in userID's listing.
func visible(d Diagram, userID string) bool {
	return d.IsPublic || (userID != "" && d.UserID == userID)
}

var diagramTypes = map[string]string{
	"graph":              "flowchart",
	"flowchart":          "flowchart",
	"flowchart-elk":      "flowchart",
	"sequencediagram":    "sequence",
	"classdiagram":       "class",
	"classdiagram-v2":    "class",
	"statediagram":       "state",
	"statediagram-v2":    "state",
	"erdiagram":          "er",
	"journey":            "journey",
	"gantt":              "gantt",
	"pie":                "pie",
	"gitgraph":           "git",
	"mindmap":            "mindmap",
	"timeline":           "timeline",
	"quadrantchart":      "quadrant",
	"requirementdiagram": "requirement",
	"c4context":          "c4",
	"sankey-beta":        "sankey",
	"xychart-beta":       "xychart",
	"block-beta":         "block",
}

// DetectType names the diagram kind declared on the first meaningful line
// of code. It skips blank lines, %% comments and a --- front matter block,
// and returns "unknown" when the declaration is not recognized.
func DetectType(code string) string {
	inFrontMatter := false
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "---" {
			inFrontMatter = !inFrontMatter
			continue
		}
		if inFrontMatter || line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		keyword := strings.ToLower(strings.Fields(line)[0])
		keyword = strings.TrimSuffix(keyword, ":")
		if t, ok := diagramTypes[keyword]; ok {
			return t
		}
		return "unknown"
	}
	return "unknown"
}
