package coordinator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/event"
	"github.com/dshills/mermaidflow/internal/render"
)

// RenderState describes the most recently applied render.
type RenderState struct {
	// Seq is the sequence number of the latest render started.
	Seq uint64 `json:"seq"`

	// Applied is the sequence number of the result currently shown.
	Applied uint64 `json:"applied"`

	InFlight    bool      `json:"in_flight"`
	Stale       bool      `json:"stale"`
	HasArtifact bool      `json:"has_artifact"`
	Error       string    `json:"error,omitempty"`
	SyntaxError string    `json:"syntax_error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// startRender is the render debouncer's callback.
func (c *Coordinator) startRender(text string) {
	seq, ok := c.beginRender()
	if !ok {
		return
	}

	go func() {
		_, _ = c.render(c.ctx, seq, text)
	}()
}

// RenderNow renders the current text immediately, superseding any pending
// or in-flight render.
func (c *Coordinator) RenderNow(ctx context.Context) (*render.Artifact, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.renderer == nil {
		c.mu.Unlock()
		return nil, ErrNoRenderer
	}
	text := c.text
	c.mu.Unlock()

	c.renders.Cancel()
	seq, ok := c.beginRender()
	if !ok {
		return nil, ErrClosed
	}
	return c.render(ctx, seq, text)
}

// beginRender allocates the next render sequence number. Each successful
// call must be paired with one call to render.
func (c *Coordinator) beginRender() (uint64, bool) {
	c.mu.Lock()
	if c.closed || c.renderer == nil {
		c.mu.Unlock()
		return 0, false
	}
	c.renderSeq++
	seq := c.renderSeq
	c.rstate.Seq = seq
	c.rstate.InFlight = true
	c.wg.Add(1)
	c.mu.Unlock()

	c.publish(event.TopicRenderStarted, event.RenderResult{Seq: seq})
	return seq, true
}

// render runs the renderer and applies the result if seq is still the
// latest render. Stale results are returned to the caller but not applied.
func (c *Coordinator) render(ctx context.Context, seq uint64, text string) (*render.Artifact, error) {
	defer c.wg.Done()

	start := c.clock.Now()

	var (
		art *render.Artifact
		err error
	)
	if strings.TrimSpace(text) != "" {
		art, err = c.renderer.Render(ctx, text)
	}
	elapsed := c.clock.Now().Sub(start)

	c.mu.Lock()
	stale := seq != c.renderSeq || c.closed
	if !stale {
		c.applyRenderLocked(seq, text, art, err)
	}
	c.mu.Unlock()

	c.metrics.Render(elapsed, err != nil, stale)
	if stale {
		c.logger.Debug("discarding stale render", zap.Uint64("seq", seq))
		return art, err
	}

	result := event.RenderResult{Seq: seq, Duration: elapsed}
	if err != nil {
		result.Error = err.Error()
		c.logger.Debug("render failed", zap.Uint64("seq", seq), zap.Error(err))
		c.publish(event.TopicRenderFailed, result)
		return nil, err
	}
	if art != nil {
		result.Format = string(art.Format)
		result.Size = len(art.Data)
	}
	c.publish(event.TopicRenderSucceeded, result)
	return art, nil
}

// applyRenderLocked stores a render outcome (must hold lock).
func (c *Coordinator) applyRenderLocked(seq uint64, text string, art *render.Artifact, err error) {
	c.rendered = text
	c.rstate.Applied = seq
	c.rstate.InFlight = false
	c.rstate.UpdatedAt = c.clock.Now()

	if err != nil {
		c.rstate.Error = err.Error()
		c.rstate.SyntaxError = ""
		if re, ok := render.AsError(err); ok {
			c.rstate.SyntaxError = re.Message
		}
		return
	}

	c.artifact = art
	c.rstate.HasArtifact = art != nil
	c.rstate.Error = ""
	c.rstate.SyntaxError = ""
}

// Artifact returns the last successfully rendered artifact, or nil.
func (c *Coordinator) Artifact() *render.Artifact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artifact
}

// RenderState returns the current render state.
func (c *Coordinator) RenderState() RenderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderStateLocked()
}

// renderStateLocked returns rstate with Stale filled in (must hold lock).
func (c *Coordinator) renderStateLocked() RenderState {
	st := c.rstate
	st.Stale = st.Applied == 0 || c.rendered != c.text
	return st
}
