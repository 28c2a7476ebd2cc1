package coordinator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/event"
	"github.com/dshills/mermaidflow/internal/metrics"
	"github.com/dshills/mermaidflow/internal/repair"
)

// Repair asks the repairer to fix the current text, passing the latest
// render syntax error as context.
//
// A missing repairer or blank text fails immediately without touching
// history. If another Repair starts before this one returns, the result is
// discarded and ErrSuperseded is returned. On success the text at apply
// time is committed as "Before AI fix", followed by the fixed text as
// "AI fix applied". Failures are returned as *repair.Error.
func (c *Coordinator) Repair(ctx context.Context) (*repair.Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	text := c.text
	prior := c.rstate.SyntaxError
	repairer := c.repairer
	c.mu.Unlock()

	if repairer == nil {
		return nil, c.repairFailed(0, repair.ErrMissingAPIKey, metrics.OutcomeRejected)
	}
	if strings.TrimSpace(text) == "" {
		return nil, c.repairFailed(0, repair.ErrEmptyMarkup, metrics.OutcomeRejected)
	}

	c.mu.Lock()
	c.repairSeq++
	seq := c.repairSeq
	c.repairing = true
	c.mu.Unlock()

	c.publish(event.TopicRepairStarted, event.RepairResult{Seq: seq})

	// Closing the coordinator abandons the call.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	result, err := repairer.Repair(ctx, text, prior)

	c.mu.Lock()
	latest := seq == c.repairSeq
	if latest {
		c.repairing = false
	}
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if !latest {
		c.metrics.Repair(metrics.OutcomeSuperseded)
		c.logger.Debug("discarding superseded repair", zap.Uint64("seq", seq))
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, c.repairFailed(seq, err, metrics.OutcomeFailed)
	}

	c.commits.Cancel()
	c.commitText(c.Text(), LabelBeforeAIFix)
	c.commitText(result.FixedText, LabelAIFixApplied)
	c.replaceText(result.FixedText)

	c.metrics.Repair(metrics.OutcomeApplied)
	c.logger.Info("ai fix applied", zap.Uint64("seq", seq))
	c.publish(event.TopicRepairSucceeded, event.RepairResult{
		Seq:         seq,
		FixedText:   result.FixedText,
		Explanation: result.Explanation,
	})
	c.notify(event.LevelSuccess, TitleFixOK, result.Explanation, successNotice)
	return result, nil
}

func (c *Coordinator) repairFailed(seq uint64, err error, outcome string) error {
	classified := repair.Classify(err)

	c.metrics.Repair(outcome)
	c.logger.Warn("ai fix failed",
		zap.String("kind", string(classified.Kind)),
		zap.Error(classified.Err))
	c.publish(event.TopicRepairFailed, event.RepairResult{Seq: seq, Error: classified.Message})
	c.notify(event.LevelError, TitleFixFailed, classified.Message, errorNotice)
	return classified
}

// Repairing reports whether the latest repair is still in flight.
func (c *Coordinator) Repairing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repairing
}
