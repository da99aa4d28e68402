package document

import (
	"context"
	"sync"
	"time"

	"tally/internal/engine"
	"tally/internal/fallback"
)

// Committer owns a working copy of one document and serializes every write
// to it through a single goroutine. AI escalations resolve asynchronously
// and possibly out of order; the single writer plus the stale-input guard
// in Commit make sure an older resolution never overwrites newer state.
type Committer struct {
	ops  chan func(*Document)
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCommitter starts the writer goroutine over a private copy of doc.
func NewCommitter(doc *Document) *Committer {
	c := &Committer{
		ops:  make(chan func(*Document), 16),
		done: make(chan struct{}),
	}
	go c.run(doc.Clone())
	return c
}

func (c *Committer) run(doc *Document) {
	for op := range c.ops {
		op(doc)
	}
	close(c.done)
}

func (c *Committer) send(op func(*Document)) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	c.ops <- op
	return true
}

// Commit applies an asynchronously resolved result to a line. The write is
// silently discarded when the line no longer exists or its input changed
// since escalation was initiated.
func (c *Committer) Commit(lineID, inputAtEscalation string, res engine.Result) {
	c.send(func(d *Document) {
		line := d.Line(lineID)
		if line == nil || line.Input != inputAtEscalation {
			return
		}
		r := res
		line.Result = &r
		line.Category = res.Category
		d.UpdatedAt = time.Now()
	})
}

// Replace swaps in a newly evaluated document value (e.g. after EvaluateAll).
func (c *Committer) Replace(doc *Document) {
	next := doc.Clone()
	c.send(func(d *Document) { *d = *next })
}

// Snapshot returns a consistent copy of the current document state.
func (c *Committer) Snapshot() *Document {
	reply := make(chan *Document, 1)
	if !c.send(func(d *Document) { reply <- d.Clone() }) {
		return nil
	}
	return <-reply
}

// EscalateLine hands a locally failed line to the adapter in the background
// and commits the resolution through the single writer. Lines that resolve
// to the unchanged local error are not re-committed. The returned channel
// closes when the escalation has settled.
func (c *Committer) EscalateLine(ctx context.Context, adapter fallback.Adapter, line Line) <-chan struct{} {
	done := make(chan struct{})
	if line.Result == nil || !line.Result.IsError() {
		close(done)
		return done
	}
	input := line.Input
	local := *line.Result
	go func() {
		defer close(done)
		res := fallback.Escalate(ctx, adapter, input, local)
		if res.Source != engine.SourceAI {
			return
		}
		c.Commit(line.ID, input, res)
	}()
	return done
}

// Close stops the writer. In-flight escalations that resolve afterwards are
// dropped; there is no cancellation API for the adapter call itself.
func (c *Committer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.ops)
	c.mu.Unlock()
	<-c.done
}
