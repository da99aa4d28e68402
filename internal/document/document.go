// Package document threads the variable scope across an ordered set of
// lines, computes running totals, and serializes asynchronous result
// commits so stale AI resolutions can never clobber newer state.
package document

import (
	"time"

	"github.com/google/uuid"

	"tally/internal/engine"
)

// Line is one input row of a document. Its result is only ever the product
// of its own input plus the variable scope visible to it at evaluation time.
type Line struct {
	ID       string
	Input    string
	Result   *engine.Result
	Category engine.Category
}

// Document is an ordered sequence of lines plus the variable scope bound so
// far. Line order is the variable-visibility order.
type Document struct {
	ID        string
	Title     string
	Lines     []Line
	Variables map[string]engine.Result
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an empty document.
func New(title string) *Document {
	now := time.Now()
	return &Document{
		ID:        uuid.NewString(),
		Title:     title,
		Variables: map[string]engine.Result{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddLine appends a raw input line and returns its id.
func (d *Document) AddLine(input string) string {
	id := uuid.NewString()
	d.Lines = append(d.Lines, Line{ID: id, Input: input})
	return id
}

// SetInput replaces a line's input and clears its cached result; edited
// lines return to the unevaluated state.
func (d *Document) SetInput(lineID, input string) bool {
	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			d.Lines[i].Input = input
			d.Lines[i].Result = nil
			d.Lines[i].Category = ""
			return true
		}
	}
	return false
}

// Clone deep-copies the document.
func (d *Document) Clone() *Document {
	out := &Document{
		ID:        d.ID,
		Title:     d.Title,
		Lines:     make([]Line, len(d.Lines)),
		Variables: make(map[string]engine.Result, len(d.Variables)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for i, l := range d.Lines {
		cp := l
		if l.Result != nil {
			r := *l.Result
			cp.Result = &r
		}
		out.Lines[i] = cp
	}
	for k, v := range d.Variables {
		out.Variables[k] = v
	}
	return out
}

// Line returns the line with the given id, or nil.
func (d *Document) Line(lineID string) *Line {
	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			return &d.Lines[i]
		}
	}
	return nil
}
