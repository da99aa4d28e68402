// Package engine turns one line of raw text plus a variable scope into a
// typed, formatted calculation result. Classification and evaluation are
// pure functions; every failure mode is a returned value, never a panic.
package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/units"
)

// Category is the classification of a raw input line.
type Category string

const (
	CategoryPlain      Category = "plain"
	CategoryConversion Category = "unitConversion"
	CategoryFunction   Category = "function"
	CategoryAssignment Category = "variableAssignment"
	CategoryCSSUnit    Category = "cssUnit"
	CategoryComment    Category = "comment"
	// CategoryAI is never produced by Classify; it is applied as a post-hoc
	// override when the fallback adapter resolves a line that failed locally.
	CategoryAI Category = "ai"
)

// ErrKind is the evaluation error taxonomy.
type ErrKind string

const (
	ErrSyntax            ErrKind = "syntax"
	ErrUnknownToken      ErrKind = "unknownToken"
	ErrDivisionByZero    ErrKind = "divisionByZero"
	ErrIncompatibleUnits ErrKind = "incompatibleUnits"
	ErrUndefinedVariable ErrKind = "undefinedVariable"
)

// Source records the provenance of a result.
type Source string

const (
	SourceLocal Source = "local"
	SourceAI    Source = "ai"
)

// Kind tags the result variant.
type Kind string

const (
	KindNumber Kind = "number"
	KindUnit   Kind = "unit"
	KindError  Kind = "error"
	// KindEmpty marks lines that produce no result at all (comments, blank
	// input). It never serializes; callers store no result for such lines.
	KindEmpty Kind = "empty"
)

// Result is the tagged outcome of evaluating one line.
type Result struct {
	Kind      Kind
	Value     decimal.Decimal
	Unit      string
	Formatted string
	ErrKind   ErrKind
	Message   string
	Source    Source
	Category  Category
}

// IsError reports whether the result is an evaluation failure.
func (r Result) IsError() bool { return r.Kind == KindError }

// IsNumeric reports whether the result carries a decimal value.
func (r Result) IsNumeric() bool { return r.Kind == KindNumber || r.Kind == KindUnit }

func errorResult(kind ErrKind, format string, args ...any) Result {
	return Result{
		Kind:    KindError,
		ErrKind: kind,
		Message: fmt.Sprintf(format, args...),
		Source:  SourceLocal,
	}
}

// resultJSON is the wire shape consumed by the caller for persistence and
// rendering.
type resultJSON struct {
	Type      string `json:"type"`
	Value     string `json:"value,omitempty"`
	Unit      string `json:"unit,omitempty"`
	Formatted string `json:"formatted"`
	Message   string `json:"message,omitempty"`
	ErrKind   string `json:"errorKind,omitempty"`
	Category  string `json:"category"`
	Source    string `json:"source,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Type:      string(r.Kind),
		Formatted: r.Formatted,
		Message:   r.Message,
		ErrKind:   string(r.ErrKind),
		Category:  string(r.Category),
		Source:    string(r.Source),
	}
	if r.IsNumeric() {
		out.Value = r.Value.String()
		out.Unit = r.Unit
	}
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Result{
		Kind:      Kind(in.Type),
		Unit:      in.Unit,
		Formatted: in.Formatted,
		Message:   in.Message,
		ErrKind:   ErrKind(in.ErrKind),
		Category:  Category(in.Category),
		Source:    Source(in.Source),
	}
	if in.Value != "" {
		v, err := decimal.NewFromString(in.Value)
		if err != nil {
			return fmt.Errorf("invalid result value %q: %w", in.Value, err)
		}
		r.Value = v
	}
	return nil
}

// Context is the read-only snapshot evaluation runs against. It is never
// mutated mid-evaluation.
type Context struct {
	// Variables maps names to their last successfully bound result.
	// Keys are case-sensitive.
	Variables map[string]Result
	// EmBase is pixels per em, 1-100.
	EmBase int
	// PpiBase is pixels per inch, 1-600.
	PpiBase int
	// DecimalPlaces is the output rounding, 0-10.
	DecimalPlaces int
	// Now anchors date phrases so evaluation stays deterministic.
	Now time.Time
	// Rates resolves currency conversions; nil disables currency.
	Rates units.RateSource
}

// DefaultContext returns a context with the documented defaults.
func DefaultContext() Context {
	return Context{
		Variables:     map[string]Result{},
		EmBase:        16,
		PpiBase:       96,
		DecimalPlaces: 2,
		Now:           time.Now(),
	}
}

func (c Context) css() units.CSSConfig {
	return units.CSSConfig{EmBase: c.EmBase, PpiBase: c.PpiBase}
}

// lookupVar resolves an identifier against the scope.
func (c Context) lookupVar(name string) (Result, bool) {
	if c.Variables == nil {
		return Result{}, false
	}
	r, ok := c.Variables[name]
	return r, ok
}
