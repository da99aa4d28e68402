package document

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tally/internal/engine"
)

// bind returns a fresh scope with one more binding. Folding over lines with
// a new scope per step makes the no-forward-reference rule structural:
// a line can only ever see the scope produced by strictly earlier lines.
func bind(scope map[string]engine.Result, name string, r engine.Result) map[string]engine.Result {
	next := make(map[string]engine.Result, len(scope)+1)
	for k, v := range scope {
		next[k] = v
	}
	next[name] = r
	return next
}

// evaluateLine runs one line against a scope and returns the updated line
// and the scope visible to the next line.
func evaluateLine(line Line, scope map[string]engine.Result, ctx engine.Context) (Line, map[string]engine.Result) {
	lineCtx := ctx
	lineCtx.Variables = scope

	res := engine.Evaluate(line.Input, lineCtx)
	line.Category = res.Category
	if res.Kind == engine.KindEmpty {
		line.Result = nil
		return line, scope
	}
	line.Result = &res

	// Bindings only come from successful assignments; a failed assignment
	// leaves the prior binding visible to later lines.
	if name, ok := engine.AssignmentName(line.Input); ok && res.IsNumeric() {
		scope = bind(scope, name, res)
	}
	return line, scope
}

// EvaluateAll evaluates every line strictly in order, each against the
// scope committed by all strictly earlier lines. The input document is not
// mutated; a new value is returned for the caller to apply.
func EvaluateAll(doc *Document, ctx engine.Context) *Document {
	out := doc.Clone()
	scope := map[string]engine.Result{}
	for i, line := range out.Lines {
		out.Lines[i], scope = evaluateLine(line, scope, ctx)
	}
	out.Variables = scope
	return out
}

// EvaluateOne re-evaluates a single line against the scope committed by
// earlier lines only, leaving later lines' cached results untouched.
func EvaluateOne(doc *Document, lineID string, ctx engine.Context) (*Document, error) {
	out := doc.Clone()
	idx := -1
	for i := range out.Lines {
		if out.Lines[i].ID == lineID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("line %q not found in document %q", lineID, doc.ID)
	}

	scope := scopeBefore(out.Lines, idx)
	out.Lines[idx], _ = evaluateLine(out.Lines[idx], scope, ctx)
	out.Variables = scopeBefore(out.Lines, len(out.Lines))
	return out, nil
}

// scopeBefore rebuilds the scope from the cached results of lines strictly
// before idx.
func scopeBefore(lines []Line, idx int) map[string]engine.Result {
	scope := map[string]engine.Result{}
	for i := 0; i < idx; i++ {
		l := lines[i]
		if l.Result == nil || !l.Result.IsNumeric() {
			continue
		}
		if name, ok := engine.AssignmentName(l.Input); ok {
			scope = bind(scope, name, *l.Result)
		}
	}
	return scope
}

// Total sums the decimal value of every line whose result is a successful
// number or unit and whose category is neither comment nor assignment.
// Failed and non-numeric lines contribute zero.
func Total(doc *Document) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range doc.Lines {
		if l.Result == nil || !l.Result.IsNumeric() {
			continue
		}
		if l.Category == engine.CategoryComment || l.Category == engine.CategoryAssignment {
			continue
		}
		sum = sum.Add(l.Result.Value)
	}
	return sum
}
