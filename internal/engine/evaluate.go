package engine

import (
	"strings"
)

// Evaluate turns one line of raw text plus the context snapshot into a
// result. It is pure: identical (text, context) pairs yield identical
// results, and every failure path is returned, never raised.
func Evaluate(text string, ctx Context) (out Result) {
	defer func() {
		// A panic below is a bug; it must still surface as a value.
		if rec := recover(); rec != nil {
			out = errorResult(ErrSyntax, "could not evaluate input")
			out.Category = Classify(text)
		}
	}()

	cat := Classify(text)
	if cat == CategoryComment {
		return Result{Kind: KindEmpty, Source: SourceLocal, Category: cat}
	}

	expr := text
	if cat == CategoryAssignment {
		// Bind-name syntax is handled by the caller; only the right-hand
		// side evaluates here.
		expr = text[strings.Index(text, "=")+1:]
	}
	if strings.TrimSpace(expr) == "" {
		return Result{Kind: KindEmpty, Source: SourceLocal, Category: cat}
	}

	tree, perr := parse(expr)
	if perr != nil {
		r := errorResult(perr.kind, "%s", perr.msg)
		r.Category = cat
		return r
	}
	v, eerr := tree.eval(ctx)
	if eerr != nil {
		r := errorResult(eerr.kind, "%s", eerr.msg)
		r.Category = cat
		return r
	}
	return buildResult(v, ctx, cat)
}

func buildResult(v value, ctx Context, cat Category) Result {
	if v.isDate() {
		return Result{
			Kind:      KindUnit,
			Value:     v.num,
			Unit:      dateUnit,
			Formatted: serialDate(v.num).Format("2006-01-02"),
			Source:    SourceLocal,
			Category:  cat,
		}
	}

	rounded := v.num.Round(int32(ctx.DecimalPlaces))
	formatted := formatDecimal(rounded)
	if v.unit != "" {
		return Result{
			Kind:      KindUnit,
			Value:     rounded,
			Unit:      v.unit,
			Formatted: formatted + " " + displayUnit(v.unit),
			Source:    SourceLocal,
			Category:  cat,
		}
	}
	return Result{
		Kind:      KindNumber,
		Value:     rounded,
		Formatted: formatted,
		Source:    SourceLocal,
		Category:  cat,
	}
}
