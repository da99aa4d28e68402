package fallback

import (
	"context"
	"strings"

	"tally/internal/engine"
)

// DefaultSystemPrompt instructs the model to act as the calculator's last
// resort and answer in the adapter's JSON shape.
const DefaultSystemPrompt = `You are the fallback interpreter of a natural-language calculator.
The user wrote a line the local parser could not evaluate. Interpret it as a
calculation, a unit or currency conversion, or date arithmetic.

Respond with a single JSON object and nothing else:
  {"value": "<decimal as string>", "unit": "<unit token or empty>", "formatted": "<display string>"}
If the input is not a calculation at all, respond with:
  {"error": "not_processable"}`

// escalationMinRunes is the trimmed-input length a line must exceed before
// it is worth a network round trip.
const escalationMinRunes = 2

// ShouldEscalate reports whether a locally failed line qualifies for the
// adapter: local evaluation errored and the trimmed input is longer than
// two characters.
func ShouldEscalate(input string, local engine.Result) bool {
	if !local.IsError() {
		return false
	}
	return len([]rune(strings.TrimSpace(input))) > escalationMinRunes
}

// Escalate runs the escalation policy for one line. On adapter success with
// a numeric value it synthesizes a result tagged with AI provenance and the
// ai category. On any adapter failure, including the adapter panicking, the
// original local error is returned unchanged: escalation never replaces one
// error with a less informative one and never propagates an exception.
func Escalate(ctx context.Context, adapter Adapter, input string, local engine.Result) engine.Result {
	if adapter == nil || !ShouldEscalate(input, local) {
		return local
	}

	resp := safeProcess(ctx, adapter, Request{Input: input, SystemPrompt: DefaultSystemPrompt})
	if !resp.OK || resp.Value == nil {
		return local
	}

	out := engine.Result{
		Value:     *resp.Value,
		Unit:      resp.Unit,
		Formatted: resp.Formatted,
		Source:    engine.SourceAI,
		Category:  engine.CategoryAI,
	}
	if resp.Unit != "" {
		out.Kind = engine.KindUnit
	} else {
		out.Kind = engine.KindNumber
	}
	if out.Formatted == "" {
		out.Formatted = resp.Value.String()
	}
	return out
}

func safeProcess(ctx context.Context, adapter Adapter, req Request) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = failure(CodeServerError, "adapter panicked", false)
		}
	}()
	return adapter.Process(ctx, req)
}
