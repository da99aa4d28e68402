package fallback

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/engine"
)

type scriptedAdapter struct {
	resp    Response
	panics  bool
	lastReq *Request
}

func (s *scriptedAdapter) Process(ctx context.Context, req Request) Response {
	s.lastReq = &req
	if s.panics {
		panic("adapter blew up")
	}
	return s.resp
}

func localError() engine.Result {
	return engine.Result{
		Kind:     engine.KindError,
		ErrKind:  engine.ErrUnknownToken,
		Message:  `unknown token "gibberish"`,
		Source:   engine.SourceLocal,
		Category: engine.CategoryPlain,
	}
}

func TestShouldEscalate(t *testing.T) {
	ok := engine.Result{Kind: engine.KindNumber, Value: decimal.NewFromInt(1)}

	assert.False(t, ShouldEscalate("some long input", ok), "successful results never escalate")
	assert.False(t, ShouldEscalate("ab", localError()), "two characters or fewer never escalate")
	assert.False(t, ShouldEscalate("  ab  ", localError()), "length is measured after trimming")
	assert.True(t, ShouldEscalate("abc", localError()))
	assert.True(t, ShouldEscalate("what is six times seven", localError()))
}

func TestEscalate_SuccessSynthesizesAIResult(t *testing.T) {
	v := decimal.NewFromInt(42)
	adapter := &scriptedAdapter{resp: Response{OK: true, Value: &v, Formatted: "42"}}

	out := Escalate(context.Background(), adapter, "what is six times seven", localError())
	require.False(t, out.IsError())
	assert.Equal(t, engine.KindNumber, out.Kind)
	assert.True(t, out.Value.Equal(v))
	assert.Equal(t, "42", out.Formatted)
	assert.Equal(t, engine.SourceAI, out.Source)
	assert.Equal(t, engine.CategoryAI, out.Category)

	require.NotNil(t, adapter.lastReq)
	assert.Equal(t, "what is six times seven", adapter.lastReq.Input)
	assert.NotEmpty(t, adapter.lastReq.SystemPrompt)
}

func TestEscalate_SuccessWithUnit(t *testing.T) {
	v := decimal.RequireFromString("3.5")
	adapter := &scriptedAdapter{resp: Response{OK: true, Value: &v, Unit: "km", Formatted: "3.5 km"}}

	out := Escalate(context.Background(), adapter, "three and a half klicks", localError())
	require.False(t, out.IsError())
	assert.Equal(t, engine.KindUnit, out.Kind)
	assert.Equal(t, "km", out.Unit)
}

func TestEscalate_AdapterFailureKeepsOriginalError(t *testing.T) {
	local := localError()
	for _, code := range []string{CodeTimeout, CodeNetwork, CodeRateLimit, CodeParseError, CodeNotProcessable, CodeServerError} {
		adapter := &scriptedAdapter{resp: failure(code, "boom", false)}
		out := Escalate(context.Background(), adapter, "what is six times seven", local)
		assert.Equal(t, local, out, "adapter failure %s must not replace the local error", code)
	}
}

func TestEscalate_SuccessWithoutValueKeepsOriginalError(t *testing.T) {
	local := localError()
	adapter := &scriptedAdapter{resp: Response{OK: true, Formatted: "forty-two"}}
	out := Escalate(context.Background(), adapter, "what is six times seven", local)
	assert.Equal(t, local, out)
}

func TestEscalate_AdapterPanicKeepsOriginalError(t *testing.T) {
	local := localError()
	adapter := &scriptedAdapter{panics: true}

	assert.NotPanics(t, func() {
		out := Escalate(context.Background(), adapter, "what is six times seven", local)
		assert.Equal(t, local, out)
	})
}

func TestEscalate_ShortOrSuccessfulInputNeverCallsAdapter(t *testing.T) {
	adapter := &scriptedAdapter{resp: Response{OK: true}}

	Escalate(context.Background(), adapter, "ab", localError())
	assert.Nil(t, adapter.lastReq)

	ok := engine.Result{Kind: engine.KindNumber, Value: decimal.NewFromInt(7)}
	Escalate(context.Background(), adapter, "long successful line", ok)
	assert.Nil(t, adapter.lastReq)
}

func TestEscalate_NilAdapter(t *testing.T) {
	local := localError()
	assert.Equal(t, local, Escalate(context.Background(), nil, "what is this", local))
}

func TestParseAdapterResponse(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		resp := parseAdapterResponse(`{"value": "42", "unit": "", "formatted": "42"}`)
		require.True(t, resp.OK)
		assert.True(t, resp.Value.Equal(decimal.NewFromInt(42)))
	})

	t.Run("fenced JSON", func(t *testing.T) {
		resp := parseAdapterResponse("```json\n{\"value\": \"1500\", \"formatted\": \"1,500\"}\n```")
		require.True(t, resp.OK)
		assert.True(t, resp.Value.Equal(decimal.NewFromInt(1500)))
		assert.Equal(t, "1,500", resp.Formatted)
	})

	t.Run("model declines", func(t *testing.T) {
		resp := parseAdapterResponse(`{"error": "not_processable"}`)
		require.False(t, resp.OK)
		assert.Equal(t, CodeNotProcessable, resp.Err.Code)
	})

	t.Run("prose instead of JSON", func(t *testing.T) {
		resp := parseAdapterResponse("The answer is 42.")
		require.False(t, resp.OK)
		assert.Equal(t, CodeParseError, resp.Err.Code)
	})

	t.Run("non-numeric value", func(t *testing.T) {
		resp := parseAdapterResponse(`{"value": "forty-two", "formatted": "42"}`)
		require.False(t, resp.OK)
		assert.Equal(t, CodeParseError, resp.Err.Code)
	})
}
