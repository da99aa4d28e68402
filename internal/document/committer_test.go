package document

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/engine"
	"tally/internal/fallback"
)

// fakeAdapter scripts the fallback boundary.
type fakeAdapter struct {
	resp fallback.Response
}

func (f fakeAdapter) Process(ctx context.Context, req fallback.Request) fallback.Response {
	return f.resp
}

func aiSuccess(v int64) fallback.Response {
	d := decimal.NewFromInt(v)
	return fallback.Response{OK: true, Value: &d, Formatted: d.String()}
}

func evaluatedDoc(t *testing.T, inputs ...string) *Document {
	t.Helper()
	return EvaluateAll(newDoc(inputs...), testCtx())
}

func TestCommitter_AppliesResolution(t *testing.T) {
	doc := evaluatedDoc(t, "what is six times seven")
	line := doc.Lines[0]
	require.NotNil(t, line.Result)
	require.True(t, line.Result.IsError())

	c := NewCommitter(doc)
	defer c.Close()

	res := engine.Result{
		Kind:      engine.KindNumber,
		Value:     decimal.NewFromInt(42),
		Formatted: "42",
		Source:    engine.SourceAI,
		Category:  engine.CategoryAI,
	}
	c.Commit(line.ID, line.Input, res)

	got := c.Snapshot()
	require.NotNil(t, got.Lines[0].Result)
	assert.False(t, got.Lines[0].Result.IsError())
	assert.Equal(t, "42", got.Lines[0].Result.Formatted)
	assert.Equal(t, engine.CategoryAI, got.Lines[0].Category)
	assert.Equal(t, engine.SourceAI, got.Lines[0].Result.Source)
}

func TestCommitter_DiscardsStaleWriteAfterEdit(t *testing.T) {
	doc := evaluatedDoc(t, "gibberish line")
	line := doc.Lines[0]

	c := NewCommitter(doc)
	defer c.Close()

	// The user edits the line while escalation is in flight.
	c.Replace(func() *Document {
		edited := doc.Clone()
		edited.SetInput(line.ID, "5 + 5")
		return edited
	}())

	res := engine.Result{Kind: engine.KindNumber, Value: decimal.NewFromInt(42), Formatted: "42", Source: engine.SourceAI, Category: engine.CategoryAI}
	c.Commit(line.ID, line.Input, res)

	got := c.Snapshot()
	assert.Equal(t, "5 + 5", got.Lines[0].Input)
	// The stale resolution was silently dropped.
	assert.Nil(t, got.Lines[0].Result)
}

func TestCommitter_DiscardsWriteForMissingLine(t *testing.T) {
	doc := evaluatedDoc(t, "gibberish line", "1 + 1")
	c := NewCommitter(doc)
	defer c.Close()

	res := engine.Result{Kind: engine.KindNumber, Value: decimal.NewFromInt(1), Formatted: "1", Source: engine.SourceAI, Category: engine.CategoryAI}
	c.Commit("no-such-line", "gibberish line", res)

	got := c.Snapshot()
	require.NotNil(t, got.Lines[0].Result)
	assert.True(t, got.Lines[0].Result.IsError())
}

func TestCommitter_EscalateLineSuccess(t *testing.T) {
	doc := evaluatedDoc(t, "what is six times seven")
	line := doc.Lines[0]

	c := NewCommitter(doc)
	defer c.Close()

	<-c.EscalateLine(context.Background(), fakeAdapter{resp: aiSuccess(42)}, line)

	got := c.Snapshot()
	require.NotNil(t, got.Lines[0].Result)
	assert.Equal(t, "42", got.Lines[0].Result.Formatted)
	assert.Equal(t, engine.CategoryAI, got.Lines[0].Category)
}

func TestCommitter_EscalateLineFailureKeepsLocalError(t *testing.T) {
	doc := evaluatedDoc(t, "what is six times seven")
	line := doc.Lines[0]
	originalMessage := line.Result.Message

	c := NewCommitter(doc)
	defer c.Close()

	failing := fakeAdapter{resp: fallback.Response{Err: &fallback.AdapterError{Code: fallback.CodeTimeout, Message: "deadline", Retryable: true}}}
	<-c.EscalateLine(context.Background(), failing, line)

	got := c.Snapshot()
	require.NotNil(t, got.Lines[0].Result)
	require.True(t, got.Lines[0].Result.IsError())
	assert.Equal(t, originalMessage, got.Lines[0].Result.Message)
	assert.NotEqual(t, engine.CategoryAI, got.Lines[0].Category)
}

func TestCommitter_EscalateLineSkipsSuccessfulLines(t *testing.T) {
	doc := evaluatedDoc(t, "5 + 5")
	c := NewCommitter(doc)
	defer c.Close()

	<-c.EscalateLine(context.Background(), fakeAdapter{resp: aiSuccess(999)}, doc.Lines[0])

	got := c.Snapshot()
	assert.Equal(t, "10", got.Lines[0].Result.Formatted)
}

func TestCommitter_SnapshotAfterCloseIsNil(t *testing.T) {
	c := NewCommitter(newDoc("1"))
	c.Close()
	assert.Nil(t, c.Snapshot())
	// Commits after close are dropped, not panics.
	c.Commit("id", "1", engine.Result{})
}
