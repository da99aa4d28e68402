package document

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/engine"
)

func testCtx() engine.Context {
	return engine.Context{
		Variables:     map[string]engine.Result{},
		EmBase:        16,
		PpiBase:       96,
		DecimalPlaces: 2,
		Now:           time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
	}
}

func newDoc(inputs ...string) *Document {
	d := New("test")
	for _, in := range inputs {
		d.AddLine(in)
	}
	return d
}

func TestEvaluateAll_ThreadsScopeForward(t *testing.T) {
	doc := newDoc("income = 5000", "30% of income")
	out := EvaluateAll(doc, testCtx())

	require.NotNil(t, out.Lines[1].Result)
	assert.False(t, out.Lines[1].Result.IsError())
	assert.Equal(t, "1,500", out.Lines[1].Result.Formatted)

	// The input document is untouched.
	assert.Nil(t, doc.Lines[1].Result)

	// The final scope holds the binding.
	bound, ok := out.Variables["income"]
	require.True(t, ok)
	assert.True(t, bound.Value.Equal(decimal.NewFromInt(5000)))
}

func TestEvaluateAll_RejectsForwardReferences(t *testing.T) {
	doc := newDoc("30% of income", "income = 5000")
	out := EvaluateAll(doc, testCtx())

	require.NotNil(t, out.Lines[0].Result)
	require.True(t, out.Lines[0].Result.IsError())
	assert.Equal(t, engine.ErrUndefinedVariable, out.Lines[0].Result.ErrKind)

	require.NotNil(t, out.Lines[1].Result)
	assert.False(t, out.Lines[1].Result.IsError())
}

func TestEvaluateAll_FailedAssignmentKeepsPriorBinding(t *testing.T) {
	doc := newDoc("x = 10", "x = 1 / 0", "x + 5")
	out := EvaluateAll(doc, testCtx())

	require.NotNil(t, out.Lines[1].Result)
	assert.True(t, out.Lines[1].Result.IsError())

	require.NotNil(t, out.Lines[2].Result)
	require.False(t, out.Lines[2].Result.IsError())
	assert.Equal(t, "15", out.Lines[2].Result.Formatted)

	bound := out.Variables["x"]
	assert.True(t, bound.Value.Equal(decimal.NewFromInt(10)))
}

func TestEvaluateAll_RebindingShadowsInOrder(t *testing.T) {
	doc := newDoc("x = 1", "x + 1", "x = 10", "x + 1")
	out := EvaluateAll(doc, testCtx())

	assert.Equal(t, "2", out.Lines[1].Result.Formatted)
	assert.Equal(t, "11", out.Lines[3].Result.Formatted)
	assert.True(t, out.Variables["x"].Value.Equal(decimal.NewFromInt(10)))
}

func TestEvaluateAll_CommentsProduceNoResult(t *testing.T) {
	doc := newDoc("// budget", "5 + 5")
	out := EvaluateAll(doc, testCtx())

	assert.Nil(t, out.Lines[0].Result)
	assert.Equal(t, engine.CategoryComment, out.Lines[0].Category)
	require.NotNil(t, out.Lines[1].Result)
	assert.Equal(t, "10", out.Lines[1].Result.Formatted)
}

func TestEvaluateOne_UsesEarlierScopeOnly(t *testing.T) {
	doc := newDoc("a = 2", "a * 3", "a * 4")
	out := EvaluateAll(doc, testCtx())

	// Edit the middle line and re-evaluate just that line.
	require.True(t, out.SetInput(out.Lines[1].ID, "a * 10"))
	out2, err := EvaluateOne(out, out.Lines[1].ID, testCtx())
	require.NoError(t, err)

	assert.Equal(t, "20", out2.Lines[1].Result.Formatted)
	// The later line keeps its cached result until itself re-evaluated.
	require.NotNil(t, out2.Lines[2].Result)
	assert.Equal(t, "8", out2.Lines[2].Result.Formatted)
}

func TestEvaluateOne_UnknownLine(t *testing.T) {
	doc := newDoc("5 + 5")
	_, err := EvaluateOne(doc, "nope", testCtx())
	assert.Error(t, err)
}

func TestTotal_ExcludesCommentsAndAssignments(t *testing.T) {
	doc := newDoc("10", "20", "// note", "y = 5")
	out := EvaluateAll(doc, testCtx())

	assert.True(t, Total(out).Equal(decimal.NewFromInt(30)), "got %s", Total(out))
}

func TestTotal_SkipsFailedLines(t *testing.T) {
	doc := newDoc("10", "1 / 0", "5 km")
	out := EvaluateAll(doc, testCtx())

	// Unit results contribute their decimal value.
	assert.True(t, Total(out).Equal(decimal.NewFromInt(15)), "got %s", Total(out))
}
