package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_RulePrecedence(t *testing.T) {
	cases := []struct {
		input string
		want  Category
	}{
		{"// monthly budget", CategoryComment},
		{"  # note", CategoryComment},
		{"x = 5", CategoryAssignment},
		{"income = 5000", CategoryAssignment},
		{"_rate2 = 3 * 7", CategoryAssignment},
		// Binding takes precedence over conversion semantics.
		{"x = 5 km", CategoryAssignment},
		{"x == 5", CategoryPlain},
		{"5 km in mi", CategoryConversion},
		{"100 usd in eur", CategoryConversion},
		{"$20 to gbp", CategoryConversion},
		{"100 celsius in fahrenheit", CategoryConversion},
		{"16 px in em", CategoryCSSUnit},
		{"12 pt", CategoryCSSUnit},
		{"sqrt(16)", CategoryFunction},
		{"20% of 150", CategoryFunction},
		{"average of 1, 2, 3", CategoryFunction},
		{"days until 2030-01-01", CategoryFunction},
		{"5 + 5", CategoryPlain},
		{"", CategoryPlain},
		{"just words", CategoryPlain},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.input))
		})
	}
}

func TestClassify_IsTotal(t *testing.T) {
	// Classification never fails, whatever the input.
	for _, input := range []string{"", "   ", "@#!$", "===", "🤔", "\x00"} {
		assert.NotEmpty(t, Classify(input))
	}
}

func TestAssignmentName(t *testing.T) {
	name, ok := AssignmentName("  income = 5000")
	require.True(t, ok)
	assert.Equal(t, "income", name)

	name, ok = AssignmentName("_x2 = 1 + 1")
	require.True(t, ok)
	assert.Equal(t, "_x2", name)

	_, ok = AssignmentName("income == 5000")
	assert.False(t, ok)

	_, ok = AssignmentName("5 + 5")
	assert.False(t, ok)

	_, ok = AssignmentName("2x = 4")
	assert.False(t, ok)
}

func TestAssignmentName_CaseSensitive(t *testing.T) {
	name, ok := AssignmentName("Income = 1")
	require.True(t, ok)
	assert.Equal(t, "Income", name)
}
