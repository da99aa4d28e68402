package engine

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/units"
)

// value is the intermediate evaluation result flowing up the tree. unit is
// the canonical unit token, "" for plain numbers and the reserved "date" for
// calendar dates (num holds days since the Unix epoch).
type value struct {
	num  decimal.Decimal
	unit string
}

const dateUnit = "date"

func (v value) isDate() bool  { return v.unit == dateUnit }
func (v value) isPlain() bool { return v.unit == "" }

// evalErr is an evaluation failure travelling up the tree. It is converted
// to an error Result at the top; nothing in the engine panics or throws.
type evalErr struct {
	kind ErrKind
	msg  string
}

func fail(kind ErrKind, msg string) *evalErr { return &evalErr{kind: kind, msg: msg} }

// node is one vertex of the expression tree. Evaluation is bottom-up and
// side-effect free.
type node interface {
	eval(ctx Context) (value, *evalErr)
}

type numNode struct{ v decimal.Decimal }

func (n numNode) eval(Context) (value, *evalErr) { return value{num: n.v}, nil }

type dateNode struct{ serial decimal.Decimal }

func (n dateNode) eval(Context) (value, *evalErr) {
	return value{num: n.serial, unit: dateUnit}, nil
}

type todayNode struct{}

func (todayNode) eval(ctx Context) (value, *evalErr) {
	return value{num: dateSerial(ctx.Now), unit: dateUnit}, nil
}

type varNode struct{ name string }

func (n varNode) eval(ctx Context) (value, *evalErr) {
	if r, ok := ctx.lookupVar(n.name); ok {
		return value{num: r.Value, unit: r.Unit}, nil
	}
	if units.IsUnit(n.name) {
		return value{}, fail(ErrUnknownToken, "unexpected unit "+strconv.Quote(n.name))
	}
	return value{}, fail(ErrUndefinedVariable, "undefined variable "+strconv.Quote(n.name))
}

// unitNode attaches a unit suffix to its operand ("5 km", "$100").
type unitNode struct {
	child node
	unit  string
}

func (n unitNode) eval(ctx Context) (value, *evalErr) {
	v, err := n.child.eval(ctx)
	if err != nil {
		return value{}, err
	}
	if !v.isPlain() {
		return value{}, fail(ErrSyntax, "value already carries unit "+strconv.Quote(v.unit))
	}
	info, ok := units.Lookup(n.unit)
	if !ok {
		return value{}, fail(ErrUnknownToken, "unknown unit "+strconv.Quote(n.unit))
	}
	return value{num: v.num, unit: info.Canonical}, nil
}

// percentNode scales its operand by 1/100 ("20%" and "20 percent").
type percentNode struct{ child node }

func (n percentNode) eval(ctx Context) (value, *evalErr) {
	v, err := n.child.eval(ctx)
	if err != nil {
		return value{}, err
	}
	if !v.isPlain() {
		return value{}, fail(ErrSyntax, "percent applies to plain numbers")
	}
	return value{num: v.num.Div(decimal.NewFromInt(100))}, nil
}

type negNode struct{ child node }

func (n negNode) eval(ctx Context) (value, *evalErr) {
	v, err := n.child.eval(ctx)
	if err != nil {
		return value{}, err
	}
	if v.isDate() {
		return value{}, fail(ErrSyntax, "cannot negate a date")
	}
	return value{num: v.num.Neg(), unit: v.unit}, nil
}

// binNode is a binary arithmetic operator. "of" multiplies; the natural
// language normalizer lowers phrases onto it.
type binNode struct {
	op   string
	l, r node
}

func (n binNode) eval(ctx Context) (value, *evalErr) {
	l, err := n.l.eval(ctx)
	if err != nil {
		return value{}, err
	}
	r, err := n.r.eval(ctx)
	if err != nil {
		return value{}, err
	}
	if l.isDate() || r.isDate() {
		return evalDateOp(n.op, l, r)
	}
	switch n.op {
	case "+", "-":
		return evalAddSub(n.op, l, r, ctx)
	case "*", "of":
		return evalMul(l, r)
	case "/":
		return evalDiv(l, r, ctx)
	case "mod":
		if r.num.IsZero() {
			return value{}, fail(ErrDivisionByZero, "division by zero")
		}
		if !l.isPlain() || !r.isPlain() {
			return value{}, fail(ErrIncompatibleUnits, "mod applies to plain numbers")
		}
		return value{num: l.num.Mod(r.num)}, nil
	case "^":
		return evalPow(l, r)
	default:
		return value{}, fail(ErrSyntax, "unknown operator "+strconv.Quote(n.op))
	}
}

func evalAddSub(op string, l, r value, ctx Context) (value, *evalErr) {
	if l.unit != "" && r.unit != "" && l.unit != r.unit {
		conv, err := units.Convert(r.num, r.unit, l.unit, ctx.css(), ctx.Rates)
		if err != nil {
			return value{}, convErr(err)
		}
		r = value{num: conv, unit: l.unit}
	}
	unit := l.unit
	if unit == "" {
		unit = r.unit
	}
	if op == "+" {
		return value{num: l.num.Add(r.num), unit: unit}, nil
	}
	return value{num: l.num.Sub(r.num), unit: unit}, nil
}

func evalMul(l, r value) (value, *evalErr) {
	if l.unit != "" && r.unit != "" {
		return value{}, fail(ErrIncompatibleUnits, "cannot multiply two unit values")
	}
	unit := l.unit
	if unit == "" {
		unit = r.unit
	}
	return value{num: l.num.Mul(r.num), unit: unit}, nil
}

func evalDiv(l, r value, ctx Context) (value, *evalErr) {
	if r.num.IsZero() {
		return value{}, fail(ErrDivisionByZero, "division by zero")
	}
	// Same-dimension division yields a plain ratio.
	if l.unit != "" && r.unit != "" {
		conv, err := units.Convert(r.num, r.unit, l.unit, ctx.css(), ctx.Rates)
		if err != nil {
			return value{}, convErr(err)
		}
		if conv.IsZero() {
			return value{}, fail(ErrDivisionByZero, "division by zero")
		}
		return value{num: l.num.Div(conv)}, nil
	}
	if l.isPlain() && r.unit != "" {
		return value{}, fail(ErrIncompatibleUnits, "cannot divide a plain number by "+strconv.Quote(r.unit))
	}
	return value{num: l.num.Div(r.num), unit: l.unit}, nil
}

func evalPow(l, r value) (value, *evalErr) {
	if !r.isPlain() {
		return value{}, fail(ErrIncompatibleUnits, "exponent must be a plain number")
	}
	if r.num.IsInteger() {
		return value{num: l.num.Pow(r.num), unit: l.unit}, nil
	}
	out := math.Pow(l.num.InexactFloat64(), r.num.InexactFloat64())
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return value{}, fail(ErrSyntax, "exponentiation out of range")
	}
	return value{num: decimal.NewFromFloat(out), unit: l.unit}, nil
}

// evalDateOp implements date offset and date difference. Offsets are whole
// days; fractional offsets truncate.
func evalDateOp(op string, l, r value) (value, *evalErr) {
	switch {
	case l.isDate() && r.isDate() && op == "-":
		return value{num: l.num.Sub(r.num)}, nil
	case l.isDate() && r.isPlain() && (op == "+" || op == "-"):
		days := r.num.Truncate(0)
		if op == "-" {
			days = days.Neg()
		}
		return value{num: l.num.Add(days), unit: dateUnit}, nil
	case l.isPlain() && r.isDate() && op == "+":
		return value{num: r.num.Add(l.num.Truncate(0)), unit: dateUnit}, nil
	default:
		return value{}, fail(ErrIncompatibleUnits, "unsupported date arithmetic")
	}
}

// convertNode converts its operand to a target unit ("5 km in mi").
type convertNode struct {
	child  node
	target string
}

func (n convertNode) eval(ctx Context) (value, *evalErr) {
	v, err := n.child.eval(ctx)
	if err != nil {
		return value{}, err
	}
	if v.isDate() {
		return value{}, fail(ErrIncompatibleUnits, "cannot convert a date")
	}
	info, ok := units.Lookup(n.target)
	if !ok {
		return value{}, fail(ErrUnknownToken, "unknown unit "+strconv.Quote(n.target))
	}
	if v.isPlain() {
		return value{}, fail(ErrSyntax, "no source unit to convert from")
	}
	out, cerr := units.Convert(v.num, v.unit, info.Canonical, ctx.css(), ctx.Rates)
	if cerr != nil {
		return value{}, convErr(cerr)
	}
	return value{num: out, unit: info.Canonical}, nil
}

// callNode applies a named function (sqrt, square, sin, cos, tan, log, log10).
type callNode struct {
	fn  string
	arg node
}

func (n callNode) eval(ctx Context) (value, *evalErr) {
	v, err := n.arg.eval(ctx)
	if err != nil {
		return value{}, err
	}
	if !v.isPlain() {
		return value{}, fail(ErrIncompatibleUnits, n.fn+" applies to plain numbers")
	}
	switch n.fn {
	case "square":
		return value{num: v.num.Mul(v.num)}, nil
	case "sqrt":
		if v.num.IsNegative() {
			return value{}, fail(ErrSyntax, "square root of a negative number")
		}
		return value{num: decimal.NewFromFloat(math.Sqrt(v.num.InexactFloat64()))}, nil
	case "log", "log10":
		if !v.num.IsPositive() {
			return value{}, fail(ErrSyntax, n.fn+" of a non-positive number")
		}
		f := v.num.InexactFloat64()
		if n.fn == "log" {
			return value{num: decimal.NewFromFloat(math.Log(f))}, nil
		}
		return value{num: decimal.NewFromFloat(math.Log10(f))}, nil
	case "sin":
		return value{num: decimal.NewFromFloat(math.Sin(v.num.InexactFloat64()))}, nil
	case "cos":
		return value{num: decimal.NewFromFloat(math.Cos(v.num.InexactFloat64()))}, nil
	case "tan":
		return value{num: decimal.NewFromFloat(math.Tan(v.num.InexactFloat64()))}, nil
	default:
		return value{}, fail(ErrUnknownToken, "unknown function "+strconv.Quote(n.fn))
	}
}

// avgNode is the arithmetic mean of its arguments. Mixed-unit arguments
// convert to the first argument's unit.
type avgNode struct{ args []node }

func (n avgNode) eval(ctx Context) (value, *evalErr) {
	if len(n.args) == 0 {
		return value{}, fail(ErrSyntax, "average needs at least one value")
	}
	var sum decimal.Decimal
	var unit string
	for i, a := range n.args {
		v, err := a.eval(ctx)
		if err != nil {
			return value{}, err
		}
		if v.isDate() {
			return value{}, fail(ErrIncompatibleUnits, "cannot average dates")
		}
		if i == 0 {
			unit = v.unit
		} else if v.unit != unit {
			if v.unit == "" || unit == "" {
				return value{}, fail(ErrIncompatibleUnits, "cannot average mixed plain and unit values")
			}
			conv, cerr := units.Convert(v.num, v.unit, unit, ctx.css(), ctx.Rates)
			if cerr != nil {
				return value{}, convErr(cerr)
			}
			v = value{num: conv, unit: unit}
		}
		sum = sum.Add(v.num)
	}
	return value{num: sum.Div(decimal.NewFromInt(int64(len(n.args)))), unit: unit}, nil
}

// daysUntilNode is the "days until <date>" phrase.
type daysUntilNode struct{ target node }

func (n daysUntilNode) eval(ctx Context) (value, *evalErr) {
	v, err := n.target.eval(ctx)
	if err != nil {
		return value{}, err
	}
	if !v.isDate() {
		return value{}, fail(ErrSyntax, "days until needs a date")
	}
	return value{num: v.num.Sub(dateSerial(ctx.Now))}, nil
}

// dateSerial returns whole days between the Unix epoch and t's calendar day.
func dateSerial(t time.Time) decimal.Decimal {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return decimal.NewFromInt(day.Unix() / 86400)
}

// serialDate is the inverse of dateSerial.
func serialDate(serial decimal.Decimal) time.Time {
	return time.Unix(serial.Truncate(0).IntPart()*86400, 0).UTC()
}

func convErr(err error) *evalErr {
	switch {
	case errors.Is(err, units.ErrIncompatible):
		return fail(ErrIncompatibleUnits, err.Error())
	case errors.Is(err, units.ErrUnknownUnit), errors.Is(err, units.ErrNoRate):
		return fail(ErrUnknownToken, err.Error())
	default:
		return fail(ErrSyntax, err.Error())
	}
}
