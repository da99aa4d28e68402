package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/units"
)

// Natural-language phrases normalize onto ordinary tree nodes while
// parsing: "X% of Y" and "X percent of Y" lower to (X/100)*Y, "half of X"
// to 0.5*X, "double X" to 2*X, "average of ..." to a mean node, and
// "X in U" / "X to U" to a conversion node.

var funcWords = map[string]bool{
	"sqrt": true, "square": true, "sin": true, "cos": true,
	"tan": true, "log": true, "log10": true,
}

var fractionWords = map[string]decimal.Decimal{
	"half":    decimal.RequireFromString("0.5"),
	"third":   decimal.NewFromInt(1).Div(decimal.NewFromInt(3)),
	"quarter": decimal.RequireFromString("0.25"),
}

// keywords that can never be a unit suffix or variable reference.
var reservedWords = map[string]bool{
	"of": true, "to": true, "mod": true, "percent": true, "off": true,
	"average": true, "until": true, "today": true, "double": true,
}

type parser struct {
	toks []token
	pos  int
}

// parse builds the expression tree for one normalized line.
func parse(input string) (node, *evalErr) {
	p := &parser{toks: lex(input)}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	switch t := p.peek(); t.typ {
	case tokEOF:
		return n, nil
	case tokWord, tokUnknown:
		return nil, fail(ErrUnknownToken, "unknown token "+strconv.Quote(t.val))
	default:
		return nil, fail(ErrSyntax, "unexpected "+strconv.Quote(t.val))
	}
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) next() token  { t := p.toks[p.pos]; p.pos++; return t }
func (p *parser) word() string { return strings.ToLower(p.peek().val) }

func (p *parser) atOp(vals ...string) bool {
	if p.peek().typ != tokOp {
		return false
	}
	for _, v := range vals {
		if p.peek().val == v {
			return true
		}
	}
	return false
}

func (p *parser) atWord(vals ...string) bool {
	if p.peek().typ != tokWord {
		return false
	}
	for _, v := range vals {
		if p.word() == v {
			return true
		}
	}
	return false
}

// parseExpr handles the lowest precedence level: unit conversion.
func (p *parser) parseExpr() (node, *evalErr) {
	n, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.atWord("in", "to") {
		p.next()
		t := p.peek()
		if t.typ != tokWord {
			return nil, fail(ErrSyntax, "expected a unit after conversion keyword")
		}
		p.next()
		n = convertNode{child: n, target: t.val}
	}
	return n, nil
}

func (p *parser) parseAdditive() (node, *evalErr) {
	n, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.atOp("+", "-") {
		op := p.next().val
		r, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		n = binNode{op: op, l: n, r: r}
	}
	return n, nil
}

func (p *parser) parseMultiplicative() (node, *evalErr) {
	n, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.atOp("*", "/"):
			op = p.next().val
		case p.atWord("mod"):
			p.next()
			op = "mod"
		case p.atWord("of"):
			p.next()
			op = "of"
		case p.atWord("off"):
			// "X% off Y" is Y reduced by X percent: Y - X*Y.
			p.next()
			r, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			n = binNode{op: "-", l: r, r: binNode{op: "*", l: n, r: r}}
			continue
		default:
			return n, nil
		}
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n = binNode{op: op, l: n, r: r}
	}
}

func (p *parser) parseUnary() (node, *evalErr) {
	switch {
	case p.atOp("-"):
		p.next()
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negNode{child: n}, nil
	case p.atOp("+"):
		p.next()
		return p.parseUnary()
	case p.atWord("double"):
		p.next()
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binNode{op: "*", l: numNode{v: decimal.NewFromInt(2)}, r: n}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (node, *evalErr) {
	n, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.atOp("^") {
		p.next()
		// Right associative.
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binNode{op: "^", l: n, r: r}, nil
	}
	return n, nil
}

// parsePostfix attaches percent signs and unit suffixes.
func (p *parser) parsePostfix() (node, *evalErr) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atOp("%"):
			p.next()
			n = percentNode{child: n}
		case p.atWord("percent"):
			p.next()
			n = percentNode{child: n}
		case p.peek().typ == tokWord && p.unitSuffixHere():
			n = unitNode{child: n, unit: p.next().val}
		default:
			return n, nil
		}
	}
}

// unitSuffixHere decides whether the current word is a unit suffix. "in" is
// special: it doubles as the conversion preposition, so it only counts as
// the inch unit when the token after it could not start a conversion target
// (EOF, an operator, or another in/to keyword as in "5 in in cm").
func (p *parser) unitSuffixHere() bool {
	w := p.word()
	if reservedWords[w] || funcWords[w] {
		return false
	}
	if w != "in" {
		return units.IsUnit(p.peek().val)
	}
	nxt := p.toks[p.pos+1]
	if nxt.typ != tokWord {
		return true
	}
	l := strings.ToLower(nxt.val)
	return l == "in" || l == "to"
}

func (p *parser) parsePrimary() (node, *evalErr) {
	t := p.peek()
	switch t.typ {
	case tokNumber:
		p.next()
		v, err := decimal.NewFromString(t.val)
		if err != nil {
			return nil, fail(ErrSyntax, "invalid number "+strconv.Quote(t.val))
		}
		return numNode{v: v}, nil

	case tokDate:
		p.next()
		day, err := time.Parse("2006-01-02", t.val)
		if err != nil {
			return nil, fail(ErrSyntax, "invalid date "+strconv.Quote(t.val))
		}
		return dateNode{serial: dateSerial(day)}, nil

	case tokOp:
		if t.val == "(" {
			p.next()
			n, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if !p.atOp(")") {
				return nil, fail(ErrSyntax, "missing closing parenthesis")
			}
			p.next()
			return n, nil
		}
		return nil, fail(ErrSyntax, "unexpected "+strconv.Quote(t.val))

	case tokWord:
		return p.parseWord()

	case tokUnknown:
		return nil, fail(ErrUnknownToken, "unknown token "+strconv.Quote(t.val))

	default:
		return nil, fail(ErrSyntax, "unexpected end of expression")
	}
}

func (p *parser) parseWord() (node, *evalErr) {
	w := p.word()
	switch {
	case w == "today":
		p.next()
		return todayNode{}, nil

	case w == "days" && strings.ToLower(p.toks[p.pos+1].val) == "until":
		p.next()
		p.next()
		target, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return daysUntilNode{target: target}, nil

	case funcWords[w]:
		p.next()
		arg, err := p.parseFuncArg()
		if err != nil {
			return nil, err
		}
		return callNode{fn: w, arg: arg}, nil

	case w == "average":
		p.next()
		return p.parseAverage()

	default:
		if f, ok := fractionWords[w]; ok {
			p.next()
			return numNode{v: f}, nil
		}
		if units.IsCurrency(p.peek().val) && p.nextStartsValue() {
			// Prefix currency: "$100", "eur 25".
			sym := p.next().val
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return unitNode{child: operand, unit: sym}, nil
		}
		// Bare identifier: resolved against the variable scope at eval time.
		name := p.next().val
		return varNode{name: name}, nil
	}
}

func (p *parser) nextStartsValue() bool {
	nxt := p.toks[p.pos+1]
	return nxt.typ == tokNumber || (nxt.typ == tokOp && nxt.val == "(")
}

func (p *parser) parseFuncArg() (node, *evalErr) {
	if p.atOp("(") {
		p.next()
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.atOp(")") {
			return nil, fail(ErrSyntax, "missing closing parenthesis")
		}
		p.next()
		return n, nil
	}
	// "sqrt 16" form.
	return p.parseUnary()
}

// parseAverage parses "average of a, b, c" and "average(a, b, c)".
func (p *parser) parseAverage() (node, *evalErr) {
	paren := false
	if p.atWord("of") {
		p.next()
	}
	if p.atOp("(") {
		p.next()
		paren = true
	}
	var args []node
	for {
		a, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.atOp(",") {
			break
		}
		p.next()
	}
	if paren {
		if !p.atOp(")") {
			return nil, fail(ErrSyntax, "missing closing parenthesis")
		}
		p.next()
	}
	return avgNode{args: args}, nil
}
