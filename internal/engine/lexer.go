package engine

import (
	"strings"
	"unicode"
)

type tokenType int

const (
	tokNumber tokenType = iota
	tokWord
	tokOp
	tokDate
	tokUnknown
	tokEOF
)

type token struct {
	typ tokenType
	val string
	pos int
}

const operatorChars = "+-*/^%(),="

// lex splits a line into numbers, words, dates and operator tokens.
// Word case is preserved; variable names are case-sensitive.
func lex(input string) []token {
	var toks []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r):
			if iso, n := scanISODate(runes[i:]); n > 0 {
				toks = append(toks, token{tokDate, iso, i})
				i += n
				break
			}
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			toks = append(toks, token{tokNumber, string(runes[start:i]), start})
		case r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]):
			start := i
			i++
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			toks = append(toks, token{tokNumber, string(runes[start:i]), start})
		case unicode.IsLetter(r) || r == '_' || r == '°':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_' || runes[i] == '°') {
				i++
			}
			toks = append(toks, token{tokWord, string(runes[start:i]), start})
		case r == '$' || r == '€' || r == '£' || r == '¥':
			toks = append(toks, token{tokWord, string(r), i})
			i++
		case strings.ContainsRune(operatorChars, r):
			toks = append(toks, token{tokOp, string(r), i})
			i++
		default:
			toks = append(toks, token{tokUnknown, string(r), i})
			i++
		}
	}
	toks = append(toks, token{tokEOF, "", len(runes)})
	return toks
}

// scanISODate recognizes a leading YYYY-MM-DD and returns its rune length.
func scanISODate(rs []rune) (string, int) {
	if len(rs) < 10 {
		return "", 0
	}
	for i, r := range rs[:10] {
		if i == 4 || i == 7 {
			if r != '-' {
				return "", 0
			}
			continue
		}
		if !unicode.IsDigit(r) {
			return "", 0
		}
	}
	if len(rs) > 10 && unicode.IsDigit(rs[10]) {
		return "", 0
	}
	return string(rs[:10]), 10
}
