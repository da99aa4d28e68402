package engine

import (
	"regexp"
	"strings"
)

// Classification is an explicit ordered rule list: the first predicate that
// matches wins. The ordering is a contract — an assignment that mentions a
// unit ("x = 5 km") classifies as assignment, because binding takes
// precedence over conversion semantics.

var (
	assignmentRe = regexp.MustCompile(`^\s*[A-Za-z_][A-Za-z0-9_]*\s*=\s*[^=\s].*$`)
	assignNameRe = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=`)

	conversionRe = regexp.MustCompile(`(?i)\b(?:in|to)\b`)
	cssTokenRe   = regexp.MustCompile(`(?i)\b(?:px|em|rem|pt|in)\b`)
	functionRe   = regexp.MustCompile(`(?i)\b(?:sqrt|square|sin|cos|tan|log10|log|percent|of|average|half|third|quarter|double|days|until|today|mod)\b|%`)
	currencyRe   = regexp.MustCompile(`(?i)[$€£¥]|\b(?:usd|eur|gbp|jpy|sek|nok|dkk|chf|cad|aud|inr|cny|dollars?|euros?|yen)\b`)
	// "in" is deliberately absent: as a bare token it is the conversion
	// preposition, and the inch spellings are covered by inch/inches.
	unitWordRe = regexp.MustCompile(`(?i)\b(?:mm|cm|m|km|ft|yd|mi|mg|g|kg|t|oz|lb|lbs|ml|cl|l|cup|gal|b|kb|mb|gb|tb|kib|mib|gib|tib|ms|s|min|h|day|week|month|year|millimet\w+|centimet\w+|met(?:er|re)s?|kilomet\w+|inch(?:es)?|feet|foot|yards?|miles?|milligrams?|grams?|kilo(?:gram)?s?|tonnes?|tons?|ounces?|pounds?|millilit\w+|lit(?:er|re)s?|cups?|gallons?|bytes?|kilobytes?|megabytes?|gigabytes?|terabytes?|secs?|seconds?|mins?|minutes?|hrs?|hours?|days?|weeks?|months?|years?|celsius|fahrenheit|kelvin)\b`)
)

type rule struct {
	match    func(string) bool
	category Category
}

var classifierRules = []rule{
	{func(s string) bool {
		t := strings.TrimSpace(s)
		return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "#")
	}, CategoryComment},
	{func(s string) bool {
		return assignmentRe.MatchString(s) && !strings.Contains(s, "==")
	}, CategoryAssignment},
	{func(s string) bool {
		if !conversionRe.MatchString(s) {
			return false
		}
		return currencyRe.MatchString(s) || unitWordRe.MatchString(s)
	}, CategoryConversion},
	{func(s string) bool { return cssTokenRe.MatchString(s) }, CategoryCSSUnit},
	{func(s string) bool { return functionRe.MatchString(s) }, CategoryFunction},
}

// Classify maps raw text to a Category. It is deterministic, pure and total:
// every input gets a category and classification never fails.
func Classify(text string) Category {
	for _, r := range classifierRules {
		if r.match(text) {
			return r.category
		}
	}
	return CategoryPlain
}

// AssignmentName extracts the bound identifier from an assignment line.
// It only reports ok for text that Classify sees as an assignment.
func AssignmentName(text string) (string, bool) {
	if Classify(text) != CategoryAssignment {
		return "", false
	}
	m := assignNameRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
