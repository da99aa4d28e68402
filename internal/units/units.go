// Package units holds the conversion tables: static factor tables per
// dimension, an affine transform for temperature, dynamically derived CSS
// pixel ratios, and a pluggable rate source for currency.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Dimension identifies a physical category of unit. Conversion is only
// valid between units of the same dimension.
type Dimension string

const (
	DimLength      Dimension = "length"
	DimMass        Dimension = "mass"
	DimVolume      Dimension = "volume"
	DimData        Dimension = "data"
	DimTime        Dimension = "time"
	DimTemperature Dimension = "temperature"
	DimCSS         Dimension = "css"
	DimCurrency    Dimension = "currency"
)

var (
	ErrUnknownUnit  = errors.New("unknown unit")
	ErrIncompatible = errors.New("incompatible dimensions")
	ErrNoRate       = errors.New("no conversion rate")
)

// Info describes a recognized unit token.
type Info struct {
	Canonical string
	Dim       Dimension
	// Factor is the multiplier to the dimension's base unit (meter, gram,
	// liter, byte, second). Unused for temperature, CSS and currency.
	Factor decimal.Decimal
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// factorTable maps canonical unit tokens to their dimension and
// factor-to-base-unit.
var factorTable = map[string]Info{
	// Length, base meter.
	"mm": {"mm", DimLength, d("0.001")},
	"cm": {"cm", DimLength, d("0.01")},
	"m":  {"m", DimLength, d("1")},
	"km": {"km", DimLength, d("1000")},
	"in": {"in", DimLength, d("0.0254")},
	"ft": {"ft", DimLength, d("0.3048")},
	"yd": {"yd", DimLength, d("0.9144")},
	"mi": {"mi", DimLength, d("1609.344")},

	// Mass, base gram.
	"mg": {"mg", DimMass, d("0.001")},
	"g":  {"g", DimMass, d("1")},
	"kg": {"kg", DimMass, d("1000")},
	"t":  {"t", DimMass, d("1000000")},
	"oz": {"oz", DimMass, d("28.349523125")},
	"lb": {"lb", DimMass, d("453.59237")},

	// Volume, base liter.
	"ml":  {"ml", DimVolume, d("0.001")},
	"cl":  {"cl", DimVolume, d("0.01")},
	"l":   {"l", DimVolume, d("1")},
	"cup": {"cup", DimVolume, d("0.2365882365")},
	"gal": {"gal", DimVolume, d("3.785411784")},

	// Data, base byte. Decimal multiples plus binary multiples.
	"b":   {"b", DimData, d("1")},
	"kb":  {"kb", DimData, d("1000")},
	"mb":  {"mb", DimData, d("1000000")},
	"gb":  {"gb", DimData, d("1000000000")},
	"tb":  {"tb", DimData, d("1000000000000")},
	"kib": {"kib", DimData, d("1024")},
	"mib": {"mib", DimData, d("1048576")},
	"gib": {"gib", DimData, d("1073741824")},
	"tib": {"tib", DimData, d("1099511627776")},

	// Time, base second.
	"ms":    {"ms", DimTime, d("0.001")},
	"s":     {"s", DimTime, d("1")},
	"min":   {"min", DimTime, d("60")},
	"h":     {"h", DimTime, d("3600")},
	"day":   {"day", DimTime, d("86400")},
	"week":  {"week", DimTime, d("604800")},
	"month": {"month", DimTime, d("2629800")}, // mean Gregorian month
	"year":  {"year", DimTime, d("31557600")}, // Julian year

	// Temperature converts through an affine transform, not a factor.
	"celsius":    {"celsius", DimTemperature, d("1")},
	"fahrenheit": {"fahrenheit", DimTemperature, d("1")},
	"kelvin":     {"kelvin", DimTemperature, d("1")},
}

// aliases maps spelled-out and plural forms onto canonical tokens.
var aliases = map[string]string{
	"millimeter": "mm", "millimeters": "mm", "millimetre": "mm", "millimetres": "mm",
	"centimeter": "cm", "centimeters": "cm", "centimetre": "cm", "centimetres": "cm",
	"meter": "m", "meters": "m", "metre": "m", "metres": "m",
	"kilometer": "km", "kilometers": "km", "kilometre": "km", "kilometres": "km",
	"inch": "in", "inches": "in",
	"foot": "ft", "feet": "ft",
	"yard": "yd", "yards": "yd",
	"mile": "mi", "miles": "mi",

	"milligram": "mg", "milligrams": "mg",
	"gram": "g", "grams": "g",
	"kilogram": "kg", "kilograms": "kg", "kilo": "kg", "kilos": "kg",
	"tonne": "t", "tonnes": "t", "ton": "t", "tons": "t",
	"ounce": "oz", "ounces": "oz",
	"pound": "lb", "pounds": "lb", "lbs": "lb",

	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"cups": "cup", "gallon": "gal", "gallons": "gal",

	"byte": "b", "bytes": "b",
	"kilobyte": "kb", "kilobytes": "kb",
	"megabyte": "mb", "megabytes": "mb",
	"gigabyte": "gb", "gigabytes": "gb",
	"terabyte": "tb", "terabytes": "tb",

	"sec": "s", "secs": "s", "second": "s", "seconds": "s",
	"mins": "min", "minute": "min", "minutes": "min",
	"hr": "h", "hrs": "h", "hour": "h", "hours": "h",
	"days": "day", "weeks": "week", "months": "month",
	"years": "year", "yr": "year", "yrs": "year",

	"°c": "celsius", "c": "celsius",
	"°f": "fahrenheit", "f": "fahrenheit",
	"°k": "kelvin", "k": "kelvin",
}

// cssUnits is the set of CSS length tokens. "in" is shared with the length
// dimension; Convert treats it as CSS only when the counterpart is a CSS
// pixel-relative unit.
var cssUnits = map[string]bool{"px": true, "em": true, "rem": true, "pt": true, "in": true}

// currencies maps currency codes and symbols to canonical codes.
var currencies = map[string]string{
	"usd": "usd", "$": "usd", "dollar": "usd", "dollars": "usd",
	"eur": "eur", "€": "eur", "euro": "eur", "euros": "eur",
	"gbp": "gbp", "£": "gbp",
	"jpy": "jpy", "¥": "jpy", "yen": "jpy",
	"sek": "sek", "nok": "nok", "dkk": "dkk", "chf": "chf",
	"cad": "cad", "aud": "aud", "inr": "inr", "cny": "cny",
}

// Lookup resolves a token (any case, singular or plural) to unit metadata.
// CSS-only tokens (px, em, rem, pt) and currencies resolve with dimension
// DimCSS / DimCurrency and a unit factor.
func Lookup(token string) (Info, bool) {
	tok := strings.ToLower(token)
	if canon, ok := aliases[tok]; ok {
		tok = canon
	}
	if info, ok := factorTable[tok]; ok {
		return info, true
	}
	if cssUnits[tok] {
		return Info{Canonical: tok, Dim: DimCSS, Factor: d("1")}, true
	}
	if canon, ok := currencies[tok]; ok {
		return Info{Canonical: canon, Dim: DimCurrency, Factor: d("1")}, true
	}
	return Info{}, false
}

// IsUnit reports whether token is any recognized unit, CSS token or currency.
func IsUnit(token string) bool {
	_, ok := Lookup(token)
	return ok
}

// IsCurrency reports whether token denotes a currency code or symbol.
func IsCurrency(token string) bool {
	_, ok := currencies[strings.ToLower(token)]
	return ok
}

// IsCSS reports whether token is a CSS length token.
func IsCSS(token string) bool {
	return cssUnits[strings.ToLower(token)]
}

// CSSConfig carries the configured pixel ratios. 1em = EmBase px,
// 1in = PpiBase px, 1pt = PpiBase/72 px; rem is em at the root scale.
type CSSConfig struct {
	EmBase  int
	PpiBase int
}

// pxPer returns how many pixels one display unit represents.
func (c CSSConfig) pxPer(unit string) decimal.Decimal {
	switch unit {
	case "em", "rem":
		return decimal.NewFromInt(int64(c.EmBase))
	case "in":
		return decimal.NewFromInt(int64(c.PpiBase))
	case "pt":
		return decimal.NewFromInt(int64(c.PpiBase)).Div(d("72"))
	default: // px
		return d("1")
	}
}

// RateSource supplies currency conversion rates. The concrete source is an
// external collaborator; the engine only depends on this interface.
type RateSource interface {
	// Rate returns the multiplier converting one unit of from into to.
	Rate(from, to string) (decimal.Decimal, error)
}

// StaticRates is a fixed-table RateSource keyed by canonical currency code,
// valued in a common base per one unit of the keyed currency.
type StaticRates map[string]decimal.Decimal

func (r StaticRates) Rate(from, to string) (decimal.Decimal, error) {
	f, ok := r[strings.ToLower(from)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w for %q", ErrNoRate, from)
	}
	t, ok := r[strings.ToLower(to)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w for %q", ErrNoRate, to)
	}
	if t.IsZero() {
		return decimal.Zero, fmt.Errorf("%w for %q", ErrNoRate, to)
	}
	return f.Div(t), nil
}

// Convert converts v between two unit tokens. CSS ratios come from css;
// currency rates from rates (may be nil when no currency is involved).
func Convert(v decimal.Decimal, from, to string, css CSSConfig, rates RateSource) (decimal.Decimal, error) {
	fi, ok := Lookup(from)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownUnit, from)
	}
	ti, ok := Lookup(to)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownUnit, to)
	}
	if fi.Canonical == ti.Canonical {
		return v, nil
	}

	// "16 px in in" converts through the configured ppi, "5 in in cm"
	// through the static length table.
	if cssUnits[fi.Canonical] && cssUnits[ti.Canonical] &&
		(fi.Dim == DimCSS || ti.Dim == DimCSS) {
		return v.Mul(css.pxPer(fi.Canonical)).Div(css.pxPer(ti.Canonical)), nil
	}

	if fi.Dim == DimCurrency || ti.Dim == DimCurrency {
		if fi.Dim != ti.Dim {
			return decimal.Zero, fmt.Errorf("%w: %s and %s", ErrIncompatible, from, to)
		}
		if rates == nil {
			return decimal.Zero, fmt.Errorf("%w: no rate source configured", ErrNoRate)
		}
		rate, err := rates.Rate(fi.Canonical, ti.Canonical)
		if err != nil {
			return decimal.Zero, err
		}
		return v.Mul(rate), nil
	}

	if fi.Dim == DimTemperature || ti.Dim == DimTemperature {
		if fi.Dim != ti.Dim {
			return decimal.Zero, fmt.Errorf("%w: %s and %s", ErrIncompatible, from, to)
		}
		return fromKelvin(toKelvin(v, fi.Canonical), ti.Canonical), nil
	}

	if fi.Dim != ti.Dim {
		return decimal.Zero, fmt.Errorf("%w: %s and %s", ErrIncompatible, from, to)
	}
	return v.Mul(fi.Factor).Div(ti.Factor), nil
}

func toKelvin(v decimal.Decimal, unit string) decimal.Decimal {
	switch unit {
	case "celsius":
		return v.Add(d("273.15"))
	case "fahrenheit":
		return v.Sub(d("32")).Mul(d("5")).Div(d("9")).Add(d("273.15"))
	default:
		return v
	}
}

func fromKelvin(v decimal.Decimal, unit string) decimal.Decimal {
	switch unit {
	case "celsius":
		return v.Sub(d("273.15"))
	case "fahrenheit":
		return v.Sub(d("273.15")).Mul(d("9")).Div(d("5")).Add(d("32"))
	default:
		return v
	}
}
