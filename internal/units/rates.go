package units

// DefaultRates is a fixed, indicative rate table for offline use, valued in
// US dollars per one unit of the keyed currency. Live rates come from a
// caller-supplied RateSource.
func DefaultRates() StaticRates {
	return StaticRates{
		"usd": d("1"),
		"eur": d("1.08"),
		"gbp": d("1.27"),
		"jpy": d("0.0067"),
		"sek": d("0.095"),
		"nok": d("0.094"),
		"dkk": d("0.145"),
		"chf": d("1.13"),
		"cad": d("0.73"),
		"aud": d("0.66"),
		"inr": d("0.012"),
		"cny": d("0.14"),
	}
}
