package core

// convert.go turns the text of a spreadsheet cell into typed values.
//
// These functions handle the messy reality of collector spreadsheets:
//   - Day-first and month-first dates, with or without a time
//   - Comma as decimal separator ("2,5")
//   - Combined dimensions ("2,5x1,8 cm") and inline units ("125 gr")
//   - Currency symbols and thousands separators in prices
//   - Excel formula prefixes (="value")
//
// Parse* functions never fail loudly: they report ok=false and the caller
// decides whether that is a warning or an empty value.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// dateLayouts are tried in order after RFC 3339; the first match wins.
// Day-first is preferred over month-first for ambiguous dates.
var dateLayouts = []string{
	"2/1/2006 15:04:05", "2/1/2006",
	"1/2/2006 15:04:05", "1/2/2006",
	"2006-1-2 15:04:05", "2006-1-2",
	"2.1.2006 15:04:05", "2.1.2006",
	"2006/1/2 15:04:05", "2006/1/2",
}

var (
	// trailingUnitRegex splits "12.5 cm" or `2"` into its numeric part and a unit.
	trailingUnitRegex = regexp.MustCompile(`(?i)^(.*\d)\s*([a-z]+|")\.?$`)

	// weightUnitRegex splits "125 gr" or "1,2kg" into value and unit.
	weightUnitRegex = regexp.MustCompile(`(?i)^(.*?)\s*(kilograms?|grams?|kg|gr|g)$`)

	dimensionSeparators = "xX×*"
)

// currencySymbols maps price symbols to ISO codes.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"€", "EUR"}, // Euro
	{"£", "GBP"}, // Pound
	{"¥", "JPY"}, // Yen
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes a matched pair of surrounding quotes
//
// A lone trailing quote is kept: it is an inch or foot mark (2").
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	for _, q := range []string{`"`, `'`} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = s[1 : len(s)-1]
			break
		}
	}
	return strings.TrimSpace(s)
}

// NormalizeDecimal replaces a lone comma with a period ("2,5" -> "2.5").
// Strings with several commas are returned unchanged.
func NormalizeDecimal(s string) string {
	if strings.Count(s, ",") == 1 {
		return strings.Replace(s, ",", ".", 1)
	}
	return s
}

// ParseNumber parses a finite number, accepting a comma decimal separator.
func ParseNumber(s string) (float64, bool) {
	s = NormalizeDecimal(strings.TrimSpace(s))
	if s == "" || !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseDate parses a date in RFC 3339 or one of the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseCoordinate parses a latitude or longitude and checks its range.
// ok is false when the text is not a number; inRange is false when it is
// a number outside [-limit, limit].
func ParseCoordinate(s string, limit float64) (value float64, ok, inRange bool) {
	v, ok := ParseNumber(s)
	if !ok {
		return 0, false, false
	}
	return v, true, v >= -limit && v <= limit
}

// coordinateLimit returns the absolute bound for a coordinate field.
func coordinateLimit(key FieldKey) float64 {
	if key == FieldLongitude {
		return 180
	}
	return 90
}

// HasDimensionSeparator reports whether s looks like "W x H x L".
func HasDimensionSeparator(s string) bool {
	return strings.ContainsAny(s, "xX×")
}

// Dimensions is the result of parsing a combined "WxHxL unit" string.
// Missing or unparseable tokens are nil.
type Dimensions struct {
	Width  *float64
	Height *float64
	Length *float64
	Unit   string // Canonical size unit, "" when the text carried none
	Bad    []string
}

// ParseDimensions splits a combined dimension string such as "2,5x1,8 cm".
// Tokens are assigned to width, height and length in order.
func ParseDimensions(s string) Dimensions {
	var d Dimensions
	s = strings.TrimSpace(s)

	if m := trailingUnitRegex.FindStringSubmatch(s); m != nil {
		s = m[1]
		d.Unit = sizeUnitFromToken(m[2])
	}

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(dimensionSeparators, r)
	})

	targets := []**float64{&d.Width, &d.Height, &d.Length}
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if i >= len(targets) {
			d.Bad = append(d.Bad, tok)
			continue
		}
		v, unit, ok := ParseMeasure(tok)
		if !ok {
			d.Bad = append(d.Bad, tok)
			continue
		}
		if d.Unit == "" {
			d.Unit = unit
		}
		*targets[i] = &v
	}
	return d
}

// ParseMeasure parses a single length with an optional unit ("25 mm").
// unit is "" when none was given.
func ParseMeasure(s string) (value float64, unit string, ok bool) {
	s = strings.TrimSpace(s)
	if m := trailingUnitRegex.FindStringSubmatch(s); m != nil {
		v, ok := ParseNumber(m[1])
		return v, sizeUnitFromToken(m[2]), ok
	}
	v, ok := ParseNumber(s)
	return v, "", ok
}

// sizeUnitFromToken maps a unit word to a canonical size unit.
// Unknown words default to millimetres.
func sizeUnitFromToken(tok string) string {
	if tok == `"` {
		return SizeUnitInch
	}
	if u, ok := SizeUnitEnum.Resolve(tok); ok {
		return u
	}
	return SizeUnitMM
}

// ParseWeight parses a weight with an optional inline unit ("125 gr", "1,2 kg").
// unit is "" when none was given.
func ParseWeight(s string) (value float64, unit string, ok bool) {
	s = strings.TrimSpace(s)
	if m := weightUnitRegex.FindStringSubmatch(s); m != nil && m[1] != "" {
		unit = WeightUnitGR
		if strings.HasPrefix(strings.ToLower(m[2]), "k") {
			unit = WeightUnitKG
		}
		v, ok := ParseNumber(m[1])
		return v, unit, ok
	}
	v, ok := ParseNumber(s)
	return v, "", ok
}

// ParseCurrencyAmount strips everything except digits and periods and parses
// the rest. currency is the ISO code of a leading or trailing symbol, if any.
func ParseCurrencyAmount(s string) (value float64, currency string, ok bool) {
	s = strings.TrimSpace(s)
	for _, cs := range currencySymbols {
		if strings.Contains(s, cs.symbol) {
			currency = cs.code
			break
		}
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || !numericRegex.MatchString(digits) {
		return 0, currency, false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, currency, false
	}
	return v, currency, true
}

// ParseTags splits on commas and semicolons, dropping blanks.
func ParseTags(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
