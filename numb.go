package cif

import (
	"strconv"
	"strings"
)

// Numb is a CIF numeric value: a signed decimal mantissa, a decimal scale
// (number of digits after the point), a signed exponent, and an optional
// standard uncertainty (su) expressed as digits in the same scale as the
// mantissa (spec §3, §4.4). Text holds the canonical textual representation
// that the writer emits verbatim and that the parser preserved from input.
type Numb struct {
	Negative    bool
	Mantissa    string // decimal digits only, no sign, no point
	Scale       int    // digits of Mantissa that are after the decimal point
	ExpSign     bool   // true if the exponent is negative
	Exponent    int    // exponent magnitude; HasExponent false means no exponent was written
	HasExponent bool
	SU          string // standard-uncertainty digits, "" if absent; may not be negative
	Text        string // canonical text, as stored on the Value
}

// Float64 converts n to an IEEE double for inspection. Conversions are
// provided for convenience only; the canonical text is the value of record.
func (n *Numb) Float64() (float64, error) {
	f, err := strconv.ParseFloat(n.Text, 64)
	if err != nil {
		return 0, err
	}
	return f, nil
}

// numbParser recognizes the CIF number grammar (spec §4.4):
//
//	number := sign? digits ('.' digits?)? exponent? su?
//	        | sign? '.' digits exponent? su?
//	exponent := ('e'|'E') sign? digits
//	su := '(' digits ')'
//
// On success it returns a Numb carrying the original text unchanged; on
// failure it returns (nil, false), produces no InvalidNumber error, and the
// caller treats the token as CHAR instead.
func parseNumb(text string) (*Numb, bool) {
	s := text
	i := 0
	n := &Numb{Text: text}

	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		n.Negative = s[i] == '-'
		i++
	}

	intStart := i
	for i < len(s) && isASCIIDigit(s[i]) {
		i++
	}
	intDigits := s[intStart:i]

	var fracDigits string
	if i < len(s) && s[i] == '.' {
		i++
		fracStart := i
		for i < len(s) && isASCIIDigit(s[i]) {
			i++
		}
		fracDigits = s[fracStart:i]
	}

	if intDigits == "" && fracDigits == "" {
		return nil, false
	}

	n.Mantissa = stripLeadingZeros(intDigits + fracDigits)
	if n.Mantissa == "" {
		n.Mantissa = "0"
	}
	n.Scale = len(fracDigits)

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			n.ExpSign = s[i] == '-'
			i++
		}
		expStart := i
		for i < len(s) && isASCIIDigit(s[i]) {
			i++
		}
		if i == expStart {
			return nil, false // exponent marker with no digits
		}
		exp, err := strconv.Atoi(s[expStart:i])
		if err != nil {
			return nil, false
		}
		n.Exponent = exp
		n.HasExponent = true
	}

	if i < len(s) && s[i] == '(' {
		suStart := i + 1
		end := strings.IndexByte(s[suStart:], ')')
		if end < 0 || suStart+end != len(s)-1 {
			return nil, false // su must be the final token content
		}
		su := s[suStart : suStart+end]
		if su == "" || !allASCIIDigits(su) {
			return nil, false // no internal whitespace, no fractional part, digits only
		}
		n.SU = su
		i = len(s)
	}

	if i != len(s) {
		return nil, false
	}
	return n, true
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }

func allASCIIDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isASCIIDigit(s[i]) {
			return false
		}
	}
	return true
}

func stripLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}
