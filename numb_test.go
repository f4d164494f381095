package cif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumbBasic(t *testing.T) {
	n, ok := parseNumb("123")
	require.True(t, ok)
	assert.False(t, n.Negative)
	assert.Equal(t, "123", n.Mantissa)
	assert.Equal(t, 0, n.Scale)
	assert.False(t, n.HasExponent)
	assert.Equal(t, "", n.SU)
}

func TestParseNumbSignedFraction(t *testing.T) {
	n, ok := parseNumb("-12.340")
	require.True(t, ok)
	assert.True(t, n.Negative)
	assert.Equal(t, "12340", n.Mantissa)
	assert.Equal(t, 3, n.Scale)
}

func TestParseNumbExponent(t *testing.T) {
	n, ok := parseNumb("6.022e23")
	require.True(t, ok)
	assert.Equal(t, 3, n.Scale)
	assert.True(t, n.HasExponent)
	assert.False(t, n.ExpSign)
	assert.Equal(t, 23, n.Exponent)
}

func TestParseNumbNegativeExponent(t *testing.T) {
	n, ok := parseNumb("1.5E-10")
	require.True(t, ok)
	assert.True(t, n.HasExponent)
	assert.True(t, n.ExpSign)
	assert.Equal(t, 10, n.Exponent)
}

func TestParseNumbStandardUncertainty(t *testing.T) {
	n, ok := parseNumb("29.1(3)")
	require.True(t, ok)
	assert.Equal(t, "3", n.SU)
	assert.Equal(t, "291", n.Mantissa)
	assert.Equal(t, 1, n.Scale)
}

func TestParseNumbRejectsNonNumeric(t *testing.T) {
	cases := []string{"", "abc", "1.2.3", "1e", "1()", "1(a)", "1(2) ", "+-1", "."}
	for _, s := range cases {
		if _, ok := parseNumb(s); ok {
			t.Errorf("parseNumb(%q) unexpectedly succeeded", s)
		}
	}
}

func TestParseNumbPreservesText(t *testing.T) {
	n, ok := parseNumb("007.10")
	require.True(t, ok)
	assert.Equal(t, "007.10", n.Text)
	f, err := n.Float64()
	require.NoError(t, err)
	assert.InDelta(t, 7.10, f, 1e-9)
}
