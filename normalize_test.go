package cif

import "testing"

func TestNormalizeKeyCaseFold(t *testing.T) {
	cases := [][2]string{
		{"_Atom_Site.Label", "_atom_site.label"},
		{"DATA_FOO", "data_foo"},
		{"Å", "å"},
	}
	for _, c := range cases {
		if got := normalizeKey(c[0]); got != normalizeKey(c[1]) {
			t.Errorf("normalizeKey(%q) = %q, want to match normalizeKey(%q) = %q",
				c[0], got, c[1], normalizeKey(c[1]))
		}
	}
}

func TestNormalizeKeyNFD(t *testing.T) {
	// "Å" as a single precomposed code point and as A + combining ring
	// above must normalize to the same key.
	precomposed := "Å"
	decomposed := "Å"
	if normalizeKey(precomposed) != normalizeKey(decomposed) {
		t.Errorf("normalizeKey(%q) != normalizeKey(%q)", precomposed, decomposed)
	}
}

func TestValidDataName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"_cell.length_a", true},
		{"_a", true},
		{"cell.length_a", false}, // missing leading underscore
		{"", false},
		{"_has space", false},
		{"_has'quote", false},
		{`_has"quote`, false},
		{"_has[bracket", false},
	}
	for _, c := range cases {
		if got := validDataName(c.name); got != c.want {
			t.Errorf("validDataName(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestValidContainerCode(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"1abc", true},
		{"", false},
		{"has space", false},
		{"has\ttab", false},
	}
	for _, c := range cases {
		if got := validContainerCode(c.code); got != c.want {
			t.Errorf("validContainerCode(%q) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestIsNonCharacter(t *testing.T) {
	if !isNonCharacter(0xFDD0) {
		t.Error("U+FDD0 should be a non-character")
	}
	if !isNonCharacter(0xFFFE) {
		t.Error("U+FFFE should be a non-character")
	}
	if isNonCharacter('a') {
		t.Error("'a' should not be a non-character")
	}
}
