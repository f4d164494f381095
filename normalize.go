package cif

import (
	"unicode"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// lineLimit is the CIF line limit in Unicode code units (spec §6); it also
// bounds the maximum length of a block/frame code or data name.
const lineLimit = 2048

var foldCaser = cases.Fold()

// normalizeKey computes the caseless, NFD-normalized comparison key used to
// test block code, frame code and data name equality (spec §4.1). It does
// not apply to loop categories or table keys, which compare literally.
//
// Step 1 decomposes to canonical form (NFD) via golang.org/x/text/unicode/norm,
// step 2 case-folds via golang.org/x/text/cases in a locale-independent way,
// and the resulting code unit sequence is the key.
func normalizeKey(s string) string {
	return foldCaser.String(norm.NFD.String(s))
}

// validDataName reports whether name is a syntactically valid CIF data
// name: begins with '_', contains no whitespace, no control characters, no
// quote or bracket/brace characters, and is no longer than the line limit.
func validDataName(name string) bool {
	units := utf16.Encode([]rune(name))
	if len(units) == 0 || len(units) > lineLimit {
		return false
	}
	if name[0] != '_' {
		return false
	}
	for _, r := range name {
		if !validNameRune(r) {
			return false
		}
		switch r {
		case '\'', '"', '[', ']', '{', '}':
			return false
		}
	}
	return true
}

// validContainerCode reports whether code is a syntactically valid block or
// frame code: non-empty, no whitespace, no control characters, no disallowed
// Unicode (unpaired surrogates, non-characters), and no longer than the line
// limit.
func validContainerCode(code string) bool {
	if code == "" {
		return false
	}
	units := utf16.Encode([]rune(code))
	if len(units) == 0 || len(units) > lineLimit {
		return false
	}
	for _, r := range code {
		if !validNameRune(r) {
			return false
		}
	}
	return true
}

// validNameRune rejects whitespace, control characters, the replacement
// character produced by invalid UTF-16 surrogate pairs, and Unicode
// non-characters — the common core of the block/frame-code and data-name
// validity rules (spec §4.1).
func validNameRune(r rune) bool {
	if r == unicode.ReplacementChar {
		return false
	}
	if unicode.IsSpace(r) || unicode.IsControl(r) {
		return false
	}
	if isNonCharacter(r) {
		return false
	}
	return true
}

// isNonCharacter reports whether r is one of the Unicode non-characters:
// U+FDD0..U+FDEF, or any code point whose low 16 bits are 0xFFFE/0xFFFF.
func isNonCharacter(r rune) bool {
	if r >= 0xFDD0 && r <= 0xFDEF {
		return true
	}
	low := r & 0xFFFF
	return low == 0xFFFE || low == 0xFFFF
}

// validateDataName validates name and returns InvalidItemName on failure.
func validateDataName(name string, line, col int) *CifError {
	if !validDataName(name) {
		return newErr(InvalidItemName, line, col, name, "invalid data name")
	}
	return nil
}

// validateContainerCode validates code and returns the given kind
// (InvalidBlockCode or InvalidFrameCode) on failure.
func validateContainerCode(code string, kind ErrorKind, line, col int) *CifError {
	if !validContainerCode(code) {
		return newErr(kind, line, col, code, "invalid block or frame code")
	}
	return nil
}
