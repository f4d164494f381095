package cif

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a CifError into one of the taxonomies from the CIF
// core specification: structural, syntactic, structural-empty and
// environment. Traversal steering codes (Continue, SkipChildren, ...) are a
// separate type, Traverse, and are never wrapped as errors.
type ErrorKind int

const (
	// Structural errors: a requested mutation violates a data-model invariant.
	DuplicateBlockCode ErrorKind = iota
	DuplicateFrameCode
	DuplicateDataName
	NoSuchItem
	WrongLoop
	Misuse
	AmbiguousItem

	// Syntactic errors: the input text violates the grammar.
	InvalidBlockCode
	InvalidFrameCode
	InvalidItemName
	InvalidNumber
	InvalidIndexOrKey
	DisallowedValue
	OverlengthLine
	UnmappedChar
	InvalidChar
	MissingWhitespace
	UnexpectedToken
	MalformedNumber
	UnterminatedString
	UnterminatedTextBlock
	UnterminatedList
	UnterminatedTable
	FrameReference

	// Structural-empty errors: a loop or header has no content.
	EmptyLoop
	EmptyLoopHeader
	PartialPacket

	// Environment errors: I/O or allocation failure outside the caller's input.
	IOError
	AllocationError
)

var errorKindNames = map[ErrorKind]string{
	DuplicateBlockCode:    "DuplicateBlockCode",
	DuplicateFrameCode:    "DuplicateFrameCode",
	DuplicateDataName:     "DuplicateDataName",
	NoSuchItem:            "NoSuchItem",
	WrongLoop:             "WrongLoop",
	Misuse:                "Misuse",
	AmbiguousItem:         "AmbiguousItem",
	InvalidBlockCode:      "InvalidBlockCode",
	InvalidFrameCode:      "InvalidFrameCode",
	InvalidItemName:       "InvalidItemName",
	InvalidNumber:         "InvalidNumber",
	InvalidIndexOrKey:     "InvalidIndexOrKey",
	DisallowedValue:       "DisallowedValue",
	OverlengthLine:        "OverlengthLine",
	UnmappedChar:          "UnmappedChar",
	InvalidChar:           "InvalidChar",
	MissingWhitespace:     "MissingWhitespace",
	UnexpectedToken:       "UnexpectedToken",
	MalformedNumber:       "MalformedNumber",
	UnterminatedString:    "UnterminatedString",
	UnterminatedTextBlock: "UnterminatedTextBlock",
	UnterminatedList:      "UnterminatedList",
	UnterminatedTable:     "UnterminatedTable",
	FrameReference:        "FrameReference",
	EmptyLoop:             "EmptyLoop",
	EmptyLoopHeader:       "EmptyLoopHeader",
	PartialPacket:         "PartialPacket",
	IOError:               "IOError",
	AllocationError:       "AllocationError",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CifError is the single error sum type for the package. Every syntactic,
// structural, structural-empty and environment error taxonomy entry is
// represented as a CifError distinguished by Kind.
type CifError struct {
	kind    ErrorKind
	Line    int
	Column  int
	Context string // a short text fragment surrounding the error, when known
	msg     string
	cause   error
}

func newErr(kind ErrorKind, line, col int, context, msg string) *CifError {
	return &CifError{kind: kind, Line: line, Column: col, Context: context, msg: msg}
}

// Kind reports which taxonomy entry this error belongs to.
func (e *CifError) Kind() ErrorKind { return e.kind }

func (e *CifError) Error() string {
	if e.Line > 0 {
		if e.Context != "" {
			return fmt.Sprintf("cif: %s at line %d, column %d (%q): %s",
				e.kind, e.Line, e.Column, e.Context, e.msg)
		}
		return fmt.Sprintf("cif: %s at line %d, column %d: %s", e.kind, e.Line, e.Column, e.msg)
	}
	return fmt.Sprintf("cif: %s: %s", e.kind, e.msg)
}

func (e *CifError) Unwrap() error { return e.cause }

// environmentError wraps an I/O or allocation failure with a stack trace via
// pkg/errors, for faults outside the caller's input rather than a malformed
// document; these are the only errors in the package that carry a stack.
func environmentError(kind ErrorKind, cause error, format string, args ...interface{}) *CifError {
	e := newErr(kind, 0, 0, "", fmt.Sprintf(format, args...))
	e.cause = errors.WithStack(cause)
	return e
}

// Traverse is the steering code a Handler returns to the walker (spec §4.6).
// It is a distinct type from CifError/ErrorKind so error channels and
// traversal control are never conflated.
type Traverse int

const (
	// Continue descends into the current element's children as normal.
	Continue Traverse = 0
	// SkipChildren skips the children of the current element, continuing
	// with its siblings.
	SkipChildren Traverse = -1
	// SkipSiblings skips the untraversed siblings of the current element.
	SkipSiblings Traverse = -2
	// End terminates the walk successfully.
	End Traverse = -3
)

// isStopCode reports whether t should terminate the walk (End, or any
// positive caller-defined error code).
func isStopCode(t Traverse) bool {
	return t == End || t > 0
}
