package cif

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf16"
)

// Write serializes c as a CIF 2.0 document (spec §4.7), built as a Handler
// driven by Walk so the serialization order matches the traversal order
// guaranteed by spec §4.6/§5 exactly.
func Write(c *CIF, w io.Writer, opts ...WriteOption) error {
	o := NewWriteOptions(opts...)
	cw := &cifWriter{bw: bufio.NewWriter(w), opts: o}
	Walk(c, cw)
	if cw.err == nil {
		if ferr := cw.bw.Flush(); ferr != nil {
			cw.err = environmentError(IOError, ferr, "flush failed")
		}
	}
	if cw.err == nil {
		return nil
	}
	return cw.err
}

// cifWriter implements Handler, emitting text as it is driven through the
// walk (spec §4.7: "implemented as a walker whose handlers produce text").
type cifWriter struct {
	bw       *bufio.Writer
	opts     WriteOptions
	col      int // current output column, in code units
	inScalar bool
	err      error
}

func (w *cifWriter) raw(s string) {
	if w.err != nil {
		return
	}
	if _, err := w.bw.WriteString(s); err != nil {
		w.err = environmentError(IOError, err, "write failed")
		return
	}
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		w.col = codeUnitLen(s[i+1:])
	} else {
		w.col += codeUnitLen(s)
	}
}

func (w *cifWriter) CifStart() Traverse {
	w.raw("#\\#CIF_2.0\n")
	return Continue
}
func (w *cifWriter) CifEnd() Traverse { return Continue }

func (w *cifWriter) BlockStart(b *Container) Traverse {
	w.raw("\ndata_" + b.Code() + "\n")
	return Continue
}
func (w *cifWriter) BlockEnd(*Container) Traverse { return Continue }

func (w *cifWriter) FrameStart(f *Container) Traverse {
	w.raw("\nsave_" + f.Code() + "\n")
	return Continue
}
func (w *cifWriter) FrameEnd(*Container) Traverse {
	w.raw("\nsave_\n")
	return Continue
}

func (w *cifWriter) LoopStart(lp *Loop) Traverse {
	w.inScalar = lp == lp.parent.ScalarLoop()
	if !w.inScalar {
		w.raw("\nloop_\n")
		for _, n := range lp.Names() {
			w.raw(" " + n + "\n")
		}
	}
	return Continue
}
func (w *cifWriter) LoopEnd(*Loop) Traverse { return Continue }

func (w *cifWriter) PacketStart(*Packet) Traverse { return Continue }
func (w *cifWriter) PacketEnd(*Packet) Traverse {
	if !w.inScalar && w.col != 0 {
		w.raw("\n")
	}
	return Continue
}

func (w *cifWriter) Item(name string, v *Value) Traverse {
	if w.inScalar {
		if w.col != 0 {
			w.raw("\n")
		}
		w.raw(name)
	}
	w.emitValue(v)
	return Continue
}

// emitValue chooses and writes a value's delimiter form per the precedence
// of spec §4.7, inserting a space or newline first per the column-tracking
// rule (a text block instead starts its own line unconditionally).
func (w *cifWriter) emitValue(v *Value) {
	switch v.Kind() {
	case Unknown:
		w.emitToken(unkText)
	case NotApplicable:
		w.emitToken(naText)
	case Numeric:
		w.emitToken(v.Numb().Text)
	case List:
		w.emitList(v)
	case Table:
		w.emitTable(v)
	case Char:
		w.emitChar(v.Text())
	}
}

// emitToken writes a bare (delimiter-free) token, inserting a leading space
// or newline per the column-tracking rule (spec §4.7).
func (w *cifWriter) emitToken(s string) {
	w.separate(codeUnitLen(s))
	w.raw(s)
}

// separate inserts a space if the current column is non-zero and the next
// token of the given width fits on the line; otherwise a newline.
func (w *cifWriter) separate(width int) {
	if w.col == 0 {
		return
	}
	if w.col+1+width <= w.opts.LineLimit {
		w.raw(" ")
	} else {
		w.raw("\n")
	}
}

func (w *cifWriter) emitList(v *Value) {
	elems := v.List()
	rendered := make([]string, len(elems))
	for i, e := range elems {
		rendered[i] = w.render(e)
	}
	text := "[" + strings.Join(rendered, " ")
	if len(rendered) > 0 {
		text += " "
	}
	text += "]"
	w.separate(codeUnitLen(text))
	w.raw(text)
}

func (w *cifWriter) emitTable(v *Value) {
	t := v.Table()
	entries := make([]string, 0, t.Len())
	for _, k := range t.Keys() {
		val, _ := t.Get(k)
		entries = append(entries, quoteTableKey(k)+":"+w.render(val))
	}
	text := "{" + strings.Join(entries, " ")
	if len(entries) > 0 {
		text += " "
	}
	text += "}"
	w.separate(codeUnitLen(text))
	w.raw(text)
}

// render renders v as it would be written, without touching the writer's
// column state; used to build LIST/TABLE contents, which nest as a single
// token from the column tracker's point of view.
func (w *cifWriter) render(v *Value) string {
	switch v.Kind() {
	case Unknown:
		return unkText
	case NotApplicable:
		return naText
	case Numeric:
		return v.Numb().Text
	case List:
		elems := v.List()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = w.render(e)
		}
		s := "[" + strings.Join(parts, " ")
		if len(parts) > 0 {
			s += " "
		}
		return s + "]"
	case Table:
		t := v.Table()
		parts := make([]string, 0, t.Len())
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			parts = append(parts, quoteTableKey(k)+":"+w.render(val))
		}
		s := "{" + strings.Join(parts, " ")
		if len(parts) > 0 {
			s += " "
		}
		return s + "}"
	case Char:
		return w.renderChar(v.Text())
	}
	return ""
}

// quoteTableKey renders a table key as a string (spec §4.7: "keys written
// as strings"); a table key is always rendered quoted so an empty or
// numeric-looking key is never ambiguous.
func quoteTableKey(k string) string {
	if !strings.ContainsRune(k, '"') {
		return `"` + k + `"`
	}
	if !strings.ContainsRune(k, '\'') {
		return "'" + k + "'"
	}
	return `"` + strings.ReplaceAll(k, `"`, `\"`) + `"`
}

func (w *cifWriter) emitChar(s string) {
	switch charForm(s, w.opts.LineLimit) {
	case formBare:
		w.emitToken(s)
	case formSingle:
		w.emitToken("'" + s + "'")
	case formDouble:
		w.emitToken(`"` + s + `"`)
	case formTripleSingle:
		w.emitToken("'''" + s + "'''")
	case formTripleDouble:
		w.emitToken(`"""` + s + `"""`)
	case formText:
		if w.col != 0 {
			w.raw("\n")
		}
		w.writeTextBlock(s)
	}
}

// renderChar is emitChar's column-free counterpart, for use inside a
// LIST/TABLE (a text-block form cannot nest inside one, so any content that
// would need one is rendered triple-quoted-or-widest-quoted as a fallback).
func (w *cifWriter) renderChar(s string) string {
	switch charForm(s, w.opts.LineLimit) {
	case formBare:
		return s
	case formSingle:
		return "'" + s + "'"
	case formDouble:
		return `"` + s + `"`
	case formTripleSingle:
		return "'''" + s + "'''"
	case formTripleDouble:
		return `"""` + s + `"""`
	default:
		// No delimiter round-trips this content inside a composite value;
		// fall back to triple double quotes, which at least writes every
		// code point out unchanged (composites are a CIF 2.0-only construct, and CIF 2.0
		// content this pathological is outside what the writer guarantees
		// to re-delimit narrowly).
		return `"""` + s + `"""`
	}
}

type charDelimForm int

const (
	formBare charDelimForm = iota
	formSingle
	formDouble
	formTripleSingle
	formTripleDouble
	formText
)

// charForm picks the narrowest delimiter for s that fits within limit code
// units, in the precedence order of spec §4.7. A single-line form that
// would not fit on a line of its own falls through to formText, whose
// line-folding always fits. The triple-quoted forms can be chosen here, but
// Scanner reads only single-character quote delimiters, so text written in
// a triple-quoted form is not read back by Parse as the same text.
func charForm(s string, limit int) charDelimForm {
	if s == "" {
		return formSingle
	}
	if !strings.ContainsAny(s, "\n\r") && codeUnitLen(s)+6 <= limit {
		if isBareSafe(s) {
			return formBare
		}
		hasSingle := strings.ContainsRune(s, '\'')
		hasDouble := strings.ContainsRune(s, '"')
		switch {
		case !hasSingle:
			return formSingle
		case !hasDouble:
			return formDouble
		case !strings.Contains(s, "'''"):
			return formTripleSingle
		case !strings.Contains(s, `"""`):
			return formTripleDouble
		}
	}
	return formText
}

// isBareSafe reports whether s can be written with no delimiter at all:
// no whitespace, none of the characters that would be read as starting a
// different token, not a reserved-word prefix, and not looking numeric
// (which would round-trip as NUMB, not CHAR).
func isBareSafe(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if isWhitespaceRune(r) {
			return false
		}
		switch r {
		case '_', '#', '$', '[', '{', ']', '}', '\'', '"':
			return false
		}
	}
	lower := strings.ToLower(s)
	for _, kw := range []string{kwData, kwSave, kwLoop, kwStop, kwGlobal} {
		if strings.HasPrefix(lower, kw) {
			return false
		}
	}
	if s == unkText || s == naText {
		return false
	}
	if _, ok := parseNumb(s); ok {
		return false
	}
	return true
}

func codeUnitLen(s string) int {
	n := 0
	for _, r := range s {
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

// writeTextBlock emits s as a semicolon-delimited text block, applying
// line-folding (to keep physical lines within the limit, or to protect
// otherwise-ambiguous content) and line-prefixing (when the content has an
// embedded line that would otherwise look like the closing delimiter),
// per spec §4.7.
func (w *cifWriter) writeTextBlock(s string) {
	lines := strings.Split(s, "\n")
	limit := w.opts.LineLimit

	needPrefix := false
	for _, l := range lines {
		if strings.HasPrefix(l, ";") {
			needPrefix = true
			break
		}
	}
	needFold := strings.HasPrefix(s, ";") || hasReservedPrefix(s)
	if !needFold {
		for _, l := range lines {
			if codeUnitLen(l) > limit-8 {
				needFold = true
				break
			}
		}
	}

	w.raw(";")
	switch {
	case needFold && needPrefix:
		w.raw(textPrefix + `\\` + "\n")
	case needPrefix:
		w.raw(textPrefix + `\` + "\n")
	case needFold:
		w.raw(`\` + "\n")
	default:
		w.raw("\n")
	}

	for i, l := range lines {
		if needPrefix {
			l = textPrefix + l
		}
		if needFold {
			w.writeFoldedLine(l, limit)
			if endsAmbiguously(l) {
				w.raw(`\` + "\n")
			}
		} else {
			w.raw(l)
		}
		if i != len(lines)-1 {
			w.raw("\n")
		}
	}
	w.raw("\n;")
}

func endsAmbiguously(l string) bool {
	if l == "" {
		return false
	}
	last := l[len(l)-1]
	return last == ' ' || last == '\t' || last == '\\'
}

// writeFoldedLine splits a logical line into fold segments so no physical
// line exceeds limit, breaking at whitespace among the 8 runes up to the
// target when possible, never mid-surrogate-pair and never immediately
// before a literal ';'.
func (w *cifWriter) writeFoldedLine(l string, limit int) {
	for {
		n := codeUnitLen(l)
		if endsAmbiguously(l) {
			n++ // writeTextBlock appends a protecting '\' to this segment
		}
		if n <= limit {
			w.raw(l)
			return
		}
		runes := []rune(l)
		cut := foldBreak(runes, limit-1) // one unit is left for the fold '\'
		w.raw(string(runes[:cut]) + `\` + "\n")
		l = string(runes[cut:])
	}
}

// foldBreak finds a rune index at or before the code-unit target where it
// is safe to break a too-long line: preferring a whitespace rune among the
// 8 runes at and before the target (the window is counted in runes and
// does not extend past the target), otherwise an exact target cut, never
// splitting a surrogate pair nor landing immediately before a ';'.
func foldBreak(runes []rune, limit int) int {
	units := 0
	target := -1
	for i, r := range runes {
		width := len(utf16.Encode([]rune{r}))
		if units+width > limit {
			target = i
			break
		}
		units += width
	}
	if target < 0 {
		target = len(runes)
	}
	lo := target - 8
	if lo < 0 {
		lo = 0
	}
	for i := target; i >= lo; i-- {
		if i > 0 && i < len(runes) && isWhitespaceRune(runes[i]) && runes[i] != ';' {
			return i
		}
	}
	cut := target
	if cut <= 0 {
		cut = 1
	}
	if cut < len(runes) && runes[cut] == ';' {
		cut--
	}
	return cut
}

func hasReservedPrefix(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range []string{kwData, kwSave, kwLoop, kwStop, kwGlobal} {
		if strings.HasPrefix(lower, kw) {
			return true
		}
	}
	return false
}
