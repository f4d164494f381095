package cif

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// TokenKind enumerates the scanner's token categories (spec §4.3).
type TokenKind int

const (
	TokBlockHead TokenKind = iota
	TokFrameHead
	TokFrameTerm
	TokLoopKw
	TokName
	TokOList
	TokCList
	TokOTable
	TokCTable
	TokKVSep
	TokValue
	TokQValue
	TokTValue
	TokEnd
)

func (k TokenKind) String() string {
	names := [...]string{
		"BLOCK_HEAD", "FRAME_HEAD", "FRAME_TERM", "LOOPKW", "NAME",
		"OLIST", "CLIST", "OTABLE", "CTABLE", "KV_SEP",
		"VALUE", "QVALUE", "TVALUE", "END",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "UNKNOWN"
}

// Token is one lexical unit produced by the Scanner.
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Column int
}

// charClass is the scanner's character classification (spec §4.3, Design
// Notes §9: "keep the table; it is a perfect fit for constant-time
// classification").
type charClass int

const (
	ccGeneral charClass = iota
	ccWhitespace
	ccEOL
	ccHash
	ccUnderscore
	ccQuote
	ccSemicolon
	ccOBracket
	ccCBracket
	ccOBrace
	ccCBrace
	ccColon
	ccDollar
)

// classTable covers the first 160 code points; classify falls through to a
// default for everything beyond it.
var classTable [160]charClass

func init() {
	for i := range classTable {
		classTable[i] = ccGeneral
	}
	classTable[' '] = ccWhitespace
	classTable['\t'] = ccWhitespace
	classTable['\n'] = ccEOL
	classTable['\r'] = ccEOL
	classTable['#'] = ccHash
	classTable['_'] = ccUnderscore
	classTable['\''] = ccQuote
	classTable['"'] = ccQuote
	classTable[';'] = ccSemicolon
	classTable['['] = ccOBracket
	classTable[']'] = ccCBracket
	classTable['{'] = ccOBrace
	classTable['}'] = ccCBrace
	classTable[':'] = ccColon
	classTable['$'] = ccDollar
}

func classify(r rune) charClass {
	if r >= 0 && int(r) < len(classTable) {
		return classTable[r]
	}
	return ccGeneral
}

func isWhitespaceRune(r rune) bool {
	c := classify(r)
	return c == ccWhitespace || c == ccEOL
}

// reservedWords are matched case-insensitively against a full unquoted
// token (spec §4.3).
const (
	kwData   = "data_"
	kwSave   = "save_"
	kwLoop   = "loop_"
	kwStop   = "stop_"
	kwGlobal = "global_"
)

// Scanner classifies the decoded code-unit stream of a CharSource into
// tokens, tracking 1-based line/column and applying the line-folding and
// line-prefixing decode protocols to text blocks (spec §4.3).
type Scanner struct {
	runes  []rune
	widths []int // code units consumed per rune, parallel to runes
	pos    int

	line, col int
	lineUnits int // code units seen since the start of the current line

	cif2    bool
	opts    ParseOptions
	errCb   ErrorCallback
	wsCb    WhitespaceCallback
	aborted bool
	abortCode int

	sawSeparator bool // whitespace/comment seen since the last token
	tokenCount   int
	lastWasQValue bool
}

// NewScanner builds a Scanner over src, which must already be positioned at
// the start of input (after any BOM already stripped by CharSource).
func NewScanner(src *CharSource, cif2 bool, opts ParseOptions, errCb ErrorCallback, wsCb WhitespaceCallback) *Scanner {
	runes, widths := decodeRunesWithWidths(src.units[src.pos:])
	return &Scanner{
		runes: runes, widths: widths,
		line: 1, col: 1,
		cif2: cif2, opts: opts, errCb: errCb, wsCb: wsCb,
	}
}

func decodeRunesWithWidths(units []uint16) ([]rune, []int) {
	runes := make([]rune, 0, len(units))
	widths := make([]int, 0, len(units))
	for i := 0; i < len(units); {
		u := units[i]
		if utf16.IsSurrogate(rune(u)) && i+1 < len(units) {
			r := utf16.DecodeRune(rune(u), rune(units[i+1]))
			if r != 0xFFFD {
				runes = append(runes, r)
				widths = append(widths, 2)
				i += 2
				continue
			}
		}
		runes = append(runes, rune(u))
		widths = append(widths, 1)
		i++
	}
	return runes, widths
}

func (sc *Scanner) report(kind ErrorKind, context, format string, args ...interface{}) {
	if sc.aborted || sc.errCb == nil {
		return
	}
	err := newErr(kind, sc.line, sc.col, context, fmt.Sprintf(format, args...))
	if code := sc.errCb(err); code != 0 {
		sc.aborted = true
		sc.abortCode = code
	}
}

// peekRune returns the rune at pos+offset without consuming, or (0, false)
// past the end of input.
func (sc *Scanner) peekRune(offset int) (rune, bool) {
	i := sc.pos + offset
	if i < 0 || i >= len(sc.runes) {
		return 0, false
	}
	return sc.runes[i], true
}

// advance consumes the current rune and updates line/column tracking.
func (sc *Scanner) advance() (rune, bool) {
	r, ok := sc.peekRune(0)
	if !ok {
		return 0, false
	}
	width := sc.widths[sc.pos]
	sc.pos++
	if r == '\n' {
		// CR and LF are not both counted when forming a CRLF pair: if the
		// previous rune was CR, this LF doesn't start a new line again.
		if prev, ok := sc.peekRune(-2); !ok || prev != '\r' {
			sc.line++
			sc.col = 1
			sc.lineUnits = 0
			return r, true
		}
		return r, true // LF of a CRLF pair: the column stays at 1
	} else if r == '\r' {
		sc.line++
		sc.col = 1
		sc.lineUnits = 0
		return r, true
	}
	sc.col++
	sc.lineUnits += width
	if sc.lineUnits > lineLimit {
		sc.report(OverlengthLine, "", "line exceeds %d code units", lineLimit)
	}
	return r, true
}

func (sc *Scanner) atEOF() bool {
	_, ok := sc.peekRune(0)
	return !ok
}

// skipWhitespace consumes whitespace and comments between tokens, invoking
// wsCb for each span, and reports whether any separator was consumed.
func (sc *Scanner) skipWhitespace() bool {
	sawAny := false
	for {
		r, ok := sc.peekRune(0)
		if !ok {
			return sawAny
		}
		switch classify(r) {
		case ccWhitespace, ccEOL:
			startLine, startCol := sc.line, sc.col
			var sb strings.Builder
			for {
				r, ok := sc.peekRune(0)
				if !ok || !isWhitespaceRune(r) {
					break
				}
				sb.WriteRune(r)
				sc.advance()
			}
			if sc.wsCb != nil {
				sc.wsCb(sb.String(), startLine, startCol)
			}
			sawAny = true
		case ccHash:
			startLine, startCol := sc.line, sc.col
			var sb strings.Builder
			for {
				r, ok := sc.peekRune(0)
				if !ok || classify(r) == ccEOL {
					break
				}
				sb.WriteRune(r)
				sc.advance()
			}
			if sc.wsCb != nil {
				sc.wsCb(sb.String(), startLine, startCol)
			}
			sawAny = true
		default:
			return sawAny
		}
	}
}

// scanRun reads the maximal run of non-whitespace runes starting at the
// current position (the teacher's isNonBlankChar idea, generalized to
// arbitrary Unicode: any rune that is not whitespace/EOL continues a run,
// including embedded quote and colon characters, which only delimit a
// token when they are its first rune). In CIF 2.0 input a bracket or brace
// also ends the run, so "3]" scans as a VALUE followed by a CLIST.
func (sc *Scanner) scanRun() string {
	var sb strings.Builder
	for {
		r, ok := sc.peekRune(0)
		if !ok || isWhitespaceRune(r) {
			break
		}
		if sc.cif2 {
			if c := classify(r); c == ccOBracket || c == ccCBracket || c == ccOBrace || c == ccCBrace {
				break
			}
		}
		sb.WriteRune(r)
		sc.advance()
	}
	return sb.String()
}

// Next scans and returns the next token. inTable must be true while the
// parser is scanning a table header/key/separator, so ':' classifies as
// KV_SEP (spec §4.3, §9 Open Question: tracked as parser state rather than
// by mutating the character-class table).
func (sc *Scanner) Next(inTable bool) (Token, *CifError) {
	if sc.aborted {
		return Token{Kind: TokEnd}, newErr(Misuse, sc.line, sc.col, "", "scanner aborted by error callback")
	}
	sawWS := sc.skipWhitespace()
	if sc.tokenCount > 0 && !sawWS {
		colonException := inTable && sc.lastWasQValue
		if !colonException {
			if r, ok := sc.peekRune(0); ok && (classify(r) != ccColon || !inTable) {
				sc.report(MissingWhitespace, "", "missing whitespace between tokens")
			}
		}
	}

	sc.lastWasQValue = false
	startLine, startCol := sc.line, sc.col

	r, ok := sc.peekRune(0)
	if !ok {
		sc.tokenCount++
		return Token{Kind: TokEnd, Line: startLine, Column: startCol}, nil
	}

	switch {
	case sc.col == 1 && classify(r) == ccSemicolon:
		return sc.scanTextBlock(startLine, startCol)
	case classify(r) == ccQuote:
		sc.lastWasQValue = true
		return sc.scanQuoted(r, inTable, startLine, startCol)
	case classify(r) == ccOBracket:
		sc.advance()
		sc.tokenCount++
		return Token{Kind: TokOList, Text: "[", Line: startLine, Column: startCol}, nil
	case classify(r) == ccCBracket:
		sc.advance()
		sc.tokenCount++
		return Token{Kind: TokCList, Text: "]", Line: startLine, Column: startCol}, nil
	case classify(r) == ccOBrace:
		sc.advance()
		sc.tokenCount++
		return Token{Kind: TokOTable, Text: "{", Line: startLine, Column: startCol}, nil
	case classify(r) == ccCBrace:
		sc.advance()
		sc.tokenCount++
		return Token{Kind: TokCTable, Text: "}", Line: startLine, Column: startCol}, nil
	case classify(r) == ccColon && inTable:
		sc.advance()
		sc.tokenCount++
		return Token{Kind: TokKVSep, Text: ":", Line: startLine, Column: startCol}, nil
	default:
		run := sc.scanRun()
		sc.tokenCount++
		return sc.classifyRun(run, inTable, startLine, startCol)
	}
}

// classifyRun decides whether an unquoted run is a reserved keyword, a
// data name, or a plain VALUE (spec §4.3).
func (sc *Scanner) classifyRun(run string, inTable bool, line, col int) (Token, *CifError) {
	lower := strings.ToLower(run)
	switch {
	case strings.HasPrefix(lower, kwData):
		return Token{Kind: TokBlockHead, Text: run[len(kwData):], Line: line, Column: col}, nil
	case lower == kwSave:
		return Token{Kind: TokFrameTerm, Text: "", Line: line, Column: col}, nil
	case strings.HasPrefix(lower, kwSave):
		return Token{Kind: TokFrameHead, Text: run[len(kwSave):], Line: line, Column: col}, nil
	case lower == kwLoop:
		return Token{Kind: TokLoopKw, Text: "", Line: line, Column: col}, nil
	case lower == kwStop:
		sc.report(UnexpectedToken, run, "stop_ is not supported")
		return sc.Next(inTable)
	case lower == kwGlobal:
		sc.report(UnexpectedToken, run, "global_ is not supported")
		return sc.Next(inTable)
	case strings.HasPrefix(run, "_"):
		return Token{Kind: TokName, Text: run, Line: line, Column: col}, nil
	case strings.HasPrefix(run, "$"):
		sc.report(FrameReference, run, "frame references are not supported")
		return Token{Kind: TokValue, Text: run, Line: line, Column: col}, nil
	default:
		return Token{Kind: TokValue, Text: run, Line: line, Column: col}, nil
	}
}

// scanQuoted scans a single-line '...' or "..." value. It terminates at the
// matching quote followed by whitespace, EOF, or (inside a table key
// context) ':' — the one place adjacent tokens need not be whitespace-
// separated (spec §4.3).
func (sc *Scanner) scanQuoted(quote rune, inTable bool, line, col int) (Token, *CifError) {
	sc.advance() // opening quote
	var sb strings.Builder
	for {
		r, ok := sc.peekRune(0)
		if !ok {
			sc.report(UnterminatedString, sb.String(), "unterminated quoted string")
			return Token{Kind: TokQValue, Text: sb.String(), Line: line, Column: col}, nil
		}
		if classify(r) == ccEOL {
			sc.report(UnterminatedString, sb.String(), "unterminated quoted string")
			return Token{Kind: TokQValue, Text: sb.String(), Line: line, Column: col}, nil
		}
		if r == quote {
			next, nok := sc.peekRune(1)
			terminates := !nok || isWhitespaceRune(next) || (inTable && classify(next) == ccColon)
			sc.advance()
			if terminates {
				return Token{Kind: TokQValue, Text: sb.String(), Line: line, Column: col}, nil
			}
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(r)
		sc.advance()
	}
}

// scanTextBlock scans a semicolon-delimited text field and applies the
// line-folding/line-prefixing decode protocols (spec §4.3).
func (sc *Scanner) scanTextBlock(line, col int) (Token, *CifError) {
	sc.advance() // opening ';'
	var lines []string
	for {
		l := sc.scanRestOfLine()
		lines = append(lines, l)
		if sc.atEOF() {
			sc.report(UnterminatedTextBlock, "", "unterminated text block")
			break
		}
		sc.advanceEOL()
		if sc.col == 1 {
			if r, ok := sc.peekRune(0); ok && classify(r) == ccSemicolon {
				sc.advance()
				break
			}
		}
		if sc.atEOF() {
			sc.report(UnterminatedTextBlock, "", "unterminated text block")
			break
		}
	}
	text := sc.decodeTextBlock(lines)
	return Token{Kind: TokTValue, Text: text, Line: line, Column: col}, nil
}

func (sc *Scanner) scanRestOfLine() string {
	var sb strings.Builder
	for {
		r, ok := sc.peekRune(0)
		if !ok || classify(r) == ccEOL {
			break
		}
		sb.WriteRune(r)
		sc.advance()
	}
	return sb.String()
}

func (sc *Scanner) advanceEOL() {
	r, ok := sc.peekRune(0)
	if !ok {
		return
	}
	if classify(r) == ccEOL {
		sc.advance()
		if r == '\r' {
			if next, ok := sc.peekRune(0); ok && next == '\n' {
				sc.advance()
			}
		}
	}
}

// textPrefix is the fixed line-prefix the writer uses, and the one the
// scanner recognizes when decoding a prefixed text block (spec §4.3, §4.7).
const textPrefix = "> "

// decodeTextBlock applies §4.3's folding/prefixing decode, honoring the
// ParseOptions modifiers and the CIF-version default.
func (sc *Scanner) decodeTextBlock(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	if strings.HasPrefix(lines[0], ";") {
		// Begins with a literal ';': neither folded nor prefixed.
		return strings.Join(lines, "\n")
	}

	foldDefault := sc.opts.foldingEnabled(sc.cif2)
	prefixDefault := sc.opts.prefixingEnabled(sc.cif2)

	prefix, markerFolded, markerPrefixed := classifyFirstLine(lines[0])
	folded := markerFolded && foldDefault
	prefixed := markerPrefixed && prefixDefault

	body := lines
	if markerFolded || markerPrefixed {
		body = lines[1:]
	} else if lines[0] == "" && len(lines) > 1 {
		// No fold/prefix marker: the opening ';' line's remainder is just
		// the delimiter newline, not a content line, so it is dropped too.
		body = lines[1:]
	}

	if prefixed {
		for i, l := range body {
			if strings.HasPrefix(l, prefix) {
				body[i] = l[len(prefix):]
			} else {
				sc.report(UnterminatedTextBlock, l, "line prefix mismatch in prefixed text block")
			}
		}
	}

	if folded {
		var sb strings.Builder
		for i, l := range body {
			if strings.HasSuffix(l, `\`) {
				sb.WriteString(l[:len(l)-1])
			} else {
				sb.WriteString(l)
				if i != len(body)-1 {
					sb.WriteByte('\n')
				}
			}
		}
		return sb.String()
	}
	return strings.Join(body, "\n")
}

// classifyFirstLine inspects a text block's first content line for the
// fold-only marker ("\") or the prefix marker ("<prefix>\" / "<prefix>\\"),
// the latter also implying folding when doubled (spec §4.3).
func classifyFirstLine(first string) (prefix string, folded, prefixed bool) {
	switch {
	case strings.HasSuffix(first, `\\`):
		rest := first[:len(first)-2]
		if strings.TrimSpace(rest) == "" {
			return "", true, false
		}
		return rest, true, true
	case strings.HasSuffix(first, `\`):
		rest := first[:len(first)-1]
		if strings.TrimSpace(rest) == "" {
			return "", true, false
		}
		return rest, false, true
	default:
		return "", false, false
	}
}
