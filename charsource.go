package cif

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SourceEncoding identifies one of the byte encodings the character source
// can decode (spec §4.2).
type SourceEncoding int

const (
	EncodingUnknown SourceEncoding = iota
	EncodingUTF8
	EncodingUTF16LE
	EncodingUTF16BE
	EncodingUTF32LE
	EncodingUTF32BE
	// EncodingLatin1 is ISO-8859-1, selected only by name through
	// DefaultEncodingName; it never loses information for Unicode's first
	// 256 code points. When nothing identifies the input and no name is
	// given, detectEncoding falls back to EncodingUTF8, not to this.
	EncodingLatin1
)

// cif2Magic is the version-declaration line required to identify CIF 2.0
// input when no BOM is present (spec §6).
const cif2Magic = "#\\#CIF_2.0"

// detectEncoding implements the selection rules of spec §4.2, in order:
// forced default, BOM, CIF 2.0 magic, default-to-CIF-2 option, caller
// default, platform default. It returns the chosen encoding, the CIF 2.0-ness
// implied by the detection route, and the data with any BOM stripped.
func detectEncoding(data []byte, opts ParseOptions) (SourceEncoding, bool, []byte) {
	if opts.ForceDefaultEncoding {
		return encodingByName(opts.DefaultEncodingName), opts.DefaultToCIF2, data
	}
	if enc, n := sniffBOM(data); enc != EncodingUnknown {
		return enc, opts.DefaultToCIF2, data[n:]
	}
	if hasCIF2Magic(data) {
		return EncodingUTF8, true, data
	}
	if opts.DefaultToCIF2 {
		return EncodingUTF8, true, data
	}
	if opts.DefaultEncodingName != "" {
		return encodingByName(opts.DefaultEncodingName), false, data
	}
	return EncodingUTF8, false, data
}

func hasCIF2Magic(data []byte) bool {
	if len(data) < len(cif2Magic) {
		return false
	}
	if string(data[:len(cif2Magic)]) != cif2Magic {
		return false
	}
	rest := data[len(cif2Magic):]
	return len(rest) == 0 || isWhiteSpaceByte(rest[0])
}

func isWhiteSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// sniffBOM checks, longest-prefix first, for one of the five BOMs spec §4.2
// recognizes, returning the encoding and the BOM's byte length.
func sniffBOM(data []byte) (SourceEncoding, int) {
	switch {
	case hasPrefix(data, 0x00, 0x00, 0xFE, 0xFF):
		return EncodingUTF32BE, 4
	case hasPrefix(data, 0xFF, 0xFE, 0x00, 0x00):
		return EncodingUTF32LE, 4
	case hasPrefix(data, 0xEF, 0xBB, 0xBF):
		return EncodingUTF8, 3
	case hasPrefix(data, 0xFE, 0xFF):
		return EncodingUTF16BE, 2
	case hasPrefix(data, 0xFF, 0xFE):
		return EncodingUTF16LE, 2
	default:
		return EncodingUnknown, 0
	}
}

func hasPrefix(data []byte, prefix ...byte) bool {
	if len(data) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if data[i] != b {
			return false
		}
	}
	return true
}

func encodingByName(name string) SourceEncoding {
	switch name {
	case "UTF-16LE", "utf-16le":
		return EncodingUTF16LE
	case "UTF-16BE", "utf-16be":
		return EncodingUTF16BE
	case "UTF-32LE", "utf-32le":
		return EncodingUTF32LE
	case "UTF-32BE", "utf-32be":
		return EncodingUTF32BE
	case "Latin-1", "ISO-8859-1", "latin1", "iso-8859-1":
		return EncodingLatin1
	default:
		return EncodingUTF8
	}
}

// CharSource decodes a byte stream into a forward-only sequence of UTF-16
// code units (spec §4.2). Rather than a refillable ring buffer, the whole
// input is decoded up front into units — the same "read it all, then work
// over the in-memory form" approach the teacher uses for its lexer
// (parse.go: ReadCIF does ioutil.ReadAll before lexing), generalized to a
// code-unit sequence instead of a Go string so multi-encoding input and
// lone-surrogate handling are representable.
type CharSource struct {
	units []uint16
	pos   int
	cif2  bool // true if CIF 2.0 was detected/declared; governs substitution char
	errCb ErrorCallback
}

// eofUnit is the sentinel value Next returns at end-of-stream.
const eofUnit uint16 = 0

// NewCharSource decodes data per opts and returns a CharSource ready to
// scan. It never returns an error itself: undecodable input is replaced
// with a substitution code unit (see decodeToUTF16 for which encodings also
// report it through errCb).
func NewCharSource(data []byte, opts ParseOptions, errCb ErrorCallback) *CharSource {
	enc, cif2, body := detectEncoding(data, opts)
	cs := &CharSource{cif2: cif2, errCb: errCb}
	cs.units = decodeToUTF16(body, enc, cs)
	return cs
}

// substitutionUnit is U+FFFD for CIF 2.0 input, or the CIF-1-era SUB
// control sentinel otherwise (spec §4.2).
func (cs *CharSource) substitutionUnit() uint16 {
	if cs.cif2 {
		return 0xFFFD
	}
	return 0x001A
}

func (cs *CharSource) reportUnmapped(kind ErrorKind) {
	if cs.errCb != nil {
		cs.errCb(newErr(kind, 0, 0, "", "undecodable input byte"))
	}
}

// decodeToUTF16 transcodes body (in the given source encoding) to a UTF-16
// code-unit sequence. For UTF-8 and UTF-32 input every undecodable sequence
// becomes cs.substitutionUnit() and is reported via cs.errCb. The UTF-16 and
// Latin-1 paths use golang.org/x/text decoders: an invalid UTF-16 sequence
// comes back as U+FFFD whatever the CIF version and is not reported by
// itself; only an error returned by the decoder is reported, once.
func decodeToUTF16(body []byte, enc SourceEncoding, cs *CharSource) []uint16 {
	switch enc {
	case EncodingUTF16LE, EncodingUTF16BE:
		endian := unicode.LittleEndian
		if enc == EncodingUTF16BE {
			endian = unicode.BigEndian
		}
		utf8Bytes, _, err := transform.Bytes(unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder(), body)
		if err != nil {
			cs.reportUnmapped(UnmappedChar)
		}
		return utf8BytesToUTF16(utf8Bytes, cs)
	case EncodingUTF32LE, EncodingUTF32BE:
		return decodeUTF32(body, enc == EncodingUTF32BE, cs)
	case EncodingLatin1:
		utf8Bytes, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), body)
		if err != nil {
			cs.reportUnmapped(UnmappedChar)
		}
		return utf8BytesToUTF16(utf8Bytes, cs)
	default: // EncodingUTF8
		return utf8BytesToUTF16(body, cs)
	}
}

// utf8BytesToUTF16 decodes UTF-8 bytes to UTF-16 code units rune by rune,
// substituting invalid sequences.
func utf8BytesToUTF16(b []byte, cs *CharSource) []uint16 {
	units := make([]uint16, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			units = append(units, cs.substitutionUnit())
			cs.reportUnmapped(InvalidChar)
			if size == 0 {
				break
			}
			b = b[size:]
			continue
		}
		units = append(units, utf16.Encode([]rune{r})...)
		b = b[size:]
	}
	return units
}

// decodeUTF32 has no golang.org/x/text implementation to reuse (the x/text
// encoding package does not ship a UTF-32 codec), so it is decoded by hand:
// four bytes at a time, validated as a Unicode scalar value, then
// re-encoded as one or two UTF-16 code units.
func decodeUTF32(body []byte, bigEndian bool, cs *CharSource) []uint16 {
	units := make([]uint16, 0, len(body)/2)
	for len(body) >= 4 {
		var v uint32
		if bigEndian {
			v = uint32(body[0])<<24 | uint32(body[1])<<16 | uint32(body[2])<<8 | uint32(body[3])
		} else {
			v = uint32(body[3])<<24 | uint32(body[2])<<16 | uint32(body[1])<<8 | uint32(body[0])
		}
		body = body[4:]
		r := rune(v)
		if v > 0x10FFFF || (v >= 0xD800 && v <= 0xDFFF) {
			units = append(units, cs.substitutionUnit())
			cs.reportUnmapped(InvalidChar)
			continue
		}
		units = append(units, utf16.Encode([]rune{r})...)
	}
	if len(body) > 0 {
		units = append(units, cs.substitutionUnit())
		cs.reportUnmapped(InvalidChar)
	}
	return units
}

// Next returns the next code unit, or (eofUnit, true) at end-of-stream and
// again on every later call; it does not limit the sentinel to a single
// delivery (callers must stop advancing once they observe it).
func (cs *CharSource) Next() (uint16, bool) {
	if cs.pos >= len(cs.units) {
		return eofUnit, true
	}
	u := cs.units[cs.pos]
	cs.pos++
	return u, false
}

// PushBack rewinds the cursor by n code units; n must not exceed the
// number of units consumed so far (the scanner may only push back within
// the current buffer extent, per spec §4.2).
func (cs *CharSource) PushBack(n int) {
	cs.pos -= n
	if cs.pos < 0 {
		cs.pos = 0
	}
}

// IsCIF2 reports whether the detection route determined (or the caller
// declared) this input to be CIF 2.0; it governs the scanner/writer's
// version-dependent defaults (substitution character, line folding and
// prefixing defaults).
func (cs *CharSource) IsCIF2() bool { return cs.cif2 }

// Pos returns the current cursor position, in code units.
func (cs *CharSource) Pos() int { return cs.pos }

// Len returns the total number of decoded code units.
func (cs *CharSource) Len() int { return len(cs.units) }

// At returns the code unit at absolute position i.
func (cs *CharSource) At(i int) uint16 { return cs.units[i] }
