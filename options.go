package cif

// ErrorCallback is invoked for every syntactic error the scanner or parser
// recovers from (spec §6, §7). A non-zero return aborts the parse with that
// code; zero means continue using the documented recovery (spec §4.4).
type ErrorCallback func(*CifError) int

// WhitespaceCallback is invoked for inter-token whitespace (including
// comments), enabling lossless comment preservation by a caller that wants
// it (spec §6). text is the raw whitespace/comment span; line/col mark its
// start.
type WhitespaceCallback func(text string, line, col int)

// ParseOptions configures a parse (spec §6).
type ParseOptions struct {
	// DefaultToCIF2 treats input as CIF 2.0 when the version cannot be
	// otherwise detected.
	DefaultToCIF2 bool
	// DefaultEncodingName is the encoding assumed when none is detected.
	DefaultEncodingName string
	// ForceDefaultEncoding always uses DefaultEncodingName, skipping BOM
	// and magic detection.
	ForceDefaultEncoding bool
	// LineFoldingModifier forces line-fold decoding on (>0), off (<0), or
	// leaves it at the CIF-version default (0).
	LineFoldingModifier int
	// TextPrefixingModifier is the line-prefixing analogue of
	// LineFoldingModifier.
	TextPrefixingModifier int
	// MaxFrameDepth caps save-frame nesting; negative means unlimited.
	MaxFrameDepth int
	// Handler, if set, is driven live during the parse (streaming mode),
	// in addition to (or instead of) building a destination CIF.
	Handler Handler
	// ErrorCallback receives every recovered syntax error.
	ErrorCallback ErrorCallback
	// WhitespaceCallback receives inter-token whitespace/comments.
	WhitespaceCallback WhitespaceCallback
	// UserData is an opaque cookie stored with the options; the package
	// passes it to no callback or Handler. Callbacks are ordinary closures
	// and can capture any state they need themselves; the option is kept
	// for parity with spec §6's external interface table.
	UserData interface{}
	// Strict aborts the parse on the first recovered error instead of
	// continuing with the documented recovery (spec §7).
	Strict bool
}

// ParseOption mutates a ParseOptions value; NewParseOptions applies a list
// of them over the defaults.
type ParseOption func(*ParseOptions)

// NewParseOptions builds a ParseOptions from the given options, starting
// from spec.md's defaults (unlimited frame depth, version-dependent
// folding/prefixing).
func NewParseOptions(opts ...ParseOption) ParseOptions {
	o := ParseOptions{MaxFrameDepth: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithDefaultToCIF2(v bool) ParseOption { return func(o *ParseOptions) { o.DefaultToCIF2 = v } }

func WithDefaultEncoding(name string) ParseOption {
	return func(o *ParseOptions) { o.DefaultEncodingName = name }
}

func WithForceDefaultEncoding(v bool) ParseOption {
	return func(o *ParseOptions) { o.ForceDefaultEncoding = v }
}

func WithLineFolding(modifier int) ParseOption {
	return func(o *ParseOptions) { o.LineFoldingModifier = modifier }
}

func WithTextPrefixing(modifier int) ParseOption {
	return func(o *ParseOptions) { o.TextPrefixingModifier = modifier }
}

func WithMaxFrameDepth(n int) ParseOption { return func(o *ParseOptions) { o.MaxFrameDepth = n } }

func WithHandler(h Handler) ParseOption { return func(o *ParseOptions) { o.Handler = h } }

func WithErrorCallback(cb ErrorCallback) ParseOption {
	return func(o *ParseOptions) { o.ErrorCallback = cb }
}

func WithWhitespaceCallback(cb WhitespaceCallback) ParseOption {
	return func(o *ParseOptions) { o.WhitespaceCallback = cb }
}

func WithUserData(data interface{}) ParseOption { return func(o *ParseOptions) { o.UserData = data } }

func WithStrict(v bool) ParseOption { return func(o *ParseOptions) { o.Strict = v } }

// foldingEnabled resolves LineFoldingModifier against the CIF-version
// default: on by default for CIF 2.0, off by default for CIF 1.x (spec
// §4.3).
func (o ParseOptions) foldingEnabled(cif2 bool) bool {
	switch {
	case o.LineFoldingModifier > 0:
		return true
	case o.LineFoldingModifier < 0:
		return false
	default:
		return cif2
	}
}

func (o ParseOptions) prefixingEnabled(cif2 bool) bool {
	switch {
	case o.TextPrefixingModifier > 0:
		return true
	case o.TextPrefixingModifier < 0:
		return false
	default:
		return cif2
	}
}

// WriteOptions configures Write (spec §4.7).
type WriteOptions struct {
	// LineLimit overrides the default 2048 code-unit line limit; used
	// mainly by tests exercising the folding/prefixing logic without
	// 2048-unit fixtures.
	LineLimit int
}

type WriteOption func(*WriteOptions)

func NewWriteOptions(opts ...WriteOption) WriteOptions {
	o := WriteOptions{LineLimit: lineLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithWriteLineLimit(n int) WriteOption { return func(o *WriteOptions) { o.LineLimit = n } }

// Handler receives a depth-first, natural-order traversal of a CIF (spec
// §4.6): CifStart, then for each block BlockStart, then its frames
// (recursively), then its loops (LoopStart; for each packet PacketStart,
// Item per data name, PacketEnd; LoopEnd), then BlockEnd, then CifEnd.
//
// Each method returns a Traverse steering code. BaseHandler embeds a
// no-op implementation that always continues, so a caller need only
// override the methods it cares about.
type Handler interface {
	CifStart() Traverse
	CifEnd() Traverse
	BlockStart(b *Container) Traverse
	BlockEnd(b *Container) Traverse
	FrameStart(f *Container) Traverse
	FrameEnd(f *Container) Traverse
	LoopStart(lp *Loop) Traverse
	LoopEnd(lp *Loop) Traverse
	PacketStart(p *Packet) Traverse
	PacketEnd(p *Packet) Traverse
	Item(name string, v *Value) Traverse
}

// BaseHandler is a Handler whose every method returns Continue; embed it
// to implement only the callbacks a particular walk cares about.
type BaseHandler struct{}

func (BaseHandler) CifStart() Traverse                    { return Continue }
func (BaseHandler) CifEnd() Traverse                      { return Continue }
func (BaseHandler) BlockStart(*Container) Traverse        { return Continue }
func (BaseHandler) BlockEnd(*Container) Traverse          { return Continue }
func (BaseHandler) FrameStart(*Container) Traverse        { return Continue }
func (BaseHandler) FrameEnd(*Container) Traverse          { return Continue }
func (BaseHandler) LoopStart(*Loop) Traverse              { return Continue }
func (BaseHandler) LoopEnd(*Loop) Traverse                { return Continue }
func (BaseHandler) PacketStart(*Packet) Traverse          { return Continue }
func (BaseHandler) PacketEnd(*Packet) Traverse            { return Continue }
func (BaseHandler) Item(string, *Value) Traverse          { return Continue }
