package cif

import "fmt"

// Parse scans and parses data per opts, building and returning a CIF (spec
// §4.4). It never returns a hard error for malformed input: syntax errors
// are reported through opts.ErrorCallback and recovered from per the
// documented policy unless opts.Strict or the callback itself requests an
// abort. After an abort the returned error is the last error reported
// through the callback (nil if a Handler's stop code caused the abort); the
// non-zero code that caused the abort is not returned.
func Parse(data []byte, opts ParseOptions) (*CIF, *CifError) {
	dest := NewCIF()
	p := newParser(data, opts, dest)
	p.run()
	if p.aborted {
		return dest, p.lastErr
	}
	return dest, nil
}

// Check performs a syntax-only parse: no destination CIF is built (so block
// and frame code uniqueness goes unenforced, while duplicate data names
// within a container are still reported), but opts.Handler and
// opts.ErrorCallback still run exactly as during Parse (spec §4.4,
// "invoked with an optional destination CIF").
func Check(data []byte, opts ParseOptions) *CifError {
	p := newParser(data, opts, nil)
	p.run()
	if p.aborted {
		return p.lastErr
	}
	return nil
}

// parser is a predictive recursive-descent parser over a Scanner, following
// the grammar of spec §4.4:
//
//	cif        := (BLOCK_HEAD container)* END
//	container  := (FRAME_HEAD container | FRAME_TERM | LOOPKW loop | NAME item | ...)*
//	loop       := NAME+ (value | OLIST list | OTABLE table)+
//	list       := (value | OLIST list | OTABLE table | CLIST)*
//	table      := (table_entry)* CTABLE
//	table_entry:= QVALUE-or-VALUE KV_SEP value
//	value      := VALUE | QVALUE | TVALUE | OLIST list | OTABLE table
type parser struct {
	sc      *Scanner
	opts    ParseOptions
	dest    *CIF // nil in syntax-only (Check) mode
	handler Handler
	errCb   ErrorCallback

	cur       Token
	aborted   bool
	abortCode int
	lastErr   *CifError
}

func newParser(data []byte, opts ParseOptions, dest *CIF) *parser {
	p := &parser{opts: opts, dest: dest, handler: opts.Handler}
	cb := func(e *CifError) int {
		p.lastErr = e
		code := 0
		if p.errCb != nil {
			code = p.errCb(e)
		}
		if code == 0 && opts.Strict {
			code = 1
		}
		return code
	}
	p.errCb = cb
	cs := NewCharSource(data, opts, cb)
	p.sc = NewScanner(cs, cs.IsCIF2(), opts, cb, opts.WhitespaceCallback)
	return p
}

// report forwards a parser-level error through the same callback the
// scanner uses, so ordering between scan-time and parse-time errors for a
// given input is deterministic (spec §8).
func (p *parser) report(kind ErrorKind, context, format string, args ...interface{}) {
	if p.aborted {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	err := newErr(kind, p.cur.Line, p.cur.Column, context, msg)
	if code := p.errCb(err); code != 0 {
		p.aborted = true
		p.abortCode = code
	}
}

func (p *parser) advance(inTable bool) {
	if p.aborted {
		return
	}
	tok, err := p.sc.Next(inTable)
	p.cur = tok
	if err != nil {
		p.aborted = true
	}
}

func (p *parser) run() {
	p.advance(false)
	if h := p.handler; h != nil {
		if t := h.CifStart(); isStopCode(t) {
			p.stopHandler(t)
			return
		}
	}
	for !p.aborted {
		switch p.cur.Kind {
		case TokEnd:
			if h := p.handler; h != nil {
				h.CifEnd()
			}
			return
		case TokBlockHead:
			p.parseContainer(nil, p.cur.Text)
		default:
			p.report(UnexpectedToken, p.cur.Text, "expected a block header")
			p.advance(false)
		}
	}
}

func (p *parser) stopHandler(t Traverse) {
	if t > 0 {
		p.aborted = true
		p.abortCode = int(t)
	}
}

// parseContainer parses one block (parent == nil) or save frame (parent !=
// nil), starting with the already-current BLOCK_HEAD/FRAME_HEAD token, and
// leaves p.cur on the token that follows the container (for a frame, the
// token after its FRAME_TERM, which this function consumes itself;
// otherwise the next sibling header or END).
func (p *parser) parseContainer(parent *Container, code string) *Container {
	var c *Container
	var err *CifError
	if p.dest != nil {
		if parent == nil {
			c, err = p.dest.AddBlock(code)
		} else {
			c, err = parent.AddFrame(code, p.opts.MaxFrameDepth)
		}
	} else {
		kind := InvalidBlockCode
		if parent != nil {
			kind = InvalidFrameCode
		}
		err = validateContainerCode(code, kind, p.cur.Line, p.cur.Column)
	}
	if err != nil {
		p.forwardModelError(err)
		if c == nil && p.dest != nil {
			// Duplicate code: reuse the existing container so content
			// still lands somewhere (spec §4.4 recovery policy).
			if parent == nil {
				c, _ = p.dest.Block(code)
			} else {
				c, _ = parent.Frame(code)
			}
		}
	}
	if c == nil {
		// Invalid code, or syntax-only (Check) mode: build a throwaway
		// container so content still has somewhere to land and Handler
		// callbacks always receive a valid, non-nil Container (spec §4.4:
		// "invalid block/frame code → accept verbatim but flag").
		c = &Container{code: code, normCode: normalizeKey(code), parent: parent, nameIndex: make(map[string]*Loop)}
		if parent != nil {
			c.kind = containerFrame
		}
	}

	isFrame := parent != nil
	if h := p.handler; h != nil {
		var t Traverse
		if isFrame {
			t = h.FrameStart(c)
		} else {
			t = h.BlockStart(c)
		}
		if isStopCode(t) {
			p.stopHandler(t)
			return c
		}
	}

	p.advance(false)
	for !p.aborted {
		switch p.cur.Kind {
		case TokName:
			p.parseScalarItem(c)
		case TokLoopKw:
			p.parseLoop(c)
		case TokFrameHead:
			p.parseContainer(c, p.cur.Text)
		case TokFrameTerm:
			if isFrame {
				p.advance(false) // consume the terminator
				if h := p.handler; h != nil {
					if t := h.FrameEnd(c); isStopCode(t) {
						p.stopHandler(t)
					}
				}
				return c
			}
			p.report(UnexpectedToken, "save_", "save_ terminator without a matching save_<code>")
			p.advance(false)
		case TokBlockHead, TokEnd:
			if isFrame {
				p.report(UnexpectedToken, "", "unterminated save frame")
			}
			if h := p.handler; h != nil {
				var t Traverse
				if isFrame {
					t = h.FrameEnd(c)
				} else {
					t = h.BlockEnd(c)
				}
				if isStopCode(t) {
					p.stopHandler(t)
				}
			}
			return c
		default:
			p.report(UnexpectedToken, p.cur.Text, "unexpected token in container body")
			p.advance(false)
		}
	}
	return c
}

func (p *parser) forwardModelError(err *CifError) {
	if code := p.errCb(err); code != 0 {
		p.aborted = true
		p.abortCode = code
	}
}

func (p *parser) parseScalarItem(c *Container) {
	name := p.cur.Text
	line, col := p.cur.Line, p.cur.Column
	p.advance(false)
	v := p.parseValue()
	if c == nil {
		return
	}
	if err := c.SetScalar(name, v); err != nil {
		err.Line, err.Column = line, col
		p.forwardModelError(err)
		return
	}
	if h := p.handler; h != nil {
		lp := c.scalarLoop
		if t := h.LoopStart(lp); isStopCode(t) {
			p.stopHandler(t)
			return
		}
		pkt := lp.packets[0]
		if t := h.PacketStart(pkt); isStopCode(t) {
			p.stopHandler(t)
			return
		}
		if t := h.Item(name, v); isStopCode(t) {
			p.stopHandler(t)
			return
		}
		if t := h.PacketEnd(pkt); isStopCode(t) {
			p.stopHandler(t)
			return
		}
		if t := h.LoopEnd(lp); isStopCode(t) {
			p.stopHandler(t)
		}
	}
}

// parseLoop parses `loop_ NAME+ (value|OLIST|OTABLE)+`, padding a trailing
// partial packet with Unknown (spec §4.4).
func (p *parser) parseLoop(c *Container) {
	p.advance(false) // token after loop_

	var names []string
	seen := make(map[string]bool)
	for p.cur.Kind == TokName {
		name := p.cur.Text
		key := normalizeKey(name)
		if seen[key] {
			p.report(DuplicateDataName, name, "duplicate data name in loop header")
			// Keep a placeholder so packet values still line up with the
			// header, but the duplicate's values are discarded at packet
			// time below (spec §4.4 recovery policy).
			names = append(names, "")
		} else {
			seen[key] = true
			names = append(names, name)
		}
		p.advance(false)
	}
	if len(names) == 0 {
		p.report(EmptyLoopHeader, "", "loop header has no data names")
		return
	}

	var lp *Loop
	liveNames := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			liveNames = append(liveNames, n)
		}
	}
	if c != nil {
		var err *CifError
		lp, err = c.NewLoop("", liveNames...)
		if err != nil {
			p.forwardModelError(err)
		}
	}
	if h := p.handler; h != nil && lp != nil {
		if t := h.LoopStart(lp); isStopCode(t) {
			p.stopHandler(t)
			return
		}
	}

	col := 0
	values := make(map[string]*Value, len(liveNames))
	flushPacket := func() {
		if col == 0 {
			return
		}
		if col < len(names) {
			p.report(PartialPacket, "", "partial packet at loop end, padded with UNK")
		}
		if lp == nil {
			col = 0
			values = make(map[string]*Value, len(liveNames))
			return
		}
		pkt, _ := lp.AddPacket(values)
		if h := p.handler; h != nil {
			if t := h.PacketStart(pkt); isStopCode(t) {
				p.stopHandler(t)
				return
			}
			for _, n := range lp.Names() {
				v, _ := pkt.Get(n)
				if t := h.Item(n, v); isStopCode(t) {
					p.stopHandler(t)
					return
				}
			}
			if t := h.PacketEnd(pkt); isStopCode(t) {
				p.stopHandler(t)
				return
			}
		}
		col = 0
		values = make(map[string]*Value, len(liveNames))
	}

	for !p.aborted && isValueStart(p.cur.Kind) {
		v := p.parseValue()
		name := names[col%len(names)]
		if name != "" {
			values[normalizeKey(name)] = v
		}
		col++
		if col == len(names) {
			flushPacket()
		}
	}
	flushPacket()

	if h := p.handler; h != nil && lp != nil && !p.aborted {
		if t := h.LoopEnd(lp); isStopCode(t) {
			p.stopHandler(t)
		}
	}
}

func isValueStart(k TokenKind) bool {
	switch k {
	case TokValue, TokQValue, TokTValue, TokOList, TokOTable:
		return true
	default:
		return false
	}
}

// parseValue parses one `value` production, consuming tokens so that p.cur
// ends on the token following the value.
func (p *parser) parseValue() *Value {
	tok := p.cur
	switch tok.Kind {
	case TokOList:
		return p.parseList()
	case TokOTable:
		return p.parseTable()
	case TokQValue:
		p.advance(false)
		return NewChar(tok.Text, true)
	case TokTValue:
		p.advance(false)
		return NewChar(tok.Text, true)
	case TokValue:
		p.advance(false)
		switch tok.Text {
		case unkText:
			return NewUnknown()
		case naText:
			return NewNA()
		}
		if v, ok := NewNumbFromText(tok.Text); ok {
			return v
		}
		return NewChar(tok.Text, false)
	default:
		p.report(UnexpectedToken, tok.Text, "unexpected token where a value was expected")
		switch tok.Kind {
		case TokEnd, TokBlockHead, TokCList, TokCTable, TokFrameTerm:
			// Leave structural tokens for the caller to handle.
		default:
			p.advance(false)
		}
		return NewUnknown()
	}
}

func (p *parser) parseList() *Value {
	lst := NewList()
	p.advance(false) // token after '['
	for !p.aborted && p.cur.Kind != TokCList && p.cur.Kind != TokEnd && p.cur.Kind != TokBlockHead {
		lst.Append(p.parseValue())
	}
	if p.cur.Kind == TokCList {
		p.advance(false)
	} else if !p.aborted {
		p.report(UnterminatedList, "", "unterminated list, synthetically closed")
	}
	return lst
}

func (p *parser) parseTable() *Value {
	tbl := NewTable()
	p.advance(true) // token after '{', scanning the key with KV_SEP context active
	for !p.aborted && p.cur.Kind != TokCTable && p.cur.Kind != TokEnd && p.cur.Kind != TokBlockHead {
		var key string
		switch p.cur.Kind {
		case TokQValue, TokValue, TokTValue:
			key = p.cur.Text
		default:
			p.report(InvalidIndexOrKey, p.cur.Text, "expected a table key")
			p.advance(true)
			continue
		}
		p.advance(true) // expect KV_SEP
		if p.cur.Kind != TokKVSep {
			p.report(InvalidIndexOrKey, key, "missing ':' after table key; discarding the next value")
			if isValueStart(p.cur.Kind) {
				p.parseValue()
			}
			continue
		}
		p.advance(false) // move to the value
		tbl.Table().Set(key, p.parseValue())
	}
	if p.cur.Kind == TokCTable {
		p.advance(false)
	} else if !p.aborted {
		p.report(UnterminatedTable, "", "unterminated table, synthetically closed")
	}
	return tbl
}
