package cif

// Walk performs the depth-first, natural-order traversal of spec §4.6:
// CifStart, then for each block BlockStart, then all of its frames
// (recursively, each FrameStart...FrameEnd), then its loops (LoopStart; for
// each packet PacketStart, Item per data name, PacketEnd; LoopEnd), then
// BlockEnd, then CifEnd.
//
// A non-Continue return from a Handler method steers the walk: SkipChildren
// skips the current element's children and continues with its siblings;
// SkipSiblings skips the current element's remaining, untraversed siblings
// (frames and loops are not siblings of each other, so SkipSiblings on a
// frame does not skip the container's loops); End stops the walk
// successfully; any positive code stops the walk and is returned to the
// caller as-is. SkipSiblings takes effect when returned by Item or by an
// end method (BlockEnd, FrameEnd, LoopEnd, PacketEnd); returned by a start
// method it is treated like Continue and the siblings are still visited.
func Walk(c *CIF, h Handler) Traverse {
	if t := h.CifStart(); isStopCode(t) {
		return endOr(t)
	} else if t == SkipChildren {
		return h.CifEnd()
	}

	for _, b := range c.Blocks() {
		t := walkBlock(b, h)
		if isStopCode(t) {
			return endOr(t)
		}
		if t == SkipSiblings {
			break
		}
	}
	return h.CifEnd()
}

func walkBlock(b *Container, h Handler) Traverse {
	t := h.BlockStart(b)
	if isStopCode(t) {
		return t
	}
	if t != SkipChildren {
		if r := walkFrames(b, h); isStopCode(r) {
			return r
		} else if r == SkipSiblings {
			// frames and loops are not siblings; fall through to loops.
		}
		if r := walkLoops(b, h); isStopCode(r) {
			return r
		}
	}
	return h.BlockEnd(b)
}

func walkFrames(parent *Container, h Handler) Traverse {
	for _, f := range parent.Frames() {
		t := walkFrame(f, h)
		if isStopCode(t) {
			return t
		}
		if t == SkipSiblings {
			return SkipSiblings
		}
	}
	return Continue
}

func walkFrame(f *Container, h Handler) Traverse {
	t := h.FrameStart(f)
	if isStopCode(t) {
		return t
	}
	if t != SkipChildren {
		if r := walkFrames(f, h); isStopCode(r) {
			return r
		}
		if r := walkLoops(f, h); isStopCode(r) {
			return r
		}
	}
	return h.FrameEnd(f)
}

func walkLoops(c *Container, h Handler) Traverse {
	for _, lp := range c.Loops() {
		t := walkLoop(lp, h)
		if isStopCode(t) {
			return t
		}
		if t == SkipSiblings {
			return SkipSiblings
		}
	}
	return Continue
}

func walkLoop(lp *Loop, h Handler) Traverse {
	t := h.LoopStart(lp)
	if isStopCode(t) {
		return t
	}
	if t != SkipChildren {
		for _, p := range lp.Packets() {
			r := walkPacket(lp, p, h)
			if isStopCode(r) {
				return r
			}
			if r == SkipSiblings {
				break
			}
		}
	}
	return h.LoopEnd(lp)
}

func walkPacket(lp *Loop, p *Packet, h Handler) Traverse {
	t := h.PacketStart(p)
	if isStopCode(t) {
		return t
	}
	if t != SkipChildren {
		for _, name := range lp.Names() {
			v, _ := p.Get(name)
			r := h.Item(name, v)
			if isStopCode(r) {
				return r
			}
			if r == SkipSiblings {
				break
			}
		}
	}
	return h.PacketEnd(p)
}

// endOr normalizes a stop code for the outermost call: End degrades to
// Continue (the walk already ended successfully), while a positive
// caller-defined code propagates unchanged.
func endOr(t Traverse) Traverse {
	if t == End {
		return Continue
	}
	return t
}
