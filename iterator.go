package cif

// Finished is returned by PacketIterator.Next when no packets remain.
var Finished = newErr(NoSuchItem, 0, 0, "", "no more packets")

// PacketIterator walks a Loop's packets with staged commit (spec §4.5): the
// iterator works against a private copy of the packet slice, and neither
// Update nor Remove is visible on the Loop until Close. At most one
// iterator may be active per CIF at a time; behavior under concurrent
// iterators on the same CIF is undefined, per spec §4.5/§5.
type PacketIterator struct {
	loop    *Loop
	working []*Packet
	pos     int // index of the last packet returned by Next, -1 before the first call
	removed bool
	closed  bool
}

// NewIterator returns an iterator over lp's current packets.
func (lp *Loop) NewIterator() *PacketIterator {
	working := make([]*Packet, len(lp.packets))
	copy(working, lp.packets)
	return &PacketIterator{loop: lp, working: working, pos: -1}
}

// Next returns the next packet, or Finished once the sequence is exhausted.
func (it *PacketIterator) Next() (*Packet, *CifError) {
	// Remove decrements it.pos and the following packet shifts into the
	// removed slot, so the same +1 step is correct whether or not a removal
	// just happened.
	next := it.pos + 1
	if next >= len(it.working) {
		it.pos = len(it.working)
		return nil, Finished
	}
	it.pos = next
	it.removed = false
	return it.working[it.pos], nil
}

// Update replaces the last-returned packet with p, which must supply a
// value for exactly the loop's current name set; otherwise WrongLoop is
// returned. Calling Update before the first Next, or after a Remove, fails
// with Misuse.
func (it *PacketIterator) Update(p *Packet) *CifError {
	if it.pos < 0 || it.pos >= len(it.working) || it.removed {
		return newErr(Misuse, 0, 0, "", "update called with no current packet")
	}
	if len(p.values) != len(it.loop.normNames) {
		return newErr(WrongLoop, 0, 0, "", "packet does not match loop's name set")
	}
	for _, key := range it.loop.normNames {
		if _, ok := p.values[key]; !ok {
			return newErr(WrongLoop, 0, 0, "", "packet missing a loop data name")
		}
	}
	it.working[it.pos] = p
	return nil
}

// Remove removes the last-returned packet. Calling Remove before the first
// Next, or twice in a row without an intervening Next, fails with Misuse.
func (it *PacketIterator) Remove() *CifError {
	if it.pos < 0 || it.pos >= len(it.working) || it.removed {
		return newErr(Misuse, 0, 0, "", "remove called with no current packet")
	}
	it.working = append(it.working[:it.pos], it.working[it.pos+1:]...)
	it.pos--
	it.removed = true
	return nil
}

// Close commits the iterator's working set back to the loop.
func (it *PacketIterator) Close() *CifError {
	it.loop.packets = it.working
	it.closed = true
	return nil
}

// Abort discards the iterator's staged changes on a best-effort basis; the
// loop is left as it was before the iterator was created.
func (it *PacketIterator) Abort() {
	it.working = nil
	it.closed = true
}
