package cif

// CIF is the top-level in-memory value: a set of blocks keyed by normalized
// code (spec §3). The zero value is not ready for use; construct one with
// NewCIF.
type CIF struct {
	blocks     []*Container
	blockIndex map[string]*Container
}

// NewCIF returns an empty CIF.
func NewCIF() *CIF {
	return &CIF{blockIndex: make(map[string]*Container)}
}

// Blocks returns the CIF's blocks in creation order.
func (c *CIF) Blocks() []*Container { return c.blocks }

// Block looks up a block by code (normalized for comparison).
func (c *CIF) Block(code string) (*Container, bool) {
	b, ok := c.blockIndex[normalizeKey(code)]
	return b, ok
}

// AddBlock creates and appends a new block. It returns InvalidBlockCode if
// code fails validation (spec §4.1) and DuplicateBlockCode if a block with
// the same normalized code already exists.
func (c *CIF) AddBlock(code string) (*Container, *CifError) {
	if err := validateContainerCode(code, InvalidBlockCode, 0, 0); err != nil {
		return nil, err
	}
	key := normalizeKey(code)
	if _, ok := c.blockIndex[key]; ok {
		return nil, newErr(DuplicateBlockCode, 0, 0, code, "duplicate block code")
	}
	b := &Container{kind: containerBlock, code: code, normCode: key, cif: c, nameIndex: make(map[string]*Loop)}
	c.blocks = append(c.blocks, b)
	c.blockIndex[key] = b
	return b, nil
}

// containerKind distinguishes a block from a save frame; both are
// represented by Container since a frame may itself nest further frames
// (spec §3, "Container (block or frame)").
type containerKind int

const (
	containerBlock containerKind = iota
	containerFrame
)

// Container is a block or a save frame: it owns an ordered, unique (by
// normalized code) set of child frames and an ordered set of loops. A
// container's data items live only inside its loops; items not appearing in
// an explicit multi-name loop live in the distinguished scalar loop, whose
// category is the empty string (spec §3).
type Container struct {
	kind     containerKind
	code     string
	normCode string
	parent   *Container
	cif      *CIF

	frames     []*Container
	frameIndex map[string]*Container

	loops      []*Loop
	scalarLoop *Loop

	// nameIndex maps every data name's normalized key (across all loops,
	// including the scalar loop) to the loop holding it, for the
	// per-container uniqueness rule (spec §3: "unique by normalization
	// within the entire container, not merely the loop").
	nameIndex map[string]*Loop
}

// Code returns the container's original, as-written code.
func (b *Container) Code() string { return b.code }

// NormalizedCode returns the container's comparison key.
func (b *Container) NormalizedCode() string { return b.normCode }

// IsFrame reports whether the container is a save frame (as opposed to a
// top-level block).
func (b *Container) IsFrame() bool { return b.kind == containerFrame }

// Parent returns the enclosing block or frame, or nil for a top-level
// block.
func (b *Container) Parent() *Container { return b.parent }

// Frames returns the container's child frames in creation order.
func (b *Container) Frames() []*Container { return b.frames }

// Frame looks up a child frame by code.
func (b *Container) Frame(code string) (*Container, bool) {
	f, ok := b.frameIndex[normalizeKey(code)]
	return f, ok
}

// Loops returns the container's loops in creation order, including the
// scalar loop if present.
func (b *Container) Loops() []*Loop { return b.loops }

// ScalarLoop returns the container's scalar loop (category ""), or nil if
// it has no scalar items.
func (b *Container) ScalarLoop() *Loop { return b.scalarLoop }

// depth returns the number of enclosing frames, 0 for a top-level block.
func (b *Container) depth() int {
	d := 0
	for p := b.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// AddFrame creates and appends a new save frame nested in b. maxDepth < 0
// means unlimited nesting (spec §6, max_frame_depth); maxDepth == 0 forbids
// any frame nesting at all.
func (b *Container) AddFrame(code string, maxDepth int) (*Container, *CifError) {
	if err := validateContainerCode(code, InvalidFrameCode, 0, 0); err != nil {
		return nil, err
	}
	if maxDepth >= 0 && b.depth()+1 > maxDepth {
		return nil, newErr(InvalidFrameCode, 0, 0, code, "save frame nesting exceeds max_frame_depth")
	}
	key := normalizeKey(code)
	if b.frameIndex == nil {
		b.frameIndex = make(map[string]*Container)
	}
	if _, ok := b.frameIndex[key]; ok {
		return nil, newErr(DuplicateFrameCode, 0, 0, code, "duplicate frame code")
	}
	f := &Container{
		kind: containerFrame, code: code, normCode: key,
		parent: b, cif: b.cif, nameIndex: make(map[string]*Loop),
	}
	b.frames = append(b.frames, f)
	b.frameIndex[key] = f
	return f, nil
}

// NewLoop creates and appends a non-scalar loop with the given category and
// data names. It returns EmptyLoopHeader if names is empty, InvalidItemName
// if any name fails validation, and DuplicateDataName if any name already
// exists (by normalization) elsewhere in the container.
func (b *Container) NewLoop(category string, names ...string) (*Loop, *CifError) {
	if len(names) == 0 {
		return nil, newErr(EmptyLoopHeader, 0, 0, "", "loop header has no data names")
	}
	lp := &Loop{category: category, parent: b}
	for _, name := range names {
		if err := b.addNameToLoop(lp, name); err != nil {
			return nil, err
		}
	}
	b.loops = append(b.loops, lp)
	return lp, nil
}

func (b *Container) addNameToLoop(lp *Loop, name string) *CifError {
	if err := validateDataName(name, 0, 0); err != nil {
		return err
	}
	key := normalizeKey(name)
	if _, ok := b.nameIndex[key]; ok {
		return newErr(DuplicateDataName, 0, 0, name, "duplicate data name in container")
	}
	lp.names = append(lp.names, name)
	lp.normNames = append(lp.normNames, key)
	b.nameIndex[key] = lp
	return nil
}

// SetScalar sets (creating the scalar loop if necessary) the value of a
// logically-scalar item. At most one scalar loop exists per container
// (spec §3).
func (b *Container) SetScalar(name string, val *Value) *CifError {
	key := normalizeKey(name)
	if lp, ok := b.nameIndex[key]; ok {
		if lp != b.scalarLoop {
			return newErr(DuplicateDataName, 0, 0, name, "duplicate data name in container")
		}
		lp.packets[0].set(lp, key, val)
		return nil
	}
	if err := validateDataName(name, 0, 0); err != nil {
		return err
	}
	if b.scalarLoop == nil {
		b.scalarLoop = &Loop{category: "", parent: b}
		b.scalarLoop.packets = []*Packet{newPacket()}
		b.loops = append(b.loops, b.scalarLoop)
	}
	lp := b.scalarLoop
	lp.names = append(lp.names, name)
	lp.normNames = append(lp.normNames, key)
	b.nameIndex[key] = lp
	lp.packets[0].set(lp, key, val)
	return nil
}

// Scalar looks up a scalar item's value by name.
func (b *Container) Scalar(name string) (*Value, bool) {
	if b.scalarLoop == nil {
		return nil, false
	}
	return b.scalarLoop.packets[0].get(normalizeKey(name))
}

// removeLoop detaches lp from the container, including from the name index
// and, if it is the scalar loop, the scalar-loop slot.
func (b *Container) removeLoop(lp *Loop) {
	for _, key := range lp.normNames {
		delete(b.nameIndex, key)
	}
	for i, l := range b.loops {
		if l == lp {
			b.loops = append(b.loops[:i], b.loops[i+1:]...)
			break
		}
	}
	if b.scalarLoop == lp {
		b.scalarLoop = nil
	}
}

// Loop is an ordered, non-empty list of data names shared by an ordered
// list of packets (spec §3). Every packet in a loop has exactly the loop's
// name set (spec §3 invariant); removing the last name removes the loop.
type Loop struct {
	category  string // matched literally, never normalized; "" for the scalar loop and every parsed loop
	names     []string
	normNames []string
	packets   []*Packet
	parent    *Container
}

// Category returns the loop's category string ("" for the scalar loop and
// for loops built by Parse).
func (lp *Loop) Category() string { return lp.category }

// Names returns the loop's data names, in header order.
func (lp *Loop) Names() []string { return lp.names }

// Packets returns the loop's packets in insertion order.
func (lp *Loop) Packets() []*Packet { return lp.packets }

// Len reports the number of packets currently in the loop.
func (lp *Loop) Len() int { return len(lp.packets) }

// AddPacket appends a new packet built from values, keyed by normalized or
// original data name; loop names missing from values are padded with
// Unknown, matching the parser's partial-packet recovery (spec §4.4), and
// keys that are not loop names are ignored.
func (lp *Loop) AddPacket(values map[string]*Value) (*Packet, *CifError) {
	p := newPacket()
	for i, name := range lp.names {
		key := lp.normNames[i]
		v, ok := values[key]
		if !ok {
			v, ok = values[name]
		}
		if !ok {
			v = NewUnknown()
		}
		p.set(lp, key, v)
	}
	lp.packets = append(lp.packets, p)
	return p, nil
}

// RemoveName removes name from the loop (and from every packet's value
// map). If it is the loop's last name, the loop itself is removed from its
// container (spec §3 invariant).
func (lp *Loop) RemoveName(name string) *CifError {
	key := normalizeKey(name)
	idx := -1
	for i, n := range lp.normNames {
		if n == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return newErr(NoSuchItem, 0, 0, name, "no such data name in loop")
	}
	lp.names = append(lp.names[:idx], lp.names[idx+1:]...)
	lp.normNames = append(lp.normNames[:idx], lp.normNames[idx+1:]...)
	for _, p := range lp.packets {
		delete(p.values, key)
		delete(p.original, key)
	}
	if lp.parent != nil {
		delete(lp.parent.nameIndex, key)
	}
	if len(lp.names) == 0 && lp.parent != nil {
		lp.parent.removeLoop(lp)
	}
	return nil
}

// Packet is one row of a loop: an ordered map from original data name to
// value (spec §3). When attached to a loop, its key set equals the loop's
// name set; the loop's own Names() order governs iteration order.
type Packet struct {
	values   map[string]*Value // keyed by normalized name
	original map[string]string // normalized name -> original-case name, as last set
}

func newPacket() *Packet {
	return &Packet{values: make(map[string]*Value), original: make(map[string]string)}
}

func (p *Packet) set(lp *Loop, normName string, v *Value) {
	idx := -1
	for i, n := range lp.normNames {
		if n == normName {
			idx = i
			break
		}
	}
	orig := normName
	if idx >= 0 {
		orig = lp.names[idx]
	}
	p.values[normName] = v
	p.original[normName] = orig
}

func (p *Packet) get(normName string) (*Value, bool) {
	v, ok := p.values[normName]
	return v, ok
}

// Get looks up a packet value by data name.
func (p *Packet) Get(name string) (*Value, bool) {
	return p.get(normalizeKey(name))
}

// Set replaces the value for an existing data name in the packet. It
// returns WrongLoop if name is not one of the packet's names.
func (p *Packet) Set(name string, v *Value) *CifError {
	key := normalizeKey(name)
	if _, ok := p.values[key]; !ok {
		return newErr(WrongLoop, 0, 0, name, "data name not present in packet")
	}
	p.values[key] = v
	return nil
}
