package cif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCIFAddBlockAndLookup(t *testing.T) {
	c := NewCIF()
	b, err := c.AddBlock("1CTF")
	require.Nil(t, err)
	assert.Equal(t, "1CTF", b.Code())

	got, ok := c.Block("1ctf") // lookup is normalized
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestCIFAddBlockDuplicate(t *testing.T) {
	c := NewCIF()
	_, err := c.AddBlock("abc")
	require.Nil(t, err)
	_, err = c.AddBlock("ABC")
	require.NotNil(t, err)
	assert.Equal(t, DuplicateBlockCode, err.Kind())
}

func TestContainerAddFrameNesting(t *testing.T) {
	c := NewCIF()
	b, _ := c.AddBlock("d")
	f1, err := b.AddFrame("outer", -1)
	require.Nil(t, err)
	f2, err := f1.AddFrame("inner", -1)
	require.Nil(t, err)
	assert.Equal(t, f1, f2.Parent())
	assert.True(t, f2.IsFrame())
}

func TestContainerAddFrameMaxDepth(t *testing.T) {
	c := NewCIF()
	b, _ := c.AddBlock("d")
	f1, err := b.AddFrame("outer", 1)
	require.Nil(t, err)
	_, err = f1.AddFrame("inner", 1)
	require.NotNil(t, err)
	assert.Equal(t, InvalidFrameCode, err.Kind())
}

func TestContainerScalarSetGet(t *testing.T) {
	c := NewCIF()
	b, _ := c.AddBlock("d")
	require.Nil(t, b.SetScalar("_entry.id", NewChar("1ctf", false)))
	v, ok := b.Scalar("_entry.id")
	require.True(t, ok)
	assert.Equal(t, "1ctf", v.Text())

	// Re-setting the same scalar updates in place rather than duplicating.
	require.Nil(t, b.SetScalar("_entry.id", NewChar("2ctf", false)))
	v, _ = b.Scalar("_entry.id")
	assert.Equal(t, "2ctf", v.Text())
}

func TestContainerDuplicateNameAcrossLoops(t *testing.T) {
	c := NewCIF()
	b, _ := c.AddBlock("d")
	require.Nil(t, b.SetScalar("_entry.id", NewChar("x", false)))
	_, err := b.NewLoop("", "_entry.id")
	require.NotNil(t, err)
	assert.Equal(t, DuplicateDataName, err.Kind())
}

func TestLoopAddPacketPadsMissingWithUnknown(t *testing.T) {
	c := NewCIF()
	b, _ := c.AddBlock("d")
	lp, err := b.NewLoop("", "_a", "_b")
	require.Nil(t, err)
	p, err := lp.AddPacket(map[string]*Value{"_a": NewChar("1", false)})
	require.Nil(t, err)
	v, ok := p.Get("_b")
	require.True(t, ok)
	assert.Equal(t, Unknown, v.Kind())
}

func TestLoopRemoveNameRemovesLoopWhenEmpty(t *testing.T) {
	c := NewCIF()
	b, _ := c.AddBlock("d")
	lp, _ := b.NewLoop("", "_only")
	require.Nil(t, lp.RemoveName("_only"))
	assert.Empty(t, b.Loops())
}

func TestPacketSetWrongLoop(t *testing.T) {
	c := NewCIF()
	b, _ := c.AddBlock("d")
	lp, _ := b.NewLoop("", "_a")
	p, _ := lp.AddPacket(map[string]*Value{"_a": NewChar("1", false)})
	err := p.Set("_nope", NewChar("2", false))
	require.NotNil(t, err)
	assert.Equal(t, WrongLoop, err.Kind())
}
