package cif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T, vals ...string) *Loop {
	t.Helper()
	c := NewCIF()
	b, _ := c.AddBlock("d")
	lp, err := b.NewLoop("", "_a")
	require.Nil(t, err)
	for _, v := range vals {
		_, err := lp.AddPacket(map[string]*Value{"_a": NewChar(v, false)})
		require.Nil(t, err)
	}
	return lp
}

func TestPacketIteratorNextFinished(t *testing.T) {
	lp := newTestLoop(t, "1", "2")
	it := lp.NewIterator()
	p1, err := it.Next()
	require.Nil(t, err)
	v, _ := p1.Get("_a")
	assert.Equal(t, "1", v.Text())

	p2, err := it.Next()
	require.Nil(t, err)
	v, _ = p2.Get("_a")
	assert.Equal(t, "2", v.Text())

	_, err = it.Next()
	assert.Same(t, Finished, err)
}

func TestPacketIteratorUpdateStagedUntilClose(t *testing.T) {
	lp := newTestLoop(t, "1")
	it := lp.NewIterator()
	_, _ = it.Next()
	require.Nil(t, it.Update(&Packet{values: map[string]*Value{"_a": NewChar("changed", false)}, original: map[string]string{"_a": "_a"}}))

	// Not yet visible on the loop.
	v, _ := lp.Packets()[0].Get("_a")
	assert.Equal(t, "1", v.Text())

	require.Nil(t, it.Close())
	v, _ = lp.Packets()[0].Get("_a")
	assert.Equal(t, "changed", v.Text())
}

func TestPacketIteratorRemoveThenNext(t *testing.T) {
	lp := newTestLoop(t, "1", "2", "3")
	it := lp.NewIterator()
	_, _ = it.Next() // "1"
	_, _ = it.Next() // "2"
	require.Nil(t, it.Remove())
	p, err := it.Next()
	require.Nil(t, err)
	v, _ := p.Get("_a")
	assert.Equal(t, "3", v.Text(), "Next after Remove should land on the following packet")

	require.Nil(t, it.Close())
	assert.Len(t, lp.Packets(), 2)
}

func TestPacketIteratorMisuse(t *testing.T) {
	lp := newTestLoop(t, "1")
	it := lp.NewIterator()
	err := it.Remove()
	require.NotNil(t, err)
	assert.Equal(t, Misuse, err.Kind())
}

func TestPacketIteratorAbortLeavesLoopUntouched(t *testing.T) {
	lp := newTestLoop(t, "1")
	it := lp.NewIterator()
	_, _ = it.Next()
	require.Nil(t, it.Remove())
	it.Abort()
	assert.Len(t, lp.Packets(), 1, "Abort must not commit staged removal")
}
