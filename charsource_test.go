package cif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectUnits(cs *CharSource) []uint16 {
	var units []uint16
	for {
		u, eof := cs.Next()
		if eof {
			return units
		}
		units = append(units, u)
	}
}

func TestDetectEncodingUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("data_x\n")...)
	enc, _, body := detectEncoding(data, NewParseOptions())
	assert.Equal(t, EncodingUTF8, enc)
	assert.Equal(t, "data_x\n", string(body))
}

func TestDetectEncodingCIF2Magic(t *testing.T) {
	data := []byte("#\\#CIF_2.0\ndata_x\n")
	_, cif2, _ := detectEncoding(data, NewParseOptions())
	assert.True(t, cif2)
}

func TestDetectEncodingDefaultToCIF2Option(t *testing.T) {
	data := []byte("data_x\n")
	_, cif2, _ := detectEncoding(data, NewParseOptions(WithDefaultToCIF2(true)))
	assert.True(t, cif2)
}

func TestDetectEncodingPlatformDefault(t *testing.T) {
	data := []byte("data_x\n")
	enc, cif2, _ := detectEncoding(data, NewParseOptions())
	assert.Equal(t, EncodingUTF8, enc)
	assert.False(t, cif2)
}

func TestCharSourceDecodesASCII(t *testing.T) {
	cs := NewCharSource([]byte("abc"), NewParseOptions(), nil)
	units := collectUnits(cs)
	require.Len(t, units, 3)
	assert.Equal(t, []uint16{'a', 'b', 'c'}, units)
}

func TestCharSourceUndecodableByteSubstituted(t *testing.T) {
	var reported int
	cb := func(e *CifError) int { reported++; return 0 }
	// 0xFF alone is not a valid UTF-8 start byte.
	cs := NewCharSource([]byte{0xFF}, NewParseOptions(), cb)
	units := collectUnits(cs)
	require.Len(t, units, 1)
	assert.Equal(t, uint16(0x001A), units[0], "CIF 1 substitution is the legacy SUB sentinel")
	assert.Equal(t, 1, reported)
}

func TestCharSourceUndecodableByteCIF2Substitution(t *testing.T) {
	cs := NewCharSource([]byte("#\\#CIF_2.0\n\xff"), NewParseOptions(), func(*CifError) int { return 0 })
	units := collectUnits(cs)
	assert.Equal(t, uint16(0xFFFD), units[len(units)-1])
}

func TestCharSourcePushBack(t *testing.T) {
	cs := NewCharSource([]byte("ab"), NewParseOptions(), nil)
	u1, _ := cs.Next()
	assert.Equal(t, uint16('a'), u1)
	cs.PushBack(1)
	u1again, _ := cs.Next()
	assert.Equal(t, uint16('a'), u1again)
}

func TestCharSourceIsCIF2(t *testing.T) {
	cs := NewCharSource([]byte("#\\#CIF_2.0\ndata_x\n"), NewParseOptions(), nil)
	assert.True(t, cs.IsCIF2())
}
