package cif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	opts := NewParseOptions()
	cs := NewCharSource([]byte(src), opts, func(*CifError) int { return 0 })
	sc := NewScanner(cs, cs.IsCIF2(), opts, func(*CifError) int { return 0 }, nil)
	var toks []Token
	for {
		tok, err := sc.Next(false)
		require.Nil(t, err)
		toks = append(toks, tok)
		if tok.Kind == TokEnd {
			return toks
		}
	}
}

func TestScannerBasicBlock(t *testing.T) {
	toks := scanAll(t, "data_1ctf\n_entry.id abc\n")
	require.Len(t, toks, 4)
	assert.Equal(t, TokBlockHead, toks[0].Kind)
	assert.Equal(t, "1ctf", toks[0].Text)
	assert.Equal(t, TokName, toks[1].Kind)
	assert.Equal(t, "_entry.id", toks[1].Text)
	assert.Equal(t, TokValue, toks[2].Kind)
	assert.Equal(t, "abc", toks[2].Text)
	assert.Equal(t, TokEnd, toks[3].Kind)
}

func TestScannerQuotedValue(t *testing.T) {
	toks := scanAll(t, "data_x\n_a 'has spaces'\n")
	require.Len(t, toks, 4)
	assert.Equal(t, TokQValue, toks[2].Kind)
	assert.Equal(t, "has spaces", toks[2].Text)
}

func TestScannerQuoteEmbeddedApostrophe(t *testing.T) {
	// A quote character not immediately followed by whitespace/EOF does not
	// terminate the quoted string (spec §4.3).
	toks := scanAll(t, "data_x\n_a 'andrew's pet'\n")
	assert.Equal(t, "andrew's pet", toks[2].Text)
}

func TestScannerLoop(t *testing.T) {
	toks := scanAll(t, "data_x\nloop_ _a _b\n1 2\n3 4\n")
	kinds := make([]TokenKind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{
		TokBlockHead, TokLoopKw, TokName, TokName,
		TokValue, TokValue, TokValue, TokValue, TokEnd,
	}, kinds)
}

func TestScannerSaveFrameHeadAndTerminator(t *testing.T) {
	toks := scanAll(t, "data_x\nsave_f\n_a 1\nsave_\n")
	assert.Equal(t, TokFrameHead, toks[1].Kind)
	assert.Equal(t, "f", toks[1].Text)
	var sawTerm bool
	for _, tok := range toks {
		if tok.Kind == TokFrameTerm {
			sawTerm = true
		}
	}
	assert.True(t, sawTerm)
}

func TestScannerListAndTableBrackets(t *testing.T) {
	toks := scanAll(t, "#\\#CIF_2.0\ndata_x\n_a [1 2 3]\n")
	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Contains(t, kinds, TokOList)
	assert.Contains(t, kinds, TokCList)
}

func TestScannerTableKVSep(t *testing.T) {
	opts := NewParseOptions()
	cs := NewCharSource([]byte("#\\#CIF_2.0\ndata_x\n_a {'k':1}\n"), opts, func(*CifError) int { return 0 })
	sc := NewScanner(cs, cs.IsCIF2(), opts, func(*CifError) int { return 0 }, nil)
	var toks []Token
	for {
		// Only the parser knows when it is scanning inside a table; this
		// test drives inTable by hand once the '{' has been seen.
		inTable := len(toks) > 0 && toks[len(toks)-1].Kind == TokOTable
		if len(toks) > 0 {
			switch toks[len(toks)-1].Kind {
			case TokOTable, TokQValue, TokKVSep:
				inTable = true
			}
		}
		tok, err := sc.Next(inTable)
		require.Nil(t, err)
		toks = append(toks, tok)
		if tok.Kind == TokEnd {
			break
		}
	}
	var sawKVSep bool
	for _, tok := range toks {
		if tok.Kind == TokKVSep {
			sawKVSep = true
		}
	}
	assert.True(t, sawKVSep)
}

func TestScannerTextBlockFolding(t *testing.T) {
	src := "data_x\n_a\n;\\\nthis is folded\\\nonto one line\n;\n"
	opts := NewParseOptions(WithLineFolding(1))
	cs := NewCharSource([]byte(src), opts, func(*CifError) int { return 0 })
	sc := NewScanner(cs, cs.IsCIF2(), opts, func(*CifError) int { return 0 }, nil)
	sc.Next(false) // BLOCK_HEAD
	sc.Next(false) // NAME
	tok, err := sc.Next(false)
	require.Nil(t, err)
	assert.Equal(t, TokTValue, tok.Kind)
	assert.Equal(t, "this is foldedonto one line", tok.Text)
}

func TestScannerMissingWhitespaceReported(t *testing.T) {
	var kinds []ErrorKind
	opts := NewParseOptions()
	cb := func(e *CifError) int { kinds = append(kinds, e.Kind()); return 0 }
	cs := NewCharSource([]byte("data_x\n_a [b\n"), opts, cb)
	sc := NewScanner(cs, cs.IsCIF2(), opts, cb, nil)
	sc.Next(false)           // BLOCK_HEAD
	sc.Next(false)           // NAME
	sc.Next(false)           // OLIST
	_, err := sc.Next(false) // "b", directly after '[' with no whitespace
	require.Nil(t, err)
	assert.Contains(t, kinds, MissingWhitespace)
}
