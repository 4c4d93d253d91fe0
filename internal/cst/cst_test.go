package cst

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pegfuzz/internal/grammar"
	"pegfuzz/internal/token"
)

func sample() Node {
	sum := &grammar.Symbol{Name: "sum", Kind: grammar.ParserSymbol}
	num := &grammar.Symbol{Name: "num", Kind: grammar.ParserSymbol}
	leaf := func(k token.Kind, s string) Node { return &Terminal{Token: token.New(k, s)} }
	return &NonTerminal{Symbol: sum, Children: []Node{
		&NonTerminal{Symbol: num, Children: []Node{leaf(2, "1")}},
		leaf(3, "+"),
		&NonTerminal{Symbol: num, Children: []Node{leaf(2, "2")}},
		leaf(token.EOF, ""),
	}}
}

func TestHeightAndSize(t *testing.T) {
	root := sample()
	assert.Equal(t, 3, root.Height())
	assert.Equal(t, 7, Size(root))
	assert.Equal(t, 1, (&NonTerminal{Symbol: &grammar.Symbol{Name: "empty"}}).Height())
}

func TestLeaves(t *testing.T) {
	toks := Tokens(sample())
	require.Len(t, toks, 4)
	assert.Equal(t, []string{"1", "+", "2", ""}, []string{toks[0].Text, toks[1].Text, toks[2].Text, toks[3].Text})

	// early stop
	n := 0
	for range Leaves(sample()) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestDump(t *testing.T) {
	names := func(k token.Kind) string {
		switch k {
		case 2:
			return "NUM"
		case 3:
			return "PLUS"
		default:
			return "EOF"
		}
	}
	var sb strings.Builder
	require.NoError(t, Dump(&sb, sample(), names))
	want := `sum
├── num
│   └── NUM "1"
├── PLUS "+"
├── num
│   └── NUM "2"
└── EOF ""
`
	assert.Equal(t, want, sb.String())
}
