package grammar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pegfuzz/internal/token"
)

func TestBuilderAssignsTokenKinds(t *testing.T) {
	g, err := NewBuilder().
		Token("LP", "(").
		Token("RP", ")").
		Pattern("ID", "[a-z]+").
		Skip("WS", "[ ]+").
		Rule("expr", Seq(Ref("ID")), Seq(Ref("LP"), Star("expr"), Ref("RP"))).
		Build("expr")
	require.NoError(t, err)

	assert.Equal(t, "expr", g.Start().Name)
	assert.Len(t, g.LexerSymbols(), 4)
	assert.Len(t, g.ParserSymbols(), 1)

	lp, ok := g.Lookup("LP")
	require.True(t, ok)
	assert.Equal(t, token.FirstSymbol, lp.Token)

	ws, ok := g.Lookup("WS")
	require.True(t, ok)
	assert.True(t, ws.Skip)
	assert.Equal(t, token.FirstSymbol+3, ws.Token)

	eof, ok := g.SymbolFor(token.EOF)
	require.True(t, ok)
	assert.True(t, eof.IsEOF())
	assert.Equal(t, "EOF", g.Name(token.EOF))
	assert.Equal(t, "<unknown>", g.Name(token.Invalid))
}

func TestBuilderDefaultsWeights(t *testing.T) {
	g, err := NewBuilder().
		Token("A", "a").
		Rule("s", Alt{Items: []Item{{Ref: "A"}}}).
		Build("s")
	require.NoError(t, err)
	s, _ := g.Lookup("s")
	require.Len(t, s.Production.Alts, 1)
	assert.Equal(t, 1, s.Production.Alts[0].Weight)
	assert.Equal(t, 1, s.Production.Alts[0].Items[0].Weight)
}

func TestBuilderNameAnalysis(t *testing.T) {
	cases := []struct {
		name  string
		build func() (*Grammar, error)
		want  string
	}{
		{
			name: "undefined reference",
			build: func() (*Grammar, error) {
				return NewBuilder().Rule("s", Seq(Ref("nope"))).Build("s")
			},
			want: `undefined symbol "nope"`,
		},
		{
			name: "duplicate symbol",
			build: func() (*Grammar, error) {
				return NewBuilder().Token("A", "a").Rule("A", Seq(Ref("A"))).Build("A")
			},
			want: `duplicate symbol "A"`,
		},
		{
			name: "token as start",
			build: func() (*Grammar, error) {
				return NewBuilder().Token("A", "a").Build("A")
			},
			want: "must be a rule",
		},
		{
			name: "missing start",
			build: func() (*Grammar, error) {
				return NewBuilder().Token("A", "a").Build("s")
			},
			want: `start symbol "s" is not declared`,
		},
		{
			name: "negative weight",
			build: func() (*Grammar, error) {
				return NewBuilder().Token("A", "a").Rule("s", Weighted(-2, Ref("A"))).Build("s")
			},
			want: "weight -2",
		},
		{
			name: "EOF is reserved",
			build: func() (*Grammar, error) {
				return NewBuilder().Token("EOF", "x").Rule("s", Seq(Ref("EOF"))).Build("s")
			},
			want: `duplicate symbol "EOF"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGrammar))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

const listGrammar = `
start: program
tokens:
  - {name: LB, literal: "["}
  - {name: RB, literal: "]"}
  - {name: COMMA, literal: ","}
  - {name: NUM, pattern: "[0-9]+"}
  - {name: WS, pattern: "[ \t\n]+", skip: true}
rules:
  - name: program
    alts:
      - [list, EOF]
  - name: list
    alts:
      - [LB, {group: [[value, {group: [[COMMA, value]], quant: "*"}]], quant: "?"}, RB]
  - name: value
    alts:
      - {weight: 5, items: [NUM]}
      - list
`

func TestParseYAML(t *testing.T) {
	g, err := Parse([]byte(listGrammar))
	require.NoError(t, err)
	assert.Equal(t, "program", g.Start().Name)

	list, ok := g.Lookup("list")
	require.True(t, ok)
	require.Len(t, list.Production.Alts, 1)
	items := list.Production.Alts[0].Items
	require.Len(t, items, 3)
	assert.Equal(t, "LB", items[0].Ref)
	assert.True(t, items[1].IsGroup())
	assert.Equal(t, QuantOptional, items[1].Quant)
	inner := items[1].Group[0].Items
	require.Len(t, inner, 2)
	assert.Equal(t, QuantStar, inner[1].Quant)

	value, _ := g.Lookup("value")
	assert.Equal(t, 5, value.Production.Alts[0].Weight)
	assert.Equal(t, 1, value.Production.Alts[1].Weight)
	assert.Equal(t, "list", value.Production.Alts[1].Items[0].Ref)

	lb, _ := g.Lookup("LB")
	assert.Equal(t, `\[`, lb.Pattern)
}

func TestParseYAMLQuantSuffix(t *testing.T) {
	g, err := Parse([]byte(`
start: s
tokens:
  - {name: A, literal: a}
rules:
  - name: s
    alts:
      - [A?, A*, A+, {ref: A, quant: "+", weight: 4}]
`))
	require.NoError(t, err)
	s, _ := g.Lookup("s")
	items := s.Production.Alts[0].Items
	require.Len(t, items, 4)
	assert.Equal(t, []Quant{QuantOptional, QuantStar, QuantPlus, QuantPlus},
		[]Quant{items[0].Quant, items[1].Quant, items[2].Quant, items[3].Quant})
	assert.Equal(t, 4, items[3].Weight)
}

func TestParseYAMLErrors(t *testing.T) {
	_, err := Parse([]byte(`
start: s
tokens:
  - {name: A, literal: a, pattern: "b"}
rules:
  - {name: s, alts: [[A]]}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	_, err = Parse([]byte(`
start: s
rules:
  - {name: s, alts: [[{ref: s, quant: "!"}]]}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid quantifier")
}

func TestParseQuant(t *testing.T) {
	for in, want := range map[string]Quant{"": QuantNone, "?": QuantOptional, "*": QuantStar, "+": QuantPlus} {
		got, err := ParseQuant(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "ParseQuant(%q)", in)
	}
	assert.True(t, QuantPlus.IsMandatory())
	assert.False(t, QuantStar.IsMandatory())
}
