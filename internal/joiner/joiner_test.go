package joiner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pegfuzz/internal/grammar"
	"pegfuzz/internal/lexer"
	"pegfuzz/internal/rng"
	"pegfuzz/internal/testkit"
	"pegfuzz/internal/token"
	"pegfuzz/internal/tokens"
)

func stmtJoiner(t *testing.T) (*grammar.Grammar, *lexer.Lexer, *Joiner) {
	t.Helper()
	gr := testkit.StmtGrammar()
	lx, err := lexer.New(gr)
	require.NoError(t, err)
	return gr, lx, New(lx, " ")
}

func tok(t *testing.T, gr *grammar.Grammar, name, text string) token.Token {
	t.Helper()
	sym, ok := gr.Lookup(name)
	require.True(t, ok, name)
	return token.New(sym.Token, text)
}

func TestNeedsSeparator(t *testing.T) {
	gr, _, j := stmtJoiner(t)

	cases := []struct {
		a, b [2]string
		want bool
	}{
		{[2]string{"PLUS", "+"}, [2]string{"PLUS", "+"}, true},
		{[2]string{"PLUS", "+"}, [2]string{"INC", "++"}, true},
		{[2]string{"INC", "++"}, [2]string{"PLUS", "+"}, false},
		{[2]string{"PLUS", "+"}, [2]string{"NUM", "1"}, false},
		{[2]string{"EQ", "="}, [2]string{"EQ", "="}, false},
		{[2]string{"IF", "if"}, [2]string{"ID", "x"}, true},
		{[2]string{"IF", "if"}, [2]string{"NUM", "7"}, false},
		{[2]string{"ID", "abc"}, [2]string{"IF", "if"}, true},
		{[2]string{"ID", "abc"}, [2]string{"SEMI", ";"}, false},
		{[2]string{"ID", "abc"}, [2]string{"NUM", "12"}, false},
		{[2]string{"NUM", "12"}, [2]string{"NUM", "3"}, true},
	}
	for _, tc := range cases {
		a := tok(t, gr, tc.a[0], tc.a[1])
		b := tok(t, gr, tc.b[0], tc.b[1])
		assert.Equal(t, tc.want, j.NeedsSeparator(a, b), "%q %q", tc.a[1], tc.b[1])
	}
}

func TestLineCommentBeforeLiteral(t *testing.T) {
	gr, err := grammar.NewBuilder().
		Token("SEMI", ";").
		Skip("COMMENT", "#[^\n]*").
		Skip("WS", "[ \n]+").
		Rule("unit", grammar.Seq(grammar.Ref("COMMENT"), grammar.Ref("SEMI"), grammar.Ref("EOF"))).
		Build("unit")
	require.NoError(t, err)
	lx, err := lexer.New(gr)
	require.NoError(t, err)
	j := New(lx, "\n")

	comment := tok(t, gr, "COMMENT", "#x")
	semi := tok(t, gr, "SEMI", ";")
	assert.True(t, j.NeedsSeparator(comment, semi))
	assert.False(t, j.NeedsSeparator(semi, comment))

	text := j.Join([]token.Token{comment, semi})
	assert.Equal(t, "#x\n;", text)
	got, err := lx.Lex(text, false)
	require.NoError(t, err)
	var kinds []token.Kind
	for _, g := range got {
		if !lx.IsSkipped(g.Kind) && !g.IsEOF() {
			kinds = append(kinds, g.Kind)
		}
	}
	assert.Equal(t, []token.Kind{semi.Kind}, kinds)
}

func TestSpecialTokens(t *testing.T) {
	gr, _, j := stmtJoiner(t)
	id := tok(t, gr, "ID", "x")

	assert.False(t, j.NeedsSeparator(id, token.New(token.EOF, "")))
	assert.True(t, j.NeedsSeparator(token.New(token.Invalid, "a"), token.New(token.Invalid, "b")))
	// one unknown side is probed
	assert.False(t, j.NeedsSeparator(id, token.New(token.Invalid, ";")))
	assert.True(t, j.NeedsSeparator(id, token.New(token.Invalid, "y")))
}

func TestJoin(t *testing.T) {
	gr, _, j := stmtJoiner(t)
	toks := []token.Token{
		tok(t, gr, "IF", "if"),
		tok(t, gr, "ID", "x"),
		tok(t, gr, "ID", "y"),
		tok(t, gr, "PLUS", "+"),
		tok(t, gr, "NUM", "1"),
		tok(t, gr, "SEMI", ";"),
		token.New(token.EOF, ""),
	}
	assert.Equal(t, "if x y+1;", j.Join(toks))
	assert.Equal(t, "", j.Join(nil))
}

func TestJoinedRandomTokensLexBack(t *testing.T) {
	gr, lx, j := stmtJoiner(t)
	src := rng.New(5)
	gen := tokens.NewRandom(lx, src)

	var kinds []token.Kind
	for _, sym := range gr.LexerSymbols() {
		if !sym.Skip {
			kinds = append(kinds, sym.Token)
		}
	}

	for range 200 {
		n := 1 + src.Intn(8)
		toks := make([]token.Token, n)
		for i := range toks {
			toks[i] = gen.Token(kinds[src.Intn(len(kinds))])
		}
		text := j.Join(toks)
		got, err := lx.Lex(text, false)
		require.NoError(t, err, text)
		require.Equal(t, toks, got, text)
	}
}
