package token

import "fmt"

// Kind identifies the lexer symbol a token was produced by.
type Kind uint16

const (
	// Invalid marks a token of unknown kind.
	Invalid Kind = iota
	// EOF marks the end of the token stream.
	EOF
	// FirstSymbol is the kind assigned to the first declared lexer symbol.
	FirstSymbol
)

// Token is an immutable (kind, text) pair.
type Token struct {
	Kind Kind
	Text string
}

// New creates a token of the given kind.
func New(kind Kind, text string) Token {
	return Token{Kind: kind, Text: text}
}

// IsEOF reports whether the token is the end-of-stream sentinel.
func (t Token) IsEOF() bool { return t.Kind == EOF }

// IsKnown reports whether the token carries a lexer symbol.
func (t Token) IsKnown() bool { return t.Kind != Invalid }

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "<EOF>"
	case Invalid:
		return fmt.Sprintf("<?>%q", t.Text)
	default:
		return fmt.Sprintf("#%d%q", t.Kind, t.Text)
	}
}

// Kinds returns the kind of every token, in order.
func Kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}
