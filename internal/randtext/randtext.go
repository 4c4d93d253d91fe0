// Package randtext generates unstructured inputs: random token sequences
// joined like real programs and random character strings.
package randtext

import (
	"errors"
	"fmt"
	"strings"

	"pegfuzz/internal/grammar"
	"pegfuzz/internal/joiner"
	"pegfuzz/internal/rng"
	"pegfuzz/internal/token"
	"pegfuzz/internal/tokens"
)

// DefaultCharset covers printable ASCII.
const DefaultCharset = " -~"

var (
	// ErrInvalidRange is returned when min exceeds max.
	ErrInvalidRange = errors.New("invalid size range")
	// ErrInvalidCharset is returned for empty or reversed character ranges.
	ErrInvalidCharset = errors.New("invalid character set")
)

func chooseSize(src rng.Source, minSize, maxSize int) (int, error) {
	if minSize < 0 || maxSize < minSize {
		return 0, fmt.Errorf("%w: min %d, max %d", ErrInvalidRange, minSize, maxSize)
	}
	return minSize + src.Intn(maxSize-minSize+1), nil
}

// TokenSource builds token sequences without looking at the productions.
type TokenSource struct {
	kinds  []token.Kind
	gen    tokens.Generator
	joiner *joiner.Joiner
	src    rng.Source
}

// Tokens draws from the non-skipped lexer symbols of g.
func Tokens(g *grammar.Grammar, gen tokens.Generator, j *joiner.Joiner, src rng.Source) *TokenSource {
	ts := &TokenSource{gen: gen, joiner: j, src: src}
	for _, sym := range g.LexerSymbols() {
		if !sym.Skip {
			ts.kinds = append(ts.kinds, sym.Token)
		}
	}
	return ts
}

// Generate returns between minSize and maxSize tokens joined into text.
func (ts *TokenSource) Generate(minSize, maxSize int) (string, error) {
	toks, err := ts.GenerateTokens(minSize, maxSize)
	if err != nil {
		return "", err
	}
	return ts.joiner.Join(toks), nil
}

// GenerateTokens is Generate without the final join.
func (ts *TokenSource) GenerateTokens(minSize, maxSize int) ([]token.Token, error) {
	size, err := chooseSize(ts.src, minSize, maxSize)
	if err != nil {
		return nil, err
	}
	if size > 0 && len(ts.kinds) == 0 {
		return nil, errors.New("grammar declares no significant tokens")
	}
	out := make([]token.Token, 0, size)
	for range size {
		kind := ts.kinds[ts.src.Intn(len(ts.kinds))]
		out = append(out, ts.gen.Token(kind))
	}
	return out, nil
}

// StringSource builds strings of random characters.
type StringSource struct {
	src rng.Source
}

// Strings returns a string generator over src.
func Strings(src rng.Source) *StringSource { return &StringSource{src: src} }

// Generate returns between minSize and maxSize characters from charset.
func (s *StringSource) Generate(minSize, maxSize int, charset []rune) (string, error) {
	if len(charset) == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidCharset)
	}
	size, err := chooseSize(s.src, minSize, maxSize)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for range size {
		sb.WriteRune(charset[s.src.Intn(len(charset))])
	}
	return sb.String(), nil
}

// ParseCharset expands a set description such as "a-z0-9_" into its
// characters, in first-seen order. A '-' at the start, at the end or right
// after a range stands for itself.
func ParseCharset(spec string) ([]rune, error) {
	rs := []rune(spec)
	if len(rs) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCharset)
	}
	seen := make(map[rune]bool, len(rs))
	var out []rune
	add := func(r rune) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for i := 0; i < len(rs); {
		lo := rs[i]
		if lo != '-' && i+2 < len(rs) && rs[i+1] == '-' {
			hi := rs[i+2]
			if hi < lo {
				return nil, fmt.Errorf("%w: reversed range %q", ErrInvalidCharset, string([]rune{lo, '-', hi}))
			}
			for r := lo; r <= hi; r++ {
				add(r)
			}
			i += 3
			continue
		}
		add(lo)
		i++
	}
	return out, nil
}
