package grammar

import (
	"errors"
	"fmt"
	"regexp"

	"fortio.org/safecast"

	"pegfuzz/internal/token"
)

// ErrInvalidGrammar wraps every name-analysis failure.
var ErrInvalidGrammar = errors.New("invalid grammar")

// Builder assembles a Grammar programmatically. Declaration order is kept:
// lexer symbols are numbered in the order they are added.
type Builder struct {
	tokens []*Symbol
	rules  []*Symbol
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// Token declares a lexer symbol matching exactly the given literal.
func (b *Builder) Token(name, literal string) *Builder {
	return b.Pattern(name, regexp.QuoteMeta(literal))
}

// Pattern declares a lexer symbol defined by a regular expression.
func (b *Builder) Pattern(name, pattern string) *Builder {
	b.tokens = append(b.tokens, &Symbol{Name: name, Kind: LexerSymbol, Pattern: pattern})
	return b
}

// Skip declares a skipped lexer symbol (whitespace, comments).
func (b *Builder) Skip(name, pattern string) *Builder {
	b.tokens = append(b.tokens, &Symbol{Name: name, Kind: LexerSymbol, Pattern: pattern, Skip: true})
	return b
}

// Rule declares a parser symbol with the given alternatives.
func (b *Builder) Rule(name string, alts ...Alt) *Builder {
	b.rules = append(b.rules, &Symbol{Name: name, Kind: ParserSymbol, Production: &Production{Alts: alts}})
	return b
}

// Seq builds an alternative of weight 1.
func Seq(items ...Item) Alt { return Alt{Items: items, Weight: 1} }

// Weighted builds an alternative with an explicit weight.
func Weighted(weight int, items ...Item) Alt { return Alt{Items: items, Weight: weight} }

// Ref references a symbol exactly once.
func Ref(name string) Item { return Item{Ref: name, Weight: 1} }

// Opt references a symbol zero or one time.
func Opt(name string) Item { return Item{Ref: name, Quant: QuantOptional, Weight: 1} }

// Star references a symbol zero or more times.
func Star(name string) Item { return Item{Ref: name, Quant: QuantStar, Weight: 1} }

// Plus references a symbol one or more times.
func Plus(name string) Item { return Item{Ref: name, Quant: QuantPlus, Weight: 1} }

// Group wraps anonymous alternatives into a single quantified item.
func Group(q Quant, alts ...Alt) Item { return Item{Group: alts, Quant: q, Weight: 1} }

// WithWeight returns a copy of the item with a different repetition weight.
func (it Item) WithWeight(weight int) Item {
	it.Weight = weight
	return it
}

// Build runs name analysis and returns the grammar rooted at start.
func (b *Builder) Build(start string) (*Grammar, error) {
	g := &Grammar{
		byName: make(map[string]*Symbol, len(b.tokens)+len(b.rules)+1),
	}
	eof := &Symbol{Name: EOFName, Kind: LexerSymbol, Token: token.EOF}
	g.symbols = append(g.symbols, eof)
	g.byName[EOFName] = eof
	g.byKind = []*Symbol{nil, eof}

	var errs []error
	declare := func(s *Symbol) bool {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("%s without a name", s.Kind))
			return false
		}
		if prev, dup := g.byName[s.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate symbol %q (already declared as %s)", s.Name, prev.Kind))
			return false
		}
		s.Index = len(g.symbols)
		g.symbols = append(g.symbols, s)
		g.byName[s.Name] = s
		return true
	}

	for _, s := range b.tokens {
		sym := *s
		if !declare(&sym) {
			continue
		}
		if sym.Pattern == "" {
			errs = append(errs, fmt.Errorf("token %q has an empty pattern", sym.Name))
		}
		kind, err := safecast.Conv[token.Kind](len(g.byKind))
		if err != nil {
			panic(fmt.Errorf("token kind overflow: %w", err))
		}
		sym.Token = kind
		g.byKind = append(g.byKind, g.symbols[len(g.symbols)-1])
	}
	for _, s := range b.rules {
		sym := *s
		declare(&sym)
	}

	for _, s := range g.symbols {
		if s.Production == nil {
			continue
		}
		if len(s.Production.Alts) == 0 {
			errs = append(errs, fmt.Errorf("rule %q has no alternatives", s.Name))
		}
		s.Production = &Production{Alts: normalizeAlts(s.Production.Alts)}
		errs = append(errs, checkAlts(g, s.Name, s.Production.Alts)...)
	}

	root, ok := g.byName[start]
	switch {
	case start == "":
		errs = append(errs, errors.New("no start symbol given"))
	case !ok:
		errs = append(errs, fmt.Errorf("start symbol %q is not declared", start))
	case root.Kind != ParserSymbol:
		errs = append(errs, fmt.Errorf("start symbol %q must be a rule, not a token", start))
	default:
		g.start = root
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGrammar, errors.Join(errs...))
	}
	return g, nil
}

// normalizeAlts deep-copies alternatives and applies default weights.
func normalizeAlts(alts []Alt) []Alt {
	out := make([]Alt, len(alts))
	for i, alt := range alts {
		if alt.Weight == 0 {
			alt.Weight = 1
		}
		items := make([]Item, len(alt.Items))
		for j, it := range alt.Items {
			if it.Weight == 0 {
				it.Weight = 1
			}
			if it.IsGroup() {
				it.Group = normalizeAlts(it.Group)
			}
			items[j] = it
		}
		alt.Items = items
		out[i] = alt
	}
	return out
}

func checkAlts(g *Grammar, rule string, alts []Alt) []error {
	var errs []error
	for i, alt := range alts {
		if alt.Weight < 1 {
			errs = append(errs, fmt.Errorf("rule %q: alternative %d has weight %d (must be >= 1)", rule, i+1, alt.Weight))
		}
		for _, it := range alt.Items {
			if it.Weight < 1 {
				errs = append(errs, fmt.Errorf("rule %q: item weight %d (must be >= 1)", rule, it.Weight))
			}
			if it.Quant > QuantPlus {
				errs = append(errs, fmt.Errorf("rule %q: invalid quantifier %d", rule, it.Quant))
			}
			if it.IsGroup() {
				if len(it.Group) == 0 {
					errs = append(errs, fmt.Errorf("rule %q: empty group", rule))
				}
				errs = append(errs, checkAlts(g, rule, it.Group)...)
				continue
			}
			if _, ok := g.byName[it.Ref]; !ok {
				errs = append(errs, fmt.Errorf("rule %q: undefined symbol %q", rule, it.Ref))
			}
		}
	}
	return errs
}
