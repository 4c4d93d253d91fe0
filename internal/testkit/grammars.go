package testkit

import "pegfuzz/internal/grammar"

// ExprGrammar is a small arithmetic language with a recursive rule, a
// repetition group, a skipped whitespace token and one unreachable rule:
//
//	program : expr EOF ;
//	expr    : term (PLUS term)* ;
//	term    : NUM | LP expr RP ;
//	dead    : UNUSED ;
func ExprGrammar() *grammar.Grammar {
	return mustBuild(grammar.NewBuilder().
		Token("PLUS", "+").
		Token("LP", "(").
		Token("RP", ")").
		Pattern("NUM", "[0-9]+").
		Token("UNUSED", "?").
		Skip("WS", " +").
		Rule("program", grammar.Seq(grammar.Ref("expr"), grammar.Ref("EOF"))).
		Rule("expr", grammar.Seq(
			grammar.Ref("term"),
			grammar.Group(grammar.QuantStar, grammar.Seq(grammar.Ref("PLUS"), grammar.Ref("term"))),
		)).
		Rule("term",
			grammar.Seq(grammar.Ref("NUM")),
			grammar.Seq(grammar.Ref("LP"), grammar.Ref("expr"), grammar.Ref("RP")),
		).
		Rule("dead", grammar.Seq(grammar.Ref("UNUSED"))),
		"program")
}

// StmtGrammar mixes keywords with identifiers and operators that share
// prefixes, which makes token separation non-trivial:
//
//	unit : stmt+ EOF ;
//	stmt : IF ID | ID (INC | PLUS NUM)? SEMI? | ID EQ EQ NUM ;
func StmtGrammar() *grammar.Grammar {
	return mustBuild(grammar.NewBuilder().
		Token("IF", "if").
		Token("INC", "++").
		Token("PLUS", "+").
		Token("EQ", "=").
		Token("SEMI", ";").
		Pattern("ID", "[a-z]+").
		Pattern("NUM", "[0-9]+").
		Skip("WS", "[ \t\n]+").
		Rule("unit", grammar.Seq(grammar.Plus("stmt"), grammar.Ref("EOF"))).
		Rule("stmt",
			grammar.Seq(grammar.Ref("IF"), grammar.Ref("ID")),
			grammar.Seq(
				grammar.Ref("ID"),
				grammar.Group(grammar.QuantOptional,
					grammar.Seq(grammar.Ref("INC")),
					grammar.Seq(grammar.Ref("PLUS"), grammar.Ref("NUM")),
				),
				grammar.Opt("SEMI"),
			),
			grammar.Seq(grammar.Ref("ID"), grammar.Ref("EQ"), grammar.Ref("EQ"), grammar.Ref("NUM")),
		),
		"unit")
}

// WeightedGrammar has one choice whose alternatives are weighted 1, 3 and 6:
//
//	root : pick EOF ;
//	pick : A @1 | B @3 | C @6 ;
func WeightedGrammar() *grammar.Grammar {
	return mustBuild(grammar.NewBuilder().
		Token("A", "a").
		Token("B", "b").
		Token("C", "c").
		Rule("root", grammar.Seq(grammar.Ref("pick"), grammar.Ref("EOF"))).
		Rule("pick",
			grammar.Weighted(1, grammar.Ref("A")),
			grammar.Weighted(3, grammar.Ref("B")),
			grammar.Weighted(6, grammar.Ref("C")),
		),
		"root")
}

func mustBuild(b *grammar.Builder, start string) *grammar.Grammar {
	g, err := b.Build(start)
	if err != nil {
		panic(err)
	}
	return g
}
