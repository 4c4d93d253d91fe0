// Package grammar holds the PEG grammar model consumed by the graph builder,
// the lexer and the validation parser.
//
// Grammars are assembled with a Builder or decoded from YAML (see Parse).
// Build performs name analysis: every reference must resolve, names are
// unique, weights are positive and the start symbol is a rule. The built-in
// EOF lexer symbol always exists and carries token.EOF.
package grammar
