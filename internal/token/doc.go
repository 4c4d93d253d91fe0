// Package token defines the tokens exchanged between the lexer, the fuzzer
// and the token joiner.
// Invariants:
//   - Kind 0 (Invalid) never names a lexer symbol; it stands for "unknown".
//   - Kind 1 (EOF) is the built-in end-of-stream symbol and has empty text.
//   - Declared lexer symbols are numbered from FirstSymbol in declaration order.
package token
