package cst

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"pegfuzz/internal/grammar"
	"pegfuzz/internal/token"
)

// Node is a node of a generated concrete syntax tree.
type Node interface {
	// Height is 1 for terminals and 1 + the tallest child otherwise.
	Height() int
	node()
}

// Terminal wraps one token.
type Terminal struct {
	Token token.Token
}

// NonTerminal is the expansion of a parser symbol.
type NonTerminal struct {
	Symbol   *grammar.Symbol
	Children []Node
}

func (*Terminal) node()    {}
func (*NonTerminal) node() {}

// Height implements Node.
func (*Terminal) Height() int { return 1 }

// Height implements Node.
func (n *NonTerminal) Height() int {
	h := 0
	for _, c := range n.Children {
		h = max(h, c.Height())
	}
	return h + 1
}

// Leaves yields the tokens of a tree from left to right.
func Leaves(root Node) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		walkLeaves(root, yield)
	}
}

func walkLeaves(n Node, yield func(token.Token) bool) bool {
	switch n := n.(type) {
	case *Terminal:
		return yield(n.Token)
	case *NonTerminal:
		for _, c := range n.Children {
			if !walkLeaves(c, yield) {
				return false
			}
		}
	}
	return true
}

// Tokens collects the leaves of a tree.
func Tokens(root Node) []token.Token {
	var out []token.Token
	for t := range Leaves(root) {
		out = append(out, t)
	}
	return out
}

// Size counts every node of the tree.
func Size(root Node) int {
	switch n := root.(type) {
	case *NonTerminal:
		total := 1
		for _, c := range n.Children {
			total += Size(c)
		}
		return total
	default:
		return 1
	}
}

// Dump prints the tree with box-drawing guides, one node per line.
// names maps token kinds to symbol names.
func Dump(w io.Writer, root Node, names func(token.Kind) string) error {
	var sb strings.Builder
	dumpNode(&sb, root, names, "", "")
	_, err := io.WriteString(w, sb.String())
	return err
}

func dumpNode(sb *strings.Builder, n Node, names func(token.Kind) string, head, tail string) {
	sb.WriteString(head)
	switch n := n.(type) {
	case *Terminal:
		fmt.Fprintf(sb, "%s %q\n", names(n.Token.Kind), n.Token.Text)
	case *NonTerminal:
		sb.WriteString(n.Symbol.Name)
		sb.WriteByte('\n')
		for i, c := range n.Children {
			if i == len(n.Children)-1 {
				dumpNode(sb, c, names, tail+"└── ", tail+"    ")
			} else {
				dumpNode(sb, c, names, tail+"├── ", tail+"│   ")
			}
		}
	}
}
