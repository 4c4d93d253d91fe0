package grammar

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Document layout:
//
//	start: program
//	tokens:
//	  - {name: LPAREN, literal: "("}
//	  - {name: ID, pattern: "[a-z]+"}
//	  - {name: WS, pattern: "[ \t\n]+", skip: true}
//	rules:
//	  - name: program
//	    alts:
//	      - [stmt*, EOF]
//	  - name: stmt
//	    alts:
//	      - {weight: 3, items: [ID, "(", {group: [[ID], [stmt]], quant: "*"}, ")"]}
//	      - ID
type document struct {
	Start  string     `yaml:"start"`
	Tokens []tokenDoc `yaml:"tokens"`
	Rules  []ruleDoc  `yaml:"rules"`
}

type tokenDoc struct {
	Name    string  `yaml:"name"`
	Literal *string `yaml:"literal"`
	Pattern string  `yaml:"pattern"`
	Skip    bool    `yaml:"skip"`
}

type ruleDoc struct {
	Name string   `yaml:"name"`
	Alts []altDoc `yaml:"alts"`
}

type altDoc struct {
	Weight int
	Items  []itemDoc
}

type itemDoc struct {
	Ref    string
	Group  []altDoc
	Quant  Quant
	Weight int
}

func (a *altDoc) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		return n.Decode(&a.Items)
	case yaml.ScalarNode:
		var it itemDoc
		if err := n.Decode(&it); err != nil {
			return err
		}
		a.Items = []itemDoc{it}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Weight int       `yaml:"weight"`
			Items  []itemDoc `yaml:"items"`
		}
		if err := n.Decode(&raw); err != nil {
			return err
		}
		a.Weight = raw.Weight
		a.Items = raw.Items
		return nil
	default:
		return fmt.Errorf("line %d: alternative must be a list, a name or a mapping", n.Line)
	}
}

func (it *itemDoc) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		ref, q := splitQuant(s)
		if ref == "" {
			return fmt.Errorf("line %d: empty symbol reference", n.Line)
		}
		it.Ref = ref
		it.Quant = q
		return nil
	case yaml.MappingNode:
		var raw struct {
			Ref    string   `yaml:"ref"`
			Group  []altDoc `yaml:"group"`
			Quant  string   `yaml:"quant"`
			Weight int      `yaml:"weight"`
		}
		if err := n.Decode(&raw); err != nil {
			return err
		}
		if (raw.Ref == "") == (raw.Group == nil) {
			return fmt.Errorf("line %d: item needs exactly one of ref or group", n.Line)
		}
		ref, q := splitQuant(raw.Ref)
		if raw.Quant != "" {
			parsed, err := ParseQuant(raw.Quant)
			if err != nil {
				return fmt.Errorf("line %d: %w", n.Line, err)
			}
			q = parsed
		}
		it.Ref = ref
		it.Group = raw.Group
		it.Quant = q
		it.Weight = raw.Weight
		return nil
	default:
		return fmt.Errorf("line %d: item must be a name or a mapping", n.Line)
	}
}

// splitQuant strips a trailing ?, * or + from a reference.
func splitQuant(s string) (string, Quant) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", QuantNone
	}
	switch s[len(s)-1] {
	case '?':
		return s[:len(s)-1], QuantOptional
	case '*':
		return s[:len(s)-1], QuantStar
	case '+':
		return s[:len(s)-1], QuantPlus
	}
	return s, QuantNone
}

// LoadFile reads and validates a YAML grammar file.
func LoadFile(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grammar: %w", err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes and validates a YAML grammar document.
func Parse(data []byte) (*Grammar, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse grammar: %w", err)
	}

	b := NewBuilder()
	for _, t := range doc.Tokens {
		switch {
		case t.Literal != nil && t.Pattern != "":
			return nil, fmt.Errorf("token %q: literal and pattern are mutually exclusive", t.Name)
		case t.Literal != nil:
			lit := norm.NFC.String(*t.Literal)
			if lit == "" {
				return nil, fmt.Errorf("token %q: empty literal", t.Name)
			}
			b.tokens = append(b.tokens, &Symbol{Name: t.Name, Kind: LexerSymbol, Pattern: regexp.QuoteMeta(lit), Skip: t.Skip})
		default:
			b.tokens = append(b.tokens, &Symbol{Name: t.Name, Kind: LexerSymbol, Pattern: norm.NFC.String(t.Pattern), Skip: t.Skip})
		}
	}
	for _, r := range doc.Rules {
		b.Rule(r.Name, convertAlts(r.Alts)...)
	}
	return b.Build(doc.Start)
}

func convertAlts(docs []altDoc) []Alt {
	alts := make([]Alt, len(docs))
	for i, d := range docs {
		items := make([]Item, len(d.Items))
		for j, it := range d.Items {
			items[j] = Item{Ref: it.Ref, Quant: it.Quant, Weight: it.Weight}
			if it.Ref == "" {
				items[j].Group = convertAlts(it.Group)
			}
		}
		alts[i] = Alt{Items: items, Weight: d.Weight}
	}
	return alts
}
