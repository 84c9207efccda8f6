package parser

import (
	"strings"
	"unicode"
)

// Node is a condition from a WHERE or FILTER clause. String renders it in
// query-string syntax.
type Node interface {
	String() string
}

// Raw is a quoted condition passed to the engine untouched.
type Raw struct {
	Text string
}

func (r *Raw) String() string { return r.Text }

// Value is a literal on the right-hand side of a comparison.
type Value struct {
	Text   string
	Quoted bool
}

func (v Value) String() string {
	if !v.Quoted || isBareSafe(v.Text) {
		return v.Text
	}
	escaped := strings.ReplaceAll(v.Text, `\`, `\\`)
	return `"` + strings.ReplaceAll(escaped, `"`, `\"`) + `"`
}

// Compare is field <op> value.
type Compare struct {
	Field string
	Op    string
	Value Value
}

func (c *Compare) String() string {
	switch c.Op {
	case "!=", "<>":
		return "NOT " + c.Field + ":" + c.Value.String()
	case "<", "<=", ">", ">=":
		return c.Field + ":" + c.Op + c.Value.String()
	default:
		return c.Field + ":" + c.Value.String()
	}
}

// Like is field LIKE pattern with SQL wildcards.
type Like struct {
	Field   string
	Pattern string
}

func (l *Like) String() string {
	var b strings.Builder
	for _, r := range l.Pattern {
		switch {
		case r == '%':
			b.WriteRune('*')
		case r == '_':
			b.WriteRune('?')
		case unicode.IsSpace(r) || strings.ContainsRune(`:()"\`, r):
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return l.Field + ":" + b.String()
}

// In is field IN (v1, v2, ...).
type In struct {
	Field  string
	Values []Value
}

func (in *In) String() string {
	parts := make([]string, len(in.Values))
	for i, v := range in.Values {
		parts[i] = v.String()
	}
	return in.Field + ":(" + strings.Join(parts, " OR ") + ")"
}

// Between is field BETWEEN low AND high, inclusive.
type Between struct {
	Field string
	Low   Value
	High  Value
}

func (b *Between) String() string {
	return b.Field + ":[" + b.Low.String() + " TO " + b.High.String() + "]"
}

// Not negates a condition.
type Not struct {
	Operand Node
}

func (n *Not) String() string {
	if isNegated(n.Operand) {
		return "NOT (" + n.Operand.String() + ")"
	}
	return "NOT " + wrap(n.Operand)
}

// Binary joins two conditions with AND or OR.
type Binary struct {
	Op    string
	Left  Node
	Right Node
}

func (b *Binary) String() string {
	return b.side(b.Left) + " " + b.Op + " " + b.side(b.Right)
}

// side renders an operand. A negated operand of OR is grouped, otherwise the
// engine reads "NOT a OR b" as "NOT a" required alongside "b".
func (b *Binary) side(n Node) string {
	if child, ok := n.(*Binary); ok && child.Op != b.Op {
		return "(" + child.String() + ")"
	}
	if b.Op == "OR" && isNegated(n) {
		return "(" + n.String() + ")"
	}
	return n.String()
}

// Group is a parenthesised condition kept from the input.
type Group struct {
	Inner Node
}

func (g *Group) String() string {
	return "(" + g.Inner.String() + ")"
}

func wrap(n Node) string {
	if _, ok := n.(*Binary); ok {
		return "(" + n.String() + ")"
	}
	return n.String()
}

// isNegated reports whether n renders with a leading NOT.
func isNegated(n Node) bool {
	switch node := n.(type) {
	case *Not:
		return true
	case *Compare:
		return node.Op == "!=" || node.Op == "<>"
	}
	return false
}

func isBareSafe(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_.-@", r) {
			continue
		}
		return false
	}
	return true
}
