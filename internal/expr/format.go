package expr

import (
	"strings"
)

// String renders "(name)" or "(name:arg1,arg2)", quoting arguments as needed.
func (a *Atom) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(a.Name)
	if len(a.Args) > 0 {
		b.WriteByte(':')
		for i, arg := range a.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(QuoteArg(arg))
		}
	}
	b.WriteByte(')')
	return b.String()
}

// String renders "! child", or "!" when the operand is missing.
func (n *Not) String() string {
	if n.Child == nil {
		return "!"
	}
	return "! " + n.Child.String()
}

func (n *And) String() string { return formatOperator(n.Operator(), n.Children) }
func (n *Or) String() string  { return formatOperator(n.Operator(), n.Children) }

func formatOperator(op string, children []Node) string {
	if len(children) == 0 {
		return op + " [ ]"
	}
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.String()
	}
	return op + " [ " + strings.Join(parts, ", ") + " ]"
}

// QuoteArg returns arg unchanged when it parses back as itself, otherwise a
// double-quoted form with backslash escapes.
func QuoteArg(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, ",\"\\()[]&|!: \t\n\r\v\f") {
		return arg
	}
	var b strings.Builder
	b.Grow(len(arg) + 2)
	b.WriteByte('"')
	for i := 0; i < len(arg); i++ {
		if arg[i] == '"' || arg[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(arg[i])
	}
	b.WriteByte('"')
	return b.String()
}
