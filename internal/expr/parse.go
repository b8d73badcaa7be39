package expr

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParseResult is the outcome of a successful parse.
type ParseResult struct {
	// Root is the top-level node. Never nil.
	Root Node
	// Normalized is the whitespace-normalized text the parser walked.
	Normalized string
	// Diagnostics lists recoverable problems. Positions refer to Normalized.
	Diagnostics []Diagnostic
}

// HasErrors reports whether any diagnostic has error severity.
func (r *ParseResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Parse converts expression text into a tree.
//
// It returns a *FormatError when the pre-check rejects the text, and a
// *ParseError when the structural parse yields no root. Other problems are
// reported as diagnostics on the result.
func Parse(text string) (*ParseResult, error) {
	text = norm.NFC.String(text)
	if err := precheck(text); err != nil {
		return nil, err
	}

	p := &parser{src: normalize(text)}
	root, pos := p.parseExpr(0)
	if root == nil {
		if len(p.diags) == 0 {
			p.errorf(pos, "expected an expression")
		}
		return nil, &ParseError{Normalized: p.src, Diagnostics: p.diags}
	}

	pos = p.skipSpace(pos)
	if pos < len(p.src) {
		p.warnf(pos, "expression parsing stopped at position %d/%d, remainder: %q",
			pos, len(p.src), p.src[pos:])
	}

	return &ParseResult{Root: root, Normalized: p.src, Diagnostics: p.diags}, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParse(text string) Node {
	res, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return res.Root
}

type parser struct {
	src   string
	diags []Diagnostic
}

func (p *parser) errorf(pos int, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{Severity: SeverityError, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) warnf(pos int, format string, args ...any) {
	p.diags = append(p.diags, Diagnostic{Severity: SeverityWarning, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) skipSpace(pos int) int {
	for pos < len(p.src) && isSpace(p.src[pos]) {
		pos++
	}
	return pos
}

// parseExpr parses one expression starting at pos and returns the node and
// the position just after it. A nil node means nothing usable was found.
func (p *parser) parseExpr(pos int) (Node, int) {
	pos = p.skipSpace(pos)
	if pos >= len(p.src) {
		return nil, pos
	}

	rest := p.src[pos:]
	switch {
	case rest[0] == ']' || rest[0] == ',':
		// Operand list separator or terminator: the caller decides.
		return nil, pos
	case rest[0] == '!':
		node := &Not{}
		child, next := p.parseExpr(pos + 1)
		if child == nil {
			p.warnf(pos, "missing expression after NOT operator")
		} else {
			node.Child = child
		}
		return node, next
	case strings.HasPrefix(rest, "&&"):
		children, next := p.parseOperands(pos, "&&")
		return NewAnd(true, children...), next
	case strings.HasPrefix(rest, "||"):
		children, next := p.parseOperands(pos, "||")
		return NewOr(true, children...), next
	case rest[0] == '&':
		children, next := p.parseOperands(pos, "&")
		return NewAnd(false, children...), next
	case rest[0] == '|':
		children, next := p.parseOperands(pos, "|")
		return NewOr(false, children...), next
	case rest[0] == '(':
		return p.parseAtom(pos)
	}

	p.errorf(pos, "unexpected character %q", rest[0])
	next := pos + 1
	for next < len(p.src) && !strings.ContainsRune("()[],&|!", rune(p.src[next])) {
		next++
	}
	return nil, next
}

// parseOperands parses "[ expr, expr ... ]" following an operator token.
func (p *parser) parseOperands(start int, op string) ([]Node, int) {
	pos := p.skipSpace(start + len(op))
	if pos >= len(p.src) || p.src[pos] != '[' {
		p.errorf(pos, "missing opening bracket for operator %q", op)
		return nil, pos
	}
	pos++

	var children []Node
	for {
		for pos < len(p.src) && (isSpace(p.src[pos]) || p.src[pos] == ',') {
			pos++
		}
		if pos >= len(p.src) {
			p.errorf(pos, "missing closing bracket for operator %q", op)
			break
		}
		if p.src[pos] == ']' {
			pos++
			break
		}
		child, next := p.parseExpr(pos)
		if child != nil {
			children = append(children, child)
		}
		if next <= pos {
			next = pos + 1
		}
		pos = next
	}

	if len(children) == 0 {
		p.warnf(start, "operator %q has no operands", op)
	}
	return children, pos
}

// parseAtom parses "( name [: args] )" starting at the opening parenthesis.
func (p *parser) parseAtom(start int) (Node, int) {
	pos := start + 1

	nameStart := pos
	for pos < len(p.src) && p.src[pos] != ':' && p.src[pos] != ')' {
		if p.src[pos] == '\\' {
			pos++
		}
		pos++
	}
	if pos >= len(p.src) {
		p.errorf(start, "missing closing parenthesis for task")
		return nil, pos
	}
	name := strings.TrimSpace(p.src[nameStart:pos])

	var args []string
	if p.src[pos] == ':' {
		var ok bool
		args, pos, ok = p.parseArgs(pos + 1)
		if !ok {
			p.errorf(start, "missing closing parenthesis for task %q", name)
			return nil, pos
		}
	}
	pos++ // ')'

	if name == "" {
		p.errorf(start, "empty task name")
		return nil, pos
	}
	if strings.ContainsRune(name, '\\') {
		p.errorf(start, "task name %q must not contain a backslash", name)
		return nil, pos
	}
	return NewAtom(name, args...), pos
}

// parseArgs splits a comma-separated argument list up to the closing
// parenthesis. It returns the position of that parenthesis.
func (p *parser) parseArgs(pos int) ([]string, int, bool) {
	var args []string
	var cur argBuilder
	inQuote := false

	for ; pos < len(p.src); pos++ {
		c := p.src[pos]
		switch {
		case c == '\\':
			if pos+1 < len(p.src) {
				pos++
				cur.literal(p.src[pos])
			} else {
				cur.literal(c)
			}
		case c == '"':
			inQuote = !inQuote
			cur.touched = true
		case inQuote:
			cur.literal(c)
		case c == ',':
			args = append(args, cur.value())
			cur = argBuilder{}
		case c == ')':
			if cur.touched {
				args = append(args, cur.value())
			}
			return args, pos, true
		default:
			cur.plain(c)
		}
	}
	return args, pos, false
}

// argBuilder accumulates one argument. Quoted and escaped bytes are literal
// and survive trimming; unquoted surrounding whitespace does not.
type argBuilder struct {
	buf     []byte
	lit     []bool
	touched bool
}

func (b *argBuilder) literal(c byte) {
	b.buf = append(b.buf, c)
	b.lit = append(b.lit, true)
	b.touched = true
}

func (b *argBuilder) plain(c byte) {
	b.buf = append(b.buf, c)
	b.lit = append(b.lit, false)
	if !isSpace(c) {
		b.touched = true
	}
}

func (b *argBuilder) value() string {
	lo, hi := 0, len(b.buf)
	for lo < hi && !b.lit[lo] && isSpace(b.buf[lo]) {
		lo++
	}
	for hi > lo && !b.lit[hi-1] && isSpace(b.buf[hi-1]) {
		hi--
	}
	return string(b.buf[lo:hi])
}
