package expr

import (
	"context"
)

// Invoker runs a task unit and returns its status code (0 = success).
// Implementations must not panic; every failure is reported as a non-zero status.
type Invoker interface {
	Invoke(ctx context.Context, name string, args []string) int
}

// InvokerFunc adapts an ordinary function to the Invoker interface.
type InvokerFunc func(ctx context.Context, name string, args []string) int

// Invoke calls f(ctx, name, args).
func (f InvokerFunc) Invoke(ctx context.Context, name string, args []string) int {
	return f(ctx, name, args)
}

// Outcome is the result a node recorded during its last evaluation.
type Outcome int

const (
	// OutcomeNone means the node has not been evaluated in the current pass.
	OutcomeNone Outcome = iota
	// OutcomeTrue means the node evaluated to true.
	OutcomeTrue
	// OutcomeFalse means the node evaluated to false.
	OutcomeFalse
)

// String returns "none", "true" or "false".
func (o Outcome) String() string {
	switch o {
	case OutcomeTrue:
		return "true"
	case OutcomeFalse:
		return "false"
	default:
		return "none"
	}
}

func outcomeOf(b bool) Outcome {
	if b {
		return OutcomeTrue
	}
	return OutcomeFalse
}

// Node is an expression tree node: *Atom, *Not, *And or *Or.
type Node interface {
	// Evaluate walks the subtree, invoking atoms through inv, and returns the
	// boolean result. The result is also recorded on the node.
	Evaluate(ctx context.Context, inv Invoker) bool

	// Outcome returns the result recorded by the last evaluation.
	Outcome() Outcome

	// String returns the canonical textual form of the subtree.
	String() string

	reset()
	sealed()
}

// Atom invokes a single task unit.
type Atom struct {
	Name string
	Args []string

	outcome Outcome
	status  int
}

// Not negates its child. Child may be nil when the parser could not find an
// operand; such a node evaluates to false without invoking anything.
type Not struct {
	Child Node

	outcome Outcome
}

// And is true when every child is true.
// With ShortCircuit set, evaluation stops at the first false child.
type And struct {
	Children     []Node
	ShortCircuit bool

	outcome Outcome
}

// Or is true when at least one child is true.
// With ShortCircuit set, evaluation stops at the first true child.
type Or struct {
	Children     []Node
	ShortCircuit bool

	outcome Outcome
}

// NewAtom creates an atom for the named task.
func NewAtom(name string, args ...string) *Atom {
	return &Atom{Name: name, Args: args}
}

// NewNot creates a negation of child.
func NewNot(child Node) *Not {
	return &Not{Child: child}
}

// NewAnd creates an AND node.
func NewAnd(shortCircuit bool, children ...Node) *And {
	return &And{Children: children, ShortCircuit: shortCircuit}
}

// NewOr creates an OR node.
func NewOr(shortCircuit bool, children ...Node) *Or {
	return &Or{Children: children, ShortCircuit: shortCircuit}
}

// Status returns the status code of the last invocation.
// Only meaningful when Outcome is not OutcomeNone.
func (a *Atom) Status() int { return a.status }

func (a *Atom) Outcome() Outcome { return a.outcome }
func (n *Not) Outcome() Outcome  { return n.outcome }
func (n *And) Outcome() Outcome  { return n.outcome }
func (n *Or) Outcome() Outcome   { return n.outcome }

func (a *Atom) reset() { a.outcome, a.status = OutcomeNone, 0 }
func (n *Not) reset()  { n.outcome = OutcomeNone }
func (n *And) reset()  { n.outcome = OutcomeNone }
func (n *Or) reset()   { n.outcome = OutcomeNone }

func (*Atom) sealed() {}
func (*Not) sealed()  {}
func (*And) sealed()  {}
func (*Or) sealed()   {}

// Operator returns the operator token for the node: "&&" or "&".
func (n *And) Operator() string {
	if n.ShortCircuit {
		return "&&"
	}
	return "&"
}

// Operator returns the operator token for the node: "||" or "|".
func (n *Or) Operator() string {
	if n.ShortCircuit {
		return "||"
	}
	return "|"
}
