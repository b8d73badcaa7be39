package expr

import (
	"context"
	"log/slog"
)

// Evaluate clears every outcome recorded by a previous pass and evaluates root.
// Children skipped by short-circuiting therefore report OutcomeNone afterwards.
func Evaluate(ctx context.Context, root Node, inv Invoker) bool {
	Walk(root, func(n Node) bool {
		n.reset()
		return true
	})
	return root.Evaluate(ctx, inv)
}

// Evaluate invokes the task exactly once. Status 0 maps to true.
func (a *Atom) Evaluate(ctx context.Context, inv Invoker) bool {
	a.status = inv.Invoke(ctx, a.Name, a.Args)
	result := a.status == 0
	a.outcome = outcomeOf(result)
	return result
}

// Evaluate negates the child's result. The child is still evaluated.
func (n *Not) Evaluate(ctx context.Context, inv Invoker) bool {
	if n.Child == nil {
		slog.Warn("NOT operator with no operand evaluates to false")
		n.outcome = OutcomeFalse
		return false
	}
	childResult := n.Child.Evaluate(ctx, inv)
	result := !childResult
	slog.Debug("NOT operator", "child", childResult, "result", result)
	n.outcome = outcomeOf(result)
	return result
}

// Evaluate runs children left to right.
func (n *And) Evaluate(ctx context.Context, inv Invoker) bool {
	result := true
	for i, child := range n.Children {
		if child.Evaluate(ctx, inv) {
			continue
		}
		result = false
		if n.ShortCircuit {
			slog.Debug("short-circuit AND: stopping at first false operand",
				"operand", i, "skipped", len(n.Children)-i-1)
			break
		}
	}
	n.outcome = outcomeOf(result)
	return result
}

// Evaluate runs children left to right.
func (n *Or) Evaluate(ctx context.Context, inv Invoker) bool {
	result := false
	for i, child := range n.Children {
		if !child.Evaluate(ctx, inv) {
			continue
		}
		result = true
		if n.ShortCircuit {
			slog.Debug("short-circuit OR: stopping at first true operand",
				"operand", i, "skipped", len(n.Children)-i-1)
			break
		}
	}
	n.outcome = outcomeOf(result)
	return result
}
