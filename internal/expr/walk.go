package expr

import (
	"slices"
)

// Walk visits n and its descendants depth-first in child order.
// If fn returns false the node's children are skipped. A nil n is ignored.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Not:
		Walk(v.Child, fn)
	case *And:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	case *Or:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	}
}

// Names returns the distinct task names referenced anywhere in the tree,
// sorted ascending.
func Names(root Node) []string {
	seen := make(map[string]struct{})
	var names []string
	Walk(root, func(n Node) bool {
		if a, ok := n.(*Atom); ok {
			if _, dup := seen[a.Name]; !dup {
				seen[a.Name] = struct{}{}
				names = append(names, a.Name)
			}
		}
		return true
	})
	slices.Sort(names)
	return names
}

// Atoms returns every atom in evaluation order, duplicates included.
func Atoms(root Node) []*Atom {
	var atoms []*Atom
	Walk(root, func(n Node) bool {
		if a, ok := n.(*Atom); ok {
			atoms = append(atoms, a)
		}
		return true
	})
	return atoms
}

// Equal reports whether a and b have the same structure, operators, names and
// arguments. Recorded outcomes are ignored.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Atom:
		y, ok := b.(*Atom)
		return ok && x.Name == y.Name && slices.Equal(normArgs(x.Args), normArgs(y.Args))
	case *Not:
		y, ok := b.(*Not)
		return ok && Equal(x.Child, y.Child)
	case *And:
		y, ok := b.(*And)
		return ok && x.ShortCircuit == y.ShortCircuit && equalChildren(x.Children, y.Children)
	case *Or:
		y, ok := b.(*Or)
		return ok && x.ShortCircuit == y.ShortCircuit && equalChildren(x.Children, y.Children)
	}
	return false
}

func equalChildren(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// normArgs treats nil and empty argument lists alike.
func normArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	return args
}
