// Package halconfig models the hal configuration document as a tree of typed
// nodes. It provides parent wiring, filter-based lookup, structural diffing
// and validation into severity-leveled problem sets.
package halconfig

import "strings"

// Node is an element of the halconfig tree.
//
// Children are declared by each node type rather than discovered at runtime,
// so Children always returns direct descendants in a stable order and never
// includes nil entries.
type Node interface {
	// NodeName identifies the node among its siblings.
	NodeName() string

	// Parent returns the enclosing node, or nil for the root.
	Parent() Node

	// Children returns the direct child nodes.
	Children() []Node

	setParent(Node)
	matches(NodeFilter) bool
}

// container marks structural nodes that are skipped in qualified names and
// always match a filter.
type container interface {
	isContainer()
}

// nodeBase holds the weak parent back-reference shared by every node.
type nodeBase struct {
	parent Node
}

// Parent returns the enclosing node.
func (b *nodeBase) Parent() Node { return b.parent }

func (b *nodeBase) setParent(p Node) { b.parent = p }

// Parentify wires the parent reference of every descendant of n and settles
// each provider's primary account. It is safe to call repeatedly and must be
// re-run after structural mutation.
func Parentify(n Node) {
	if p, ok := n.(ProviderNode); ok {
		p.ResolvePrimary()
	}
	for _, child := range n.Children() {
		child.setParent(n)
		Parentify(child)
	}
}

// Walk calls fn for n and every descendant in depth-first order.
func Walk(n Node, fn func(Node)) {
	fn(n)
	for _, child := range n.Children() {
		Walk(child, fn)
	}
}

// QualifiedName returns the dotted path from the deployment to n, for
// example "prod.kubernetes.k8s-1". Structural containers are omitted.
func QualifiedName(n Node) string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		if _, ok := cur.(container); ok {
			continue
		}
		parts = append(parts, cur.NodeName())
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// ParentOfType returns the closest ancestor of n with type T.
func ParentOfType[T Node](n Node) (T, bool) {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if typed, ok := cur.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

// MatchesToRoot reports whether n and every one of its ancestors satisfy f.
func MatchesToRoot(n Node, f NodeFilter) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if !cur.matches(f) {
			return false
		}
	}
	return true
}

// MatchesLocally reports whether n alone satisfies f.
func MatchesLocally(n Node, f NodeFilter) bool {
	return n.matches(f)
}
