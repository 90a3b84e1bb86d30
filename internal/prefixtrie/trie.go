// Package prefixtrie implements the binary trie over prefix bits used to
// deduplicate nested registry allocations: only the most-specific
// (leaf) prefix along any branch is authoritative.
//
// Ownership follows the arena-by-parent shape the pack's routing-table
// implementations (gaissmai/bart) use for their node trees: each node is
// exclusively owned by its parent, so no shared references or cycles are
// possible by construction.
package prefixtrie

import "github.com/dn42/regsynth/internal/prefix"

type node struct {
	p          prefix.Prefix
	zero, one  *node
}

// Tree is a binary trie over prefix bits. The zero value is an empty tree.
type Tree struct {
	root *node
	fam  prefix.Family
}

// New creates an empty tree for the given address family.
func New(fam prefix.Family) *Tree {
	return &Tree{fam: fam}
}

// Insert adds p to the tree. Duplicate inserts are idempotent; insertion
// order does not affect the final shape or leaf set.
func (t *Tree) Insert(p prefix.Prefix) {
	if t.root == nil {
		zero, _ := p.WithPrefixLen(0)
		t.root = &node{p: zero}
	}

	bits := p.GetBits()
	cur := t.root
	for i := 0; i < len(bits); i++ {
		next, _ := p.WithPrefixLen(uint8(i + 1))
		if bits[i] == 0 {
			if cur.zero == nil {
				cur.zero = &node{p: next}
			}
			cur = cur.zero
		} else {
			if cur.one == nil {
				cur.one = &node{p: next}
			}
			cur = cur.one
		}
	}
}

// VisitLeaves calls f once per leaf node (a node with neither child), in
// depth-first order. f is never called for internal nodes. A tree holding
// only the root (the zero-length default prefix) reports that root as the
// sole leaf.
func (t *Tree) VisitLeaves(f func(prefix.Prefix)) {
	if t.root == nil {
		return
	}
	visit(t.root, f)
}

func visit(n *node, f func(prefix.Prefix)) {
	if n.zero == nil && n.one == nil {
		f(n.p)
		return
	}
	if n.zero != nil {
		visit(n.zero, f)
	}
	if n.one != nil {
		visit(n.one, f)
	}
}

// Leaves collects VisitLeaves into a slice, for convenience in tests and
// callers that don't need streaming.
func (t *Tree) Leaves() []prefix.Prefix {
	var out []prefix.Prefix
	t.VisitLeaves(func(p prefix.Prefix) { out = append(out, p) })
	return out
}
