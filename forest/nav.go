package forest

import "github.com/seqtree/forest/tree"

// Nav is a cursor over the forest: a node view plus the forest needed to
// resolve cross-chunk edges and parent queries. Navigation that stays inside
// a uniform chunk never looks anything up in the forest.
type Nav struct {
	f    *Forest
	view Node
}

// NavFrom returns a cursor anchored at the node with the given id.
func (f *Forest) NavFrom(id tree.NodeId) (Nav, bool) {
	n, ok := f.FindNode(id)
	if !ok {
		return Nav{}, false
	}
	return Nav{f: f, view: n}, true
}

func (n Nav) ID() tree.NodeId { return n.view.ID() }

func (n Nav) Def() tree.Def { return n.view.Def() }

func (n Nav) Payload() ([]byte, bool) { return n.view.Payload() }

// NavParent is a cursor's parent: another cursor plus the label the child
// hangs under.
type NavParent struct {
	Node  Nav
	Label tree.Label
}

func (n Nav) Parent() (NavParent, bool) {
	p, ok := n.f.Parent(n.view)
	if !ok {
		return NavParent{}, false
	}
	return NavParent{Node: Nav{f: n.f, view: p.Node}, Label: p.Label}, true
}

// Traits returns the labels of the node's traits, in no particular order. A
// label whose trait holds no children is still listed.
func (n Nav) Traits() []tree.Label { return n.view.Labels() }

// Trait returns an iterator over the node's children under label, resolving
// edges to other chunks through the forest. An absent trait iterates zero
// nodes.
func (n Nav) Trait(label tree.Label) *TraitNav {
	return &TraitNav{f: n.f, source: n.view.Trait(label)}
}

// TraitNav flattens the node-view's children with the expansions of any
// chunk edges among them: an edge to a uniform chunk denotes that chunk's
// whole run of top-level nodes.
type TraitNav struct {
	f       *Forest
	source  TraitIter
	pending Expander
}

func (t *TraitNav) Next() (Nav, bool) {
	// Drain an in-flight expansion first.
	if n, ok := t.pending.Next(); ok {
		return Nav{f: t.f, view: n}, true
	}
	ch, ok := t.source.Next()
	if !ok {
		return Nav{}, false
	}
	if !ch.isChunk {
		return Nav{f: t.f, view: uniformNode(ch.node)}, true
	}
	t.pending = t.f.Expand(ch)
	n, ok := t.pending.Next()
	if !ok {
		// A chunk always has at least one top level node.
		panic("forest: empty chunk expansion")
	}
	return Nav{f: t.f, view: n}, true
}

// Expand yields the sequence of logical nodes a child reference denotes. An
// in-chunk child denotes itself. A chunk edge denotes the target chunk's top
// level nodes; a dangling edge is a contract violation and panics.
func (f *Forest) Expand(ch Child) Expander {
	if !ch.isChunk {
		return Expander{single: uniformNode(ch.node), hasSingle: true}
	}
	c, ok := f.FindNodes(ch.id)
	if !ok {
		panic("forest: child references missing chunk")
	}
	return c.TopLevelNodes(tree.NodeId(ch.id))
}

// Walk visits n and all its descendants in pre-order, stopping early when fn
// returns false. It reports whether the walk ran to completion.
func (n Nav) Walk(fn func(Nav) bool) bool {
	if !fn(n) {
		return false
	}
	for _, label := range n.Traits() {
		it := n.Trait(label)
		for {
			child, ok := it.Next()
			if !ok {
				break
			}
			if !child.Walk(fn) {
				return false
			}
		}
	}
	return true
}
