package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"loom/internal/mutation"
)

// CheckInvariants runs structural checks on a document after a drain:
// 1) the creation stack is empty, every created node was attached
// 2) parent and child links agree
// 3) every bound id points into the tree under the root container
// 4) text and placeholder nodes have no children
func (doc *Document) CheckInvariants() error {
	if len(doc.stack) != 0 {
		return fmt.Errorf("%d created nodes were never attached", len(doc.stack))
	}

	// 2) link agreement, 4) leaf shapes
	inTree := make(map[*Node]bool)
	var check func(n *Node, depth int) error
	check = func(n *Node, depth int) error {
		inTree[n] = true
		if (n.Kind == NodeText || n.Kind == NodePlaceholder) && len(n.Children) != 0 {
			return fmt.Errorf("leaf node at depth %d has %d children", depth, len(n.Children))
		}
		for i, c := range n.Children {
			if c.Parent != n {
				return fmt.Errorf("child %d at depth %d has a foreign parent", i, depth)
			}
			if inTree[c] {
				return fmt.Errorf("node attached twice at depth %d", depth+1)
			}
			if err := check(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(doc.root, 0); err != nil {
		return err
	}

	// 3) bound ids
	for id, n := range doc.ids {
		if !inTree[n] {
			return fmt.Errorf("element %s is bound to a detached node", id)
		}
	}
	return nil
}

// Stats counts bound ids and nodes reachable from the root container.
func (doc *Document) Stats() (ids, nodes uint32, err error) {
	ids, err = safecast.Conv[uint32](len(doc.ids) - 1)
	if err != nil {
		return 0, 0, fmt.Errorf("id count overflow: %w", err)
	}
	count := 0
	doc.root.walk(func(*Node) { count++ })
	nodes, err = safecast.Conv[uint32](count - 1)
	if err != nil {
		return 0, 0, fmt.Errorf("node count overflow: %w", err)
	}
	return ids, nodes, nil
}

// Bound reports whether id is bound.
func (doc *Document) Bound(id mutation.ElementID) bool {
	_, ok := doc.ids[id]
	return ok
}
