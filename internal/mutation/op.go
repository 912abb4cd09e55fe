// Package mutation defines the edit script a reconciler emits and a renderer
// backend applies, together with its wire encodings.
package mutation

import (
	"fmt"
	"strings"
)

// Op identifies a mutation.
type Op uint8

const (
	// OpRegisterTemplate announces a template id so the renderer can build
	// its clone prototype.
	OpRegisterTemplate Op = iota + 1
	// OpCloneNodeChildren instantiates a registered template and assigns
	// IDs to its addressable nodes, in template order.
	OpCloneNodeChildren
	// OpCreateElement pops Count nodes off the creation stack, appends them
	// to a new element and pushes it.
	OpCreateElement
	// OpCreateTextNode pushes a text node.
	OpCreateTextNode
	// OpCreatePlaceholder pushes an empty anchor node.
	OpCreatePlaceholder
	OpSetAttribute
	OpSetText
	OpAppendChildren
	OpInsertBefore
	OpInsertAfter
	OpRemove
	OpReplaceWith
	// OpFirstChild moves the cursor to the first child of the current node.
	OpFirstChild
	// OpNextSibling moves the cursor to the next sibling.
	OpNextSibling
	// OpSetLastNode moves the cursor to the node bound to ID.
	OpSetLastNode
	// OpStoreWithID binds ID to the node under the cursor.
	OpStoreWithID
	OpNewEventListener
	OpRemoveEventListener
)

var opNames = [...]string{
	OpRegisterTemplate:    "RegisterTemplate",
	OpCloneNodeChildren:   "CloneNodeChildren",
	OpCreateElement:       "CreateElement",
	OpCreateTextNode:      "CreateTextNode",
	OpCreatePlaceholder:   "CreatePlaceholder",
	OpSetAttribute:        "SetAttribute",
	OpSetText:             "SetText",
	OpAppendChildren:      "AppendChildren",
	OpInsertBefore:        "InsertBefore",
	OpInsertAfter:         "InsertAfter",
	OpRemove:              "Remove",
	OpReplaceWith:         "ReplaceWith",
	OpFirstChild:          "FirstChild",
	OpNextSibling:         "NextSibling",
	OpSetLastNode:         "SetLastNode",
	OpStoreWithID:         "StoreWithId",
	OpNewEventListener:    "NewEventListener",
	OpRemoveEventListener: "RemoveEventListener",
}

// Ops lists the vocabulary in op order.
func Ops() []Op {
	ops := make([]Op, 0, len(opNames)-1)
	for o := OpRegisterTemplate; int(o) < len(opNames); o++ {
		ops = append(ops, o)
	}
	return ops
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// ElementID is the renderer-visible address of a node. The low 32 bits are a
// table slot, the high 32 bits its reuse generation. ID 0 is the root
// container the application is mounted into.
type ElementID uint64

// Root is the container element.
const Root ElementID = 0

func (id ElementID) String() string {
	if gen := uint32(id >> 32); gen != 0 {
		return fmt.Sprintf("%d@%d", uint32(id), gen)
	}
	return fmt.Sprintf("%d", uint32(id))
}

func formatIDs(ids []ElementID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
