package mutation

import (
	"fmt"
	"strings"
)

// Mutation is one edit. Only the fields relevant to Op are set.
type Mutation struct {
	Op        Op          `msgpack:"op" json:"op"`
	ID        ElementID   `msgpack:"id,omitempty" json:"id,omitempty"`
	Template  uint32      `msgpack:"tpl,omitempty" json:"template,omitempty"`
	Name      string      `msgpack:"name,omitempty" json:"name,omitempty"`
	Namespace string      `msgpack:"ns,omitempty" json:"namespace,omitempty"`
	Text      string      `msgpack:"text,omitempty" json:"text,omitempty"`
	Value     Value       `msgpack:"val,omitempty" json:"value"`
	Count     int         `msgpack:"n,omitempty" json:"count,omitempty"`
	IDs       []ElementID `msgpack:"ids,omitempty" json:"ids,omitempty"`
}

func RegisterTemplate(tpl uint32, name string) Mutation {
	return Mutation{Op: OpRegisterTemplate, Template: tpl, Name: name}
}

func CloneNodeChildren(tpl uint32, ids []ElementID) Mutation {
	return Mutation{Op: OpCloneNodeChildren, Template: tpl, IDs: ids}
}

func CreateElement(tag, namespace string, childCount int) Mutation {
	return Mutation{Op: OpCreateElement, Name: tag, Namespace: namespace, Count: childCount}
}

func CreateTextNode(text string) Mutation {
	return Mutation{Op: OpCreateTextNode, Text: text}
}

func CreatePlaceholder() Mutation {
	return Mutation{Op: OpCreatePlaceholder}
}

func SetAttribute(id ElementID, name string, value Value, namespace string) Mutation {
	return Mutation{Op: OpSetAttribute, ID: id, Name: name, Value: value, Namespace: namespace}
}

func SetText(id ElementID, text string) Mutation {
	return Mutation{Op: OpSetText, ID: id, Text: text}
}

func AppendChildren(parent ElementID, children []ElementID) Mutation {
	return Mutation{Op: OpAppendChildren, ID: parent, IDs: children}
}

func InsertBefore(anchor ElementID, nodes []ElementID) Mutation {
	return Mutation{Op: OpInsertBefore, ID: anchor, IDs: nodes}
}

func InsertAfter(anchor ElementID, nodes []ElementID) Mutation {
	return Mutation{Op: OpInsertAfter, ID: anchor, IDs: nodes}
}

func Remove(id ElementID) Mutation {
	return Mutation{Op: OpRemove, ID: id}
}

func ReplaceWith(id ElementID, nodes []ElementID) Mutation {
	return Mutation{Op: OpReplaceWith, ID: id, IDs: nodes}
}

func FirstChild() Mutation { return Mutation{Op: OpFirstChild} }

func NextSibling() Mutation { return Mutation{Op: OpNextSibling} }

func SetLastNode(id ElementID) Mutation {
	return Mutation{Op: OpSetLastNode, ID: id}
}

func StoreWithID(id ElementID) Mutation {
	return Mutation{Op: OpStoreWithID, ID: id}
}

func NewEventListener(id ElementID, name string) Mutation {
	return Mutation{Op: OpNewEventListener, ID: id, Name: name}
}

func RemoveEventListener(id ElementID, name string) Mutation {
	return Mutation{Op: OpRemoveEventListener, ID: id, Name: name}
}

// String renders the mutation in the text format used by golden tests and
// the CLI.
func (m Mutation) String() string {
	var sb strings.Builder
	sb.WriteString(m.Op.String())
	switch m.Op {
	case OpRegisterTemplate:
		fmt.Fprintf(&sb, " template=%d name=%q", m.Template, m.Name)
	case OpCloneNodeChildren:
		fmt.Fprintf(&sb, " template=%d ids=%s", m.Template, formatIDs(m.IDs))
	case OpCreateElement:
		fmt.Fprintf(&sb, " tag=%s", m.Name)
		if m.Namespace != "" {
			fmt.Fprintf(&sb, " ns=%s", m.Namespace)
		}
		fmt.Fprintf(&sb, " children=%d", m.Count)
	case OpCreateTextNode:
		fmt.Fprintf(&sb, " text=%q", m.Text)
	case OpSetAttribute:
		fmt.Fprintf(&sb, " id=%s name=%s", m.ID, m.Name)
		if m.Namespace != "" {
			fmt.Fprintf(&sb, " ns=%s", m.Namespace)
		}
		if m.Value.Kind == ValueNone {
			sb.WriteString(" value=none")
		} else {
			fmt.Fprintf(&sb, " value=%q", m.Value.String())
		}
	case OpSetText:
		fmt.Fprintf(&sb, " id=%s text=%q", m.ID, m.Text)
	case OpAppendChildren, OpInsertBefore, OpInsertAfter, OpReplaceWith:
		fmt.Fprintf(&sb, " id=%s nodes=%s", m.ID, formatIDs(m.IDs))
	case OpRemove, OpSetLastNode, OpStoreWithID:
		fmt.Fprintf(&sb, " id=%s", m.ID)
	case OpNewEventListener, OpRemoveEventListener:
		fmt.Fprintf(&sb, " id=%s name=%s", m.ID, m.Name)
	}
	return sb.String()
}
