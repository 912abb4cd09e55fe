package testkit

import (
	"html"
	"maps"
	"slices"
	"strings"
)

// HTML serialises the children of the root container. Attributes are
// sorted, placeholders print as comments and listeners are omitted.
func (doc *Document) HTML() string {
	var sb strings.Builder
	for _, c := range doc.root.Children {
		writeHTML(&sb, c)
	}
	return sb.String()
}

// Indented is HTML with one node per line, for CLI dumps.
func (doc *Document) Indented() string {
	var sb strings.Builder
	for _, c := range doc.root.Children {
		writeIndented(&sb, c, 0)
	}
	return sb.String()
}

// TextContent concatenates every text node in document order.
func (doc *Document) TextContent() string {
	var sb strings.Builder
	doc.root.walk(func(n *Node) {
		if n.Kind == NodeText {
			sb.WriteString(n.Text)
		}
	})
	return sb.String()
}

func openTag(sb *strings.Builder, n *Node) {
	sb.WriteByte('<')
	sb.WriteString(n.Tag)
	for _, k := range slices.Sorted(maps.Keys(n.Attrs)) {
		sb.WriteByte(' ')
		sb.WriteString(k)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(n.Attrs[k].String()))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
}

func writeHTML(sb *strings.Builder, n *Node) {
	switch n.Kind {
	case NodeText:
		sb.WriteString(html.EscapeString(n.Text))
	case NodePlaceholder:
		sb.WriteString("<!--placeholder-->")
	case NodeElement:
		openTag(sb, n)
		for _, c := range n.Children {
			writeHTML(sb, c)
		}
		sb.WriteString("</" + n.Tag + ">")
	}
}

func writeIndented(sb *strings.Builder, n *Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	switch n.Kind {
	case NodeText:
		sb.WriteString(html.EscapeString(n.Text))
	case NodePlaceholder:
		sb.WriteString("<!--placeholder-->")
	case NodeElement:
		if len(n.Children) == 0 {
			openTag(sb, n)
			sb.WriteString("</" + n.Tag + ">\n")
			return
		}
		openTag(sb, n)
		sb.WriteByte('\n')
		for _, c := range n.Children {
			writeIndented(sb, c, depth+1)
		}
		sb.WriteString(strings.Repeat("  ", depth) + "</" + n.Tag + ">")
	}
	sb.WriteByte('\n')
}
