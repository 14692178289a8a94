// Package flowgraph provides the in-memory flowchart model and its
// Mermaid serialization.
package flowgraph

import (
	"fmt"
	"strings"
)

// Kind represents the type of a flowchart node.
type Kind string

const (
	KindStart     Kind = "start"
	KindOperation Kind = "op"
	KindCondition Kind = "cond"
	KindEnd       Kind = "end"
)

// Node is a single flowchart node. ID is assigned at creation from the
// node's position in the graph's arena ("n0", "n1", ...) and is only
// unique within that graph.
type Node struct {
	Kind  Kind
	Label string
	ID    string
	Next  []*Node
}

// Graph is an ordered arena of nodes with distinguished start and end
// nodes. It is built by a single synthesis pass and then read-only.
type Graph struct {
	Title string
	Nodes []*Node
	Start *Node
	End   *Node
}

// New creates a graph with its start and end nodes already allocated.
func New(title string) *Graph {
	g := &Graph{Title: title}
	g.Start = g.Add(KindStart, "Start: "+title)
	g.End = g.Add(KindEnd, "End")
	return g
}

// Add creates a node, assigns the next sequential id, and appends it
// to the arena.
func (g *Graph) Add(kind Kind, label string) *Node {
	n := &Node{
		Kind:  kind,
		Label: label,
		ID:    fmt.Sprintf("n%d", len(g.Nodes)),
	}
	g.Nodes = append(g.Nodes, n)
	return n
}

// Link appends b to a's successor list. Linking an already-linked pair
// is a no-op, so edges are never duplicated.
func (g *Graph) Link(a, b *Node) {
	for _, m := range a.Next {
		if m == b {
			return
		}
	}
	a.Next = append(a.Next, b)
}

// EscapeLabel makes a string safe inside a quoted Mermaid node label.
// Substitution order matters: backslashes first, then quotes, then
// newline normalization, then angle brackets (strict security mode
// renders labels as HTML otherwise), then backticks (the chart text is
// later wrapped in fenced code blocks).
func EscapeLabel(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `"`, `\"`)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\n", `\n`)
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = strings.ReplaceAll(text, "`", "\\`")
	return text
}

// ToMermaid renders the graph as a Mermaid "flowchart TD" description.
// Output is deterministic: node declarations in creation order, then
// edges in node-then-successor order. The first two successors of a
// condition node are labeled True and False by position; any further
// successor is unlabeled.
func (g *Graph) ToMermaid() string {
	var b strings.Builder
	b.WriteString("flowchart TD")

	for _, n := range g.Nodes {
		text := EscapeLabel(n.Label)
		b.WriteString("\n    ")
		switch n.Kind {
		case KindCondition:
			b.WriteString(fmt.Sprintf(`%s{"%s"}`, n.ID, text))
		case KindStart, KindEnd:
			b.WriteString(fmt.Sprintf("%s([ %s ])", n.ID, text))
		default:
			b.WriteString(fmt.Sprintf(`%s["%s"]`, n.ID, text))
		}
	}

	for _, n := range g.Nodes {
		for idx, m := range n.Next {
			b.WriteString("\n    ")
			label := ""
			if n.Kind == KindCondition {
				switch idx {
				case 0:
					label = "True"
				case 1:
					label = "False"
				}
			}
			if label != "" {
				b.WriteString(fmt.Sprintf("%s -->|%s| %s", n.ID, label, m.ID))
			} else {
				b.WriteString(fmt.Sprintf("%s --> %s", n.ID, m.ID))
			}
		}
	}

	return b.String()
}
