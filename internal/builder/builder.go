// Package builder synthesizes flowgraphs from statement trees. Each
// synthesis rule takes the current tail node and returns the new tail,
// so rules compose by simple sequencing.
package builder

import (
	"fmt"
	"strings"

	"github.com/kyle0527/mermaid-dist/internal/flowgraph"
	"github.com/kyle0527/mermaid-dist/internal/pyast"
)

// maxDepth caps statement nesting. Blocks deeper than this collapse
// into a single summary node instead of recursing further.
const maxDepth = 200

// Module synthesizes the graph for a module-level statement sequence.
func Module(title string, body []pyast.Stmt) *flowgraph.Graph {
	g := flowgraph.New(title)
	last := buildBlock(g, body, g.Start, 0)
	g.Link(last, g.End)
	return g
}

// Function synthesizes the graph for one function body. The graph is
// titled with the "name(a, b)" signature.
func Function(fn *pyast.FuncDef) *flowgraph.Graph {
	g := flowgraph.New(fn.Signature())
	last := buildBlock(g, fn.Body, g.Start, 0)
	g.Link(last, g.End)
	return g
}

func buildBlock(g *flowgraph.Graph, stmts []pyast.Stmt, last *flowgraph.Node, depth int) *flowgraph.Node {
	for _, s := range stmts {
		last = buildStmt(g, s, last, depth)
	}
	return last
}

func buildStmt(g *flowgraph.Graph, s pyast.Stmt, last *flowgraph.Node, depth int) *flowgraph.Node {
	if depth >= maxDepth {
		n := g.Add(flowgraph.KindOperation, "... (nesting too deep)")
		g.Link(last, n)
		return n
	}

	switch s := s.(type) {
	case *pyast.If:
		cond := g.Add(flowgraph.KindCondition, "if "+s.Test)
		g.Link(last, cond)
		trueTail := buildBlock(g, s.Body, cond, depth+1)
		// The merge node is allocated only after both branches, so ids
		// run condition, true branch, false branch, merge.
		if len(s.Else) > 0 {
			falseTail := buildBlock(g, s.Else, cond, depth+1)
			merge := g.Add(flowgraph.KindOperation, "merge")
			g.Link(trueTail, merge)
			g.Link(falseTail, merge)
			return merge
		}
		merge := g.Add(flowgraph.KindOperation, "merge")
		g.Link(trueTail, merge)
		g.Link(cond, merge) // false fall-through
		return merge

	case *pyast.For:
		kw := "for"
		if s.Async {
			kw = "async for"
		}
		hdr := g.Add(flowgraph.KindCondition, fmt.Sprintf("%s %s in %s", kw, s.Target, s.Iter))
		g.Link(last, hdr)
		bodyTail := buildBlock(g, s.Body, hdr, depth+1)
		g.Link(bodyTail, hdr) // loop back
		merge := g.Add(flowgraph.KindOperation, "after "+kw)
		g.Link(hdr, merge) // zero-iteration exit
		return merge

	case *pyast.While:
		hdr := g.Add(flowgraph.KindCondition, "while "+s.Test)
		g.Link(last, hdr)
		bodyTail := buildBlock(g, s.Body, hdr, depth+1)
		g.Link(bodyTail, hdr) // loop back
		merge := g.Add(flowgraph.KindOperation, "after while")
		g.Link(hdr, merge)
		return merge

	case *pyast.With:
		kw := "with"
		if s.Async {
			kw = "async with"
		}
		hdr := g.Add(flowgraph.KindOperation, kw+" "+s.Items)
		g.Link(last, hdr)
		return buildBlock(g, s.Body, hdr, depth+1)

	case *pyast.Try:
		hdr := g.Add(flowgraph.KindOperation, "try")
		g.Link(last, hdr)
		tryTail := buildBlock(g, s.Body, hdr, depth+1)
		exits := []*flowgraph.Node{tryTail}
		for _, h := range s.Handlers {
			// Handlers continue from the try node itself, not from
			// its normal exit.
			hn := g.Add(flowgraph.KindOperation, strings.TrimSpace("except "+h.Type))
			g.Link(hdr, hn)
			exits = append(exits, buildBlock(g, h.Body, hn, depth+1))
		}
		if len(s.Else) > 0 {
			// The else clause only runs when no exception fired, so
			// its tail replaces the try tail among the exits.
			en := g.Add(flowgraph.KindOperation, "else")
			g.Link(tryTail, en)
			exits[0] = buildBlock(g, s.Else, en, depth+1)
		}
		if len(s.Final) > 0 {
			fn := g.Add(flowgraph.KindOperation, "finally")
			for _, e := range exits {
				g.Link(e, fn)
			}
			return buildBlock(g, s.Final, fn, depth+1)
		}
		merge := g.Add(flowgraph.KindOperation, "after try")
		for _, e := range exits {
			g.Link(e, merge)
		}
		return merge

	case *pyast.Match:
		head := g.Add(flowgraph.KindOperation, "match "+s.Subject)
		g.Link(last, head)
		var exits []*flowgraph.Node
		for _, c := range s.Cases {
			lab := "case " + c.Pattern
			if c.Guard != "" {
				lab += " if " + c.Guard
			}
			branch := g.Add(flowgraph.KindOperation, lab)
			g.Link(head, branch)
			exits = append(exits, buildBlock(g, c.Body, branch, depth+1))
		}
		merge := g.Add(flowgraph.KindOperation, "after match")
		for _, e := range exits {
			g.Link(e, merge)
		}
		if len(exits) == 0 {
			// Python rejects a match with no cases, so this arm only
			// fires for hand-built trees; keep the graph closed rather
			// than leaving the merge unreachable.
			g.Link(head, merge)
		}
		return merge

	case *pyast.FuncDef:
		lab := fmt.Sprintf("def %s(...)", s.Name)
		if s.Async {
			lab = "async " + lab
		}
		n := g.Add(flowgraph.KindOperation, lab)
		g.Link(last, n)
		return n

	case *pyast.ClassDef:
		n := g.Add(flowgraph.KindOperation, "class "+s.Name)
		g.Link(last, n)
		return n

	case *pyast.Return:
		n := g.Add(flowgraph.KindOperation, "return "+s.Value)
		g.Link(last, n)
		// Termination edge; later statements still chain from this
		// node in source order.
		g.Link(n, g.End)
		return n

	case *pyast.Raise:
		n := g.Add(flowgraph.KindOperation, "raise "+s.Exc)
		g.Link(last, n)
		g.Link(n, g.End)
		return n

	case *pyast.Break:
		n := g.Add(flowgraph.KindOperation, "break")
		g.Link(last, n)
		return n

	case *pyast.Continue:
		n := g.Add(flowgraph.KindOperation, "continue")
		g.Link(last, n)
		return n

	case *pyast.Simple:
		n := g.Add(flowgraph.KindOperation, s.Text)
		g.Link(last, n)
		return n

	default:
		// Unmodeled variant: degrade to a generic labeled node.
		lab := strings.TrimPrefix(fmt.Sprintf("%T", s), "*pyast.")
		n := g.Add(flowgraph.KindOperation, lab)
		g.Link(last, n)
		return n
	}
}
