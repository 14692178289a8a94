package pyast

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrSyntax reports that tree-sitter produced an error node anywhere in
// the parse; callers skip the file and continue.
var ErrSyntax = errors.New("syntax error")

// Parser wraps a tree-sitter parser configured for Python.
type Parser struct {
	p *sitter.Parser
}

// NewParser creates a Python parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{p: p}
}

// ParseModule parses source content and lowers it to a Module.
func (p *Parser) ParseModule(content []byte) (*Module, error) {
	tree, err := p.p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}
	return &Module{Body: lowerBlock(root, content)}, nil
}

// render returns the source text of a node. The second return is false
// when there is nothing usable to render.
func render(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	text := strings.TrimSpace(n.Content(src))
	if text == "" {
		return "", false
	}
	return text, true
}

// label renders a node's source text, degrading silently to the CST
// type name when rendering yields nothing. Never fails.
func label(n *sitter.Node, src []byte) string {
	if text, ok := render(n, src); ok {
		return text
	}
	if n == nil {
		return ""
	}
	return n.Type()
}

// optText is like label but returns "" for a nil node.
func optText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return label(n, src)
}

func lowerBlock(block *sitter.Node, src []byte) []Stmt {
	var stmts []Stmt
	if block == nil {
		return stmts
	}
	for i := 0; i < int(block.NamedChildCount()); i++ {
		if s := lowerStmt(block.NamedChild(i), src); s != nil {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func lowerStmt(n *sitter.Node, src []byte) Stmt {
	switch n.Type() {
	case "comment":
		return nil

	case "if_statement":
		return lowerIf(n, src)

	case "for_statement":
		return &For{
			Async:  isAsync(n),
			Target: label(n.ChildByFieldName("left"), src),
			Iter:   label(n.ChildByFieldName("right"), src),
			Body:   lowerBlock(n.ChildByFieldName("body"), src),
		}

	case "while_statement":
		return &While{
			Test: label(n.ChildByFieldName("condition"), src),
			Body: lowerBlock(n.ChildByFieldName("body"), src),
		}

	case "try_statement":
		return lowerTry(n, src)

	case "with_statement":
		return lowerWith(n, src)

	case "match_statement":
		return lowerMatch(n, src)

	case "function_definition":
		return lowerFunc(n, src)

	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			return lowerStmt(def, src)
		}
		return &Simple{Text: label(n, src)}

	case "class_definition":
		return &ClassDef{Name: optText(n.ChildByFieldName("name"), src)}

	case "return_statement":
		var val string
		if n.NamedChildCount() > 0 {
			val = label(n.NamedChild(0), src)
		}
		return &Return{Value: val}

	case "raise_statement":
		var exc string
		if n.NamedChildCount() > 0 {
			exc = label(n.NamedChild(0), src)
		}
		return &Raise{Exc: exc}

	case "break_statement":
		return &Break{}

	case "continue_statement":
		return &Continue{}

	case "expression_statement":
		// Unwrap the single wrapped expression or assignment so the
		// label reads like the source line.
		if n.NamedChildCount() == 1 {
			return &Simple{Text: label(n.NamedChild(0), src)}
		}
		return &Simple{Text: label(n, src)}

	default:
		return &Simple{Text: label(n, src)}
	}
}

// lowerIf folds the flat alternative list (elif_clause*, else_clause?)
// into nested If values, innermost first.
func lowerIf(n *sitter.Node, src []byte) Stmt {
	top := &If{
		Test: label(n.ChildByFieldName("condition"), src),
		Body: lowerBlock(n.ChildByFieldName("consequence"), src),
	}

	var elifs []*sitter.Node
	var elseBody []Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "elif_clause":
			elifs = append(elifs, c)
		case "else_clause":
			elseBody = lowerBlock(c.ChildByFieldName("body"), src)
		}
	}

	// Build the chain from the last elif backwards.
	tail := elseBody
	for i := len(elifs) - 1; i >= 0; i-- {
		c := elifs[i]
		nested := &If{
			Test: label(c.ChildByFieldName("condition"), src),
			Body: lowerBlock(c.ChildByFieldName("consequence"), src),
			Else: tail,
		}
		tail = []Stmt{nested}
	}
	top.Else = tail
	return top
}

func lowerTry(n *sitter.Node, src []byte) Stmt {
	t := &Try{Body: lowerBlock(n.ChildByFieldName("body"), src)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "except_clause", "except_group_clause":
			t.Handlers = append(t.Handlers, lowerHandler(c, src))
		case "else_clause":
			t.Else = lowerBlock(c.ChildByFieldName("body"), src)
		case "finally_clause":
			t.Final = lowerBlock(lastBlockChild(c), src)
		}
	}
	return t
}

// lowerHandler extracts the handled type (alias dropped) and body of an
// except clause. The clause's named children are the optional type
// expression(s) followed by the block.
func lowerHandler(c *sitter.Node, src []byte) Handler {
	h := Handler{}
	for i := 0; i < int(c.NamedChildCount()); i++ {
		child := c.NamedChild(i)
		if child.Type() == "block" {
			h.Body = lowerBlock(child, src)
			continue
		}
		if h.Type == "" {
			// "except E as e" keeps only the handled type.
			if child.Type() == "as_pattern" && child.NamedChildCount() > 0 {
				child = child.NamedChild(0)
			}
			h.Type = label(child, src)
		}
	}
	return h
}

func lowerWith(n *sitter.Node, src []byte) Stmt {
	w := &With{
		Async: isAsync(n),
		Body:  lowerBlock(n.ChildByFieldName("body"), src),
	}

	var items []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "with_clause" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			item := c.NamedChild(j)
			if item.Type() != "with_item" {
				continue
			}
			val := item.ChildByFieldName("value")
			if val == nil && item.NamedChildCount() > 0 {
				val = item.NamedChild(0)
			}
			// "expr as alias" keeps only the context expression.
			if val != nil && val.Type() == "as_pattern" && val.NamedChildCount() > 0 {
				val = val.NamedChild(0)
			}
			if text, ok := render(val, src); ok {
				items = append(items, text)
			}
		}
	}
	w.Items = strings.Join(items, "; ")
	return w
}

func lowerMatch(n *sitter.Node, src []byte) Stmt {
	m := &Match{}

	var subjects []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "block":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if cc := c.NamedChild(j); cc.Type() == "case_clause" {
					m.Cases = append(m.Cases, lowerCase(cc, src))
				}
			}
		case "comment":
		default:
			if text, ok := render(c, src); ok {
				subjects = append(subjects, text)
			}
		}
	}
	m.Subject = strings.Join(subjects, ", ")
	return m
}

func lowerCase(c *sitter.Node, src []byte) Case {
	cs := Case{}
	var patterns []string
	for i := 0; i < int(c.NamedChildCount()); i++ {
		child := c.NamedChild(i)
		switch child.Type() {
		case "case_pattern":
			if text, ok := render(child, src); ok {
				patterns = append(patterns, text)
			}
		case "if_clause":
			// Guard: "if <expr>".
			if child.NamedChildCount() > 0 {
				cs.Guard = label(child.NamedChild(0), src)
			}
		case "block":
			cs.Body = lowerBlock(child, src)
		}
	}
	if guard := c.ChildByFieldName("guard"); guard != nil && cs.Guard == "" {
		if guard.NamedChildCount() > 0 {
			cs.Guard = label(guard.NamedChild(0), src)
		} else {
			cs.Guard = label(guard, src)
		}
	}
	cs.Pattern = strings.Join(patterns, ", ")
	return cs
}

func lowerFunc(n *sitter.Node, src []byte) Stmt {
	fn := &FuncDef{
		Async: isAsync(n),
		Name:  optText(n.ChildByFieldName("name"), src),
		Body:  lowerBlock(n.ChildByFieldName("body"), src),
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			if name, ok := paramName(params.NamedChild(i), src); ok {
				fn.Params = append(fn.Params, name)
			}
		}
	}
	return fn
}

// paramName extracts the bare name of one formal parameter, mirroring
// the signature style "name(a, b)" (annotations and defaults dropped,
// splats keep their stars).
func paramName(p *sitter.Node, src []byte) (string, bool) {
	switch p.Type() {
	case "identifier":
		return p.Content(src), true
	case "typed_parameter", "typed_default_parameter", "default_parameter":
		if name := p.ChildByFieldName("name"); name != nil {
			return name.Content(src), true
		}
		if p.NamedChildCount() > 0 && p.NamedChild(0).Type() == "identifier" {
			return p.NamedChild(0).Content(src), true
		}
		return "", false
	case "list_splat_pattern":
		if p.NamedChildCount() > 0 {
			return "*" + p.NamedChild(0).Content(src), true
		}
		return "*", true
	case "dictionary_splat_pattern":
		if p.NamedChildCount() > 0 {
			return "**" + p.NamedChild(0).Content(src), true
		}
		return "**", true
	case "keyword_separator", "positional_separator":
		return "", false
	default:
		if text, ok := render(p, src); ok {
			return text, true
		}
		return "", false
	}
}

// isAsync reports whether the statement's leading token is "async".
func isAsync(n *sitter.Node) bool {
	return n.ChildCount() > 0 && n.Child(0).Type() == "async"
}

// lastBlockChild returns the block child of a clause node, or nil.
func lastBlockChild(c *sitter.Node) *sitter.Node {
	for i := int(c.NamedChildCount()) - 1; i >= 0; i-- {
		if child := c.NamedChild(i); child.Type() == "block" {
			return child
		}
	}
	return nil
}
