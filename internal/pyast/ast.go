// Package pyast defines the statement tree consumed by the flowchart
// builder, lowered from the tree-sitter Python CST. The union is
// deliberately coarse: it keeps only the control structure and a short
// source rendering of everything else.
package pyast

import "strings"

// Stmt is the closed union of statement variants. Consumers dispatch
// with a type switch and must keep a default arm so constructs this
// package does not model degrade to a generic labeled node.
type Stmt interface {
	stmt()
}

// If is an if/elif/else conditional. An elif chain is lowered to a
// nested If as the sole statement of Else.
type If struct {
	Test string
	Body []Stmt
	Else []Stmt
}

// For is a for or async-for loop.
type For struct {
	Async  bool
	Target string
	Iter   string
	Body   []Stmt
}

// While is a while loop.
type While struct {
	Test string
	Body []Stmt
}

// With is a with or async-with block. Items holds the context
// expressions joined with "; ", aliases stripped.
type With struct {
	Async bool
	Items string
	Body  []Stmt
}

// Handler is a single except clause.
type Handler struct {
	Type string
	Body []Stmt
}

// Try is a try/except/else/finally region.
type Try struct {
	Body     []Stmt
	Handlers []Handler
	Else     []Stmt
	Final    []Stmt
}

// Case is a single case clause of a match statement.
type Case struct {
	Pattern string
	Guard   string
	Body    []Stmt
}

// Match is a structural pattern match.
type Match struct {
	Subject string
	Cases   []Case
}

// FuncDef is a function definition. Nested definitions are summarized
// as a single node; only top-level ones get their own graph.
type FuncDef struct {
	Async  bool
	Name   string
	Params []string
	Body   []Stmt
}

// ClassDef is a class definition, summarized by name only.
type ClassDef struct {
	Name string
}

// Return is a return statement. Value is empty for a bare return.
type Return struct {
	Value string
}

// Raise is a raise statement. Exc is empty for a bare raise.
type Raise struct {
	Exc string
}

// Break is a break statement.
type Break struct{}

// Continue is a continue statement.
type Continue struct{}

// Simple is any other statement, carrying a one-line best-effort
// rendering of its source text.
type Simple struct {
	Text string
}

func (*If) stmt()       {}
func (*For) stmt()      {}
func (*While) stmt()    {}
func (*With) stmt()     {}
func (*Try) stmt()      {}
func (*Match) stmt()    {}
func (*FuncDef) stmt()  {}
func (*ClassDef) stmt() {}
func (*Return) stmt()   {}
func (*Raise) stmt()    {}
func (*Break) stmt()    {}
func (*Continue) stmt() {}
func (*Simple) stmt()   {}

// Module is one parsed file scope.
type Module struct {
	Body []Stmt
}

// Functions returns the top-level function definitions in source order.
func (m *Module) Functions() []*FuncDef {
	var fns []*FuncDef
	for _, s := range m.Body {
		if fn, ok := s.(*FuncDef); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Signature renders the function as "name(a, b)". A nameless function
// renders as "<lambda>(...)".
func (f *FuncDef) Signature() string {
	name := f.Name
	if name == "" {
		name = "<lambda>"
	}
	return name + "(" + strings.Join(f.Params, ", ") + ")"
}
