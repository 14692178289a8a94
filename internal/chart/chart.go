// Package chart ties parsing and graph synthesis together: one chart
// for the module body plus one per top-level function.
package chart

import (
	"github.com/kyle0527/mermaid-dist/internal/builder"
	"github.com/kyle0527/mermaid-dist/internal/pyast"
)

// Chart is one finished diagram: a scope title and its Mermaid text.
type Chart struct {
	Title   string `json:"title"`
	Mermaid string `json:"mermaid"`
}

// BuildFile parses one Python file and returns its charts: the module
// flow first, then each top-level function in source order. A syntax
// error surfaces as pyast.ErrSyntax so callers can skip the file.
func BuildFile(p *pyast.Parser, fileName string, src []byte) ([]Chart, error) {
	mod, err := p.ParseModule(src)
	if err != nil {
		return nil, err
	}

	title := fileName + " (module)"
	g := builder.Module(title, mod.Body)
	charts := []Chart{{Title: g.Title, Mermaid: g.ToMermaid()}}

	for _, fn := range mod.Functions() {
		fg := builder.Function(fn)
		charts = append(charts, Chart{Title: fg.Title, Mermaid: fg.ToMermaid()})
	}
	return charts, nil
}
