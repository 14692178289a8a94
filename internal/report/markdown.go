// Package report renders the generated charts as Markdown and as a
// self-contained offline HTML page.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/kyle0527/mermaid-dist/internal/chart"
)

// FileCharts groups the charts generated for one source file.
type FileCharts struct {
	Path   string
	Charts []chart.Chart
}

// Markdown renders the report: a top heading, one numbered section per
// file, one fenced mermaid block per chart.
func Markdown(root string, files []FileCharts) string {
	lines := []string{fmt.Sprintf("# Mermaid Flowcharts for: %s", root)}
	for i, f := range files {
		lines = append(lines, fmt.Sprintf("\n\n## %d. %s", i+1, f.Path))
		for _, ch := range f.Charts {
			lines = append(lines, fmt.Sprintf("\n### %s\n", ch.Title))
			lines = append(lines, "```mermaid")
			lines = append(lines, ch.Mermaid)
			lines = append(lines, "```")
		}
	}
	return strings.Join(lines, "\n")
}

// WriteMarkdown writes the Markdown report to outPath.
func WriteMarkdown(root string, files []FileCharts, outPath string) error {
	if err := os.WriteFile(outPath, []byte(Markdown(root, files)), 0644); err != nil {
		return fmt.Errorf("writing markdown: %w", err)
	}
	return nil
}
