// Package combine merges many generated flowcharts into one diagram.
// Node ids are only unique within one chart, so each chart's ids get a
// per-chart prefix before the node and edge lines are merged.
package combine

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/kyle0527/mermaid-dist/internal/flowgraph"
)

// Block is one mermaid block lifted out of a Markdown report, with the
// chart heading that preceded it.
type Block struct {
	Title string
	Body  string
}

var (
	edgeLine = regexp.MustCompile(`^\s*(n\d+) -->(\|[^|]*\|)? (n\d+)$`)
	declLine = regexp.MustCompile(`^\s*(n\d+)(\[.*|\{.*|\(.*)$`)
)

// ExtractBlocks pulls all fenced mermaid blocks out of Markdown text,
// attaching the nearest preceding "###" heading as the block title.
func ExtractBlocks(md string) []Block {
	var blocks []Block
	var title string
	var body []string
	inBlock := false

	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case !inBlock && strings.HasPrefix(trimmed, "### "):
			title = strings.TrimPrefix(trimmed, "### ")
		case !inBlock && trimmed == "```mermaid":
			inBlock = true
			body = body[:0]
		case inBlock && strings.HasPrefix(trimmed, "```"):
			inBlock = false
			blocks = append(blocks, Block{Title: title, Body: strings.Join(body, "\n")})
		case inBlock:
			body = append(body, line)
		}
	}
	return blocks
}

// ValidDirections are the flow directions Mermaid accepts.
var ValidDirections = map[string]bool{
	"TB": true, "TD": true, "LR": true, "RL": true, "BT": true,
}

// Combine merges blocks into a single flowchart with the given
// direction. Each chart becomes a titled subgraph whose node ids are
// prefixed "g<i>".
func Combine(blocks []Block, dir string) string {
	if !ValidDirections[dir] {
		dir = "TD"
	}

	lines := []string{"flowchart " + dir}
	for i, b := range blocks {
		prefix := fmt.Sprintf("g%d", i)
		title := b.Title
		if title == "" {
			title = fmt.Sprintf("chart %d", i+1)
		}
		lines = append(lines, fmt.Sprintf(`    subgraph sg%d["%s"]`, i, flowgraph.EscapeLabel(title)))
		for _, line := range strings.Split(b.Body, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "flowchart") {
				continue
			}
			lines = append(lines, "        "+renamespace(trimmed, prefix))
		}
		lines = append(lines, "    end")
	}
	return strings.Join(lines, "\n") + "\n"
}

// renamespace prefixes the node ids of one node or edge line. Lines
// that match neither shape pass through unchanged.
func renamespace(line, prefix string) string {
	if m := edgeLine.FindStringSubmatch(line); m != nil {
		return fmt.Sprintf("%s%s -->%s %s%s", prefix, m[1], m[2], prefix, m[3])
	}
	if m := declLine.FindStringSubmatch(line); m != nil {
		return prefix + m[1] + m[2]
	}
	return line
}

// CommentNonMermaid rewrites the non-mermaid parts of a Markdown report
// as "%%" comment lines so they can ride along in a .mmd file.
func CommentNonMermaid(md string) string {
	var out []string
	inCode := false
	for _, line := range strings.Split(md, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		if stripped == "" {
			out = append(out, "%%")
		} else {
			out = append(out, "%% "+line)
		}
	}
	return strings.Join(out, "\n") + "\n"
}

const sectionID = "combined-diagram"

// InjectHTML inserts (or replaces) a combined-diagram section in an
// already written HTML report.
func InjectHTML(htmlPath, combined, sectionTitle string) error {
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return fmt.Errorf("reading html: %w", err)
	}
	page := string(data)

	snippet := fmt.Sprintf(
		"\n<section id=\"%s\">\n<h2>%s</h2>\n<pre class=\"mermaid\">%s</pre>\n</section>\n",
		sectionID, sectionTitle, escapeText(combined),
	)

	lower := strings.ToLower(page)
	if start := strings.Index(lower, `<section id="`+sectionID+`"`); start != -1 {
		if end := strings.Index(lower[start:], "</section>"); end != -1 {
			end += start + len("</section>")
			page = page[:start] + snippet + page[end:]
		} else {
			page += snippet
		}
	} else if idx := strings.LastIndex(lower, "</body>"); idx != -1 {
		page = page[:idx] + snippet + page[idx:]
	} else {
		page += snippet
	}

	if err := os.WriteFile(htmlPath, []byte(page), 0644); err != nil {
		return fmt.Errorf("writing html: %w", err)
	}
	return nil
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
