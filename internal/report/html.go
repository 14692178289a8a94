package report

import (
	"archive/zip"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
)

// HTMLOptions configures the HTML writer.
type HTMLOptions struct {
	Title      string // page title override
	Theme      string // mermaid theme
	Collapse   bool   // wrap each chart in <details>
	MermaidZip string // path to a mermaid release zip to embed
	MermaidJS  string // path to mermaid.min.js to embed
}

// WriteHTML writes a single-file HTML report. Mermaid is embedded from
// the given zip or js path when available; otherwise a CDN script tag
// is emitted and rendering requires network access.
func WriteHTML(root string, files []FileCharts, outPath string, opts HTMLOptions) error {
	pageTitle := opts.Title
	if pageTitle == "" {
		pageTitle = "Mermaid Flowcharts for: " + root
	}
	theme := opts.Theme
	if theme == "" {
		theme = "default"
	}

	var toc strings.Builder
	for i, f := range files {
		fmt.Fprintf(&toc, "<li><a href=\"#f%d\">%d. %s</a></li>\n", i+1, i+1, html.EscapeString(f.Path))
	}

	var sections strings.Builder
	for i, f := range files {
		fmt.Fprintf(&sections, "<h2 id=\"f%d\">%d. %s</h2>\n", i+1, i+1, html.EscapeString(f.Path))
		for _, ch := range f.Charts {
			safeTitle := html.EscapeString(ch.Title)
			pre := fmt.Sprintf("<pre class=\"mermaid\">%s</pre>", escapeText(ch.Mermaid))
			if opts.Collapse {
				fmt.Fprintf(&sections, "<details><summary>%s</summary>\n%s\n</details>\n", safeTitle, pre)
			} else {
				fmt.Fprintf(&sections, "<h3>%s</h3>\n%s\n", safeTitle, pre)
			}
		}
		sections.WriteString("\n")
	}

	jsInline, embedded := readMermaidJS(opts.MermaidZip, opts.MermaidJS)
	var jsTag, runtime string
	if embedded {
		jsTag = "<script>" + jsInline + "</script>"
		runtime = "embedded"
	} else {
		jsTag = `<script defer src="https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.min.js"></script>`
		runtime = "CDN fallback"
	}

	page := fmt.Sprintf(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>%s</title>
  <style>
    body { font-family: system-ui, -apple-system, Segoe UI, Roboto, Arial, sans-serif; margin: 2rem; }
    h1, h2, h3 { line-height: 1.25; }
    nav.toc { background: #f5f5f5; padding: 1rem; border-radius: 8px; }
    pre.mermaid { background: #fff; padding: 0.5rem; border: 1px solid #ddd; border-radius: 6px; overflow: auto; }
    details > summary { cursor: pointer; font-weight: 600; }
    .meta { color: #555; font-size: 0.9rem; margin-top: .5rem; }
  </style>
  %s
  <script>
    document.addEventListener("DOMContentLoaded", function() {
      if (window.mermaid && mermaid.initialize) {
        mermaid.initialize({
          startOnLoad: true,
          theme: "%s",
          securityLevel: "strict",
          flowchart: { htmlLabels: false }
        });
      }
    });
  </script>
</head>
<body>
  <h1>%s</h1>
  <div class="meta">Generated by py2mermaid. Mermaid runtime: %s.</div>
  <nav class="toc">
    <h2>Table of Contents</h2>
    <ul>
%s    </ul>
  </nav>
%s</body>
</html>
`, html.EscapeString(pageTitle), jsTag, theme, html.EscapeString(pageTitle), runtime, toc.String(), sections.String())

	if err := os.WriteFile(outPath, []byte(page), 0644); err != nil {
		return fmt.Errorf("writing html: %w", err)
	}
	return nil
}

// escapeText escapes &, < and > only; chart text must keep its quotes.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// readMermaidJS loads mermaid.min.js from a release zip (preferred) or
// a direct js path. Returns false when neither yields content.
func readMermaidJS(zipPath, jsPath string) (string, bool) {
	if zipPath != "" {
		if js, ok := readFromZip(zipPath); ok {
			return js, true
		}
	}
	if jsPath != "" {
		data, err := os.ReadFile(jsPath)
		if err == nil {
			return string(data), true
		}
	}
	return "", false
}

func readFromZip(zipPath string) (string, bool) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", false
	}
	defer r.Close()

	// Prefer the minified build.
	var candidate *zip.File
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "mermaid.min.js") {
			candidate = f
			break
		}
	}
	if candidate == nil {
		for _, f := range r.File {
			if strings.HasSuffix(f.Name, "mermaid.js") {
				candidate = f
				break
			}
		}
	}
	if candidate == nil {
		return "", false
	}

	rc, err := candidate.Open()
	if err != nil {
		return "", false
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", false
	}
	return string(data), true
}
