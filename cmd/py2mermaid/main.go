// Package main provides the py2mermaid CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kyle0527/mermaid-dist/internal/cache"
	"github.com/kyle0527/mermaid-dist/internal/cas"
	"github.com/kyle0527/mermaid-dist/internal/chart"
	"github.com/kyle0527/mermaid-dist/internal/combine"
	"github.com/kyle0527/mermaid-dist/internal/config"
	"github.com/kyle0527/mermaid-dist/internal/drift"
	"github.com/kyle0527/mermaid-dist/internal/filesource"
	"github.com/kyle0527/mermaid-dist/internal/gitio"
	"github.com/kyle0527/mermaid-dist/internal/ignore"
	"github.com/kyle0527/mermaid-dist/internal/pyast"
	"github.com/kyle0527/mermaid-dist/internal/report"
	"github.com/kyle0527/mermaid-dist/internal/scan"
)

// Version is the current py2mermaid version.
var Version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:     "py2mermaid",
	Short:   "py2mermaid - Mermaid flowcharts from Python projects",
	Long:    `py2mermaid scans a Python project and synthesizes an approximate Mermaid flowchart for every module body and top-level function, emitting Markdown, offline HTML, and a combined diagram.`,
	Version: Version,
}

var (
	genOut           string
	genHTMLOut       string
	genFormat        string
	genMaxFiles      int
	genIgnore        string
	genGitRef        string
	genMermaidZip    string
	genMermaidJS     string
	genTitle         string
	genTheme         string
	genCollapse      bool
	genCombinedOut   string
	genNoEmbed       bool
	genIncludeMDText bool
	genFlowDir       string
	genNoCache       bool
)

var generateCmd = &cobra.Command{
	Use:     "generate [path]",
	Aliases: []string{"gen"},
	Short:   "Generate flowcharts for a Python project",
	Long: `Generate flowcharts for every Python file under a project folder.

Examples:
  py2mermaid generate .                          # Markdown report
  py2mermaid generate . --format both            # Markdown + offline HTML
  py2mermaid generate . --git main               # charts for the files at a Git ref
  py2mermaid generate . --combined-out all.mmd   # also merge everything into one diagram

Files that fail to parse are skipped with a message on stderr and
processing continues.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

var (
	combMD            string
	combOut           string
	combFlowDir       string
	combHTML          string
	combIncludeMDText bool
)

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Combine an existing Markdown report into one diagram",
	RunE:  runCombine,
}

var diffCmd = &cobra.Command{
	Use:   "diff [path]",
	Short: "Show which charts drifted since the last generate",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDiff,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache commands",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [path]",
	Short: "Delete the chart cache for a project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genOut, "out", "mermaid.md", "output Markdown file")
	f.StringVar(&genHTMLOut, "html-out", "mermaid.html", "output HTML file")
	f.StringVar(&genFormat, "format", "md", "output format: md, html, or both")
	f.IntVar(&genMaxFiles, "max-files", 500, "max number of Python files to process")
	f.StringVar(&genIgnore, "ignore", "", "comma-separated extra ignore patterns")
	f.StringVar(&genGitRef, "git", "", "read files from a Git ref instead of the worktree")
	f.StringVar(&genMermaidZip, "mermaid-zip", "", "path to a mermaid release zip to embed in HTML")
	f.StringVar(&genMermaidJS, "mermaid-js", "", "path to mermaid.min.js to embed in HTML")
	f.StringVar(&genTitle, "title", "", "override page title in HTML")
	f.StringVar(&genTheme, "theme", "default", "Mermaid theme for HTML output")
	f.BoolVar(&genCollapse, "collapse", false, "collapse each chart in HTML")
	f.StringVar(&genCombinedOut, "combined-out", "", "also write a single merged diagram (.mmd)")
	f.BoolVar(&genNoEmbed, "no-embed-combined", false, "do not inject the combined diagram into HTML")
	f.BoolVar(&genIncludeMDText, "include-md-text", false, "include non-mermaid Markdown as comments in the .mmd")
	f.StringVar(&genFlowDir, "flow-dir", "TD", "flow direction for the combined diagram (TB/TD/LR/RL/BT)")
	f.BoolVar(&genNoCache, "no-cache", false, "disable the chart cache")

	cf := combineCmd.Flags()
	cf.StringVar(&combMD, "md", "mermaid.md", "Markdown report to combine")
	cf.StringVar(&combOut, "out", "combined.mmd", "output merged diagram")
	cf.StringVar(&combFlowDir, "flow-dir", "TD", "flow direction (TB/TD/LR/RL/BT)")
	cf.StringVar(&combHTML, "html", "", "HTML report to inject the combined diagram into")
	cf.BoolVar(&combIncludeMDText, "include-md-text", false, "include non-mermaid Markdown as comments")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(combineCmd)
	rootCmd.AddCommand(diffCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func projectRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

// applyConfig overlays py2mermaid.yaml values under unchanged flags.
func applyConfig(cmd *cobra.Command, cfg config.Config) {
	set := func(name string, apply func()) {
		if !cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("out", func() { genOut = cfg.Out })
	set("html-out", func() { genHTMLOut = cfg.HTMLOut })
	set("format", func() { genFormat = cfg.Format })
	set("max-files", func() { genMaxFiles = cfg.MaxFiles })
	set("title", func() { genTitle = cfg.Title })
	set("theme", func() { genTheme = cfg.Theme })
	set("collapse", func() { genCollapse = cfg.Collapse })
	set("flow-dir", func() { genFlowDir = cfg.FlowDir })
	set("combined-out", func() { genCombinedOut = cfg.CombinedOut })
	set("mermaid-zip", func() { genMermaidZip = cfg.MermaidZip })
	set("mermaid-js", func() { genMermaidJS = cfg.MermaidJS })
}

func buildMatcher(root string, extra []string) (*ignore.Matcher, error) {
	m, err := ignore.LoadFromDir(root)
	if err != nil {
		return nil, err
	}
	m.AddPatterns(extra)
	return m, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func openSource(root string, matcher *ignore.Matcher) (filesource.FileSource, error) {
	if genGitRef != "" {
		return gitio.OpenRef(root, genGitRef,
			gitio.WithIgnore(matcher), gitio.WithMaxFiles(genMaxFiles))
	}
	return scan.OpenDirectory(root,
		scan.WithIgnore(matcher), scan.WithMaxFiles(genMaxFiles))
}

// buildAll synthesizes charts for every file of the source, skipping
// unparseable files with a stderr message. When c is non-nil the chart
// cache is consulted and updated.
func buildAll(root string, src filesource.FileSource, c *cache.Cache, updateCatalog bool) ([]report.FileCharts, error) {
	files, err := src.GetFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .py files found under %s", root)
	}

	parser := pyast.NewParser()
	var results []report.FileCharts

	for _, f := range files {
		digest := fileDigest(root, src, c, f)
		// The cache key must include the base name: chart titles embed
		// it, and identical content (empty __init__.py files, say) is
		// common across a project.
		name := filepath.Base(f.Path)

		var charts []chart.Chart
		cached := false
		if c != nil && digest != "" {
			charts, cached, err = c.GetCharts(digest, name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "[cache] %s: %v\n", f.Path, err)
				cached = false
			}
		}
		if !cached {
			charts, err = chart.BuildFile(parser, name, f.Content)
			if err != nil {
				if errors.Is(err, pyast.ErrSyntax) {
					fmt.Fprintf(os.Stderr, "[skip] %s: syntax error\n", f.Path)
				} else {
					fmt.Fprintf(os.Stderr, "[skip] %s: %v\n", f.Path, err)
				}
				continue
			}
			if c != nil && digest != "" {
				if err := c.PutCharts(digest, name, charts); err != nil {
					fmt.Fprintf(os.Stderr, "[cache] %s: %v\n", f.Path, err)
				}
			}
		}

		if c != nil && updateCatalog {
			if err := c.UpdateCatalog(f.Path, charts); err != nil {
				fmt.Fprintf(os.Stderr, "[cache] %s: %v\n", f.Path, err)
			}
		}
		results = append(results, report.FileCharts{Path: f.Path, Charts: charts})
	}
	return results, nil
}

// fileDigest returns the file's content digest, via the stat-based
// cache when the file lives in the worktree. Empty string disables
// caching for this file.
func fileDigest(root string, src filesource.FileSource, c *cache.Cache, f *filesource.FileInfo) string {
	if c == nil {
		return ""
	}
	if src.SourceType() == "directory" {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(f.Path)))
		if err == nil {
			digest, derr := c.Digest(f.Path, info, f.Content)
			if derr == nil {
				return digest
			}
		}
	}
	return cas.Blake3HashHex(f.Content)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	applyConfig(cmd, cfg)

	if genFormat != "md" && genFormat != "html" && genFormat != "both" {
		return fmt.Errorf("invalid --format %q (want md, html, or both)", genFormat)
	}

	matcher, err := buildMatcher(root, append(cfg.Ignore, splitCSV(genIgnore)...))
	if err != nil {
		return fmt.Errorf("loading ignore patterns: %w", err)
	}

	src, err := openSource(root, matcher)
	if err != nil {
		return err
	}

	var c *cache.Cache
	if !genNoCache {
		c, err = cache.Open(root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[cache] disabled: %v\n", err)
			c = nil
		} else {
			defer c.Close()
		}
	}

	updateCatalog := src.SourceType() == "directory"
	results, err := buildAll(root, src, c, updateCatalog)
	if err != nil {
		return err
	}

	// Files deleted since the last run must leave the catalog too, or
	// diff keeps reporting them forever.
	if c != nil && updateCatalog {
		keep := make(map[string]bool, len(results))
		for _, r := range results {
			keep[r.Path] = true
		}
		if err := c.PruneCatalog(keep); err != nil {
			fmt.Fprintf(os.Stderr, "[cache] pruning catalog: %v\n", err)
		}
	}

	wroteHTML := false
	if genFormat == "md" || genFormat == "both" {
		if err := report.WriteMarkdown(root, results, genOut); err != nil {
			return err
		}
		fmt.Printf("Wrote %s with %d file(s).\n", genOut, len(results))
	}
	if genFormat == "html" || genFormat == "both" {
		err := report.WriteHTML(root, results, genHTMLOut, report.HTMLOptions{
			Title:      genTitle,
			Theme:      genTheme,
			Collapse:   genCollapse,
			MermaidZip: genMermaidZip,
			MermaidJS:  genMermaidJS,
		})
		if err != nil {
			return err
		}
		wroteHTML = true
		fmt.Printf("Wrote %s with %d file(s).\n", genHTMLOut, len(results))
	}

	if genCombinedOut != "" {
		md := report.Markdown(root, results)
		blocks := combine.ExtractBlocks(md)
		if len(blocks) == 0 {
			return fmt.Errorf("no mermaid blocks to combine")
		}
		combined := combine.Combine(blocks, genFlowDir)
		if genIncludeMDText {
			combined = strings.TrimRight(combined, "\n") +
				"\n\n%% ---- Non-mermaid Markdown (as comments) ----\n" +
				combine.CommentNonMermaid(md)
		}
		if err := os.WriteFile(genCombinedOut, []byte(combined), 0644); err != nil {
			return fmt.Errorf("writing combined diagram: %w", err)
		}
		fmt.Printf("Combined %d block(s) -> %s\n", len(blocks), genCombinedOut)

		if wroteHTML && !genNoEmbed {
			if err := combine.InjectHTML(genHTMLOut, combined, "Combined Diagram"); err != nil {
				return err
			}
			fmt.Printf("Embedded combined diagram into %s\n", genHTMLOut)
		}
	}
	return nil
}

func runCombine(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(combMD)
	if err != nil {
		return fmt.Errorf("reading %s: %w", combMD, err)
	}
	md := string(data)

	blocks := combine.ExtractBlocks(md)
	if len(blocks) == 0 {
		return fmt.Errorf("no mermaid blocks found in %s", combMD)
	}

	combined := combine.Combine(blocks, combFlowDir)
	if combIncludeMDText {
		combined = strings.TrimRight(combined, "\n") +
			"\n\n%% ---- Non-mermaid Markdown (as comments) ----\n" +
			combine.CommentNonMermaid(md)
	}
	if err := os.WriteFile(combOut, []byte(combined), 0644); err != nil {
		return fmt.Errorf("writing combined diagram: %w", err)
	}
	fmt.Printf("Combined %d block(s) -> %s\n", len(blocks), combOut)

	if combHTML != "" {
		if err := combine.InjectHTML(combHTML, combined, "Combined Diagram"); err != nil {
			return err
		}
		fmt.Printf("Embedded combined diagram into %s\n", combHTML)
	}
	return nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}

	c, err := cache.Open(root)
	if err != nil {
		return err
	}
	defer c.Close()

	old, err := c.Catalog()
	if err != nil {
		return err
	}
	if len(old) == 0 {
		return fmt.Errorf("no recorded run for %s (run generate first)", root)
	}

	matcher, err := buildMatcher(root, nil)
	if err != nil {
		return fmt.Errorf("loading ignore patterns: %w", err)
	}
	src, err := scan.OpenDirectory(root, scan.WithIgnore(matcher))
	if err != nil {
		return err
	}

	// Catalog stays as recorded; only the content-addressed chart
	// cache is warmed.
	results, err := buildAll(root, src, c, false)
	if err != nil {
		return err
	}
	cur := make(map[string][]chart.Chart, len(results))
	for _, r := range results {
		cur[r.Path] = r.Charts
	}

	changes := drift.Compare(old, cur)
	if len(changes) == 0 {
		fmt.Println("No chart drift.")
		return nil
	}
	for _, ch := range changes {
		switch ch.Kind {
		case drift.Added:
			fmt.Printf("+ %s :: %s\n", ch.Path, ch.Title)
		case drift.Removed:
			fmt.Printf("- %s :: %s\n", ch.Path, ch.Title)
		case drift.Changed:
			fmt.Printf("~ %s :: %s\n", ch.Path, ch.Title)
			for _, line := range strings.Split(strings.TrimRight(ch.Diff, "\n"), "\n") {
				fmt.Printf("    %s\n", line)
			}
		}
	}
	fmt.Printf("%d chart(s) drifted.\n", len(changes))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	if err := cache.Remove(root); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	fmt.Printf("Cleared cache for %s\n", root)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
