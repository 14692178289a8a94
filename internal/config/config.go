// Package config loads optional per-project defaults from
// py2mermaid.yaml. CLI flags always win over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the per-project config file.
const FileName = "py2mermaid.yaml"

// Config holds the tool's tunable defaults.
type Config struct {
	Out         string   `yaml:"out"`
	HTMLOut     string   `yaml:"html_out"`
	Format      string   `yaml:"format"`
	MaxFiles    int      `yaml:"max_files"`
	Ignore      []string `yaml:"ignore"`
	Title       string   `yaml:"title"`
	Theme       string   `yaml:"theme"`
	Collapse    bool     `yaml:"collapse"`
	FlowDir     string   `yaml:"flow_dir"`
	CombinedOut string   `yaml:"combined_out"`
	MermaidZip  string   `yaml:"mermaid_zip"`
	MermaidJS   string   `yaml:"mermaid_js"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Out:      "mermaid.md",
		HTMLOut:  "mermaid.html",
		Format:   "md",
		MaxFiles: 500,
		Theme:    "default",
		FlowDir:  "TD",
	}
}

// Load reads py2mermaid.yaml from dir, if present, over the defaults.
func Load(dir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", FileName, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if cfg.Format != "md" && cfg.Format != "html" && cfg.Format != "both" {
		return cfg, fmt.Errorf("parsing %s: invalid format %q", FileName, cfg.Format)
	}
	return cfg, nil
}
