package chart

import (
	"errors"
	"strings"
	"testing"

	"github.com/kyle0527/mermaid-dist/internal/pyast"
)

func TestBuildFileModuleThenFunctions(t *testing.T) {
	src := []byte(`
x = 1

def first(a):
    return a

def second():
    pass
`)
	charts, err := BuildFile(pyast.NewParser(), "demo.py", src)
	if err != nil {
		t.Fatalf("BuildFile: %v", err)
	}
	if len(charts) != 3 {
		t.Fatalf("chart count = %d, want 3", len(charts))
	}
	if charts[0].Title != "demo.py (module)" {
		t.Errorf("module chart title = %q", charts[0].Title)
	}
	if charts[1].Title != "first(a)" || charts[2].Title != "second()" {
		t.Errorf("function titles = %q, %q", charts[1].Title, charts[2].Title)
	}
	for _, ch := range charts {
		if !strings.HasPrefix(ch.Mermaid, "flowchart TD\n") {
			t.Errorf("chart %q does not start with flowchart header", ch.Title)
		}
	}
	// The module chart summarizes the defs rather than expanding them.
	if !strings.Contains(charts[0].Mermaid, `["def first(...)"]`) {
		t.Errorf("module chart missing def summary:\n%s", charts[0].Mermaid)
	}
	if strings.Contains(charts[0].Mermaid, "return a") {
		t.Error("module chart should not expand function bodies")
	}
	if !strings.Contains(charts[1].Mermaid, `["return a"]`) {
		t.Errorf("function chart missing body:\n%s", charts[1].Mermaid)
	}
}

func TestBuildFileSyntaxError(t *testing.T) {
	_, err := BuildFile(pyast.NewParser(), "bad.py", []byte("def f(:\n"))
	if !errors.Is(err, pyast.ErrSyntax) {
		t.Fatalf("err = %v, want pyast.ErrSyntax", err)
	}
}

func TestBuildFileEmpty(t *testing.T) {
	charts, err := BuildFile(pyast.NewParser(), "empty.py", nil)
	if err != nil {
		t.Fatalf("BuildFile: %v", err)
	}
	if len(charts) != 1 {
		t.Fatalf("chart count = %d, want just the module chart", len(charts))
	}
	if !strings.Contains(charts[0].Mermaid, "n0 --> n1") {
		t.Errorf("empty module should link start to end:\n%s", charts[0].Mermaid)
	}
}
