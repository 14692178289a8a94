package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kyle0527/mermaid-dist/internal/chart"
)

func openTemp(t *testing.T) (*Cache, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, dir
}

func TestOpenCreatesDotDir(t *testing.T) {
	_, dir := openTemp(t)
	if _, err := os.Stat(filepath.Join(dir, DotDir, dbFile)); err != nil {
		t.Errorf("cache db not created: %v", err)
	}
}

func TestChartsRoundTrip(t *testing.T) {
	c, _ := openTemp(t)

	charts := []chart.Chart{
		{Title: "a.py (module)", Mermaid: "flowchart TD\n    n0([ Start: a.py (module) ])\n    n1([ End ])\n    n0 --> n1"},
		{Title: "f()", Mermaid: "flowchart TD\n    n0([ Start: f() ])\n    n1([ End ])\n    n0 --> n1"},
	}
	if err := c.PutCharts("digest-1", "a.py", charts); err != nil {
		t.Fatalf("PutCharts: %v", err)
	}

	got, ok, err := c.GetCharts("digest-1", "a.py")
	if err != nil {
		t.Fatalf("GetCharts: %v", err)
	}
	if !ok {
		t.Fatal("stored charts not found")
	}
	if len(got) != 2 || got[0] != charts[0] || got[1] != charts[1] {
		t.Errorf("round-trip mismatch: %#v", got)
	}

	if _, ok, err := c.GetCharts("unknown", "a.py"); err != nil || ok {
		t.Errorf("unknown digest: ok=%v err=%v, want miss", ok, err)
	}
}

func TestChartsKeyedByDigestAndName(t *testing.T) {
	c, _ := openTemp(t)

	// Identical content in two files shares a digest but not titles.
	if err := c.PutCharts("shared", "alpha.py", []chart.Chart{{Title: "alpha.py (module)"}}); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.GetCharts("shared", "beta.py"); err != nil || ok {
		t.Errorf("beta.py lookup: ok=%v err=%v, want miss", ok, err)
	}

	if err := c.PutCharts("shared", "beta.py", []chart.Chart{{Title: "beta.py (module)"}}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.GetCharts("shared", "alpha.py")
	if err != nil || !ok {
		t.Fatalf("alpha.py lookup: ok=%v err=%v", ok, err)
	}
	if got[0].Title != "alpha.py (module)" {
		t.Errorf("alpha.py title = %q, want its own", got[0].Title)
	}
	got, ok, err = c.GetCharts("shared", "beta.py")
	if err != nil || !ok {
		t.Fatalf("beta.py lookup: ok=%v err=%v", ok, err)
	}
	if got[0].Title != "beta.py (module)" {
		t.Errorf("beta.py title = %q, want its own", got[0].Title)
	}
}

func TestPutChartsOverwrites(t *testing.T) {
	c, _ := openTemp(t)

	if err := c.PutCharts("d", "a.py", []chart.Chart{{Title: "old"}}); err != nil {
		t.Fatal(err)
	}
	if err := c.PutCharts("d", "a.py", []chart.Chart{{Title: "new"}}); err != nil {
		t.Fatal(err)
	}
	got, _, err := c.GetCharts("d", "a.py")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "new" {
		t.Errorf("overwrite failed: %#v", got)
	}
}

func TestDigestReusesCachedValue(t *testing.T) {
	c, dir := openTemp(t)

	path := filepath.Join(dir, "a.py")
	if err := os.WriteFile(path, []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	d1, err := c.Digest("a.py", info, []byte("x = 1\n"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d1 == "" {
		t.Fatal("empty digest")
	}

	// Same stat, different bytes: the cached digest wins, content is
	// not re-hashed.
	d2, err := c.Digest("a.py", info, []byte("something else"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d2 != d1 {
		t.Errorf("unchanged stat should reuse digest: %q != %q", d2, d1)
	}

	// A changed mtime invalidates the entry.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	info2, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	d3, err := c.Digest("a.py", info2, []byte("x = 2\n"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d3 == d1 {
		t.Error("changed mtime with new content should produce a new digest")
	}
}

func TestCatalogUpdateAndDrop(t *testing.T) {
	c, _ := openTemp(t)

	if err := c.UpdateCatalog("a.py", []chart.Chart{
		{Title: "a.py (module)", Mermaid: "m1"},
		{Title: "f()", Mermaid: "m2"},
	}); err != nil {
		t.Fatalf("UpdateCatalog: %v", err)
	}
	if err := c.UpdateCatalog("b.py", []chart.Chart{
		{Title: "b.py (module)", Mermaid: "m3"},
	}); err != nil {
		t.Fatalf("UpdateCatalog: %v", err)
	}

	cat, err := c.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(cat) != 2 {
		t.Fatalf("catalog paths = %d, want 2", len(cat))
	}
	if len(cat["a.py"]) != 2 || cat["a.py"][1].Title != "f()" {
		t.Errorf("a.py charts wrong: %#v", cat["a.py"])
	}

	// Replacing shrinks the row set for the path.
	if err := c.UpdateCatalog("a.py", []chart.Chart{{Title: "a.py (module)", Mermaid: "m1b"}}); err != nil {
		t.Fatal(err)
	}
	cat, err = c.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(cat["a.py"]) != 1 || cat["a.py"][0].Mermaid != "m1b" {
		t.Errorf("catalog replace failed: %#v", cat["a.py"])
	}

	if err := c.DropCatalogPath("b.py"); err != nil {
		t.Fatalf("DropCatalogPath: %v", err)
	}
	cat, err = c.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cat["b.py"]; ok {
		t.Error("dropped path still present")
	}
}

func TestPruneCatalog(t *testing.T) {
	c, _ := openTemp(t)

	for _, path := range []string{"a.py", "gone.py"} {
		if err := c.UpdateCatalog(path, []chart.Chart{{Title: path + " (module)", Mermaid: "m"}}); err != nil {
			t.Fatalf("UpdateCatalog %s: %v", path, err)
		}
	}

	if err := c.PruneCatalog(map[string]bool{"a.py": true}); err != nil {
		t.Fatalf("PruneCatalog: %v", err)
	}

	cat, err := c.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cat["gone.py"]; ok {
		t.Error("pruned path still in catalog")
	}
	if _, ok := cat["a.py"]; !ok {
		t.Error("kept path should survive pruning")
	}

	// Pruning an already clean catalog is a no-op.
	if err := c.PruneCatalog(map[string]bool{"a.py": true}); err != nil {
		t.Fatalf("second PruneCatalog: %v", err)
	}
}

func TestRemove(t *testing.T) {
	c, dir := openTemp(t)
	if err := c.PutCharts("d", "a.py", []chart.Chart{{Title: "x"}}); err != nil {
		t.Fatal(err)
	}
	c.Close()

	if err := Remove(dir); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, DotDir, dbFile)); !os.IsNotExist(err) {
		t.Error("cache db should be gone")
	}
	// Removing again is fine.
	if err := Remove(dir); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}
