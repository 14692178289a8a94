package pyast

import (
	"errors"
	"testing"
)

func parse(t *testing.T, src string) *Module {
	t.Helper()
	m, err := NewParser().ParseModule([]byte(src))
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	return m
}

func TestParseSimpleStatements(t *testing.T) {
	m := parse(t, "x = 1\nprint(x)\n")
	if len(m.Body) != 2 {
		t.Fatalf("statement count = %d, want 2", len(m.Body))
	}
	if s, ok := m.Body[0].(*Simple); !ok || s.Text != "x = 1" {
		t.Errorf("first statement = %#v, want Simple x = 1", m.Body[0])
	}
	if s, ok := m.Body[1].(*Simple); !ok || s.Text != "print(x)" {
		t.Errorf("second statement = %#v, want Simple print(x)", m.Body[1])
	}
}

func TestParseCommentsSkipped(t *testing.T) {
	m := parse(t, "# header\nx = 1  # trailing\n# footer\n")
	if len(m.Body) != 1 {
		t.Fatalf("statement count = %d, want 1", len(m.Body))
	}
}

func TestParseIfElifElseFolding(t *testing.T) {
	m := parse(t, `
if a:
    f()
elif b:
    g()
elif c:
    h()
else:
    k()
`)
	top, ok := m.Body[0].(*If)
	if !ok {
		t.Fatalf("statement = %#v, want *If", m.Body[0])
	}
	if top.Test != "a" {
		t.Errorf("outer test = %q", top.Test)
	}

	second, ok := top.Else[0].(*If)
	if !ok || second.Test != "b" {
		t.Fatalf("first elif not folded: %#v", top.Else)
	}
	third, ok := second.Else[0].(*If)
	if !ok || third.Test != "c" {
		t.Fatalf("second elif not folded: %#v", second.Else)
	}
	if s, ok := third.Else[0].(*Simple); !ok || s.Text != "k()" {
		t.Errorf("else body = %#v, want k()", third.Else)
	}
}

func TestParseForAndAsyncFor(t *testing.T) {
	m := parse(t, `
for i, v in enumerate(xs):
    use(v)

async def main():
    async for x in it:
        await x
`)
	f, ok := m.Body[0].(*For)
	if !ok {
		t.Fatalf("statement = %#v, want *For", m.Body[0])
	}
	if f.Async {
		t.Error("plain for marked async")
	}
	if f.Target != "i, v" || f.Iter != "enumerate(xs)" {
		t.Errorf("for target/iter = %q / %q", f.Target, f.Iter)
	}

	fn := m.Body[1].(*FuncDef)
	if !fn.Async {
		t.Error("async def not marked async")
	}
	af, ok := fn.Body[0].(*For)
	if !ok || !af.Async {
		t.Fatalf("nested statement = %#v, want async *For", fn.Body[0])
	}
}

func TestParseWhile(t *testing.T) {
	m := parse(t, "while n > 0:\n    n -= 1\n")
	w, ok := m.Body[0].(*While)
	if !ok || w.Test != "n > 0" {
		t.Fatalf("statement = %#v, want *While n > 0", m.Body[0])
	}
	if len(w.Body) != 1 {
		t.Errorf("body length = %d, want 1", len(w.Body))
	}
}

func TestParseTryVariants(t *testing.T) {
	m := parse(t, `
try:
    f()
except ValueError as e:
    g(e)
except:
    h()
else:
    ok()
finally:
    done()
`)
	tr, ok := m.Body[0].(*Try)
	if !ok {
		t.Fatalf("statement = %#v, want *Try", m.Body[0])
	}
	if len(tr.Handlers) != 2 {
		t.Fatalf("handler count = %d, want 2", len(tr.Handlers))
	}
	// The alias is dropped from the handled type.
	if tr.Handlers[0].Type != "ValueError" {
		t.Errorf("first handler type = %q, want ValueError", tr.Handlers[0].Type)
	}
	if tr.Handlers[1].Type != "" {
		t.Errorf("bare except type = %q, want empty", tr.Handlers[1].Type)
	}
	if len(tr.Else) != 1 || len(tr.Final) != 1 {
		t.Errorf("else/finally = %d/%d statements, want 1/1", len(tr.Else), len(tr.Final))
	}
}

func TestParseWithItems(t *testing.T) {
	m := parse(t, "with open(a) as f, lock:\n    f.read()\n")
	w, ok := m.Body[0].(*With)
	if !ok {
		t.Fatalf("statement = %#v, want *With", m.Body[0])
	}
	if w.Items != "open(a); lock" {
		t.Errorf("items = %q, want %q", w.Items, "open(a); lock")
	}
	if w.Async {
		t.Error("plain with marked async")
	}
}

func TestParseAsyncWith(t *testing.T) {
	m := parse(t, "async def m():\n    async with conn() as c:\n        pass\n")
	fn := m.Body[0].(*FuncDef)
	w, ok := fn.Body[0].(*With)
	if !ok || !w.Async {
		t.Fatalf("nested statement = %#v, want async *With", fn.Body[0])
	}
	if w.Items != "conn()" {
		t.Errorf("items = %q, want conn()", w.Items)
	}
}

func TestParseMatchCaseGuard(t *testing.T) {
	m := parse(t, `
match cmd:
    case "go":
        run()
    case x if x > 0:
        pos()
    case _:
        other()
`)
	ma, ok := m.Body[0].(*Match)
	if !ok {
		t.Fatalf("statement = %#v, want *Match", m.Body[0])
	}
	if ma.Subject != "cmd" {
		t.Errorf("subject = %q, want cmd", ma.Subject)
	}
	if len(ma.Cases) != 3 {
		t.Fatalf("case count = %d, want 3", len(ma.Cases))
	}
	if ma.Cases[0].Pattern != `"go"` || ma.Cases[0].Guard != "" {
		t.Errorf("first case = %q guard %q", ma.Cases[0].Pattern, ma.Cases[0].Guard)
	}
	if ma.Cases[1].Pattern != "x" || ma.Cases[1].Guard != "x > 0" {
		t.Errorf("guarded case = %q guard %q", ma.Cases[1].Pattern, ma.Cases[1].Guard)
	}
	if ma.Cases[2].Pattern != "_" {
		t.Errorf("wildcard case = %q", ma.Cases[2].Pattern)
	}
}

func TestParseFunctionParams(t *testing.T) {
	m := parse(t, "def f(a, b: int, c=1, *args, **kw):\n    return a\n")
	fn, ok := m.Body[0].(*FuncDef)
	if !ok {
		t.Fatalf("statement = %#v, want *FuncDef", m.Body[0])
	}
	if got := fn.Signature(); got != "f(a, b, c, *args, **kw)" {
		t.Errorf("signature = %q", got)
	}
	if _, ok := fn.Body[0].(*Return); !ok {
		t.Errorf("body = %#v, want *Return", fn.Body[0])
	}
}

func TestParseDecoratedDef(t *testing.T) {
	m := parse(t, "@cached\ndef f():\n    pass\n")
	fn, ok := m.Body[0].(*FuncDef)
	if !ok || fn.Name != "f" {
		t.Fatalf("statement = %#v, want *FuncDef f", m.Body[0])
	}
}

func TestParseClassDef(t *testing.T) {
	m := parse(t, "class Thing(Base):\n    def m(self):\n        pass\n")
	c, ok := m.Body[0].(*ClassDef)
	if !ok || c.Name != "Thing" {
		t.Fatalf("statement = %#v, want *ClassDef Thing", m.Body[0])
	}
}

func TestParseAbruptStatements(t *testing.T) {
	m := parse(t, `
def f():
    while True:
        break
    for i in x:
        continue
    raise ValueError(x)
    return
`)
	fn := m.Body[0].(*FuncDef)
	w := fn.Body[0].(*While)
	if _, ok := w.Body[0].(*Break); !ok {
		t.Errorf("loop body = %#v, want *Break", w.Body[0])
	}
	fo := fn.Body[1].(*For)
	if _, ok := fo.Body[0].(*Continue); !ok {
		t.Errorf("loop body = %#v, want *Continue", fo.Body[0])
	}
	r, ok := fn.Body[2].(*Raise)
	if !ok || r.Exc != "ValueError(x)" {
		t.Errorf("statement = %#v, want *Raise ValueError(x)", fn.Body[2])
	}
	ret, ok := fn.Body[3].(*Return)
	if !ok || ret.Value != "" {
		t.Errorf("statement = %#v, want bare *Return", fn.Body[3])
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := NewParser().ParseModule([]byte("def f(:\n    pass\n"))
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("err = %v, want ErrSyntax", err)
	}
}

func TestModuleFunctions(t *testing.T) {
	m := parse(t, `
x = 1

def a():
    pass

class C:
    def method(self):
        pass

async def b():
    pass
`)
	fns := m.Functions()
	if len(fns) != 2 {
		t.Fatalf("top-level function count = %d, want 2", len(fns))
	}
	if fns[0].Name != "a" || fns[1].Name != "b" {
		t.Errorf("functions = %q, %q", fns[0].Name, fns[1].Name)
	}
}
