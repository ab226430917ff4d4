package vm

import (
	"errors"
	"testing"

	"github.com/chazu/facet/host/htmldoc"
	"github.com/chazu/facet/reference"
)

// keyedList renders <ul> with one <li> per row of self.items, keyed by id,
// and "none" when the list is empty.
func keyedList() *Builder {
	b := NewBuilder()
	b.Mark("start")
	b.OpenElement("ul")
	b.FlushElement()
	b.Path("items")
	b.Emit(OpPutIterator, b.Intern("id"))
	b.Emit(OpJumpUnless, Label("else"))
	b.Emit(OpEnterList, Label("body"), Label("bodyEnd"))
	b.Mark("loop")
	b.Emit(OpIterate, Label("break"))
	b.Emit(OpJump, Label("loop"))
	b.Mark("break")
	b.Emit(OpExitList)
	b.Emit(OpJump, Label("end"))
	b.Mark("else")
	b.Emit(OpPop, 1)
	b.Text("none")
	b.Mark("end")
	b.CloseElement()
	b.Mark("entryEnd")

	item := b.Symbol("item")
	b.Mark("body")
	b.Emit(OpBindPositionalArgs, b.Array(item))
	b.OpenElement("li")
	b.FlushElement()
	b.Emit(OpGetSymbol, item)
	b.Emit(OpGetProperty, b.Intern("label"))
	b.Emit(OpAppendText)
	b.CloseElement()
	b.Mark("bodyEnd")

	b.Entry("start", "entryEnd")
	return b
}

type rowSet map[string]map[string]any

func newRows(ids ...string) rowSet {
	rows := rowSet{}
	for _, id := range ids {
		rows[id] = map[string]any{"id": id, "label": id}
	}
	return rows
}

func (r rowSet) list(ids ...string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = r[id]
	}
	return out
}

func listBlockOf(t *testing.T, f *fixture) *ListBlockOpcode {
	t.Helper()
	var lb *ListBlockOpcode
	f.res.rt.arena.each(&f.res.root.children, func(_ nodeID, op UpdatingOpcode) {
		if l, ok := op.(*ListBlockOpcode); ok {
			lb = l
		}
	})
	if lb == nil {
		t.Fatal("no list block under the root")
	}
	return lb
}

func TestListInitialRender(t *testing.T) {
	rows := newRows("a", "b", "c")
	obj := reference.NewObject(map[string]any{"items": rows.list("a", "b", "c")})
	f := renderProgram(t, keyedList(), obj)
	expectHTML(t, f, "<ul><li>a</li><li>b</li><li>c</li></ul>")

	lb := listBlockOf(t, f)
	if got := lb.Keys(); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("Keys = %v", got)
	}

	f.rerender(t)
	if m := f.doc.Stats().Mutations(); m != 0 {
		t.Fatalf("idempotent rerender made %d mutations", m)
	}
}

func TestListRotationIsOneMove(t *testing.T) {
	rows := newRows("a", "b", "c")
	obj := reference.NewObject(map[string]any{"items": rows.list("a", "b", "c")})
	f := renderProgram(t, keyedList(), obj)
	lb := listBlockOf(t, f)
	before := map[string]*TryOpcode{}
	for _, k := range []string{"a", "b", "c"} {
		before[k], _ = lb.Item(k)
	}

	obj.Set("items", rows.list("c", "a", "b"))
	f.rerender(t)
	expectHTML(t, f, "<ul><li>c</li><li>a</li><li>b</li></ul>")

	pass := f.res.LastPass()
	if pass.Moved != 1 || pass.Inserted != 0 || pass.Deleted != 0 || pass.Retained != 2 {
		t.Errorf("pass = %+v, want 1 move and 2 retains", pass)
	}
	if got := f.doc.Stats().Moves; got != 1 {
		t.Errorf("document moves = %d, want 1", got)
	}
	if got := f.doc.Stats().TextWrites; got != 0 {
		t.Errorf("document text writes = %d, want 0", got)
	}
	for k, want := range before {
		if got, _ := lb.Item(k); got != want {
			t.Errorf("item %q range was replaced", k)
		}
	}
}

func TestListDeleteAndInsert(t *testing.T) {
	rows := newRows("a", "b", "c", "d")
	obj := reference.NewObject(map[string]any{"items": rows.list("a", "b", "c")})
	f := renderProgram(t, keyedList(), obj)

	obj.Set("items", rows.list("a", "c"))
	f.rerender(t)
	expectHTML(t, f, "<ul><li>a</li><li>c</li></ul>")
	if pass := f.res.LastPass(); pass.Deleted != 1 || pass.Retained != 2 || pass.Moved != 0 {
		t.Errorf("pass = %+v, want 1 delete and 2 retains", pass)
	}

	obj.Set("items", rows.list("a", "d", "c"))
	f.rerender(t)
	expectHTML(t, f, "<ul><li>a</li><li>d</li><li>c</li></ul>")
	if pass := f.res.LastPass(); pass.Inserted != 1 || pass.Moved != 0 {
		t.Errorf("pass = %+v, want 1 insert", pass)
	}

	obj.Set("items", rows.list("a", "d", "c", "b"))
	f.rerender(t)
	expectHTML(t, f, "<ul><li>a</li><li>d</li><li>c</li><li>b</li></ul>")
}

func TestListItemValuesUpdateInPlace(t *testing.T) {
	obj := reference.NewObject(map[string]any{"items": []any{
		map[string]any{"id": "a", "label": "one"},
	}})
	f := renderProgram(t, keyedList(), obj)
	expectHTML(t, f, "<ul><li>one</li></ul>")

	obj.Set("items", []any{map[string]any{"id": "a", "label": "uno"}})
	f.rerender(t)
	expectHTML(t, f, "<ul><li>uno</li></ul>")
	if pass := f.res.LastPass(); pass.Retained != 1 || pass.Inserted != 0 {
		t.Errorf("pass = %+v, want the item retained", pass)
	}
}

func TestListEmptinessFlipIsStale(t *testing.T) {
	rows := newRows("a")
	obj := reference.NewObject(map[string]any{"items": []any{}})
	f := renderProgram(t, keyedList(), obj)
	expectHTML(t, f, "<ul>none</ul>")

	obj.Set("items", rows.list("a"))
	var se *StaleError
	if err := f.res.Rerender(); !errors.As(err, &se) {
		t.Fatalf("Rerender = %v, want *StaleError", err)
	}
	if err := f.res.Rebuild(se); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	expectHTML(t, f, "<ul><li>a</li></ul>")
	f.rerender(t)
}

func TestListDuplicateKeys(t *testing.T) {
	rows := newRows("a", "b")
	dup := []any{rows["a"], rows["a"]}

	doc := htmldoc.New()
	tmpl, err := NewTemplate(keyedList().MustBuild(), NewEnvironment(doc))
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	self := reference.NewRoot(reference.NewObject(map[string]any{"items": dup}))
	if _, err := tmpl.Render(self, doc.Root(), nil, nil); !errors.Is(err, reference.ErrDuplicateKey) {
		t.Fatalf("Render = %v, want ErrDuplicateKey", err)
	}

	obj := reference.NewObject(map[string]any{"items": rows.list("a", "b")})
	f := renderProgram(t, keyedList(), obj)
	obj.Set("items", dup)
	err = f.res.Rerender()
	if !errors.Is(err, ErrStale) || !errors.Is(err, reference.ErrDuplicateKey) {
		t.Fatalf("Rerender = %v, want a stale duplicate key error", err)
	}
	expectHTML(t, f, "<ul><li>a</li><li>b</li></ul>")
}

func TestListItemGUIDsAreNotReused(t *testing.T) {
	rows := newRows("a", "b", "c")
	obj := reference.NewObject(map[string]any{"items": rows.list("a", "b")})
	f := renderProgram(t, keyedList(), obj)

	guids := func() map[string]int {
		out := map[string]int{}
		for _, n := range f.res.Inspect().Children {
			if n.Type != "list-block" {
				continue
			}
			for _, item := range n.Children {
				out[item.Key] = item.GUID
			}
		}
		return out
	}
	seen := map[int]bool{}
	var walk func(n *InspectNode)
	walk = func(n *InspectNode) {
		seen[n.GUID] = true
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(f.res.Inspect())

	obj.Set("items", rows.list("a"))
	f.rerender(t)
	obj.Set("items", rows.list("a", "c"))
	f.rerender(t)

	got := guids()
	if _, ok := got["c"]; !ok {
		t.Fatalf("no item range for c: %v", got)
	}
	if seen[got["c"]] {
		t.Errorf("item c reuses guid %d of an earlier opcode", got["c"])
	}
}
