package reference

import "testing"

// countingReference counts how often its value is read.
type countingReference struct {
	tag   *DirtyableTag
	value any
	reads int
}

func newCounting(v any) *countingReference {
	return &countingReference{tag: NewDirtyableTag(), value: v}
}

func (c *countingReference) Tag() Tag { return c.tag }

func (c *countingReference) Value() any {
	c.reads++
	return c.value
}

func (c *countingReference) set(v any) {
	c.value = v
	c.tag.Dirty()
}

func TestCacheSkipsReadWhenTagValidates(t *testing.T) {
	ref := newCounting("a")
	cache := NewCache(ref)
	if got := cache.Peek(); got != "a" {
		t.Fatalf("Peek() = %v, want a", got)
	}

	for i := 0; i < 3; i++ {
		if _, modified := cache.Revalidate(); modified {
			t.Fatalf("pass %d: reported modified without a change", i)
		}
	}
	if ref.reads != 1 {
		t.Errorf("reference read %d times, want 1", ref.reads)
	}
}

func TestCacheReportsChange(t *testing.T) {
	ref := newCounting("a")
	cache := NewCache(ref)
	cache.Peek()

	ref.set("b")
	v, modified := cache.Revalidate()
	if !modified || v != "b" {
		t.Fatalf("Revalidate() = (%v, %v), want (b, true)", v, modified)
	}
	if got := cache.Peek(); got != "b" {
		t.Errorf("Peek() after change = %v, want b", got)
	}
}

func TestCacheIdenticalValueIsNotModified(t *testing.T) {
	ref := newCounting("a")
	cache := NewCache(ref)
	cache.Peek()

	ref.set("a")
	if _, modified := cache.Revalidate(); modified {
		t.Errorf("identical value after tag change reported as modified")
	}
	if ref.reads != 2 {
		t.Errorf("reference read %d times, want 2 (tag change forces a read)", ref.reads)
	}
}

func TestCacheFreshSliceIsModified(t *testing.T) {
	ref := newCounting([]any{1, 2})
	cache := NewCache(ref)
	cache.Peek()

	ref.set([]any{1, 2})
	if _, modified := cache.Revalidate(); !modified {
		t.Errorf("structurally equal but distinct slice should count as modified")
	}
}

func TestPropertyReferenceTracksObjectField(t *testing.T) {
	obj := NewObject(map[string]any{"name": "ann"})
	root := NewRoot(obj)
	name := root.Get("name")

	cache := NewCache(name)
	if got := cache.Peek(); got != "ann" {
		t.Fatalf("Peek() = %v, want ann", got)
	}
	if _, modified := cache.Revalidate(); modified {
		t.Fatalf("unchanged field reported modified")
	}

	obj.Set("name", "bob")
	if v, modified := cache.Revalidate(); !modified || v != "bob" {
		t.Errorf("Revalidate() = (%v, %v), want (bob, true)", v, modified)
	}

	root.Update(NewObject(map[string]any{"name": "cy"}))
	if v, modified := cache.Revalidate(); !modified || v != "cy" {
		t.Errorf("after root swap Revalidate() = (%v, %v), want (cy, true)", v, modified)
	}
}

func TestPropertyOnMissingKeyIsUndefined(t *testing.T) {
	root := NewRoot(map[string]any{"a": 1})
	if got := root.Get("b").Value(); got != Undefined {
		t.Errorf("missing key = %v, want Undefined", got)
	}
	type person struct{ Name string }
	if got := Property(&person{Name: "x"}, "name"); got != "x" {
		t.Errorf("struct field lookup = %v, want x", got)
	}
}

func TestComputedOfConstantsIsConstant(t *testing.T) {
	ref := Compute([]Reference{Const(1), Const(2)}, func(v []any) any {
		return v[0].(int) + v[1].(int)
	})
	if !IsConst(ref) {
		t.Errorf("computed over constants should be constant")
	}
	if ref.Value() != 3 {
		t.Errorf("Value() = %v, want 3", ref.Value())
	}
}

func TestComputedTagFollowsInputs(t *testing.T) {
	in := newCounting(2)
	doubled := Map(in, func(v any) any { return v.(int) * 2 })
	snap := doubled.Tag().Value()
	in.set(5)
	if doubled.Tag().Validate(snap) {
		t.Errorf("computed tag validated after input change")
	}
	if doubled.Value() != 10 {
		t.Errorf("Value() = %v, want 10", doubled.Value())
	}
}
