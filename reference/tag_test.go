package reference

import "testing"

func TestConstantTagNeverInvalidates(t *testing.T) {
	snap := ConstantTag.Value()
	Bump()
	if !ConstantTag.Validate(snap) {
		t.Errorf("constant tag invalidated after clock bump")
	}
}

func TestVolatileTagNeverValidates(t *testing.T) {
	if VolatileTag.Validate(VolatileTag.Value()) {
		t.Errorf("volatile tag validated its own value")
	}
}

func TestDirtyableTag(t *testing.T) {
	tag := NewDirtyableTag()
	snap := tag.Value()
	if !tag.Validate(snap) {
		t.Fatalf("fresh tag did not validate its own snapshot")
	}
	tag.Dirty()
	if tag.Validate(snap) {
		t.Errorf("dirtied tag still validates old snapshot")
	}
	if tag.Value() <= snap {
		t.Errorf("revision did not advance: got %d, was %d", tag.Value(), snap)
	}
}

func TestCombineIsMaxOfInputs(t *testing.T) {
	a, b := NewDirtyableTag(), NewDirtyableTag()
	a.Dirty()
	b.Dirty()
	b.Dirty()
	combined := Combine(a, b)
	if got, want := combined.Value(), max(a.Value(), b.Value()); got != want {
		t.Errorf("Combine value = %d, want %d", got, want)
	}

	snap := combined.Value()
	a.Dirty()
	if combined.Validate(snap) {
		t.Errorf("combined tag validated after an input changed")
	}
	if combined.Value() != a.Value() {
		t.Errorf("combined value = %d, want %d", combined.Value(), a.Value())
	}
}

func TestCombineDropsConstants(t *testing.T) {
	if got := Combine(ConstantTag, ConstantTag); got != ConstantTag {
		t.Errorf("Combine(const, const) = %v, want ConstantTag", got)
	}
	a := NewDirtyableTag()
	if got := Combine(ConstantTag, a); got != Tag(a) {
		t.Errorf("Combine(const, a) did not collapse to a")
	}
	if got := Combine(a, VolatileTag); got != VolatileTag {
		t.Errorf("Combine with volatile input should be volatile")
	}
}

func TestUpdatableTagSwapCountsAsChange(t *testing.T) {
	inner := NewDirtyableTag()
	tag := NewUpdatableTag(inner)
	Bump()
	snap := tag.Value()

	other := NewDirtyableTag()
	Bump()
	tag.Update(other)
	if tag.Validate(snap) {
		t.Errorf("swapping the inner tag was not seen as a change")
	}

	snap = tag.Value()
	tag.Update(other)
	if !tag.Validate(snap) {
		t.Errorf("re-setting the same inner tag was seen as a change")
	}
}
