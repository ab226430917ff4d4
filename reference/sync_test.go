package reference

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

// recordingTarget applies edits to a key slice so tests can check both the
// script and its result.
type recordingTarget struct {
	keys    []string
	ops     []string
	inserts int
	moves   int
	deletes int
	retains int
}

func (r *recordingTarget) index(key string) int {
	return slices.Index(r.keys, key)
}

func (r *recordingTarget) place(key string, before *ListItem) {
	if before == nil {
		r.keys = append(r.keys, key)
		return
	}
	at := r.index(before.Key)
	r.keys = slices.Insert(r.keys, at, key)
}

func (r *recordingTarget) Retain(item *ListItem) {
	r.retains++
}

func (r *recordingTarget) Insert(item *ListItem, before *ListItem) error {
	r.inserts++
	r.ops = append(r.ops, "insert "+item.Key)
	r.place(item.Key, before)
	return nil
}

func (r *recordingTarget) Move(item *ListItem, before *ListItem) {
	r.moves++
	r.ops = append(r.ops, "move "+item.Key)
	r.keys = slices.Delete(r.keys, r.index(item.Key), r.index(item.Key)+1)
	r.place(item.Key, before)
}

func (r *recordingTarget) Delete(item *ListItem) {
	r.deletes++
	r.ops = append(r.ops, "delete "+item.Key)
	r.keys = slices.Delete(r.keys, r.index(item.Key), r.index(item.Key)+1)
}

func (r *recordingTarget) Done() {}

type row struct{ ID string }

func rows(ids ...string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = row{ID: id}
	}
	return out
}

// renderList performs the initial iteration and returns the artifacts plus a
// target seeded with the rendered keys.
func renderList(t *testing.T, root *RootReference) (*IterationArtifacts, *recordingTarget) {
	t.Helper()
	it := NewReferenceIterator(NewListIterable(root, "ID"))
	target := &recordingTarget{}
	for {
		item, ok, err := it.Next()
		if err != nil {
			t.Fatalf("initial iteration: %v", err)
		}
		if !ok {
			break
		}
		target.keys = append(target.keys, item.Key)
	}
	return it.Artifacts(), target
}

func TestSyncRotationIsOneMove(t *testing.T) {
	root := NewRoot(rows("a", "b", "c"))
	artifacts, target := renderList(t, root)

	root.Update(rows("c", "a", "b"))
	if err := NewSynchronizer(artifacts, target).Sync(); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}

	if target.moves != 1 || target.inserts != 0 || target.deletes != 0 {
		t.Errorf("ops = %v, want exactly one move", target.ops)
	}
	if got := fmt.Sprint(target.keys); got != "[c a b]" {
		t.Errorf("keys = %s, want [c a b]", got)
	}
	if got := fmt.Sprint(artifacts.Keys()); got != "[c a b]" {
		t.Errorf("artifact keys = %s, want [c a b]", got)
	}
}

func TestSyncDeleteMiddle(t *testing.T) {
	root := NewRoot(rows("a", "b", "c"))
	artifacts, target := renderList(t, root)

	root.Update(rows("a", "c"))
	if err := NewSynchronizer(artifacts, target).Sync(); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if target.deletes != 1 || target.moves != 0 || target.inserts != 0 {
		t.Errorf("ops = %v, want exactly one delete", target.ops)
	}
	if target.retains != 2 {
		t.Errorf("retains = %d, want 2", target.retains)
	}
	if artifacts.Has("b") {
		t.Errorf("deleted key still present in artifacts")
	}
}

func TestSyncMixedEdits(t *testing.T) {
	root := NewRoot(rows("a", "b", "c", "d"))
	artifacts, target := renderList(t, root)

	root.Update(rows("d", "x", "b", "a"))
	if err := NewSynchronizer(artifacts, target).Sync(); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if got := fmt.Sprint(target.keys); got != "[d x b a]" {
		t.Errorf("keys = %s, want [d x b a]", got)
	}
	if target.inserts != 1 || target.deletes != 1 {
		t.Errorf("ops = %v, want one insert and one delete", target.ops)
	}
	// Old positions of d, b, a are 2, 1, 0: only one can stay put.
	if target.moves != 2 {
		t.Errorf("moves = %d, want 2 (ops %v)", target.moves, target.ops)
	}
}

func TestSyncNoChangeRetainsAll(t *testing.T) {
	root := NewRoot(rows("a", "b"))
	artifacts, target := renderList(t, root)

	root.Update(rows("a", "b"))
	if err := NewSynchronizer(artifacts, target).Sync(); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if len(target.ops) != 0 || target.retains != 2 {
		t.Errorf("ops = %v, retains = %d; want no edits and two retains", target.ops, target.retains)
	}
}

func TestSyncUpdatesRetainedValue(t *testing.T) {
	root := NewRoot([]any{
		map[string]any{"ID": "a", "label": "one"},
	})
	it := NewReferenceIterator(NewListIterable(root, "ID"))
	item, _, err := it.Next()
	if err != nil {
		t.Fatal(err)
	}
	label := NewCache(item.Value.Get("label"))
	label.Peek()

	root.Update([]any{map[string]any{"ID": "a", "label": "two"}})
	if err := NewSynchronizer(it.Artifacts(), &recordingTarget{keys: []string{"a"}}).Sync(); err != nil {
		t.Fatal(err)
	}
	if v, modified := label.Revalidate(); !modified || v != "two" {
		t.Errorf("retained item value = (%v, %v), want (two, true)", v, modified)
	}
}

func TestSyncDuplicateKey(t *testing.T) {
	root := NewRoot(rows("a"))
	artifacts, target := renderList(t, root)

	root.Update(rows("a", "a"))
	err := NewSynchronizer(artifacts, target).Sync()
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Sync() error = %v, want ErrDuplicateKey", err)
	}
}

func TestInitialIterationDuplicateKey(t *testing.T) {
	it := NewReferenceIterator(NewListIterable(NewRoot(rows("a", "a")), "ID"))
	if _, _, err := it.Next(); err != nil {
		t.Fatalf("first item: %v", err)
	}
	if _, _, err := it.Next(); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("second item error = %v, want ErrDuplicateKey", err)
	}
}

func TestIncreasingRun(t *testing.T) {
	tests := []struct {
		seq  []int
		want int
	}{
		{[]int{0, 1, 2}, 3},
		{[]int{2, 0, 1}, 2},
		{[]int{2, 1, 0}, 1},
		{[]int{-1, 0, -1, 1}, 2},
		{nil, 0},
	}
	for _, tt := range tests {
		run := increasingRun(tt.seq)
		n := 0
		last := -1
		for i, in := range run {
			if !in {
				continue
			}
			n++
			if tt.seq[i] <= last {
				t.Errorf("increasingRun(%v) picked non-increasing member at %d", tt.seq, i)
			}
			last = tt.seq[i]
		}
		if n != tt.want {
			t.Errorf("increasingRun(%v) length = %d, want %d", tt.seq, n, tt.want)
		}
	}
}

func TestPresenceReference(t *testing.T) {
	root := NewRoot(rows())
	artifacts := NewIterationArtifacts(NewListIterable(root, "ID"))
	presence := NewPresenceReference(artifacts)
	if presence.Value() != false {
		t.Errorf("empty list presence = %v, want false", presence.Value())
	}
	root.Update(rows("a"))
	if presence.Value() != true {
		t.Errorf("non-empty list presence = %v, want true", presence.Value())
	}
}
