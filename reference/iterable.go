package reference

import (
	"errors"
	"fmt"
)

// ErrDuplicateKey is reported when one iteration yields the same key twice.
var ErrDuplicateKey = errors.New("duplicate iteration key")

// Item is one element produced by an iterator.
type Item struct {
	Key   string
	Value any
	Memo  any
}

// Iterator yields the items of one pass over an iterable.
type Iterator interface {
	IsEmpty() bool
	Next() (Item, bool)
}

// Iterable is a keyed, reactive data source for list rendering.
type Iterable interface {
	Tag() Tag
	Iterate() Iterator
	ValueReferenceFor(item Item) PathReference
	UpdateValueReference(ref PathReference, item Item)
	MemoReferenceFor(item Item) PathReference
	UpdateMemoReference(ref PathReference, item Item)
}

// ListItem is the retained state of one key.
type ListItem struct {
	Key   string
	Value PathReference
	Memo  PathReference

	iterable Iterable
}

func newListItem(iterable Iterable, item Item) *ListItem {
	return &ListItem{
		Key:      item.Key,
		Value:    iterable.ValueReferenceFor(item),
		Memo:     iterable.MemoReferenceFor(item),
		iterable: iterable,
	}
}

// update re-points the item's references at the new value and memo.
func (l *ListItem) update(item Item) {
	l.iterable.UpdateValueReference(l.Value, item)
	l.iterable.UpdateMemoReference(l.Memo, item)
}

// ---------------------------------------------------------------------------
// IterationArtifacts
// ---------------------------------------------------------------------------

// IterationArtifacts is the reconciliation state of one list construct: an
// ordered map from key to item. Its tag is the tag of the iterable.
type IterationArtifacts struct {
	iterable Iterable
	pending  Iterator
	order    []*ListItem
	items    map[string]*ListItem
}

// NewIterationArtifacts returns empty artifacts for iterable.
func NewIterationArtifacts(iterable Iterable) *IterationArtifacts {
	return &IterationArtifacts{
		iterable: iterable,
		items:    make(map[string]*ListItem),
	}
}

// Tag returns the tag of the underlying iterable.
func (a *IterationArtifacts) Tag() Tag {
	return a.iterable.Tag()
}

// IsEmpty iterates the source and reports whether it has no items. The
// iterator is kept for the next call to Iterate.
func (a *IterationArtifacts) IsEmpty() bool {
	a.pending = a.iterable.Iterate()
	return a.pending.IsEmpty()
}

// Iterate returns a fresh iterator, reusing one prepared by IsEmpty.
func (a *IterationArtifacts) Iterate() Iterator {
	it := a.pending
	a.pending = nil
	if it == nil {
		it = a.iterable.Iterate()
	}
	return it
}

// Has reports whether key is currently rendered.
func (a *IterationArtifacts) Has(key string) bool {
	_, ok := a.items[key]
	return ok
}

// Get returns the item for key.
func (a *IterationArtifacts) Get(key string) *ListItem {
	return a.items[key]
}

// Len returns the number of items.
func (a *IterationArtifacts) Len() int {
	return len(a.order)
}

// Keys returns the keys in render order.
func (a *IterationArtifacts) Keys() []string {
	keys := make([]string, len(a.order))
	for i, item := range a.order {
		keys[i] = item.Key
	}
	return keys
}

// Append adds a new item at the end.
func (a *IterationArtifacts) Append(item Item) (*ListItem, error) {
	if a.Has(item.Key) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, item.Key)
	}
	node := newListItem(a.iterable, item)
	a.order = append(a.order, node)
	a.items[item.Key] = node
	return node, nil
}

// ReferenceIterator pulls items during the initial render, recording each
// one in the artifacts.
type ReferenceIterator struct {
	artifacts *IterationArtifacts
	iterator  Iterator
}

// NewReferenceIterator starts iterating iterable.
func NewReferenceIterator(iterable Iterable) *ReferenceIterator {
	return &ReferenceIterator{artifacts: NewIterationArtifacts(iterable)}
}

// Artifacts returns the state the iterator records into.
func (r *ReferenceIterator) Artifacts() *IterationArtifacts {
	return r.artifacts
}

// Next returns the next item, or false when the iteration is exhausted.
func (r *ReferenceIterator) Next() (*ListItem, bool, error) {
	if r.iterator == nil {
		r.iterator = r.artifacts.Iterate()
	}
	item, ok := r.iterator.Next()
	if !ok {
		return nil, false, nil
	}
	node, err := r.artifacts.Append(item)
	if err != nil {
		return nil, false, err
	}
	return node, true, nil
}

// PresenceReference is true while the iterable has at least one item. It
// shares the artifacts' tag.
type PresenceReference struct {
	artifacts *IterationArtifacts
}

// NewPresenceReference returns the presence reference for artifacts.
func NewPresenceReference(artifacts *IterationArtifacts) *PresenceReference {
	return &PresenceReference{artifacts: artifacts}
}

func (p *PresenceReference) Tag() Tag   { return p.artifacts.Tag() }
func (p *PresenceReference) Value() any { return !p.artifacts.IsEmpty() }
