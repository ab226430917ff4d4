package reference

import (
	"fmt"
	"reflect"
	"strconv"
)

// Key strategies understood by ListIterable. Any other key is treated as a
// property name read from each item.
const (
	KeyIndex    = "@index"
	KeyIdentity = "@identity"
)

// ListIterable iterates a slice held by a reference.
type ListIterable struct {
	ref Reference
	key string
}

// NewListIterable returns an iterable over the slice held by ref, keyed by
// the given strategy.
func NewListIterable(ref Reference, key string) *ListIterable {
	if key == "" {
		key = KeyIndex
	}
	return &ListIterable{ref: ref, key: key}
}

func (l *ListIterable) Tag() Tag { return l.ref.Tag() }

// Iterate snapshots the current slice.
func (l *ListIterable) Iterate() Iterator {
	return &sliceIterator{items: toSlice(l.ref.Value()), keyFor: l.keyFor}
}

func (l *ListIterable) ValueReferenceFor(item Item) PathReference {
	return NewRoot(item.Value)
}

func (l *ListIterable) UpdateValueReference(ref PathReference, item Item) {
	ref.(*RootReference).Update(item.Value)
}

func (l *ListIterable) MemoReferenceFor(item Item) PathReference {
	return NewRoot(item.Memo)
}

func (l *ListIterable) UpdateMemoReference(ref PathReference, item Item) {
	ref.(*RootReference).Update(item.Memo)
}

func (l *ListIterable) keyFor(v any, index int) string {
	switch l.key {
	case KeyIndex:
		return strconv.Itoa(index)
	case KeyIdentity:
		return identityKey(v)
	default:
		return fmt.Sprint(Property(v, l.key))
	}
}

func identityKey(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return fmt.Sprintf("%p", v)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func toSlice(v any) []any {
	switch t := v.(type) {
	case nil, undefined:
		return nil
	case []any:
		return t
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

type sliceIterator struct {
	items  []any
	keyFor func(any, int) string
	pos    int
}

func (s *sliceIterator) IsEmpty() bool {
	return len(s.items) == 0
}

func (s *sliceIterator) Next() (Item, bool) {
	if s.pos >= len(s.items) {
		return Item{}, false
	}
	i := s.pos
	s.pos++
	v := s.items[i]
	return Item{Key: s.keyFor(v, i), Value: v, Memo: i}, true
}
