package reference

import (
	"math"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Revisions
// ---------------------------------------------------------------------------

// Revision is a point on the global change clock.
type Revision uint64

const (
	// Constant is the revision reported by tags that never change.
	Constant Revision = 0

	// Initial is the clock value before any mutation happened.
	Initial Revision = 1

	// Volatile is reported by tags that must always be re-checked.
	Volatile Revision = math.MaxUint64
)

var clock atomic.Uint64

func init() {
	clock.Store(uint64(Initial))
}

// Current returns the current clock value.
func Current() Revision {
	return Revision(clock.Load())
}

// Bump advances the clock and returns the new revision.
func Bump() Revision {
	return Revision(clock.Add(1))
}

// ---------------------------------------------------------------------------
// Tags
// ---------------------------------------------------------------------------

// Tag records the last revision at which a value changed.
type Tag interface {
	// Value returns the revision of the last change.
	Value() Revision

	// Validate reports whether nothing changed since snapshot was taken.
	Validate(snapshot Revision) bool
}

type constantTag struct{}

func (constantTag) Value() Revision                 { return Constant }
func (constantTag) Validate(snapshot Revision) bool { return snapshot == Constant }

type volatileTag struct{}

func (volatileTag) Value() Revision        { return Volatile }
func (volatileTag) Validate(Revision) bool { return false }

type currentTag struct{}

func (currentTag) Value() Revision                 { return Current() }
func (currentTag) Validate(snapshot Revision) bool { return Current() == snapshot }

var (
	// ConstantTag never invalidates.
	ConstantTag Tag = constantTag{}

	// VolatileTag never validates.
	VolatileTag Tag = volatileTag{}

	// CurrentTag follows the clock; it invalidates on any mutation anywhere.
	CurrentTag Tag = currentTag{}
)

// DirtyableTag is owned by a mutable cell.
type DirtyableTag struct {
	revision Revision
}

// NewDirtyableTag returns a tag stamped with the current revision.
func NewDirtyableTag() *DirtyableTag {
	return &DirtyableTag{revision: Current()}
}

func (t *DirtyableTag) Value() Revision { return t.revision }

func (t *DirtyableTag) Validate(snapshot Revision) bool { return t.revision == snapshot }

// Dirty marks the owning cell as changed at a fresh revision.
func (t *DirtyableTag) Dirty() {
	t.revision = Bump()
}

// UpdatableTag forwards to an inner tag that can be swapped. Swapping counts
// as a change.
type UpdatableTag struct {
	inner       Tag
	lastUpdated Revision
}

// NewUpdatableTag wraps inner.
func NewUpdatableTag(inner Tag) *UpdatableTag {
	return &UpdatableTag{inner: inner, lastUpdated: Initial}
}

func (t *UpdatableTag) Value() Revision {
	return max(t.lastUpdated, t.inner.Value())
}

func (t *UpdatableTag) Validate(snapshot Revision) bool {
	return t.inner != VolatileTag && t.Value() == snapshot
}

// Update points the tag at a new inner tag.
func (t *UpdatableTag) Update(inner Tag) {
	if inner != t.inner {
		t.lastUpdated = Current()
		t.inner = inner
	}
}

// Inner returns the wrapped tag.
func (t *UpdatableTag) Inner() Tag {
	return t.inner
}

// ---------------------------------------------------------------------------
// Combinators
// ---------------------------------------------------------------------------

type tagsCombinator struct {
	tags []Tag
}

func (t *tagsCombinator) Value() Revision {
	var v Revision
	for _, tag := range t.tags {
		v = max(v, tag.Value())
	}
	return v
}

func (t *tagsCombinator) Validate(snapshot Revision) bool { return t.Value() == snapshot }

// Combine returns a tag whose value is the maximum of its inputs. Constant
// inputs are dropped; combining nothing yields ConstantTag.
func Combine(tags ...Tag) Tag {
	live := make([]Tag, 0, len(tags))
	for _, tag := range tags {
		if tag == nil || tag == ConstantTag {
			continue
		}
		if tag == VolatileTag {
			return VolatileTag
		}
		live = append(live, tag)
	}
	switch len(live) {
	case 0:
		return ConstantTag
	case 1:
		return live[0]
	default:
		return &tagsCombinator{tags: live}
	}
}

// CombineReferences combines the tags of refs.
func CombineReferences(refs ...Reference) Tag {
	tags := make([]Tag, len(refs))
	for i, r := range refs {
		tags[i] = r.Tag()
	}
	return Combine(tags...)
}
