package reference

// ReferenceCache remembers the last value and revision observed through a
// reference. The reference guarantees correctness; the cache only avoids
// re-reading it when the tag proves nothing changed.
type ReferenceCache struct {
	ref          Reference
	tag          Tag
	lastValue    any
	lastRevision Revision
	initialized  bool
}

// NewCache wraps ref. The first observation happens lazily.
func NewCache(ref Reference) *ReferenceCache {
	return &ReferenceCache{ref: ref, tag: ref.Tag()}
}

// Tag returns the tag of the cached reference.
func (c *ReferenceCache) Tag() Tag {
	return c.tag
}

// Reference returns the cached reference.
func (c *ReferenceCache) Reference() Reference {
	return c.ref
}

// Peek returns the last observed value without revalidating. The first call
// captures the initial value.
func (c *ReferenceCache) Peek() any {
	if !c.initialized {
		c.initialize()
	}
	return c.lastValue
}

// Revalidate reports whether the value changed since the last observation.
// When the tag still validates the reference is not read at all. Otherwise
// the reference is re-read and the change is reported unless the new value
// is identical to the old one.
func (c *ReferenceCache) Revalidate() (value any, modified bool) {
	if !c.initialized {
		return c.initialize(), true
	}
	if c.tag.Validate(c.lastRevision) {
		return c.lastValue, false
	}
	v := c.ref.Value()
	c.lastRevision = c.tag.Value()
	if Identical(v, c.lastValue) {
		return c.lastValue, false
	}
	c.lastValue = v
	return v, true
}

func (c *ReferenceCache) initialize() any {
	c.lastValue = c.ref.Value()
	c.lastRevision = c.tag.Value()
	c.initialized = true
	return c.lastValue
}
