package vm

import (
	"github.com/google/uuid"

	"github.com/chazu/facet/host"
	"github.com/chazu/facet/reference"
)

// ListBlockOpcode is the range of one keyed list. Its children are the
// per-item ranges, in document order.
type ListBlockOpcode struct {
	opNode
	arena     *arena
	rangeID   uuid.UUID
	artifacts *reference.IterationArtifacts
	iterator  *reference.ReferenceIterator
	state     vmState
	bodyStart int
	bodyEnd   int
	tracker   *listTracker
	children  opList
	items     map[string]*TryOpcode

	lastIterated reference.Revision
	placeholder  host.Node
}

func newListBlock(a *arena, it *reference.ReferenceIterator, bodyStart, bodyEnd int) *ListBlockOpcode {
	return &ListBlockOpcode{
		arena:     a,
		rangeID:   uuid.New(),
		artifacts: it.Artifacts(),
		iterator:  it,
		bodyStart: bodyStart,
		bodyEnd:   bodyEnd,
		children:  newOpList(),
		items:     make(map[string]*TryOpcode),
	}
}

func (l *ListBlockOpcode) Type() string       { return "list-block" }
func (l *ListBlockOpcode) Tag() reference.Tag { return l.artifacts.Tag() }
func (l *ListBlockOpcode) ID() uuid.UUID      { return l.rangeID }
func (l *ListBlockOpcode) Key() string        { return l.state.key }

func (l *ListBlockOpcode) ParentElement() host.Node { return l.tracker.parent }
func (l *ListBlockOpcode) FirstNode() host.Node     { return l.firstNode() }
func (l *ListBlockOpcode) LastNode() host.Node      { return l.lastNode() }

// Keys returns the item keys in document order.
func (l *ListBlockOpcode) Keys() []string {
	return l.artifacts.Keys()
}

// Item returns the range rendering key.
func (l *ListBlockOpcode) Item(key string) (*TryOpcode, bool) {
	t, ok := l.items[key]
	return t, ok
}

func (l *ListBlockOpcode) firstNode() host.Node {
	if l.children.head == nilID {
		return l.placeholder
	}
	return l.item(l.children.head).FirstNode()
}

func (l *ListBlockOpcode) lastNode() host.Node {
	if l.children.tail == nilID {
		return l.placeholder
	}
	return l.item(l.children.tail).LastNode()
}

func (l *ListBlockOpcode) item(id nodeID) *TryOpcode {
	return l.arena.op(id).(*TryOpcode)
}

// Evaluate reconciles the list when its iterable changed, then walks the
// item ranges.
func (l *ListBlockOpcode) Evaluate(vm *UpdatingVM) error {
	if !l.artifacts.Tag().Validate(l.lastIterated) {
		if err := l.sync(vm); err != nil {
			return err
		}
	}
	vm.enter(&l.children, nil)
	return nil
}

func (l *ListBlockOpcode) didInitializeChildren() {
	l.lastIterated = l.artifacts.Tag().Value()
}

func (l *ListBlockOpcode) sync(vm *UpdatingVM) error {
	doc := vm.doc
	parent := l.tracker.parent

	marker := doc.CreateComment("")
	doc.InsertBefore(parent, marker, doc.NextSibling(l.lastNode()))

	target := &listRevalidator{vm: vm, list: l, parent: parent, marker: marker}
	if err := reference.NewSynchronizer(l.artifacts, target).Sync(); err != nil {
		doc.RemoveChild(parent, marker)
		return vm.throw(err)
	}

	if l.children.head == nilID {
		if l.placeholder != nil {
			doc.RemoveChild(parent, l.placeholder)
		}
		l.placeholder = marker
	} else {
		doc.RemoveChild(parent, marker)
		if l.placeholder != nil {
			doc.RemoveChild(parent, l.placeholder)
			l.placeholder = nil
		}
	}
	l.lastIterated = l.artifacts.Tag().Value()
	return nil
}

// listRevalidator applies a reconciliation to the document and to the
// list's item ranges. A nil before item means the end of the list, which
// is the marker.
type listRevalidator struct {
	vm     *UpdatingVM
	list   *ListBlockOpcode
	parent host.Node
	marker host.Node
}

func (r *listRevalidator) position(before *reference.ListItem) (host.Node, nodeID) {
	if before == nil {
		return r.marker, nilID
	}
	t := r.list.items[before.Key]
	return t.FirstNode(), t.id
}

func (r *listRevalidator) Retain(item *reference.ListItem) {
	r.vm.stats.Retained++
}

func (r *listRevalidator) Insert(item *reference.ListItem, before *reference.ListItem) error {
	r.vm.stats.Inserted++
	next, beforeID := r.position(before)
	return r.vm.runtime.insertItem(r.list, item, next, beforeID)
}

func (r *listRevalidator) Move(item *reference.ListItem, before *reference.ListItem) {
	r.vm.stats.Moved++
	t := r.list.items[item.Key]
	next, beforeID := r.position(before)
	host.MoveRange(r.vm.doc, r.parent, t.FirstNode(), t.LastNode(), next)

	a := r.vm.arena
	a.unlink(&r.list.children, t.id)
	a.insertBefore(&r.list.children, t.id, beforeID)
}

func (r *listRevalidator) Delete(item *reference.ListItem) {
	r.vm.stats.Deleted++
	t := r.list.items[item.Key]
	host.RemoveRange(r.vm.doc, r.parent, t.FirstNode(), t.LastNode())

	r.vm.arena.unlink(&r.list.children, t.id)
	r.vm.runtime.destroy(t.id)
	delete(r.list.items, item.Key)
}

func (r *listRevalidator) Done() {}
