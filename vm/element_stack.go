package vm

import (
	"github.com/chazu/facet/host"
)

// Bounds is a run of sibling nodes under one parent. Bounds of an open or
// updatable block resolve lazily, so an outer block always sees the
// current first and last nodes of the blocks nested in it.
type Bounds interface {
	ParentElement() host.Node
	FirstNode() host.Node
	LastNode() host.Node
}

type nodeBounds struct {
	parent host.Node
	node   host.Node
}

func (b nodeBounds) ParentElement() host.Node { return b.parent }
func (b nodeBounds) FirstNode() host.Node     { return b.node }
func (b nodeBounds) LastNode() host.Node      { return b.node }

// tracker records the bounds of a block while it is being built.
type tracker interface {
	Bounds
	openElement(el host.Node)
	closeElement()
	didAppendNode(n host.Node)
	didAppendBounds(b Bounds)
	finalize(s *elementStack)
}

// simpleTracker tracks the top-level nodes appended to a block. Nodes
// appended inside an element of the block are ignored.
type simpleTracker struct {
	parent  host.Node
	first   Bounds
	last    Bounds
	nesting int
}

func (t *simpleTracker) ParentElement() host.Node { return t.parent }

func (t *simpleTracker) FirstNode() host.Node {
	if t.first == nil {
		return nil
	}
	return t.first.FirstNode()
}

func (t *simpleTracker) LastNode() host.Node {
	if t.last == nil {
		return nil
	}
	return t.last.LastNode()
}

func (t *simpleTracker) openElement(el host.Node) {
	t.didAppendNode(el)
	t.nesting++
}

func (t *simpleTracker) closeElement() {
	t.nesting--
}

func (t *simpleTracker) didAppendNode(n host.Node) {
	if t.nesting != 0 {
		return
	}
	b := nodeBounds{parent: t.parent, node: n}
	if t.first == nil {
		t.first = b
	}
	t.last = b
}

func (t *simpleTracker) didAppendBounds(b Bounds) {
	if t.nesting != 0 {
		return
	}
	if t.first == nil {
		t.first = b
	}
	t.last = b
}

// finalize gives an empty block a placeholder so its bounds are never
// empty.
func (t *simpleTracker) finalize(s *elementStack) {
	if t.first == nil {
		s.appendComment("")
	}
}

// updatableTracker is a block whose contents can be cleared and rebuilt.
type updatableTracker struct {
	simpleTracker
}

// reset removes the block's nodes and returns the node that followed
// them, which is where a rebuild inserts.
func (t *updatableTracker) reset(doc host.Document) host.Node {
	first, last := t.FirstNode(), t.LastNode()
	t.first, t.last, t.nesting = nil, nil, 0
	if first == nil {
		return nil
	}
	return host.RemoveRange(doc, t.parent, first, last)
}

// listTracker reports the bounds of a list block: from its first item to
// its last, or its placeholder when it has no items.
type listTracker struct {
	parent host.Node
	list   *ListBlockOpcode
}

func (t *listTracker) ParentElement() host.Node { return t.parent }
func (t *listTracker) FirstNode() host.Node     { return t.list.firstNode() }
func (t *listTracker) LastNode() host.Node      { return t.list.lastNode() }

func (t *listTracker) openElement(host.Node) {
	violation("element opened directly inside a list")
}

func (t *listTracker) closeElement() {
	violation("element closed directly inside a list")
}

func (t *listTracker) didAppendNode(host.Node) {
	violation("node appended directly inside a list")
}

func (t *listTracker) didAppendBounds(Bounds) {}

func (t *listTracker) finalize(s *elementStack) {
	if t.list.children.head == nilID && t.list.placeholder == nil {
		t.list.placeholder = s.appendCommentUntracked("")
	}
}

// elementStack tracks where the VM is inserting: the current parent
// element, the node to insert before, and the open blocks.
type elementStack struct {
	doc          host.Document
	parents      []host.Node
	nextSiblings []host.Node
	blocks       []tracker

	constructing    host.Node
	constructingTag string
}

func newElementStack(doc host.Document, parent, nextSibling host.Node) *elementStack {
	return &elementStack{
		doc:          doc,
		parents:      []host.Node{parent},
		nextSiblings: []host.Node{nextSibling},
	}
}

func (s *elementStack) element() host.Node {
	return s.parents[len(s.parents)-1]
}

func (s *elementStack) nextSibling() host.Node {
	return s.nextSiblings[len(s.nextSiblings)-1]
}

func (s *elementStack) block() tracker {
	if len(s.blocks) == 0 {
		return nil
	}
	return s.blocks[len(s.blocks)-1]
}

// ----- blocks

func (s *elementStack) pushTracker(t tracker) {
	if cur := s.block(); cur != nil {
		cur.didAppendBounds(t)
	}
	s.blocks = append(s.blocks, t)
}

func (s *elementStack) pushUpdatableBlock() *updatableTracker {
	t := &updatableTracker{simpleTracker{parent: s.element()}}
	s.pushTracker(t)
	return t
}

func (s *elementStack) pushListBlock(list *ListBlockOpcode) *listTracker {
	t := &listTracker{parent: s.element(), list: list}
	s.pushTracker(t)
	return t
}

// resumeBlock reopens an existing block without registering it with a
// parent. Used when rebuilding a range in place.
func (s *elementStack) resumeBlock(t tracker) {
	s.blocks = append(s.blocks, t)
}

func (s *elementStack) popBlock() tracker {
	t := s.block()
	if t == nil {
		violation("block stack underflow")
	}
	t.finalize(s)
	s.blocks = s.blocks[:len(s.blocks)-1]
	return t
}

// ----- elements

func (s *elementStack) openElement(tag string) host.Node {
	if s.constructing != nil {
		violation("element <%s> opened while <%s> is not flushed", tag, s.constructingTag)
	}
	el := s.doc.CreateElement(tag, s.element())
	s.constructing = el
	s.constructingTag = tag
	return el
}

func (s *elementStack) flushElement() {
	el := s.constructing
	if el == nil {
		violation("flush without an open element")
	}
	s.constructing = nil
	s.doc.InsertBefore(s.element(), el, s.nextSibling())
	s.block().openElement(el)
	s.parents = append(s.parents, el)
	s.nextSiblings = append(s.nextSiblings, nil)
}

func (s *elementStack) closeElement() {
	if len(s.parents) <= 1 {
		violation("close without an open element")
	}
	s.parents = s.parents[:len(s.parents)-1]
	s.nextSiblings = s.nextSiblings[:len(s.nextSiblings)-1]
	s.block().closeElement()
}

// ----- nodes

func (s *elementStack) appendText(text string) host.Node {
	n := s.doc.CreateText(text)
	s.insert(n)
	return n
}

func (s *elementStack) appendComment(text string) host.Node {
	n := s.doc.CreateComment(text)
	s.insert(n)
	return n
}

func (s *elementStack) appendCommentUntracked(text string) host.Node {
	n := s.doc.CreateComment(text)
	s.doc.InsertBefore(s.element(), n, s.nextSibling())
	return n
}

func (s *elementStack) insert(n host.Node) {
	if s.constructing != nil {
		violation("node appended while <%s> is not flushed", s.constructingTag)
	}
	s.doc.InsertBefore(s.element(), n, s.nextSibling())
	s.block().didAppendNode(n)
}
