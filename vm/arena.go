package vm

// nodeID addresses an updating opcode in the arena.
type nodeID int32

const nilID nodeID = -1

type arenaNode struct {
	op         UpdatingOpcode
	prev, next nodeID
}

// arena owns every updating opcode of one render result. Opcodes are
// linked into lists by index; a range's children form one list.
type arena struct {
	nodes []arenaNode
	free  []nodeID
	live  int
	guids int
}

func newArena() *arena {
	return &arena{nodes: make([]arenaNode, 0, 64)}
}

// alloc stores op unlinked and records its id on the opcode. Slots are
// reused; the guid is not.
func (a *arena) alloc(op UpdatingOpcode) nodeID {
	a.live++
	a.guids++
	n := arenaNode{op: op, prev: nilID, next: nilID}
	var id nodeID
	if k := len(a.free); k > 0 {
		id = a.free[k-1]
		a.free = a.free[:k-1]
		a.nodes[id] = n
	} else {
		a.nodes = append(a.nodes, n)
		id = nodeID(len(a.nodes) - 1)
	}
	op.node().id = id
	op.node().guid = a.guids
	return id
}

func (a *arena) release(id nodeID) {
	a.nodes[id] = arenaNode{prev: nilID, next: nilID}
	a.free = append(a.free, id)
	a.live--
}

// owns reports whether op is live in this arena.
func (a *arena) owns(op UpdatingOpcode) bool {
	id := op.node().id
	return id >= 0 && int(id) < len(a.nodes) && a.nodes[id].op == op
}

func (a *arena) op(id nodeID) UpdatingOpcode {
	return a.nodes[id].op
}

func (a *arena) next(id nodeID) nodeID {
	return a.nodes[id].next
}

// opList is a doubly linked list of arena nodes.
type opList struct {
	head, tail nodeID
	len        int
}

func newOpList() opList {
	return opList{head: nilID, tail: nilID}
}

func (a *arena) append(l *opList, id nodeID) {
	a.insertBefore(l, id, nilID)
}

// insertBefore links id into l before ref, or at the tail when ref is nil.
func (a *arena) insertBefore(l *opList, id, ref nodeID) {
	n := &a.nodes[id]
	if ref == nilID {
		n.prev, n.next = l.tail, nilID
		if l.tail != nilID {
			a.nodes[l.tail].next = id
		} else {
			l.head = id
		}
		l.tail = id
	} else {
		r := &a.nodes[ref]
		n.prev, n.next = r.prev, ref
		if r.prev != nilID {
			a.nodes[r.prev].next = id
		} else {
			l.head = id
		}
		r.prev = id
	}
	l.len++
}

// unlink removes id from l in O(1).
func (a *arena) unlink(l *opList, id nodeID) {
	n := &a.nodes[id]
	if n.prev != nilID {
		a.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nilID {
		a.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nilID, nilID
	l.len--
}

// each calls fn for every node of l in order.
func (a *arena) each(l *opList, fn func(id nodeID, op UpdatingOpcode)) {
	for id := l.head; id != nilID; {
		next := a.nodes[id].next
		fn(id, a.nodes[id].op)
		id = next
	}
}
