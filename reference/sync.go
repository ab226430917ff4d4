package reference

import "fmt"

// SyncTarget receives the edit script computed by a Synchronizer. A nil
// before item means the end of the list.
type SyncTarget interface {
	Retain(item *ListItem)
	Insert(item *ListItem, before *ListItem) error
	Move(item *ListItem, before *ListItem)
	Delete(item *ListItem)
	Done()
}

// Synchronizer reconciles iteration artifacts against a fresh iteration of
// their source. Items are matched by key: keys only in the old run are
// deleted, keys only in the new run are inserted, and among retained keys
// only those outside a longest increasing run of old positions are moved,
// so the number of moves is minimal.
type Synchronizer struct {
	artifacts *IterationArtifacts
	target    SyncTarget
}

// NewSynchronizer binds artifacts to a target.
func NewSynchronizer(artifacts *IterationArtifacts, target SyncTarget) *Synchronizer {
	return &Synchronizer{artifacts: artifacts, target: target}
}

// Sync runs one reconciliation.
func (s *Synchronizer) Sync() error {
	a := s.artifacts

	var next []Item
	seen := make(map[string]struct{})
	it := a.Iterate()
	for {
		item, ok := it.Next()
		if !ok {
			break
		}
		if _, dup := seen[item.Key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, item.Key)
		}
		seen[item.Key] = struct{}{}
		next = append(next, item)
	}

	oldPos := make(map[string]int, len(a.order))
	for _, node := range a.order {
		if _, ok := seen[node.Key]; !ok {
			delete(a.items, node.Key)
			s.target.Delete(node)
			continue
		}
		oldPos[node.Key] = len(oldPos)
	}

	nodes := make([]*ListItem, len(next))
	sources := make([]int, len(next))
	for i, item := range next {
		node, ok := a.items[item.Key]
		if !ok {
			sources[i] = -1
			continue
		}
		node.update(item)
		nodes[i] = node
		sources[i] = oldPos[item.Key]
	}

	stable := increasingRun(sources)

	var before *ListItem
	for i := len(next) - 1; i >= 0; i-- {
		switch {
		case sources[i] < 0:
			node := newListItem(a.iterable, next[i])
			a.items[node.Key] = node
			nodes[i] = node
			if err := s.target.Insert(node, before); err != nil {
				return err
			}
		case stable[i]:
			s.target.Retain(nodes[i])
		default:
			s.target.Move(nodes[i], before)
		}
		before = nodes[i]
	}

	a.order = nodes
	s.target.Done()
	return nil
}

// increasingRun marks the members of a longest strictly increasing
// subsequence of seq, ignoring negative entries.
func increasingRun(seq []int) []bool {
	// tails[k] is the index in seq of the smallest tail of an increasing run
	// of length k+1.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))
	for i, v := range seq {
		prev[i] = -1
		if v < 0 {
			continue
		}
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}

	member := make([]bool, len(seq))
	if len(tails) == 0 {
		return member
	}
	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		member[i] = true
	}
	return member
}
