package vm

import (
	"time"
)

// PassStats describes one update pass.
type PassStats struct {
	Evaluated int           `json:"evaluated"`
	Skipped   int           `json:"skipped"`
	Stale     int           `json:"stale"`
	Retained  int           `json:"retained"`
	Inserted  int           `json:"inserted"`
	Moved     int           `json:"moved"`
	Deleted   int           `json:"deleted"`
	Duration  time.Duration `json:"duration"`
}

type updatingFrame struct {
	list    *opList
	next    nodeID
	handler *TryOpcode
}

// UpdatingVM walks the updating opcodes of a render result. Each list is
// walked by one frame; the innermost enclosing range is the frame's
// handler and receives staleness.
type UpdatingVM struct {
	*runtime
	frames []updatingFrame
	stats  *PassStats
}

func (rt *runtime) newUpdatingVM(stats *PassStats) *UpdatingVM {
	return &UpdatingVM{runtime: rt, stats: stats}
}

func (vm *UpdatingVM) execute(list *opList, handler *TryOpcode) error {
	vm.enter(list, handler)
	for len(vm.frames) > 0 {
		f := &vm.frames[len(vm.frames)-1]
		id := f.next
		if id == nilID {
			vm.frames = vm.frames[:len(vm.frames)-1]
			continue
		}
		f.next = vm.arena.next(id)

		op := vm.arena.op(id)
		vm.stats.Evaluated++
		if vm.opts.trace {
			log.Debugf("update %s #%d", op.Type(), id)
		}
		if err := op.Evaluate(vm); err != nil {
			vm.frames = nil
			return err
		}
	}
	return nil
}

// enter walks list next. A nil handler inherits the current one.
func (vm *UpdatingVM) enter(list *opList, handler *TryOpcode) {
	if handler == nil && len(vm.frames) > 0 {
		handler = vm.frames[len(vm.frames)-1].handler
	}
	vm.frames = append(vm.frames, updatingFrame{list: list, next: list.head, handler: handler})
}

// gotoLabel resumes the current list after l.
func (vm *UpdatingVM) gotoLabel(l *LabelOpcode) {
	vm.frames[len(vm.frames)-1].next = vm.arena.next(l.id)
}

// throw marks the innermost range stale and aborts the pass.
func (vm *UpdatingVM) throw(cause error) error {
	if se, ok := cause.(*StaleError); ok {
		return se
	}
	h := vm.frames[len(vm.frames)-1].handler
	h.stale = cause
	vm.stats.Stale++
	log.Noticef("stale range %s: %v", h.rangeID, cause)
	return &StaleError{Range: h, Cause: cause}
}
