package vm

// evalStack is the VM's value stack. Values are references, *Args,
// *Block, or list iterators.
type evalStack struct {
	values []any
	limit  int
}

func newEvalStack(limit int) *evalStack {
	return &evalStack{values: make([]any, 0, 32), limit: limit}
}

func (s *evalStack) push(v any) {
	if s.limit > 0 && len(s.values) >= s.limit {
		violation("stack overflow (%d values)", s.limit)
	}
	s.values = append(s.values, v)
}

func (s *evalStack) pop() any {
	n := len(s.values)
	if n == 0 {
		violation("stack underflow")
	}
	v := s.values[n-1]
	s.values[n-1] = nil
	s.values = s.values[:n-1]
	return v
}

func (s *evalStack) peek() any {
	n := len(s.values)
	if n == 0 {
		violation("stack underflow")
	}
	return s.values[n-1]
}

func (s *evalStack) len() int {
	return len(s.values)
}

// locals is a stack of reserved windows. Only the innermost window is
// addressable.
type locals struct {
	slots   []any
	windows []int
}

func (l *locals) reserve(n int) {
	l.windows = append(l.windows, len(l.slots))
	for i := 0; i < n; i++ {
		l.slots = append(l.slots, nil)
	}
}

func (l *locals) release() {
	if len(l.windows) == 0 {
		violation("release of locals without a reservation")
	}
	start := l.windows[len(l.windows)-1]
	l.windows = l.windows[:len(l.windows)-1]
	clear(l.slots[start:])
	l.slots = l.slots[:start]
}

func (l *locals) window() []any {
	if len(l.windows) == 0 {
		return nil
	}
	return l.slots[l.windows[len(l.windows)-1]:]
}

func (l *locals) index(i uint32) int {
	w := l.window()
	if int(i) >= len(w) {
		violation("local %d outside reserved window of %d", i, len(w))
	}
	return l.windows[len(l.windows)-1] + int(i)
}

func (l *locals) get(i uint32) any {
	return l.slots[l.index(i)]
}

func (l *locals) set(i uint32, v any) {
	l.slots[l.index(i)] = v
}

// snapshot copies the innermost window, or returns nil when none is open.
func (l *locals) snapshot() []any {
	if len(l.windows) == 0 {
		return nil
	}
	return append([]any{}, l.window()...)
}
