package vm

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/facet/host"
	"github.com/chazu/facet/reference"
)

// ErrDestroyed is returned by operations on a destroyed RenderResult.
var ErrDestroyed = errors.New("render result destroyed")

// Template binds a validated program to an environment.
type Template struct {
	program *Program
	env     Environment
	opts    options
}

// NewTemplate validates p and returns a template rendering it through env.
func NewTemplate(p *Program, env Environment, opts ...Option) (*Template, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}
	return &Template{program: p, env: env, opts: buildOptions(opts)}, nil
}

// Program returns the template's program.
func (t *Template) Program() *Program { return t.program }

// Render appends the entry block into parent with self as the root scope's
// self reference. dyn and args may be nil.
func (t *Template) Render(self reference.PathReference, parent host.Node, dyn *DynamicScope, args *Args) (*RenderResult, error) {
	env := t.env
	env.Begin()
	defer env.Commit()

	if dyn == nil {
		dyn = NewDynamicScope(nil)
	}
	if args == nil {
		args = EmptyArgs
	}

	rt := &runtime{
		program: t.program,
		env:     env,
		doc:     env.Document(),
		opts:    t.opts,
		arena:   newArena(),
	}
	entry := t.program.Entry
	root := newTry(int(entry.Start), int(entry.End), "")
	rt.arena.alloc(root)

	vm := rt.newAppendVM(parent, nil)
	vm.dynamicScopes = []*DynamicScope{dyn}
	scope := NewScope(self, t.program.Symbols.Len())

	root.tracker = vm.elements.pushUpdatableBlock()
	// Blocks passed in args are bound in the root scope.
	root.state = vmState{scope: scope.Child(), dynamic: dyn.Child(), args: args, caller: scope}
	vm.pushList(&root.children, root)
	vm.pushFrame(&frame{
		ip:       root.start,
		end:      root.end,
		args:     args,
		caller:   scope,
		onReturn: func() { vm.closeRange(root) },
	}, scope)

	if err := vm.execute(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if len(vm.lists) != 0 {
		violation("%d updating lists left open", len(vm.lists))
	}
	if len(vm.modified) != 0 {
		violation("%d JumpIfNotModified regions left open", len(vm.modified))
	}
	return &RenderResult{id: uuid.New(), rt: rt, root: root}, nil
}

// RenderResult is a rendered template: the document nodes it owns and
// the updating program that keeps them current.
type RenderResult struct {
	id        uuid.UUID
	rt        *runtime
	root      *TryOpcode
	last      PassStats
	destroyed bool
}

func (r *RenderResult) ID() uuid.UUID { return r.id }

func (r *RenderResult) ParentElement() host.Node { return r.root.ParentElement() }
func (r *RenderResult) FirstNode() host.Node     { return r.root.FirstNode() }
func (r *RenderResult) LastNode() host.Node      { return r.root.LastNode() }

// LastPass returns the statistics of the most recent Rerender.
func (r *RenderResult) LastPass() PassStats { return r.last }

// Rerender runs one update pass. A *StaleError means part of the output
// no longer matches its inputs; the caller may Rebuild the range it names.
func (r *RenderResult) Rerender() error {
	if r.destroyed {
		return ErrDestroyed
	}
	if r.root.stale != nil {
		return &StaleError{Range: r.root, Cause: r.root.stale}
	}

	start := time.Now()
	var stats PassStats
	env := r.rt.env
	env.Begin()
	defer func() {
		env.Commit()
		stats.Duration = time.Since(start)
		r.last = stats
	}()
	return r.rt.newUpdatingVM(&stats).execute(&r.root.children, r.root)
}

// Rebuild re-renders the range named by a StaleError from the state it
// captured when it was first appended. Ranges nested in it are destroyed
// and appended afresh.
func (r *RenderResult) Rebuild(se *StaleError) error {
	if r.destroyed {
		return ErrDestroyed
	}
	t, ok := se.Range.(*TryOpcode)
	if !ok || !r.rt.arena.owns(t) {
		return fmt.Errorf("rebuild: range %s does not belong to this result", se.Range.ID())
	}
	if t.destroyed {
		return fmt.Errorf("rebuild: range %s was destroyed", t.rangeID)
	}

	env := r.rt.env
	env.Begin()
	defer env.Commit()
	if err := r.rt.rebuild(t); err != nil {
		return fmt.Errorf("rebuild %s: %w", t.rangeID, err)
	}
	return nil
}

// Destroy removes the result's nodes from the document and reports every
// range it owned as destroyed.
func (r *RenderResult) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	rt := r.rt
	parent, first, last := r.root.ParentElement(), r.root.FirstNode(), r.root.LastNode()

	rt.env.Begin()
	defer rt.env.Commit()
	rt.destroy(r.root.id)
	if first != nil {
		host.RemoveRange(rt.doc, parent, first, last)
	}
}
