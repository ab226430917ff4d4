package vm

import (
	"errors"
	"fmt"
)

// ContractViolation is the panic value for misuse of the VM by a program:
// unbalanced scopes, stack underflow, locals outside the reserved window,
// malformed operands. These indicate a compiler/VM mismatch and are not
// recoverable.
type ContractViolation struct {
	Op  Opcode
	Msg string
}

func (e *ContractViolation) Error() string {
	if e.Op == OpInvalid {
		return "vm: contract violation: " + e.Msg
	}
	return fmt.Sprintf("vm: contract violation in %s: %s", e.Op, e.Msg)
}

func violation(format string, args ...any) {
	panic(&ContractViolation{Msg: fmt.Sprintf(format, args...)})
}

func opViolation(op Opcode, format string, args ...any) {
	panic(&ContractViolation{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// ErrStale matches every *StaleError.
var ErrStale = errors.New("stale range")

// ErrGuardChanged is the cause reported when a branch guard's truthiness
// changed since it was appended.
var ErrGuardChanged = errors.New("branch guard changed")

// StaleError aborts an update pass. Range is the innermost rebuildable
// range containing the change; RenderResult.Rebuild re-renders it.
type StaleError struct {
	Range Range
	Cause error
}

func (e *StaleError) Error() string {
	if e.Range.Key() != "" {
		return fmt.Sprintf("stale range %s (key %q): %v", e.Range.ID(), e.Range.Key(), e.Cause)
	}
	return fmt.Sprintf("stale range %s: %v", e.Range.ID(), e.Cause)
}

func (e *StaleError) Is(target error) bool { return target == ErrStale }

func (e *StaleError) Unwrap() error { return e.Cause }
