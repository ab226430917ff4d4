package vm

import (
	"testing"

	"github.com/chazu/facet/host/htmldoc"
	"github.com/chazu/facet/reference"
)

func TestTruthy(t *testing.T) {
	var nilPtr *int
	n := 3
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{reference.Undefined, false},
		{false, false},
		{true, true},
		{"", false},
		{"x", true},
		{0, false},
		{0.0, false},
		{int8(0), false},
		{uint(3), true},
		{float32(0.5), true},
		{[]any{}, false},
		{[]int{1}, true},
		{map[string]any{}, false},
		{nilPtr, false},
		{&n, true},
		{struct{}{}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestEnvironmentTransactions(t *testing.T) {
	env := NewEnvironment(htmldoc.New())
	var seen []string
	env.OnDestroy(func(r Range) { seen = append(seen, r.Key()) })

	env.Begin()
	env.DidDestroy(newTry(0, 0, "a"))
	env.DidDestroy(newTry(0, 0, "b"))
	if len(seen) != 0 {
		t.Fatalf("destroy callbacks ran before commit: %v", seen)
	}
	env.Commit()
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Fatalf("destroyed = %v, want [a b]", seen)
	}

	env.Begin()
	env.Commit()
	if len(seen) != 2 {
		t.Fatalf("empty transaction reported %v", seen)
	}
}

func TestEnvironmentTransactionMisuse(t *testing.T) {
	env := NewEnvironment(htmldoc.New())

	expectViolation(t, func() { env.Commit() })
	expectViolation(t, func() { env.DidDestroy(newTry(0, 0, "")) })

	env.Begin()
	expectViolation(t, func() { env.Begin() })
}

func TestEnvironmentHelpers(t *testing.T) {
	env := NewEnvironment(htmldoc.New())
	if _, ok := env.Helper("upper"); ok {
		t.Fatal("unregistered helper found")
	}
	env.RegisterHelper("upper", func(args *Args) reference.Reference {
		return args.At(0)
	})
	fn, ok := env.Helper("upper")
	if !ok {
		t.Fatal("registered helper not found")
	}
	if got := fn(NewArgs([]reference.PathReference{reference.Const("x")}, nil, nil)).Value(); got != "x" {
		t.Fatalf("helper returned %v", got)
	}
}
