package vm

import (
	"strings"
	"testing"
)

func TestBuildResolvesForwardLabels(t *testing.T) {
	b := NewBuilder()
	b.Emit(OpJump, Label("end"))
	b.Text("skipped")
	b.Mark("end")
	b.Text("kept")

	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := p.Code[0].Op1; got != 2 {
		t.Fatalf("jump target = %d, want 2", got)
	}
	if p.Entry.Start != 0 || p.Entry.End != 3 {
		t.Fatalf("entry = %+v, want [0, 3)", p.Entry)
	}

	doc, err := mustRender(b)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := doc.Render(); got != "kept" {
		t.Fatalf("html = %q, want kept", got)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
		want  string
	}{
		{
			name:  "undefined label",
			build: func(b *Builder) { b.Emit(OpJump, Label("nowhere")) },
			want:  `undefined label "nowhere"`,
		},
		{
			name: "label defined twice",
			build: func(b *Builder) {
				b.Mark("x")
				b.Mark("x")
			},
			want: `label "x" defined twice`,
		},
		{
			name:  "too many operands",
			build: func(b *Builder) { b.Emit(OpText, 0, 0, 0, 0) },
			want:  "at most 3",
		},
		{
			name:  "bad operand type",
			build: func(b *Builder) { b.Emit(OpText, "x") },
			want:  "has type string",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.build(b)
			_, err := b.Build()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Build error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Program {
		return &Program{
			Version:   ProgramVersion,
			Code:      []Instruction{{Op: OpText, Op1: 0}},
			Constants: ConstantPool{Strings: []string{"a"}},
			Entry:     Block{Start: 0, End: 1},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *Program)
		want   string
	}{
		{"version", func(p *Program) { p.Version++ }, "program version"},
		{"entry", func(p *Program) { p.Entry.End = 5 }, "entry block"},
		{"string operand", func(p *Program) { p.Code[0].Op1 = 7 }, "string 7 out of range"},
		{"unknown opcode", func(p *Program) { p.Code[0].Op = Opcode(0xFF) }, "unknown opcode"},
		{"jump target", func(p *Program) { p.Code[0] = Instruction{Op: OpJump, Op1: 9} }, "target 9 outside code"},
		{"block", func(p *Program) { p.Constants.Blocks = []Block{{Start: 1, End: 0}} }, "block 0"},
		{"constant index", func(p *Program) {
			p.Code[0] = Instruction{Op: OpConstant, Op1: uint32(ConstNumber), Op2: 0}
		}, "number constant 0 out of range"},
		{"constant kind", func(p *Program) { p.Code[0] = Instruction{Op: OpConstant, Op1: 9} }, "unknown constant kind 9"},
		{"primitive string", func(p *Program) {
			p.Code[0] = Instruction{Op: OpPrimitive, Op1: PrimitiveString(4)}
		}, "string 4 out of range"},
		{"primitive singleton", func(p *Program) {
			p.Code[0] = Instruction{Op: OpPrimitive, Op1: PrimitiveSingleton(7)}
		}, "singleton 7"},
		{"malformed primitive", func(p *Program) {
			p.Code[0] = Instruction{Op: OpPrimitive, Op1: 3 << primitiveShift}
		}, "malformed primitive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestNewTemplateRejectsInvalidPrograms(t *testing.T) {
	p := &Program{Version: ProgramVersion + 1}
	if _, err := NewTemplate(p, NewEnvironment(nil)); err == nil || !strings.Contains(err.Error(), "invalid program") {
		t.Fatalf("NewTemplate = %v, want an invalid program error", err)
	}
}

func TestDisassemble(t *testing.T) {
	b := NewBuilder()
	b.Mark("start")
	b.Text("hello")
	b.Emit(OpJump, Label("start"))
	b.Mark("end")
	b.Entry("start", "end")
	out := b.MustBuild().DisassembleWithName("greeting")

	for _, want := range []string{
		"; === greeting ===",
		"; Entry: [0000, 0002)",
		`[  0] "hello"`,
		"start:\n0000  TEXT",
		"0001  JUMP",
		"0000(start)",
		"end:\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}
