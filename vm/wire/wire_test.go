package wire

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/facet/host/htmldoc"
	"github.com/chazu/facet/reference"
	"github.com/chazu/facet/vm"
)

func sampleProgram(t *testing.T) *vm.Program {
	t.Helper()
	b := vm.NewBuilder()
	name := b.Symbol("name")
	b.Mark("start")
	b.OpenElement("p")
	b.StaticAttr("class", "greeting")
	b.FlushElement()
	b.Text("hello ")
	b.Path("name")
	b.ToBoolean(vm.SimpleTest)
	b.Emit(vm.OpJumpUnless, vm.Label("anon"))
	b.Path("name")
	b.Emit(vm.OpAppendText)
	b.Emit(vm.OpJump, vm.Label("done"))
	b.Mark("anon")
	b.Emit(vm.OpConstant, uint32(vm.ConstOther), b.Other("stranger"))
	b.Emit(vm.OpAppendText)
	b.Mark("done")
	b.Emit(vm.OpConstant, uint32(vm.ConstNumber), b.Number(2.5))
	b.Emit(vm.OpPop, 1)
	b.CloseElement()
	b.Mark("end")
	b.Emit(vm.OpBindPositionalArgs, b.Array(name))
	b.Entry("start", "end")
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

func render(t *testing.T, p *vm.Program, self map[string]any) string {
	t.Helper()
	doc := htmldoc.New()
	tmpl, err := vm.NewTemplate(p, vm.NewEnvironment(doc))
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	if _, err := tmpl.Render(reference.NewRoot(reference.NewObject(self)), doc.Root(), nil, nil); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return doc.Render()
}

func TestProgramRoundTrip(t *testing.T) {
	p := sampleProgram(t)
	data, err := MarshalProgram(p)
	if err != nil {
		t.Fatalf("MarshalProgram: %v", err)
	}
	got, err := UnmarshalProgram(data)
	if err != nil {
		t.Fatalf("UnmarshalProgram: %v", err)
	}

	if want, have := p.Disassemble(), got.Disassemble(); want != have {
		t.Fatalf("listing changed after round trip:\nwant:\n%s\ngot:\n%s", want, have)
	}
	for _, self := range []map[string]any{{"name": "ada"}, {}} {
		if want, have := render(t, p, self), render(t, got, self); want != have {
			t.Errorf("render after round trip = %q, want %q", have, want)
		}
	}
}

func TestCanonicalEncoding(t *testing.T) {
	a, err := MarshalProgram(sampleProgram(t))
	if err != nil {
		t.Fatalf("MarshalProgram: %v", err)
	}
	b, err := MarshalProgram(sampleProgram(t))
	if err != nil {
		t.Fatalf("MarshalProgram: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("equal programs encoded differently")
	}

	h1, _ := HashProgram(sampleProgram(t))
	h2, _ := HashProgram(sampleProgram(t))
	if h1 != h2 {
		t.Fatalf("hashes differ: %x vs %x", h1, h2)
	}
}

func TestUnmarshalProgramValidates(t *testing.T) {
	p := sampleProgram(t)
	p.Version = vm.ProgramVersion + 1
	data, err := MarshalProgram(p)
	if err != nil {
		t.Fatalf("MarshalProgram: %v", err)
	}
	if _, err := UnmarshalProgram(data); err == nil || !strings.Contains(err.Error(), "program version") {
		t.Fatalf("UnmarshalProgram = %v, want a version error", err)
	}
	if _, err := UnmarshalProgram([]byte{0xff, 0x00}); err == nil {
		t.Fatal("UnmarshalProgram accepted garbage")
	}
}

func TestBundleVerify(t *testing.T) {
	b, err := NewBundle("greeting", sampleProgram(t))
	if err != nil {
		t.Fatalf("NewBundle: %v", err)
	}
	data, err := MarshalBundle(b)
	if err != nil {
		t.Fatalf("MarshalBundle: %v", err)
	}
	got, err := UnmarshalBundle(data)
	if err != nil {
		t.Fatalf("UnmarshalBundle: %v", err)
	}
	if got.Name != "greeting" || got.Hash != b.Hash {
		t.Fatalf("bundle = %q %x, want greeting %x", got.Name, got.Hash, b.Hash)
	}
	if _, err := got.Decode(); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	tampered := *got
	tampered.Program = append([]byte(nil), got.Program...)
	tampered.Program[len(tampered.Program)-1] ^= 0x01
	if err := tampered.Verify(); err == nil || !strings.Contains(err.Error(), "hash mismatch") {
		t.Fatalf("Verify(tampered) = %v, want hash mismatch", err)
	}

	old := *got
	old.Version = 0
	if err := old.Verify(); err == nil || !strings.Contains(err.Error(), "bundle version") {
		t.Fatalf("Verify(old) = %v, want a version error", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greeting.facet")
	p := sampleProgram(t)
	if err := WriteFile(path, "greeting", p); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if b.Name != "greeting" {
		t.Errorf("Name = %q, want greeting", b.Name)
	}
	if got.Disassemble() != p.Disassemble() {
		t.Error("program changed through a file round trip")
	}

	if _, _, err := ReadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("ReadFile of a missing file succeeded")
	}
}
