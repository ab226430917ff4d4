// Package wire is the on-disk and over-the-wire form of compiled programs:
// canonical CBOR, so that equal programs encode to equal bytes, wrapped in a
// bundle that carries a content hash of the encoded program.
package wire

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/facet/vm"
)

// BundleVersion is the current bundle format version.
const BundleVersion uint16 = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Bundle is a named program plus the SHA-256 of its canonical encoding.
type Bundle struct {
	Version uint16   `cbor:"1,keyasint"`
	Name    string   `cbor:"2,keyasint,omitempty"`
	Hash    [32]byte `cbor:"3,keyasint"`
	Program []byte   `cbor:"4,keyasint"` // canonical CBOR of vm.Program
}

// MarshalProgram serializes a program to canonical CBOR.
func MarshalProgram(p *vm.Program) ([]byte, error) {
	data, err := encMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal program: %w", err)
	}
	return data, nil
}

// UnmarshalProgram deserializes and validates a program.
func UnmarshalProgram(data []byte) (*vm.Program, error) {
	var p vm.Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("wire: unmarshal program: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	return &p, nil
}

// HashProgram is the content hash of a program's canonical encoding.
func HashProgram(p *vm.Program) ([32]byte, error) {
	data, err := MarshalProgram(p)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// NewBundle encodes p and records its hash.
func NewBundle(name string, p *vm.Program) (*Bundle, error) {
	data, err := MarshalProgram(p)
	if err != nil {
		return nil, err
	}
	return &Bundle{
		Version: BundleVersion,
		Name:    name,
		Hash:    sha256.Sum256(data),
		Program: data,
	}, nil
}

// Verify checks the bundle version and that the program bytes match the
// declared hash.
func (b *Bundle) Verify() error {
	if b.Version != BundleVersion {
		return fmt.Errorf("wire: bundle version %d, want %d", b.Version, BundleVersion)
	}
	if computed := sha256.Sum256(b.Program); computed != b.Hash {
		return fmt.Errorf("wire: hash mismatch: declared %x, computed %x", b.Hash, computed)
	}
	return nil
}

// Decode verifies the bundle and returns its program.
func (b *Bundle) Decode() (*vm.Program, error) {
	if err := b.Verify(); err != nil {
		return nil, err
	}
	return UnmarshalProgram(b.Program)
}

// MarshalBundle serializes a bundle to CBOR bytes.
func MarshalBundle(b *Bundle) ([]byte, error) {
	return encMode.Marshal(b)
}

// UnmarshalBundle deserializes a bundle. It does not verify it.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("wire: unmarshal bundle: %w", err)
	}
	return &b, nil
}

// WriteFile writes p as a bundle to path.
func WriteFile(path, name string, p *vm.Program) error {
	b, err := NewBundle(name, p)
	if err != nil {
		return err
	}
	data, err := MarshalBundle(b)
	if err != nil {
		return fmt.Errorf("wire: marshal bundle: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile reads and verifies the bundle at path.
func ReadFile(path string) (*Bundle, *vm.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	b, err := UnmarshalBundle(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	p, err := b.Decode()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, p, nil
}
