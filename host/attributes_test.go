package host

import (
	"testing"

	"github.com/chazu/facet/reference"
)

// attrDoc is a Document stub that only records attribute writes.
type attrDoc struct {
	Document
	attrs map[string]string
}

func newAttrDoc() *attrDoc {
	return &attrDoc{attrs: make(map[string]string)}
}

func (d *attrDoc) SetAttribute(el Node, name, value, namespace string) {
	d.attrs[name] = value
}

func (d *attrDoc) RemoveAttribute(el Node, name, namespace string) {
	delete(d.attrs, name)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      any
		want    string
		present bool
	}{
		{nil, "", false},
		{reference.Undefined, "", false},
		{false, "", false},
		{true, "", true},
		{"x", "x", true},
		{42, "42", true},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if got != tt.want || ok != tt.present {
			t.Errorf("Normalize(%v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.present)
		}
	}
}

func TestAttributeUpdateRemovesNullish(t *testing.T) {
	doc := newAttrDoc()
	attr := DefaultAttributeFor("div", "title", false, "")
	attr.Set(doc, nil, "hello")
	if doc.attrs["title"] != "hello" {
		t.Fatalf("title = %q, want hello", doc.attrs["title"])
	}
	attr.Update(doc, nil, nil)
	if _, ok := doc.attrs["title"]; ok {
		t.Errorf("title still present after update to nil")
	}
}

func TestNullAttributeNotRendered(t *testing.T) {
	doc := newAttrDoc()
	DefaultAttributeFor("div", "title", false, "").Set(doc, nil, reference.Undefined)
	if len(doc.attrs) != 0 {
		t.Errorf("attrs = %v, want none", doc.attrs)
	}
}

func TestBooleanAttribute(t *testing.T) {
	doc := newAttrDoc()
	attr := DefaultAttributeFor("input", "checked", false, "")
	if _, ok := attr.(*BooleanAttribute); !ok {
		t.Fatalf("checked manager = %T, want *BooleanAttribute", attr)
	}
	attr.Set(doc, nil, true)
	if v, ok := doc.attrs["checked"]; !ok || v != "" {
		t.Fatalf("checked = (%q, %v), want present and empty", v, ok)
	}
	attr.Update(doc, nil, false)
	if _, ok := doc.attrs["checked"]; ok {
		t.Errorf("checked still present after false")
	}
}

func TestUntrustedURLIsSanitized(t *testing.T) {
	doc := newAttrDoc()
	DefaultAttributeFor("a", "href", false, "").Set(doc, nil, "javascript:alert(1)")
	if got := doc.attrs["href"]; got != "unsafe:javascript:alert(1)" {
		t.Errorf("href = %q, want unsafe:javascript:alert(1)", got)
	}

	doc = newAttrDoc()
	DefaultAttributeFor("a", "href", true, "").Set(doc, nil, "javascript:alert(1)")
	if got := doc.attrs["href"]; got != "javascript:alert(1)" {
		t.Errorf("trusted href = %q, want it unchanged", got)
	}

	if got := SanitizeURL("https://example.com"); got != "https://example.com" {
		t.Errorf("SanitizeURL changed a safe url: %q", got)
	}
}
