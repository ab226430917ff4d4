package host

import (
	"fmt"
	"strings"

	"github.com/chazu/facet/reference"
)

// AttributeManager writes one attribute of one element. Set is used on the
// initial render, Update on re-renders.
type AttributeManager interface {
	Set(doc Document, el Node, value any)
	Update(doc Document, el Node, value any)
}

var booleanAttributes = map[string]bool{
	"checked":  true,
	"disabled": true,
	"hidden":   true,
	"multiple": true,
	"readonly": true,
	"required": true,
	"selected": true,
}

var urlAttributes = map[string]bool{
	"href":       true,
	"src":        true,
	"action":     true,
	"formaction": true,
	"background": true,
	"cite":       true,
	"poster":     true,
	"xlink:href": true,
}

// DefaultAttributeFor returns the stock manager for attr on tag.
// Untrusted values written to URL-valued attributes are sanitized.
func DefaultAttributeFor(tag, attr string, trusting bool, namespace string) AttributeManager {
	name := strings.ToLower(attr)
	switch {
	case booleanAttributes[name] && namespace == "":
		return &BooleanAttribute{Name: attr}
	case urlAttributes[name] && !trusting:
		return &SafeURLAttribute{Attribute{Name: attr, Namespace: namespace}}
	}
	return &Attribute{Name: attr, Namespace: namespace}
}

// Normalize converts a value to attribute text. The second result is false
// when the attribute should be absent: nil, undefined and false.
func Normalize(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case bool:
		if !v {
			return "", false
		}
		return "", true
	case string:
		return v, true
	}
	if value == reference.Undefined {
		return "", false
	}
	return fmt.Sprint(value), true
}

// Attribute is a plain string-valued attribute.
type Attribute struct {
	Name      string
	Namespace string
}

func (a *Attribute) Set(doc Document, el Node, value any) {
	if text, ok := Normalize(value); ok {
		doc.SetAttribute(el, a.Name, text, a.Namespace)
	}
}

func (a *Attribute) Update(doc Document, el Node, value any) {
	text, ok := Normalize(value)
	if !ok {
		doc.RemoveAttribute(el, a.Name, a.Namespace)
		return
	}
	doc.SetAttribute(el, a.Name, text, a.Namespace)
}

// BooleanAttribute is present (with an empty value) while its value is
// truthy.
type BooleanAttribute struct {
	Name string
}

func (b *BooleanAttribute) Set(doc Document, el Node, value any) {
	if truthyAttribute(value) {
		doc.SetAttribute(el, b.Name, "", "")
	}
}

func (b *BooleanAttribute) Update(doc Document, el Node, value any) {
	if truthyAttribute(value) {
		doc.SetAttribute(el, b.Name, "", "")
		return
	}
	doc.RemoveAttribute(el, b.Name, "")
}

func truthyAttribute(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "false"
	}
	return value != reference.Undefined
}

// SafeURLAttribute neutralizes javascript: URLs.
type SafeURLAttribute struct {
	Attribute
}

func (s *SafeURLAttribute) Set(doc Document, el Node, value any) {
	s.Attribute.Set(doc, el, sanitize(value))
}

func (s *SafeURLAttribute) Update(doc Document, el Node, value any) {
	s.Attribute.Update(doc, el, sanitize(value))
}

// SanitizeURL prefixes dangerous protocols with "unsafe:".
func SanitizeURL(url string) string {
	trimmed := strings.ToLower(strings.TrimSpace(url))
	for _, proto := range []string{"javascript:", "vbscript:"} {
		if strings.HasPrefix(trimmed, proto) {
			return "unsafe:" + url
		}
	}
	return url
}

func sanitize(value any) any {
	text, ok := Normalize(value)
	if !ok {
		return value
	}
	return SanitizeURL(text)
}
