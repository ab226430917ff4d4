// Package htmldoc is an in-memory host document built on the
// golang.org/x/net/html node tree. It counts every mutation so callers can
// observe how much work a render pass did.
package htmldoc

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/chazu/facet/host"
)

// Stats counts mutations applied to attached or detached nodes.
type Stats struct {
	Inserts         int
	Moves           int
	Removals        int
	TextWrites      int
	AttributeWrites int
}

// Mutations is the total of all counters.
func (s Stats) Mutations() int {
	return s.Inserts + s.Moves + s.Removals + s.TextWrites + s.AttributeWrites
}

// Document implements host.Document.
type Document struct {
	root  *html.Node
	stats Stats
}

var _ host.Document = (*Document)(nil)

// New returns an empty document.
func New() *Document {
	return &Document{root: &html.Node{Type: html.DocumentNode}}
}

// Root is the document node. Renders usually target it or an element
// created under it.
func (d *Document) Root() host.Node {
	return d.root
}

// Stats returns the mutation counters.
func (d *Document) Stats() Stats {
	return d.stats
}

// ResetStats zeroes the mutation counters.
func (d *Document) ResetStats() {
	d.stats = Stats{}
}

// Render serializes the whole document.
func (d *Document) Render() string {
	return InnerHTML(d.root)
}

// InnerHTML serializes the children of n.
func InnerHTML(n host.Node) string {
	var sb strings.Builder
	for c := unwrap(n).FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			panic(err)
		}
	}
	return sb.String()
}

func unwrap(n host.Node) *html.Node {
	if n == nil {
		return nil
	}
	return n.(*html.Node)
}

// wrap keeps a nil *html.Node from becoming a non-nil host.Node.
func wrap(n *html.Node) host.Node {
	if n == nil {
		return nil
	}
	return n
}

// ----- creation

func (d *Document) CreateElement(tag string, parent host.Node) host.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	if tag == "svg" || inSVG(unwrap(parent)) {
		n.Namespace = "svg"
	}
	return n
}

func inSVG(parent *html.Node) bool {
	return parent != nil &&
		parent.Type == html.ElementNode &&
		parent.Namespace == "svg" &&
		parent.Data != "foreignObject"
}

func (d *Document) CreateText(text string) host.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func (d *Document) CreateComment(text string) host.Node {
	return &html.Node{Type: html.CommentNode, Data: text}
}

// ----- mutation

func (d *Document) SetText(node host.Node, text string) {
	d.stats.TextWrites++
	unwrap(node).Data = text
}

func (d *Document) InsertBefore(parent, node, ref host.Node) {
	p, n, r := unwrap(parent), unwrap(node), unwrap(ref)
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
		d.stats.Moves++
	} else {
		d.stats.Inserts++
	}
	p.InsertBefore(n, r)
}

func (d *Document) RemoveChild(parent, node host.Node) {
	d.stats.Removals++
	unwrap(parent).RemoveChild(unwrap(node))
}

func (d *Document) SetAttribute(el host.Node, name, value, namespace string) {
	n := unwrap(el)
	d.stats.AttributeWrites++
	for i := range n.Attr {
		if n.Attr[i].Key == name && n.Attr[i].Namespace == namespace {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Namespace: namespace, Key: name, Val: value})
}

func (d *Document) RemoveAttribute(el host.Node, name, namespace string) {
	n := unwrap(el)
	for i := range n.Attr {
		if n.Attr[i].Key == name && n.Attr[i].Namespace == namespace {
			d.stats.AttributeWrites++
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// ----- navigation

func (d *Document) Parent(node host.Node) host.Node {
	return wrap(unwrap(node).Parent)
}

func (d *Document) NextSibling(node host.Node) host.Node {
	return wrap(unwrap(node).NextSibling)
}

func (d *Document) FirstChild(node host.Node) host.Node {
	return wrap(unwrap(node).FirstChild)
}

func (d *Document) NamespaceOf(node host.Node) string {
	if unwrap(node).Namespace == "svg" {
		return host.NamespaceSVG
	}
	return host.NamespaceHTML
}

// Attr returns the value of an attribute on el.
func Attr(el host.Node, name string) (string, bool) {
	for _, a := range unwrap(el).Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
