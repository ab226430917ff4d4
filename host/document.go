// Package host defines the document abstraction the rendering VM paints
// into. The VM never touches concrete nodes; it asks a Document to create,
// insert, move and remove them.
package host

// Node is an opaque handle to a node owned by a Document.
type Node any

// Namespace URIs recognised by documents.
const (
	NamespaceHTML = "http://www.w3.org/1999/xhtml"
	NamespaceSVG  = "http://www.w3.org/2000/svg"
)

// Document is the host tree the VM renders into.
type Document interface {
	// CreateElement creates an unattached element. The parent is used only
	// to resolve the element's namespace: svg enters the SVG namespace and
	// children of foreignObject return to HTML.
	CreateElement(tag string, parent Node) Node
	CreateText(text string) Node
	CreateComment(text string) Node

	// SetText replaces the contents of a text or comment node.
	SetText(node Node, text string)

	// InsertBefore inserts node into parent before ref, or at the end when
	// ref is nil. A node that is already attached is moved.
	InsertBefore(parent, node, ref Node)
	RemoveChild(parent, node Node)

	Parent(node Node) Node
	NextSibling(node Node) Node
	FirstChild(node Node) Node

	SetAttribute(el Node, name, value, namespace string)
	RemoveAttribute(el Node, name, namespace string)
	NamespaceOf(node Node) string
}

// MoveRange moves the sibling run first..last (inclusive) before ref.
func MoveRange(doc Document, parent, first, last, ref Node) {
	node := first
	for node != nil {
		next := doc.NextSibling(node)
		doc.InsertBefore(parent, node, ref)
		if node == last {
			return
		}
		node = next
	}
}

// RemoveRange detaches the sibling run first..last (inclusive) and returns
// the node that followed last.
func RemoveRange(doc Document, parent, first, last Node) Node {
	next := doc.NextSibling(last)
	node := first
	for node != nil {
		following := doc.NextSibling(node)
		doc.RemoveChild(parent, node)
		if node == last {
			break
		}
		node = following
	}
	return next
}
