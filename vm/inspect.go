package vm

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// InspectNode is a debugging view of one updating opcode.
type InspectNode struct {
	GUID     int               `json:"guid"`
	Type     string            `json:"type"`
	Range    string            `json:"range,omitempty"`
	Key      string            `json:"key,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
	Children []*InspectNode    `json:"children,omitempty"`
}

// Inspect returns the updating program as a tree rooted at the result's
// range.
func (r *RenderResult) Inspect() *InspectNode {
	return r.rt.inspect(r.root)
}

// InspectJSON renders Inspect as indented JSON.
func (r *RenderResult) InspectJSON() ([]byte, error) {
	return json.MarshalIndent(r.Inspect(), "", "  ")
}

func (rt *runtime) inspect(op UpdatingOpcode) *InspectNode {
	n := &InspectNode{GUID: op.node().guid, Type: op.Type()}
	details := map[string]string{}

	var children *opList
	switch o := op.(type) {
	case *TryOpcode:
		n.Range, n.Key = o.rangeID.String(), o.key
		if o.stale != nil {
			details["stale"] = o.stale.Error()
		}
		children = &o.children
	case *ListBlockOpcode:
		n.Range = o.rangeID.String()
		details["keys"] = strings.Join(o.Keys(), ",")
		children = &o.children
	case *AssertOpcode:
		details["expected"] = fmt.Sprint(o.Expected())
	case *JumpIfNotModifiedOpcode:
		if o.target != nil {
			details["target"] = o.target.name
		}
	case *DidModifyOpcode:
		if o.target.target != nil {
			details["target"] = o.target.target.name
		}
	case *LabelOpcode:
		details["label"] = o.name
	case *UpdateTextOpcode:
		details["text"] = o.lastText
	case *UpdateAttributeOpcode:
		details["name"] = o.name
		details["value"] = fmt.Sprint(o.cache.Peek())
	}
	if len(details) > 0 {
		n.Details = details
	}

	if children != nil {
		rt.arena.each(children, func(_ nodeID, child UpdatingOpcode) {
			n.Children = append(n.Children, rt.inspect(child))
		})
	}
	return n
}
