package vdom

import "fmt"

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchSetText     PatchOp = 0x01 // Update text content
	PatchSetAttr     PatchOp = 0x02 // Set/update attribute
	PatchRemoveAttr  PatchOp = 0x03 // Remove attribute
	PatchInsertNode  PatchOp = 0x04 // Insert new node
	PatchRemoveNode  PatchOp = 0x05 // Remove node
	PatchMoveNode    PatchOp = 0x06 // Move a run of siblings
	PatchReplaceNode PatchOp = 0x07 // Replace node entirely
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchInsertNode:
		return "InsertNode"
	case PatchRemoveNode:
		return "RemoveNode"
	case PatchMoveNode:
		return "MoveNode"
	case PatchReplaceNode:
		return "ReplaceNode"
	default:
		return "Unknown"
	}
}

// Patch represents a single DOM operation to apply.
//
// The child list patches of one parent are emitted together: RemoveNode
// patches first, then MoveNode and InsertNode patches in ascending Index
// order. Index is the position in the final child list. A client detaches
// every node named by a MoveNode patch of the batch before inserting, so
// the nodes that stay put are already in their final relative order.
type Patch struct {
	Op       PatchOp // Operation type
	HID      string  // Target element's hydration ID
	Key      string  // Attribute key (for SetAttr/RemoveAttr)
	Value    string  // New value
	Node     *VNode  // For InsertNode/ReplaceNode
	Index    int     // Insert or move position
	Count    int     // Number of consecutive siblings moved (MoveNode)
	ParentID string  // Parent for InsertNode/MoveNode
}

// String returns a compact description of the patch.
func (p Patch) String() string {
	switch p.Op {
	case PatchSetText:
		return fmt.Sprintf("SetText(%s, %q)", p.HID, p.Value)
	case PatchSetAttr:
		return fmt.Sprintf("SetAttr(%s, %s=%q)", p.HID, p.Key, p.Value)
	case PatchRemoveAttr:
		return fmt.Sprintf("RemoveAttr(%s, %s)", p.HID, p.Key)
	case PatchInsertNode:
		return fmt.Sprintf("InsertNode(%s@%d)", p.ParentID, p.Index)
	case PatchRemoveNode:
		return fmt.Sprintf("RemoveNode(%s)", p.HID)
	case PatchMoveNode:
		return fmt.Sprintf("MoveNode(%s+%d -> %s@%d)", p.HID, p.Count, p.ParentID, p.Index)
	case PatchReplaceNode:
		return fmt.Sprintf("ReplaceNode(%s)", p.HID)
	default:
		return "Unknown"
	}
}
