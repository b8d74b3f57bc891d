package vdom

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/vango-dev/keyed/pkg/keyed"
)

// Diff compares two VNode trees and returns the patches needed to transform prev into next.
// HIDs of matched nodes are copied from prev to next.
func Diff(prev, next *VNode) []Patch {
	var patches []Patch
	diff(prev, next, "", &patches)
	return patches
}

// diff recursively compares nodes and appends patches.
// parentHID is the HID of the parent element, used for text patches that don't have their own HID.
func diff(prev, next *VNode, parentHID string, patches *[]Patch) {
	// Both nil - nothing to do
	if prev == nil && next == nil {
		return
	}

	// Node added (handled by parent via InsertNode)
	if prev == nil {
		return
	}

	// Node removed
	if next == nil {
		*patches = append(*patches, Patch{
			Op:  PatchRemoveNode,
			HID: prev.HID,
		})
		return
	}

	// Different types - replace
	if prev.Kind != next.Kind {
		*patches = append(*patches, Patch{
			Op:   PatchReplaceNode,
			HID:  prev.HID,
			Node: next,
		})
		return
	}

	switch prev.Kind {
	case KindText:
		diffText(prev, next, parentHID, patches)
	case KindElement:
		diffElement(prev, next, patches)
	case KindFragment:
		next.HID = prev.HID
		diffChildren(prev, next, parentHID, patches)
	}
}

// diffText compares text nodes.
func diffText(prev, next *VNode, parentHID string, patches *[]Patch) {
	next.HID = prev.HID

	if prev.Text != next.Text {
		// Text nodes usually have no HID; the client updates the parent's textContent.
		targetHID := prev.HID
		if targetHID == "" {
			targetHID = parentHID
		}
		if targetHID != "" {
			*patches = append(*patches, Patch{
				Op:    PatchSetText,
				HID:   targetHID,
				Value: next.Text,
			})
		}
	}
}

// diffElement compares element nodes.
func diffElement(prev, next *VNode, patches *[]Patch) {
	if prev.Tag != next.Tag {
		*patches = append(*patches, Patch{
			Op:   PatchReplaceNode,
			HID:  prev.HID,
			Node: next,
		})
		return
	}

	next.HID = prev.HID
	diffProps(prev, next, patches)
	diffChildren(prev, next, prev.HID, patches)
}

// diffProps compares and patches attributes.
func diffProps(prev, next *VNode, patches *[]Patch) {
	for key, prevVal := range prev.Props {
		if key == "key" {
			continue
		}
		nextVal, exists := next.Props[key]
		if !exists {
			*patches = append(*patches, Patch{
				Op:  PatchRemoveAttr,
				HID: prev.HID,
				Key: key,
			})
		} else if !propsEqual(prevVal, nextVal) {
			*patches = append(*patches, Patch{
				Op:    PatchSetAttr,
				HID:   prev.HID,
				Key:   key,
				Value: propToString(nextVal),
			})
		}
	}

	for key, nextVal := range next.Props {
		if key == "key" {
			continue
		}
		if _, exists := prev.Props[key]; !exists {
			*patches = append(*patches, Patch{
				Op:    PatchSetAttr,
				HID:   prev.HID,
				Key:   key,
				Value: propToString(nextVal),
			})
		}
	}
}

// diffChildren compares and patches child nodes.
func diffChildren(prev, next *VNode, parentHID string, patches *[]Patch) {
	if hasKeys(prev.Children) || hasKeys(next.Children) {
		diffKeyedChildren(prev, next, parentHID, patches)
	} else {
		diffUnkeyedChildren(prev.Children, next.Children, parentHID, patches)
	}
}

// diffUnkeyedChildren handles children without keys using positional matching.
func diffUnkeyedChildren(prev, next []*VNode, parentHID string, patches *[]Patch) {
	for i := len(prev) - 1; i >= len(next); i-- {
		*patches = append(*patches, Patch{
			Op:  PatchRemoveNode,
			HID: prev[i].HID,
		})
	}
	for i, nextChild := range next {
		if i >= len(prev) {
			*patches = append(*patches, Patch{
				Op:       PatchInsertNode,
				ParentID: parentHID,
				Index:    i,
				Node:     nextChild,
			})
			continue
		}
		diff(prev[i], nextChild, parentHID, patches)
	}
}

// diffKeyedChildren reconciles children by key.
//
// Repeated keys collapse to their first occurrence: later duplicates in
// next are dropped from the tree and later duplicates in prev are removed.
// Unkeyed children among keyed ones are matched by their ordinal among
// the unkeyed children.
func diffKeyedChildren(prevParent, nextParent *VNode, parentHID string, patches *[]Patch) {
	prev, prevKeys, stale := collapseChildren(prevParent.Children)
	next, nextKeys, _ := collapseChildren(nextParent.Children)
	nextParent.Children = next

	for _, child := range stale {
		*patches = append(*patches, Patch{
			Op:  PatchRemoveNode,
			HID: child.HID,
		})
	}

	d := keyed.DiffKeys(prevKeys, nextKeys)
	if d.Clear {
		for i := len(prev) - 1; i >= 0; i-- {
			*patches = append(*patches, Patch{
				Op:  PatchRemoveNode,
				HID: prev[i].HID,
			})
		}
		return
	}

	for _, r := range d.Removed {
		*patches = append(*patches, Patch{
			Op:  PatchRemoveNode,
			HID: prev[r.At].HID,
		})
	}

	placed := make([]Patch, 0, len(d.Moved)+len(d.Added))
	for _, m := range d.Moved {
		if !m.MoveInDOM {
			continue
		}
		placed = append(placed, Patch{
			Op:       PatchMoveNode,
			HID:      prev[m.From].HID,
			ParentID: parentHID,
			Index:    m.To,
			Count:    m.Len,
		})
	}
	for _, a := range d.Added {
		placed = append(placed, Patch{
			Op:       PatchInsertNode,
			ParentID: parentHID,
			Index:    a.At,
			Node:     next[a.At],
		})
	}
	slices.SortStableFunc(placed, func(a, b Patch) int { return a.Index - b.Index })
	*patches = append(*patches, placed...)

	prevIndex := make(map[string]int, len(prevKeys))
	for i, k := range prevKeys {
		prevIndex[k] = i
	}
	for i, k := range nextKeys {
		if j, ok := prevIndex[k]; ok {
			diff(prev[j], next[i], parentHID, patches)
		}
	}
}

// collapseChildren returns the children with repeated keys dropped, the
// reconciliation key of each kept child, and the dropped children.
func collapseChildren(children []*VNode) (kept []*VNode, keys []string, dropped []*VNode) {
	raw := make([]string, len(children))
	unkeyed := 0
	for i, child := range children {
		if k := getKey(child); k != "" {
			raw[i] = k
			continue
		}
		raw[i] = "\x00" + strconv.Itoa(unkeyed)
		unkeyed++
	}
	if len(keyed.FindDuplicates(raw)) == 0 {
		return children, raw, nil
	}

	keys, idx := keyed.Dedupe(raw)
	kept = make([]*VNode, len(idx))
	next := 0
	for i, child := range children {
		if next < len(idx) && idx[next] == i {
			kept[next] = child
			next++
			continue
		}
		dropped = append(dropped, child)
	}
	return kept, keys, dropped
}

// getKey extracts the key from a node's props.
func getKey(node *VNode) string {
	if node == nil {
		return ""
	}
	if node.Key != "" {
		return node.Key
	}
	if node.Props == nil {
		return ""
	}
	if key, ok := node.Props["key"].(string); ok {
		return key
	}
	return ""
}

// hasKeys returns true if any child has a key.
func hasKeys(children []*VNode) bool {
	for _, child := range children {
		if getKey(child) != "" {
			return true
		}
	}
	return false
}

// propsEqual compares two prop values for equality.
func propsEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
		return false
	case int:
		if bv, ok := b.(int); ok {
			return av == bv
		}
		return false
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
		return false
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

// propToString converts a prop value to a string for the patch.
func propToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// KeysOf returns the reconciliation keys of children, as used by Diff.
func KeysOf(children []*VNode) []string {
	_, keys, _ := collapseChildren(children)
	return keys
}
