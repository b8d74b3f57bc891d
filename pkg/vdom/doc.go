// Package vdom is a small virtual DOM whose keyed children are reconciled
// with package keyed.
//
// # Core Types
//
// VNode represents elements, text and fragments. Props holds attributes;
// Attr is used to build Props.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Ul(Class("todos"),
//	    Range(todos, func(t Todo, _ int) *VNode {
//	        return Li(Key(t.ID), Text(t.Title))
//	    }),
//	)
//
// # Diffing
//
// Diff compares two VNode trees and returns a slice of Patch operations.
// Children are matched by key when any of them carries one. Keyed children
// that keep their relative order produce no patch at all; only genuine
// moves are reported as MoveNode.
//
// # Hydration
//
// AssignHIDs walks the tree and assigns hydration IDs to elements. Patches
// address nodes by these IDs.
package vdom
