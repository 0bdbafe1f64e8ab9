package halconfig

import (
	"fmt"
	"reflect"

	oerrors "github.com/opmodel/hal/internal/errors"
)

// ChangeType classifies a NodeDiff.
type ChangeType string

const (
	ChangeAdded   ChangeType = "ADDED"
	ChangeRemoved ChangeType = "REMOVED"
	ChangeEdited  ChangeType = "EDITED"
)

// FieldDiff is a changed scalar field.
type FieldDiff struct {
	Field string
	Old   any
	New   any
}

// NodeDiff describes how one node differs between two trees.
type NodeDiff struct {
	// Node is the new-side node, or the old-side node when removed.
	Node       Node
	ChangeType ChangeType
	FieldDiffs []FieldDiff
	NodeDiffs  []*NodeDiff
}

// Location returns the qualified name of the diffed node.
func (d *NodeDiff) Location() string {
	if d == nil || d.Node == nil {
		return ""
	}
	return QualifiedName(d.Node)
}

// Diff compares newer against older. Both must have the same concrete type
// and node name. Equal trees yield a nil diff.
func Diff(newer, older Node) (*NodeDiff, error) {
	if reflect.TypeOf(newer) != reflect.TypeOf(older) {
		return nil, fmt.Errorf("%w: cannot diff %T against %T", oerrors.ErrTypeMismatch, newer, older)
	}
	if newer.NodeName() != older.NodeName() {
		return nil, fmt.Errorf("%w: cannot diff node %q against %q",
			oerrors.ErrTypeMismatch, newer.NodeName(), older.NodeName())
	}

	d := &NodeDiff{Node: newer, ChangeType: ChangeEdited}

	newFields, oldFields := Fields(newer), Fields(older)
	for i := range newFields {
		nv, ov := newFields[i].Value(), oldFields[i].Value()
		if !valuesEqual(nv, ov) {
			d.FieldDiffs = append(d.FieldDiffs, FieldDiff{Field: newFields[i].Name, Old: ov, New: nv})
		}
	}

	oldChildren := make(map[string]Node)
	for _, c := range older.Children() {
		oldChildren[c.NodeName()] = c
	}
	seen := make(map[string]bool)
	for _, nc := range newer.Children() {
		name := nc.NodeName()
		seen[name] = true
		oc, ok := oldChildren[name]
		if !ok {
			d.NodeDiffs = append(d.NodeDiffs, &NodeDiff{Node: nc, ChangeType: ChangeAdded})
			continue
		}
		child, err := Diff(nc, oc)
		if err != nil {
			return nil, err
		}
		if child != nil {
			d.NodeDiffs = append(d.NodeDiffs, child)
		}
	}
	for _, oc := range older.Children() {
		if !seen[oc.NodeName()] {
			d.NodeDiffs = append(d.NodeDiffs, &NodeDiff{Node: oc, ChangeType: ChangeRemoved})
		}
	}

	if len(d.FieldDiffs) == 0 && len(d.NodeDiffs) == 0 {
		return nil, nil
	}
	return d, nil
}

// valuesEqual treats nil and empty slices or maps as equal.
func valuesEqual(a, b any) bool {
	if isEmptyCollection(a) && isEmptyCollection(b) {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func isEmptyCollection(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	default:
		return false
	}
}

// Flatten returns d and all nested diffs in depth-first order.
func (d *NodeDiff) Flatten() []*NodeDiff {
	if d == nil {
		return nil
	}
	out := []*NodeDiff{d}
	for _, child := range d.NodeDiffs {
		out = append(out, child.Flatten()...)
	}
	return out
}
