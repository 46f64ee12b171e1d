package storage

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// The embedded engine understands the slice of the query language the
// migration layer produces: equality, $exists, $ne, $in, and the range
// operators, with dot-notation paths into embedded documents.

type condOp int

const (
	opEq condOp = iota
	opExists
	opNe
	opIn
	opLt
	opLte
	opGt
	opGte
)

type condition struct {
	path  string
	op    condOp
	value interface{}
}

var operatorNames = map[string]condOp{
	"$exists": opExists,
	"$ne":     opNe,
	"$in":     opIn,
	"$lt":     opLt,
	"$lte":    opLte,
	"$gt":     opGt,
	"$gte":    opGte,
}

// filterEntries flattens a filter document into conditions. A nil or empty
// filter matches every document.
func filterEntries(filter interface{}) ([]condition, error) {
	entries, err := docEntries(filter)
	if err != nil {
		return nil, fmt.Errorf("unsupported filter type %T", filter)
	}

	var conds []condition
	for _, e := range entries {
		ops, isOps, err := operatorEntries(e.Value)
		if err != nil {
			return nil, fmt.Errorf("filter field %q: %w", e.Key, err)
		}
		if !isOps {
			conds = append(conds, condition{path: e.Key, op: opEq, value: e.Value})
			continue
		}
		for _, op := range ops {
			kind, ok := operatorNames[op.Key]
			if !ok {
				return nil, fmt.Errorf("unsupported filter operator %q on field %q", op.Key, e.Key)
			}
			conds = append(conds, condition{path: e.Key, op: kind, value: op.Value})
		}
	}
	return conds, nil
}

// operatorEntries reports whether a filter value is an operator document
// and, if so, returns its entries. Mixing operators and plain keys in one
// value document is rejected.
func operatorEntries(value interface{}) ([]bson.E, bool, error) {
	entries, err := docEntries(value)
	if err != nil || len(entries) == 0 {
		return nil, false, nil
	}
	operators := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Key, "$") {
			operators++
		}
	}
	if operators == 0 {
		return nil, false, nil
	}
	if operators != len(entries) {
		return nil, false, fmt.Errorf("cannot mix operators and plain fields")
	}
	return entries, true, nil
}

// docEntries converts the document representations callers use (bson.D,
// bson.M, plain maps, Document) into an entry list.
func docEntries(doc interface{}) ([]bson.E, error) {
	switch d := doc.(type) {
	case nil:
		return nil, nil
	case bson.D:
		return d, nil
	case bson.M:
		entries := make([]bson.E, 0, len(d))
		for k, v := range d {
			entries = append(entries, bson.E{Key: k, Value: v})
		}
		return entries, nil
	case map[string]interface{}:
		entries := make([]bson.E, 0, len(d))
		for k, v := range d {
			entries = append(entries, bson.E{Key: k, Value: v})
		}
		return entries, nil
	case Document:
		entries := make([]bson.E, 0, len(d))
		for k, v := range d {
			entries = append(entries, bson.E{Key: k, Value: v})
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unsupported document type %T", doc)
	}
}

// matchesConditions checks every condition against the document.
func matchesConditions(doc Document, conds []condition) bool {
	for _, cond := range conds {
		val, present := lookupPath(doc, cond.path)
		switch cond.op {
		case opEq:
			if !present || !valuesMatch(val, cond.value) {
				return false
			}
		case opExists:
			want := true
			if b, ok := cond.value.(bool); ok {
				want = b
			}
			if present != want {
				return false
			}
		case opNe:
			if present && valuesMatch(val, cond.value) {
				return false
			}
		case opIn:
			if !present || !valueIn(val, cond.value) {
				return false
			}
		case opLt, opLte, opGt, opGte:
			cmp, ok := compareValues(val, cond.value)
			if !present || !ok {
				return false
			}
			switch cond.op {
			case opLt:
				if cmp >= 0 {
					return false
				}
			case opLte:
				if cmp > 0 {
					return false
				}
			case opGt:
				if cmp <= 0 {
					return false
				}
			case opGte:
				if cmp < 0 {
					return false
				}
			}
		}
	}
	return true
}

// valuesMatch compares two values for equality, treating all numeric types
// as one domain.
func valuesMatch(actual, expected interface{}) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	if actualNum, ok1 := toFloat64(actual); ok1 {
		if expectedNum, ok2 := toFloat64(expected); ok2 {
			return actualNum == expectedNum
		}
	}
	if actual == expected {
		return true
	}
	return reflect.DeepEqual(actual, expected)
}

func valueIn(actual, set interface{}) bool {
	var items []interface{}
	switch s := set.(type) {
	case bson.A:
		items = s
	case []interface{}:
		items = s
	default:
		return false
	}
	for _, item := range items {
		if valuesMatch(actual, item) {
			return true
		}
	}
	return false
}

// compareValues orders two values when they live in a comparable domain:
// numbers, strings, or timestamps.
func compareValues(a, b interface{}) (int, bool) {
	if an, ok1 := toFloat64(a); ok1 {
		if bn, ok2 := toFloat64(b); ok2 {
			switch {
			case an < bn:
				return -1, true
			case an > bn:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	if as, ok1 := a.(string); ok1 {
		if bs, ok2 := b.(string); ok2 {
			return strings.Compare(as, bs), true
		}
		return 0, false
	}
	if at, ok1 := a.(time.Time); ok1 {
		if bt, ok2 := b.(time.Time); ok2 {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			}
			return 0, true
		}
	}
	return 0, false
}

// toFloat64 converts the numeric types documents carry to float64.
func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// lookupPath resolves a dot-notation path against a document.
func lookupPath(doc interface{}, path string) (interface{}, bool) {
	current := doc
	for _, part := range strings.Split(path, ".") {
		entries, err := docEntries(current)
		if err != nil {
			return nil, false
		}
		found := false
		for _, e := range entries {
			if e.Key == part {
				current = e.Value
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return current, true
}

type updateKind int

const (
	updateSet updateKind = iota
	updateUnset
)

type updateOp struct {
	kind  updateKind
	path  string
	value interface{}
}

// updateEntries flattens an update document into set/unset operations. Only
// $set and $unset are supported, mirroring what migrations produce.
func updateEntries(update interface{}) ([]updateOp, error) {
	entries, err := docEntries(update)
	if err != nil {
		return nil, fmt.Errorf("unsupported update type %T", update)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("update document must not be empty")
	}

	var ops []updateOp
	for _, e := range entries {
		var kind updateKind
		switch e.Key {
		case "$set":
			kind = updateSet
		case "$unset":
			kind = updateUnset
		default:
			return nil, fmt.Errorf("unsupported update operator %q", e.Key)
		}
		body, err := docEntries(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s body: unsupported type %T", e.Key, e.Value)
		}
		for _, field := range body {
			ops = append(ops, updateOp{kind: kind, path: field.Key, value: field.Value})
		}
	}
	return ops, nil
}

// applyUpdateOps mutates the document in place, reporting whether anything
// actually changed.
func applyUpdateOps(doc Document, ops []updateOp) bool {
	changed := false
	for _, op := range ops {
		switch op.kind {
		case updateSet:
			if setPath(doc, op.path, op.value) {
				changed = true
			}
		case updateUnset:
			if unsetPath(doc, op.path) {
				changed = true
			}
		}
	}
	return changed
}

// setPath writes a value at a dot-notation path, creating intermediate
// documents as needed. Returns false when the value was already in place.
func setPath(doc Document, path string, value interface{}) bool {
	parts := strings.Split(path, ".")
	current := map[string]interface{}(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			if nested, isDoc := current[part].(Document); isDoc {
				next = map[string]interface{}(nested)
			} else {
				next = make(map[string]interface{})
				current[part] = next
			}
		}
		current = next
	}
	leaf := parts[len(parts)-1]
	if existing, ok := current[leaf]; ok && valuesMatch(existing, value) {
		return false
	}
	current[leaf] = value
	return true
}

// unsetPath removes the value at a dot-notation path if present.
func unsetPath(doc Document, path string) bool {
	parts := strings.Split(path, ".")
	current := map[string]interface{}(doc)
	for _, part := range parts[:len(parts)-1] {
		switch next := current[part].(type) {
		case map[string]interface{}:
			current = next
		case Document:
			current = map[string]interface{}(next)
		default:
			return false
		}
	}
	leaf := parts[len(parts)-1]
	if _, ok := current[leaf]; !ok {
		return false
	}
	delete(current, leaf)
	return true
}
