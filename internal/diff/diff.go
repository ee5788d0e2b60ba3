// Package diff computes field-level deltas between two flat record snapshots.
package diff

import (
	"encoding/json"
	"reflect"
	"sort"
)

// Change is the before and after value of a single field.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Record maps field name to its change. Absent fields did not change.
type Record map[string]Change

// Compute compares every field present in either snapshot by its JSON
// encoding. Slices are compared and reported whole. A field missing on one
// side is reported against nil.
func Compute(before, after map[string]any) Record {
	out := Record{}
	for key := range union(before, after) {
		from, to := before[key], after[key]
		_, inBefore := before[key]
		_, inAfter := after[key]
		if inBefore != inAfter || !equal(from, to) {
			out[key] = Change{From: from, To: to}
		}
	}
	return out
}

func (r Record) Empty() bool { return len(r) == 0 }

// Fields returns the changed field names in sorted order.
func (r Record) Fields() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map renders the record in the {field: {from, to}} shape stored with audit
// entries.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r))
	for k, c := range r {
		out[k] = map[string]any{"from": c.From, "to": c.To}
	}
	return out
}

func union(a, b map[string]any) map[string]struct{} {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	return keys
}

func equal(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(ab) == string(bb)
}
