package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot() map[string]any {
	return map[string]any{
		"id":      "p-1",
		"title":   "Website Redesign",
		"client":  "Acme Corp",
		"budget":  int64(12000),
		"status":  "LEAD",
		"ownerId": "u-1",
		"members": []string{},
	}
}

func TestComputeSameSnapshotIsEmpty(t *testing.T) {
	s := snapshot()
	assert.True(t, Compute(s, s).Empty())
	assert.True(t, Compute(snapshot(), snapshot()).Empty())
}

func TestComputeBudgetOnly(t *testing.T) {
	before, after := snapshot(), snapshot()
	after["budget"] = int64(15000)

	got := Compute(before, after)

	assert.Equal(t, Record{"budget": {From: int64(12000), To: int64(15000)}}, got)
}

func TestComputeArraysAreWhole(t *testing.T) {
	before, after := snapshot(), snapshot()
	after["members"] = []string{"u-2", "u-3"}

	got := Compute(before, after)

	require.Equal(t, []string{"members"}, got.Fields())
	assert.Equal(t, []string{}, got["members"].From)
	assert.Equal(t, []string{"u-2", "u-3"}, got["members"].To)
}

func TestComputeStructuralEquality(t *testing.T) {
	before := map[string]any{"tags": []string{"a", "b"}, "meta": map[string]any{"x": 1, "y": 2}}
	after := map[string]any{"tags": []string{"a", "b"}, "meta": map[string]any{"y": 2, "x": 1}}

	assert.True(t, Compute(before, after).Empty())
}

func TestComputeNumericTypesCompareByEncoding(t *testing.T) {
	before := map[string]any{"budget": int64(100)}
	after := map[string]any{"budget": float64(100)}

	assert.True(t, Compute(before, after).Empty())
}

func TestComputeAbsentVersusPresent(t *testing.T) {
	t.Run("added field", func(t *testing.T) {
		got := Compute(map[string]any{}, map[string]any{"name": "Ada"})
		assert.Equal(t, Record{"name": {From: nil, To: "Ada"}}, got)
	})

	t.Run("removed field", func(t *testing.T) {
		got := Compute(map[string]any{"name": "Ada"}, map[string]any{})
		assert.Equal(t, Record{"name": {From: "Ada", To: nil}}, got)
	})

	t.Run("explicit nil against absent", func(t *testing.T) {
		got := Compute(map[string]any{"name": nil}, map[string]any{})
		assert.Equal(t, []string{"name"}, got.Fields())
	})

	t.Run("nil snapshots", func(t *testing.T) {
		assert.True(t, Compute(nil, nil).Empty())
	})
}

func TestRecordMap(t *testing.T) {
	r := Record{"status": {From: "LEAD", To: "DONE"}}

	assert.Equal(t, map[string]any{
		"status": map[string]any{"from": "LEAD", "to": "DONE"},
	}, r.Map())
}
