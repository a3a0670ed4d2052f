package conditions_test

import (
	"encoding/json"
	"testing"

	"github.com/Lazi-Labs/lazi-sub001/pkg/conditions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperators_AllDispatchable(t *testing.T) {
	t.Parallel()

	for _, op := range conditions.Operators() {
		parsed, err := conditions.ParseOperator(string(op))
		require.NoError(t, err, "operator %s has no comparator", op)
		assert.Equal(t, op, parsed)
	}
}

func TestParseOperator_Unknown(t *testing.T) {
	t.Parallel()

	_, err := conditions.ParseOperator("between")
	require.ErrorIs(t, err, conditions.ErrUnknownOperator)
	assert.False(t, conditions.Operator("between").Evaluate(1, 1))
}

func TestOperator_Evaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		op       conditions.Operator
		actual   any
		expected any
		want     bool
	}{
		{conditions.OpEq, 150, 150.0, true},
		{conditions.OpEq, json.Number("42"), 42, true},
		{conditions.OpEq, "open", "open", true},
		{conditions.OpEq, "150", 150, false},
		{conditions.OpEq, nil, nil, true},
		{conditions.OpNe, "open", "closed", true},
		{conditions.OpGt, 150, 100, true},
		{conditions.OpGt, "250.5", 100, true},
		{conditions.OpGt, 50, 100, false},
		{conditions.OpGt, nil, 100, false},
		{conditions.OpGte, 100, 100, true},
		{conditions.OpLt, "2024-01-01", "2024-06-01", true},
		{conditions.OpLte, 99.9, 100, true},
		{conditions.OpIn, "gold", []any{"silver", "gold"}, true},
		{conditions.OpIn, 2, []any{1.0, 2.0}, true},
		{conditions.OpIn, "gold", "gold", false},
		{conditions.OpNin, "bronze", []any{"silver", "gold"}, true},
		{conditions.OpContains, "HVAC repair", "repair", true},
		{conditions.OpContains, []any{"vip", "net30"}, "vip", true},
		{conditions.OpContains, 12, 1, false},
		{conditions.OpStartsWith, "INV-2024-001", "INV-", true},
		{conditions.OpEndsWith, "job@example.com", "@example.com", true},
		{conditions.OpEndsWith, nil, "x", false},
		{conditions.OpIsNull, nil, nil, true},
		{conditions.OpIsNull, 0, nil, false},
		{conditions.OpIsNotNull, "", nil, true},
		{conditions.OpIsEmpty, "", nil, true},
		{conditions.OpIsEmpty, []any{}, nil, true},
		{conditions.OpIsEmpty, map[string]any{}, nil, true},
		{conditions.OpIsEmpty, 0, nil, false},
		{conditions.OpIsNotEmpty, "x", nil, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.op.Evaluate(tt.actual, tt.expected), "%v %s %v", tt.actual, tt.op, tt.expected)
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"customer": map[string]any{
			"address": map[string]any{"city": "Austin"},
		},
		"items":     []any{map[string]any{"sku": "A-1"}},
		"flat.key":  "exact",
		"job_total": 420,
	}

	v, ok := conditions.Lookup(data, "customer.address.city")
	assert.True(t, ok)
	assert.Equal(t, "Austin", v)

	v, ok = conditions.Lookup(data, "items.0.sku")
	assert.True(t, ok)
	assert.Equal(t, "A-1", v)

	v, ok = conditions.Lookup(data, "flat.key")
	assert.True(t, ok)
	assert.Equal(t, "exact", v)

	_, ok = conditions.Lookup(data, "customer.phone")
	assert.False(t, ok)

	_, ok = conditions.Lookup(data, "items.5.sku")
	assert.False(t, ok)

	_, ok = conditions.Lookup(nil, "x")
	assert.False(t, ok)
}

func TestMatchTrigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		conds map[string]any
		data  map[string]any
		want  bool
	}{
		{
			name:  "greater than passes",
			conds: map[string]any{"total": map[string]any{"$gt": 100}},
			data:  map[string]any{"total": 150},
			want:  true,
		},
		{
			name:  "greater than fails",
			conds: map[string]any{"total": map[string]any{"$gt": 100}},
			data:  map[string]any{"total": 50},
			want:  false,
		},
		{
			name:  "literal equality",
			conds: map[string]any{"job_type": "install"},
			data:  map[string]any{"job_type": "install"},
			want:  true,
		},
		{
			name:  "fields are anded",
			conds: map[string]any{"job_type": "install", "total": map[string]any{"$gte": 1000}},
			data:  map[string]any{"job_type": "install", "total": 999},
			want:  false,
		},
		{
			name:  "operators within a field are anded",
			conds: map[string]any{"total": map[string]any{"$gt": 100, "$lt": 200}},
			data:  map[string]any{"total": 150},
			want:  true,
		},
		{
			name:  "in and nin",
			conds: map[string]any{"tier": map[string]any{"$in": []any{"gold", "platinum"}}, "region": map[string]any{"$nin": []any{"north"}}},
			data:  map[string]any{"tier": "gold", "region": "south"},
			want:  true,
		},
		{
			name:  "missing field fails equality",
			conds: map[string]any{"job_type": "install"},
			data:  map[string]any{},
			want:  false,
		},
		{
			name:  "nested path",
			conds: map[string]any{"customer.tier": map[string]any{"$eq": "gold"}},
			data:  map[string]any{"customer": map[string]any{"tier": "gold"}},
			want:  true,
		},
		{
			name:  "no conditions always match",
			conds: nil,
			data:  map[string]any{"anything": 1},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := conditions.MatchTrigger(tt.conds, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchTrigger_UnknownOperator(t *testing.T) {
	t.Parallel()

	conds := map[string]any{"total": map[string]any{"$between": []any{1, 2}}}

	_, err := conditions.MatchTrigger(conds, map[string]any{"total": 1})
	require.ErrorIs(t, err, conditions.ErrUnknownOperator)

	err = conditions.ValidateTrigger(conds)
	require.ErrorIs(t, err, conditions.ErrUnknownOperator)

	require.NoError(t, conditions.ValidateTrigger(map[string]any{"total": map[string]any{"$lte": 5}, "kind": "x"}))
	assert.Len(t, conditions.TriggerOperators(), 8)
}
