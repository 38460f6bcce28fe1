package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches_Equality(t *testing.T) {
	meta := map[string]any{"category": "paper", "year": 2024}

	assert.True(t, Matches(meta, map[string]any{"category": "paper"}))
	assert.False(t, Matches(meta, map[string]any{"category": "poster"}))
	assert.False(t, Matches(meta, map[string]any{"missing": "x"}))
}

func TestMatches_NumericCoercion(t *testing.T) {
	// JSON decoding produces float64; in-process metadata often holds int.
	meta := map[string]any{"year": 2024}
	assert.True(t, Matches(meta, map[string]any{"year": float64(2024)}))
	assert.True(t, Matches(meta, map[string]any{"year": map[string]any{"$eq": float64(2024)}}))
}

func TestMatches_ListValueScalarPredicate(t *testing.T) {
	meta := map[string]any{"tags": []any{"oncology", "phase-3"}}

	assert.True(t, Matches(meta, map[string]any{"tags": "oncology"}))
	assert.False(t, Matches(meta, map[string]any{"tags": "phase-2"}))
}

func TestMatches_ComparisonOperators(t *testing.T) {
	meta := map[string]any{"year": 2024, "name": "beta"}

	tests := []struct {
		name   string
		filter map[string]any
		want   bool
	}{
		{"gt true", map[string]any{"year": map[string]any{"$gt": 2020}}, true},
		{"gt false", map[string]any{"year": map[string]any{"$gt": 2024}}, false},
		{"gte boundary", map[string]any{"year": map[string]any{"$gte": 2024}}, true},
		{"lt false", map[string]any{"year": map[string]any{"$lt": 2024}}, false},
		{"lte boundary", map[string]any{"year": map[string]any{"$lte": 2024}}, true},
		{"ne", map[string]any{"year": map[string]any{"$ne": 2023}}, true},
		{"string ordering", map[string]any{"name": map[string]any{"$gt": "alpha"}}, true},
		{"null never compares", map[string]any{"missing": map[string]any{"$gt": 0}}, false},
		{"type mismatch is false", map[string]any{"name": map[string]any{"$gt": 10}}, false},
		{"unknown operator ignored", map[string]any{"year": map[string]any{"$near": 2024}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(meta, tt.filter))
		})
	}
}

func TestMatches_InNin(t *testing.T) {
	meta := map[string]any{"year": 2024}

	assert.True(t, Matches(meta, map[string]any{"year": map[string]any{"$in": []any{2023, 2024}}}))
	assert.False(t, Matches(meta, map[string]any{"year": map[string]any{"$in": []any{2021, 2022}}}))
	// Scalar target degrades to equality.
	assert.True(t, Matches(meta, map[string]any{"year": map[string]any{"$in": 2024}}))
	assert.True(t, Matches(meta, map[string]any{"year": map[string]any{"$nin": []any{2021}}}))
	assert.False(t, Matches(meta, map[string]any{"year": map[string]any{"$nin": []any{2024}}}))
	assert.False(t, Matches(meta, map[string]any{"year": map[string]any{"$nin": 2024}}))
}

func TestMatches_DottedPaths(t *testing.T) {
	meta := map[string]any{
		"author": map[string]any{"name": "Smith", "age": 40},
		"year":   2024,
	}

	assert.True(t, Matches(meta, map[string]any{"author.name": "Smith"}))
	assert.True(t, Matches(meta, map[string]any{"author.age": map[string]any{"$gt": 30}}))
	// Missing path resolves to null.
	assert.False(t, Matches(meta, map[string]any{"author.affiliation.city": "Boston"}))
}

func TestMatches_LogicalOperators(t *testing.T) {
	meta := map[string]any{
		"author": map[string]any{"name": "Smith", "age": 40},
		"year":   2024,
	}

	// Combined $and with dotted path and $in, per the review fixture.
	filter := map[string]any{
		"$and": []any{
			map[string]any{"author.age": map[string]any{"$gt": 30}},
			map[string]any{"year": map[string]any{"$in": []any{2023, 2024}}},
		},
	}
	assert.True(t, Matches(meta, filter))

	assert.True(t, Matches(meta, map[string]any{
		"$or": []any{
			map[string]any{"year": 1999},
			map[string]any{"author.name": "Smith"},
		},
	}))
	assert.False(t, Matches(meta, map[string]any{
		"$or": []any{
			map[string]any{"year": 1999},
			map[string]any{"author.name": "Jones"},
		},
	}))

	assert.True(t, Matches(meta, map[string]any{"$not": map[string]any{"year": 1999}}))
	assert.False(t, Matches(meta, map[string]any{"$not": map[string]any{"year": 2024}}))

	// Non-list operand for $or/$and fails the match.
	assert.False(t, Matches(meta, map[string]any{"$or": "year"}))
	assert.False(t, Matches(meta, map[string]any{"$and": "year"}))
}

func TestMatches_LogicalAndFieldKeysCoexist(t *testing.T) {
	meta := map[string]any{"year": 2024, "category": "paper"}

	filter := map[string]any{
		"category": "paper",
		"$or": []any{
			map[string]any{"year": 2024},
			map[string]any{"year": 2023},
		},
	}
	assert.True(t, Matches(meta, filter))

	filter["category"] = "poster"
	assert.False(t, Matches(meta, filter))
}

func TestMatches_EmptyFilter(t *testing.T) {
	assert.True(t, Matches(map[string]any{"year": 2024}, nil))
	assert.True(t, Matches(map[string]any{}, map[string]any{}))
}

func TestMatches_ListEquality(t *testing.T) {
	meta := map[string]any{"tags": []any{"a", "b"}}

	// Whole-list predicates compare element-wise, in order.
	assert.True(t, Matches(meta, map[string]any{"tags": []any{"a", "b"}}))
	assert.True(t, Matches(meta, map[string]any{"tags": map[string]any{"$eq": []any{"a", "b"}}}))
	assert.False(t, Matches(meta, map[string]any{"tags": []any{"b", "a"}}))
	assert.False(t, Matches(meta, map[string]any{"tags": []any{"a"}}))
	assert.False(t, Matches(meta, map[string]any{"tags": map[string]any{"$ne": []any{"a", "b"}}}))

	// Numeric elements coerce the same way scalars do.
	years := map[string]any{"years": []any{2023, 2024}}
	assert.True(t, Matches(years, map[string]any{"years": []any{float64(2023), float64(2024)}}))
}

func TestMatches_MapEquality(t *testing.T) {
	meta := map[string]any{"affiliation": map[string]any{"name": "NIH", "country": "US"}}

	assert.True(t, Matches(meta, map[string]any{
		"affiliation": map[string]any{"$eq": map[string]any{"name": "NIH", "country": "US"}},
	}))
	assert.False(t, Matches(meta, map[string]any{
		"affiliation": map[string]any{"$eq": map[string]any{"name": "NIH"}},
	}))
}

func TestMatches_UncomparableValuesNeverPanic(t *testing.T) {
	meta := map[string]any{
		"tags":   []any{"a", []any{"nested"}},
		"pair":   []any{1, 2},
		"scalar": "x",
	}

	assert.NotPanics(t, func() {
		// Membership candidates that are themselves lists.
		assert.True(t, Matches(meta, map[string]any{"pair": map[string]any{"$in": []any{[]any{1, 2}}}}))
		assert.False(t, Matches(meta, map[string]any{"pair": map[string]any{"$in": []any{[]any{3}}}}))
		// Scalar against a list target is unequal, not a panic.
		assert.False(t, Matches(meta, map[string]any{"scalar": []any{"x"}}))
		assert.True(t, Matches(meta, map[string]any{"tags": "a"}))
	})
}
