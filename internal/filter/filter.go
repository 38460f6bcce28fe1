// Package filter evaluates document-style predicate trees against hit
// metadata. Predicates mix field conditions with $and/$or/$not logic;
// field keys use dotted paths to navigate nested mappings.
package filter

import (
	"reflect"
	"strings"
)

// Matches reports whether metadata satisfies the predicate tree. An empty
// or nil predicate matches everything. Entries in one node combine with
// implicit AND; comparisons that cannot be made (missing value, mismatched
// types) are false, never an error.
func Matches(metadata map[string]any, filters map[string]any) bool {
	for key, condition := range filters {
		switch key {
		case "$or":
			clauses, ok := condition.([]any)
			if !ok {
				return false
			}
			if !anyClauseMatches(metadata, clauses) {
				return false
			}
		case "$and":
			clauses, ok := condition.([]any)
			if !ok {
				return false
			}
			for _, clause := range clauses {
				sub, ok := clause.(map[string]any)
				if !ok || !Matches(metadata, sub) {
					return false
				}
			}
		case "$not":
			sub, ok := condition.(map[string]any)
			if !ok {
				return false
			}
			if Matches(metadata, sub) {
				return false
			}
		default:
			value := resolvePath(metadata, key)
			if ops, ok := condition.(map[string]any); ok {
				if !checkOperators(value, ops) {
					return false
				}
			} else if !valueEqual(value, condition) {
				return false
			}
		}
	}
	return true
}

func anyClauseMatches(metadata map[string]any, clauses []any) bool {
	for _, clause := range clauses {
		if sub, ok := clause.(map[string]any); ok && Matches(metadata, sub) {
			return true
		}
	}
	return false
}

// resolvePath walks a dotted field path through nested mappings. A missing
// segment resolves to nil.
func resolvePath(metadata map[string]any, path string) any {
	segments := strings.Split(path, ".")
	var current any = metadata
	for _, seg := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = node[seg]
	}
	return current
}

// checkOperators evaluates one field's operator map. Unknown operators are
// ignored.
func checkOperators(value any, ops map[string]any) bool {
	for op, target := range ops {
		switch op {
		case "$eq":
			if !valueEqual(value, target) {
				return false
			}
		case "$ne":
			if valueEqual(value, target) {
				return false
			}
		case "$gt":
			if !compare(value, target, func(c int) bool { return c > 0 }) {
				return false
			}
		case "$gte":
			if !compare(value, target, func(c int) bool { return c >= 0 }) {
				return false
			}
		case "$lt":
			if !compare(value, target, func(c int) bool { return c < 0 }) {
				return false
			}
		case "$lte":
			if !compare(value, target, func(c int) bool { return c <= 0 }) {
				return false
			}
		case "$in":
			if list, ok := target.([]any); ok {
				if !containsValue(list, value) {
					return false
				}
			} else if !valueEqual(value, target) {
				return false
			}
		case "$nin":
			if list, ok := target.([]any); ok {
				if containsValue(list, value) {
					return false
				}
			} else if valueEqual(value, target) {
				return false
			}
		}
	}
	return true
}

func containsValue(list []any, value any) bool {
	for _, item := range list {
		if scalarEqual(value, item) {
			return true
		}
	}
	return false
}

// valueEqual is loose equality: numeric kinds coerce through float64, and
// a list value matches a scalar predicate when the scalar is a member.
func valueEqual(value, target any) bool {
	if list, ok := value.([]any); ok {
		if _, targetIsList := target.([]any); !targetIsList {
			return containsValue(list, target)
		}
	}
	return scalarEqual(value, target)
}

// scalarEqual compares two metadata values without panicking. Numeric
// kinds coerce through float64; lists compare element-wise and maps
// key-wise; remaining uncomparable types are unequal by definition.
func scalarEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	if al, aok := a.([]any); aok {
		bl, bok := b.([]any)
		if !bok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !scalarEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}
	if am, aok := a.(map[string]any); aok {
		bm, bok := b.(map[string]any)
		if !bok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, present := bm[k]
			if !present || !scalarEqual(av, bv) {
				return false
			}
		}
		return true
	}
	if a == nil || b == nil {
		return a == b
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

// compare applies an ordering check. Nil values and incomparable type
// pairs never compare true.
func compare(value, target any, ok func(cmp int) bool) bool {
	if value == nil || target == nil {
		return false
	}
	if vf, vok := asFloat(value); vok {
		tf, tok := asFloat(target)
		if !tok {
			return false
		}
		return ok(compareFloats(vf, tf))
	}
	vs, vok := value.(string)
	ts, tok := target.(string)
	if vok && tok {
		return ok(strings.Compare(vs, ts))
	}
	return false
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// asFloat coerces the numeric kinds that reach metadata through JSON
// decoding and in-process construction.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
