// Package schema defines the data model shared by every pipeline stage:
// queries, requests, hits, and responses.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Strategy identifies one retrieval strategy.
type Strategy string

const (
	// StrategyDense retrieves by embedding similarity.
	StrategyDense Strategy = "dense"
	// StrategyFTS retrieves by full-text match over the sparse index.
	StrategyFTS Strategy = "fts"
	// StrategyGraph retrieves by knowledge-graph expansion.
	StrategyGraph Strategy = "graph"
)

// Valid reports whether s is a known strategy tag.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyDense, StrategyFTS, StrategyGraph:
		return true
	}
	return false
}

// ParseStrategy converts a wire tag into a Strategy.
// Tags are matched case-insensitively after trimming whitespace.
func ParseStrategy(tag string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(tag)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown strategy %q", tag)
	}
	return s, nil
}

// Field is one field→term entry of a structured query.
type Field struct {
	Name  string
	Value string
}

// Query is either free text or an ordered field→term mapping. Stages that
// need a single string derive it via query.SemanticText; stages that need a
// boolean expression use query.ToSparseExpression. The zero value is an
// empty text query.
type Query struct {
	// Text holds the free-text form. Ignored when Fields is non-empty.
	Text string
	// Fields holds the structured form in declaration order. Order matters:
	// downstream concatenation and expression building iterate it as given.
	Fields []Field
}

// TextQuery returns a free-text query.
func TextQuery(text string) Query { return Query{Text: text} }

// FieldQuery returns a structured query preserving field order.
func FieldQuery(fields ...Field) Query { return Query{Fields: fields} }

// IsFields reports whether the query is the structured form.
func (q Query) IsFields() bool { return len(q.Fields) > 0 }

// IsZero reports whether the query is empty in both forms.
func (q Query) IsZero() bool { return q.Text == "" && len(q.Fields) == 0 }

// Lookup returns the value of the named field in the structured form.
func (q Query) Lookup(name string) (string, bool) {
	for _, f := range q.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// UnmarshalJSON accepts either a JSON string or a flat object of string
// values. Object key order is preserved so field iteration is deterministic.
func (q *Query) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("query: empty value")
	}

	switch trimmed[0] {
	case '"':
		q.Fields = nil
		return json.Unmarshal(trimmed, &q.Text)
	case '{':
		// Walk tokens instead of unmarshalling into a map so that the
		// document's key order survives.
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("query: %w", err)
		}
		q.Text = ""
		q.Fields = nil
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return fmt.Errorf("query: object key is not a string")
			}
			var value string
			if err := dec.Decode(&value); err != nil {
				return fmt.Errorf("query: field %q must be a string: %w", key, err)
			}
			q.Fields = append(q.Fields, Field{Name: key, Value: value})
		}
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("query: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("query: must be a string or an object")
	}
}

// MarshalJSON emits the string form, or an object preserving field order.
func (q Query) MarshalJSON() ([]byte, error) {
	if !q.IsFields() {
		return json.Marshal(q.Text)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range q.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Ptr returns a pointer to v. Convenience for the nullable Hit text fields.
func Ptr[T any](v T) *T { return &v }
