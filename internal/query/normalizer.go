// Package query normalizes queries for the retrieval strategies.
//
// Every strategy accepts both query forms (free text and field mapping).
// Strategies that need one semantic string call SemanticText; the sparse
// strategy needs a field-qualified boolean expression and calls
// ToSparseExpression, which also translates PubMed-style tagged terms.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/CoReason-AI/coreason-search/internal/schema"
)

// SemanticText reduces a query to a single string for embedding, graph
// lookup, and distillation. A field mapping uses its "text" entry when
// present; otherwise all values are joined in field order.
func SemanticText(q schema.Query) string {
	if !q.IsFields() {
		return q.Text
	}
	if text, ok := q.Lookup("text"); ok {
		return text
	}
	parts := make([]string, len(q.Fields))
	for i, f := range q.Fields {
		parts[i] = f.Value
	}
	return strings.Join(parts, " ")
}

// ToSparseExpression converts a query into the field-qualified boolean
// expression understood by the sparse backends. Field mappings become
// field:value clauses joined by AND; free text goes through the PubMed
// tag translation.
func ToSparseExpression(q schema.Query) string {
	if q.IsFields() {
		parts := make([]string, len(q.Fields))
		for i, f := range q.Fields {
			parts[i] = fmt.Sprintf("%s:%s", f.Name, f.Value)
		}
		return strings.Join(parts, " AND ")
	}
	return TranslatePubMed(q.Text)
}

// fieldMapping maps PubMed tags to index fields. tiab is a virtual field
// expanded to title OR abstract.
var fieldMapping = map[string]string{
	"ti":       "title",
	"title":    "title",
	"ab":       "abstract",
	"abstract": "abstract",
	"tiab":     "title_abstract",
	"mesh":     "mesh_terms",
	"mh":       "mesh_terms",
}

// taggedTerm matches one `term[Tag]` token: a double- or single-quoted
// phrase, or a bare word (no spaces, parens, or brackets), followed by its
// bracketed tag. Operators and parentheses around the term are untouched.
var taggedTerm = regexp.MustCompile(`(?:"([^"]*)"|'([^']*)'|([^\s()\[\]]+))\s*\[([^\]]*)\]`)

// TranslatePubMed rewrites PubMed-style tagged terms into field-qualified
// clauses:
//
//	Aspirin[Title]          -> title:Aspirin
//	"Heart Attack"[Ti]      -> title:"Heart Attack"
//	"Covid-19"[TiAb]        -> (title:"Covid-19" OR abstract:"Covid-19")
//	Fever[Title/Abstract]   -> (title:Fever OR abstract:Fever)
//
// Tags are case-insensitive and whitespace-trimmed; unknown tags pass
// through lower-cased. Untagged tokens, operators, and parentheses are
// preserved as-is.
func TranslatePubMed(input string) string {
	if input == "" {
		return ""
	}

	return taggedTerm.ReplaceAllStringFunc(input, func(match string) string {
		sub := taggedTerm.FindStringSubmatchIndex(match)

		var term string
		switch {
		case sub[2] >= 0: // double-quoted phrase
			term = `"` + match[sub[2]:sub[3]] + `"`
		case sub[4] >= 0: // single-quoted phrase, normalized to double quotes
			term = `"` + match[sub[4]:sub[5]] + `"`
		default:
			term = match[sub[6]:sub[7]]
		}

		fields := mapTags(match[sub[8]:sub[9]])
		switch len(fields) {
		case 0:
			return term
		case 1:
			return fields[0] + ":" + term
		default:
			clauses := make([]string, len(fields))
			for i, f := range fields {
				clauses[i] = f + ":" + term
			}
			return "(" + strings.Join(clauses, " OR ") + ")"
		}
	})
}

// mapTags resolves a raw bracket tag into index fields. Slash-separated
// tags (Title/Abstract) yield one field each.
func mapTags(raw string) []string {
	var fields []string
	for _, tag := range strings.Split(raw, "/") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		field, ok := fieldMapping[tag]
		if !ok {
			field = tag
		}
		if field == "title_abstract" {
			fields = append(fields, "title", "abstract")
			continue
		}
		fields = append(fields, field)
	}
	return fields
}
