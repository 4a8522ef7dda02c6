package ledger

import (
	"fmt"
	"strings"

	"github.com/roach88/custody/internal/canonical"
	"github.com/roach88/custody/internal/selector"
)

// compileQuery compiles a parsed descriptor to parameterized SQL over
// world_state. Values are never interpolated. Results are ordered by key.
//
// Each Equals is guarded by json_valid so a malformed stored value is
// skipped instead of aborting the whole query.
func compileQuery(q *selector.Query) (string, []any, error) {
	where, params, err := compilePredicate(q.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile query: %w", err)
	}

	sql := "SELECT key, value FROM world_state WHERE " + where +
		" ORDER BY key COLLATE BINARY ASC"
	return sql, params, nil
}

func compilePredicate(p selector.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case selector.Equals:
		return compileEquals(pred)
	case selector.And:
		return compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq selector.Equals) (string, []any, error) {
	path := jsonPath(eq.Path)

	var cond string
	var params []any
	switch v := eq.Value.(type) {
	case canonical.String:
		cond = "json_type(value, ?) = 'text' AND json_extract(value, ?) = ?"
		params = []any{path, path, string(v)}
	case canonical.Int:
		cond = "json_type(value, ?) = 'integer' AND json_extract(value, ?) = ?"
		params = []any{path, path, int64(v)}
	case canonical.Bool:
		cond = "json_type(value, ?) = ?"
		want := "false"
		if v {
			want = "true"
		}
		params = []any{path, want}
	default:
		return "", nil, fmt.Errorf("field %q: unsupported match value %T", eq.Path, eq.Value)
	}

	return "(CASE WHEN json_valid(value) THEN (" + cond + ") ELSE 0 END)", params, nil
}

func compileAnd(and selector.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, p := range and.Predicates {
		sql, ps, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

// jsonPath converts a dotted field path to a SQLite JSON path.
// Segments are quoted so numeric names address object members.
func jsonPath(dotted string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range strings.Split(dotted, ".") {
		b.WriteString(`."`)
		b.WriteString(seg)
		b.WriteString(`"`)
	}
	return b.String()
}
