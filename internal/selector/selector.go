// Package selector parses predicate-query descriptors into a small filter
// tree that a ledger backend can compile.
//
// Descriptors follow the Mango selector shape used by document state
// databases:
//
//	{"selector":{"docType":"product","owner":"M1"}}
//	{"selector":{"manufacturerDetails":{"origin":"Italy"}}}
//	{"selector":{"$and":[{"owner":{"$eq":"D1"}},{"status":"READY_FOR_SHIPMENT"}]}}
//
// Only equality is understood: implicit equality, $eq, $and, and nested
// objects as dotted field paths. Anything else is rejected rather than
// silently ignored, so a query never returns more than it asked for.
//
// Predicate is a sealed interface: backends can switch exhaustively over
// Equals and And.
package selector

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/custody/internal/canonical"
)

// Predicate is a filter condition. Sealed to this package.
type Predicate interface {
	predicateNode()
}

// Equals matches documents whose field at Path equals Value.
// Path segments are joined with dots ("manufacturerDetails.origin").
type Equals struct {
	Path  string
	Value canonical.Value
}

func (Equals) predicateNode() {}

// And matches documents satisfying every predicate.
// An empty And matches every document.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Query is a parsed descriptor.
type Query struct {
	Filter Predicate
}

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// allowedTopLevel lists descriptor keys accepted next to "selector".
// use_index is an engine hint and is ignored.
var allowedTopLevel = map[string]bool{
	"selector":  true,
	"use_index": true,
}

// Parse parses a descriptor string.
func Parse(descriptor string) (*Query, error) {
	doc, err := canonical.DecodeObject([]byte(descriptor))
	if err != nil {
		return nil, fmt.Errorf("parse query descriptor: %w", err)
	}

	for _, k := range doc.SortedKeys() {
		if !allowedTopLevel[k] {
			return nil, fmt.Errorf("parse query descriptor: unsupported key %q", k)
		}
	}

	raw, ok := doc["selector"]
	if !ok {
		return nil, fmt.Errorf("parse query descriptor: selector is required")
	}
	sel, ok := raw.(canonical.Object)
	if !ok {
		return nil, fmt.Errorf("parse query descriptor: selector must be an object")
	}

	filter, err := parseObject(sel, nil)
	if err != nil {
		return nil, fmt.Errorf("parse query descriptor: %w", err)
	}
	return &Query{Filter: filter}, nil
}

// parseObject converts a selector object into an And over its members.
// prefix holds the enclosing field path for nested objects.
func parseObject(obj canonical.Object, prefix []string) (Predicate, error) {
	var preds []Predicate

	for _, key := range obj.SortedKeys() {
		val := obj[key]

		if strings.HasPrefix(key, "$") {
			p, err := parseOperator(key, val, prefix)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
			continue
		}

		if !segmentPattern.MatchString(key) {
			return nil, fmt.Errorf("invalid field name %q", key)
		}
		path := append(append([]string{}, prefix...), key)

		if v, ok := val.(canonical.Object); ok {
			p, err := parseObject(v, path)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
			continue
		}
		v, ok := matchValue(val)
		if !ok {
			return nil, fmt.Errorf("field %q: unsupported match value", strings.Join(path, "."))
		}
		preds = append(preds, Equals{Path: strings.Join(path, "."), Value: v})
	}

	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

func parseOperator(op string, val canonical.Value, prefix []string) (Predicate, error) {
	switch op {
	case "$eq":
		if len(prefix) == 0 {
			return nil, fmt.Errorf("$eq requires a field")
		}
		v, ok := matchValue(val)
		if !ok {
			return nil, fmt.Errorf("$eq on %q: unsupported match value", strings.Join(prefix, "."))
		}
		return Equals{Path: strings.Join(prefix, "."), Value: v}, nil
	case "$and":
		arr, ok := val.(canonical.Array)
		if !ok {
			return nil, fmt.Errorf("$and requires an array")
		}
		and := And{Predicates: make([]Predicate, 0, len(arr))}
		for i, elem := range arr {
			obj, ok := elem.(canonical.Object)
			if !ok {
				return nil, fmt.Errorf("$and[%d]: expected an object", i)
			}
			p, err := parseObject(obj, prefix)
			if err != nil {
				return nil, fmt.Errorf("$and[%d]: %w", i, err)
			}
			and.Predicates = append(and.Predicates, p)
		}
		return and, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", op)
	}
}

// matchValue accepts scalar match values. Strings are NFC-normalized because
// stored records are.
func matchValue(val canonical.Value) (canonical.Value, bool) {
	switch v := val.(type) {
	case canonical.String:
		return canonical.String(norm.NFC.String(string(v))), true
	case canonical.Int, canonical.Bool:
		return v, true
	default:
		return nil, false
	}
}

// ByOwner builds the descriptor matching product records held by owner.
func ByOwner(docType, owner string) (string, error) {
	desc := canonical.Object{
		"selector": canonical.Object{
			"docType": canonical.String(docType),
			"owner":   canonical.String(owner),
		},
	}
	data, err := canonical.Marshal(desc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
