// Package seed loads product catalogs written in CUE.
//
// A catalog is unified with an embedded schema before it is decoded, so a
// malformed catalog is rejected with a source position and never reaches
// the ledger. The default catalog is what InitLedger writes.
package seed

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/custody/internal/canonical"
)

//go:embed schema.cue
var schemaCUE string

//go:embed default.cue
var defaultCUE []byte

// Manufacturer identifies who made a product.
type Manufacturer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Origin string `json:"origin"`
}

// Object returns m as a canonical object.
func (m Manufacturer) Object() canonical.Object {
	return canonical.ObjectOf(
		canonical.P("id", canonical.String(m.ID)),
		canonical.P("name", canonical.String(m.Name)),
		canonical.P("type", canonical.String(m.Type)),
		canonical.P("origin", canonical.String(m.Origin)),
	)
}

// Product is one catalog entry.
type Product struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ProductClass string       `json:"productClass"`
	ProductType  string       `json:"productType"`
	Manufacturer Manufacturer `json:"manufacturer"`
	Owner        string       `json:"owner"`
	OwnerType    string       `json:"ownerType"`
	Price        string       `json:"price"`
}

// Catalog is a validated list of products in declaration order.
type Catalog struct {
	Products []Product
}

// Error is a catalog validation failure.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the built-in two-product catalog.
func Default() (*Catalog, error) {
	return Load("default.cue", defaultCUE)
}

// Load compiles src, unifies it with the catalog schema and decodes the
// products. A catalog needs at least one product and ids must be unique.
func Load(filename string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	productsVal := v.LookupPath(cue.ParsePath("products"))
	var products []Product
	if err := productsVal.Decode(&products); err != nil {
		return nil, formatCUEError(err)
	}

	if len(products) == 0 {
		return nil, &Error{Message: "catalog has no products", Pos: data.Pos()}
	}

	seen := make(map[string]bool, len(products))
	for _, p := range products {
		if seen[p.ID] {
			return nil, &Error{Message: fmt.Sprintf("duplicate product id %q", p.ID), Pos: productsVal.Pos()}
		}
		seen[p.ID] = true
	}

	return &Catalog{Products: products}, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}

	first := errs[0]
	e := &Error{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
