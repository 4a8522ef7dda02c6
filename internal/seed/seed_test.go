package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/custody/internal/canonical"
)

func TestDefault(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	require.Len(t, cat.Products, 2)

	furniture := cat.Products[0]
	assert.Equal(t, "IX109025", furniture.ID)
	assert.Equal(t, "Italian-Marble-Furniture", furniture.Name)
	assert.Equal(t, "High-Value-Goods", furniture.ProductClass)
	assert.Equal(t, "Furniture", furniture.ProductType)
	assert.Equal(t, "MN62581990", furniture.Owner, "owner defaults to the manufacturer")
	assert.Equal(t, "Manufacturer", furniture.OwnerType)
	assert.Equal(t, "100000", furniture.Price)
	assert.Equal(t, Manufacturer{ID: "MN62581990", Name: "TestCo1", Type: "PremiumFurniture", Origin: "Italy"}, furniture.Manufacturer)

	necklace := cat.Products[1]
	assert.Equal(t, "JW561225", necklace.ID)
	assert.Equal(t, "South Africa", necklace.Manufacturer.Origin)
	assert.Equal(t, "5000000", necklace.Price)
}

func TestLoad_ExplicitOwner(t *testing.T) {
	src := `
products: [{
	id: "P1", name: "Widget", productClass: "High-Value-Goods", productType: "Tool"
	manufacturer: {id: "MN1", name: "Acme", type: "Tools", origin: "Italy"}
	owner: "M1"
	price: "100"
}]
`
	cat, err := Load("widget.cue", []byte(src))
	require.NoError(t, err)
	require.Len(t, cat.Products, 1)
	assert.Equal(t, "M1", cat.Products[0].Owner)
}

func TestLoad_Rejects(t *testing.T) {
	const manufacturer = `manufacturer: {id: "MN1", name: "Acme", type: "Tools", origin: "Italy"}`

	tests := []struct {
		name string
		src  string
	}{
		{
			name: "dealer owner type",
			src: `products: [{id: "P1", name: "W", productClass: "C", productType: "T", ` + manufacturer + `
				ownerType: "Dealer", price: "1"}]`,
		},
		{
			name: "non-digit price",
			src:  `products: [{id: "P1", name: "W", productClass: "C", productType: "T", ` + manufacturer + `, price: "1.5"}]`,
		},
		{
			name: "unknown field",
			src:  `products: [{id: "P1", name: "W", productClass: "C", productType: "T", ` + manufacturer + `, price: "1", color: "red"}]`,
		},
		{
			name: "missing name",
			src:  `products: [{id: "P1", productClass: "C", productType: "T", ` + manufacturer + `, price: "1"}]`,
		},
		{
			name: "incomplete manufacturer",
			src:  `products: [{id: "P1", name: "W", productClass: "C", productType: "T", manufacturer: {id: "MN1"}, price: "1"}]`,
		},
		{
			name: "bad id",
			src:  `products: [{id: "P 1", name: "W", productClass: "C", productType: "T", ` + manufacturer + `, price: "1"}]`,
		},
		{
			name: "duplicate id",
			src: `products: [
				{id: "P1", name: "W", productClass: "C", productType: "T", ` + manufacturer + `, price: "1"},
				{id: "P1", name: "X", productClass: "C", productType: "T", ` + manufacturer + `, price: "2"},
			]`,
		},
		{
			name: "empty catalog",
			src:  `products: []`,
		},
		{
			name: "syntax error",
			src:  `products: [{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("bad.cue", []byte(tt.src))
			require.Error(t, err)
			var seedErr *Error
			assert.ErrorAs(t, err, &seedErr)
		})
	}
}

func TestLoad_ErrorCarriesPosition(t *testing.T) {
	_, err := Load("bad.cue", []byte("products: [{\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.cue")
}

func TestManufacturer_Object(t *testing.T) {
	m := Manufacturer{ID: "MN1", Name: "Acme", Type: "Tools", Origin: "Italy"}

	data, err := canonical.Marshal(m.Object())
	require.NoError(t, err)
	assert.Equal(t, `{"id":"MN1","name":"Acme","origin":"Italy","type":"Tools"}`, string(data))
}
