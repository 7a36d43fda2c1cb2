package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Default(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	products := c.List()
	require.NotEmpty(t, products)

	p, pkg, err := c.Package("plaque-standard", "pack-10")
	require.NoError(t, err)
	assert.Equal(t, "Plaque QR Standard", p.Name)
	assert.Equal(t, 10, pkg.Units)
	assert.Equal(t, 199.0, pkg.Price)
	assert.Equal(t, 33, pkg.Discount())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
products:
  - id: p1
    name: One
    packages:
      - {id: single, name: Single, units: 1, price: 10}
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	_, pkg, err := c.Package("p1", "single")
	require.NoError(t, err)
	assert.Equal(t, 0, pkg.Discount())
}

func TestPackage_NotFound(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	_, _, err = c.Package("nope", "single")
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, _, err = c.Package("plaque-standard", "pack-1000")
	assert.ErrorIs(t, err, ErrPackageNotFound)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":          "products: [",
		"no packages":       "products: [{id: p1, name: x}]",
		"duplicate product": "products: [{id: p1, packages: [{id: a, units: 1, price: 1}]}, {id: p1, packages: [{id: a, units: 1, price: 1}]}]",
		"duplicate package": "products: [{id: p1, packages: [{id: a, units: 1, price: 1}, {id: a, units: 1, price: 2}]}]",
		"zero price":        "products: [{id: p1, packages: [{id: a, units: 1, price: 0}]}]",
		"zero units":        "products: [{id: p1, packages: [{id: a, units: 0, price: 1}]}]",
		"original below":    "products: [{id: p1, packages: [{id: a, units: 1, price: 10, originalPrice: 5}]}]",
		"missing id":        "products: [{name: x, packages: [{id: a, units: 1, price: 1}]}]",
		"colon in product":  `products: [{id: "a:b", packages: [{id: c, units: 1, price: 1}]}]`,
		"colon in package":  `products: [{id: a, packages: [{id: "b:c", units: 1, price: 1}]}]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestCartItem(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	it, err := c.CartItem("plaque-standard", "single")
	require.NoError(t, err)
	assert.Equal(t, "plaque-standard", it.ProductID)
	assert.Equal(t, "single", it.PackageID)
	assert.Equal(t, 29.90, it.Price)
	require.NotNil(t, it.OriginalPrice)
	assert.Equal(t, 39.90, *it.OriginalPrice)
	assert.NotEmpty(t, it.Features)
}
