package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/issouf7507-dev/codeqr-sub000/internal/cart"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	ErrProductNotFound = errors.New("product not found")
	ErrPackageNotFound = errors.New("package not found")
)

// Package is a purchasable bundle of a product (single plaque, 10-pack, ...).
type Package struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Units         int      `yaml:"units" json:"units"`
	Price         float64  `yaml:"price" json:"price"`
	OriginalPrice *float64 `yaml:"originalPrice" json:"originalPrice,omitempty"`
	Popular       bool     `yaml:"popular" json:"popular,omitempty"`
}

// Discount is the rounded percentage off the original price, 0 without one.
func (p Package) Discount() int {
	if p.OriginalPrice == nil || *p.OriginalPrice <= p.Price {
		return 0
	}
	return int(math.Round((1 - p.Price / *p.OriginalPrice) * 100))
}

type Product struct {
	ID          string    `yaml:"id" json:"id"`
	Slug        string    `yaml:"slug" json:"slug"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Image       string    `yaml:"image" json:"image"`
	Features    []string  `yaml:"features" json:"features"`
	Packages    []Package `yaml:"packages" json:"packages"`
}

func (p Product) Package(id string) (Package, bool) {
	for _, pkg := range p.Packages {
		if pkg.ID == id {
			return pkg, true
		}
	}
	return Package{}, false
}

type Catalog struct {
	products []Product
	byID     map[string]int
}

// Load reads the catalog file at path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Products []Product `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(doc.Products)
}

func New(products []Product) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(products))}
	for i, p := range products {
		if err := validateProduct(p); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = i
	}
	c.products = products
	return c, nil
}

func validateProduct(p Product) error {
	if p.ID == "" {
		return errors.New("product without id")
	}
	if strings.Contains(p.ID, cart.IDSeparator) {
		return fmt.Errorf("product id %q must not contain %q", p.ID, cart.IDSeparator)
	}
	if len(p.Packages) == 0 {
		return fmt.Errorf("product %q has no packages", p.ID)
	}
	seen := map[string]bool{}
	for _, pkg := range p.Packages {
		switch {
		case pkg.ID == "":
			return fmt.Errorf("product %q: package without id", p.ID)
		case strings.Contains(pkg.ID, cart.IDSeparator):
			return fmt.Errorf("product %q: package id %q must not contain %q", p.ID, pkg.ID, cart.IDSeparator)
		case seen[pkg.ID]:
			return fmt.Errorf("product %q: duplicate package %q", p.ID, pkg.ID)
		case pkg.Price <= 0:
			return fmt.Errorf("product %q package %q: price must be positive", p.ID, pkg.ID)
		case pkg.Units < 1:
			return fmt.Errorf("product %q package %q: units must be at least 1", p.ID, pkg.ID)
		case pkg.OriginalPrice != nil && *pkg.OriginalPrice < pkg.Price:
			return fmt.Errorf("product %q package %q: original price below price", p.ID, pkg.ID)
		}
		seen[pkg.ID] = true
	}
	return nil
}

func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Get(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}

func (c *Catalog) Package(productID, packageID string) (Product, Package, error) {
	p, err := c.Get(productID)
	if err != nil {
		return Product{}, Package{}, err
	}
	pkg, ok := p.Package(packageID)
	if !ok {
		return Product{}, Package{}, ErrPackageNotFound
	}
	return p, pkg, nil
}

// CartItem builds the cart line for a product package from catalog data.
func (c *Catalog) CartItem(productID, packageID string) (cart.Item, error) {
	p, pkg, err := c.Package(productID, packageID)
	if err != nil {
		return cart.Item{}, err
	}
	return cart.Item{
		ProductID:     p.ID,
		PackageID:     pkg.ID,
		Name:          p.Name + " - " + pkg.Name,
		Price:         pkg.Price,
		OriginalPrice: pkg.OriginalPrice,
		Image:         p.Image,
		Features:      append([]string(nil), p.Features...),
	}, nil
}
