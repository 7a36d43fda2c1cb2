package inventory

import "time"

type StockItem struct {
	ProductID string    `json:"productId"`
	Available int       `json:"available"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Line is a quantity of plaque units for one product.
type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type DepletedLine struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type ReserveResult struct {
	Reserved []Line         `json:"reserved,omitempty"`
	Depleted []DepletedLine `json:"depleted,omitempty"`
}

// PackageLine is what shoppers order: a number of packages of a product.
type PackageLine struct {
	ProductID string `json:"productId"`
	PackageID string `json:"packageId"`
	Quantity  int    `json:"quantity"`
}

type LineAvailability struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	InStock   bool   `json:"inStock"`
}

type StockCheck struct {
	Available bool               `json:"available"`
	Lines     []LineAvailability `json:"lines"`
}
