package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/issouf7507-dev/codeqr-sub000/internal/catalog"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

type Service struct {
	repo    Repository
	catalog *catalog.Catalog
}

func NewService(repo Repository, cat *catalog.Catalog) *Service {
	return &Service{repo: repo, catalog: cat}
}

// MaxLineQuantity bounds how many packages one line may ask for.
const MaxLineQuantity = 1000

// Units converts package lines into plaque units per product.
func Units(cat *catalog.Catalog, items []PackageLine) ([]Line, error) {
	if len(items) == 0 {
		return nil, validate.Errorf("items", "at least one item is required")
	}
	var lines []Line
	for i, it := range items {
		if it.Quantity < 1 || it.Quantity > MaxLineQuantity {
			return nil, validate.Errorf(fmt.Sprintf("items[%d].quantity", i), "must be between 1 and %d", MaxLineQuantity)
		}
		_, pkg, err := cat.Package(it.ProductID, it.PackageID)
		if err != nil {
			return nil, validate.Errorf(fmt.Sprintf("items[%d]", i), "unknown product %s/%s", it.ProductID, it.PackageID)
		}
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: pkg.Units * it.Quantity})
	}
	return sortedLines(lines), nil
}

// Check reports whether every requested product has enough units left. It
// does not reserve anything.
func (s *Service) Check(ctx context.Context, items []PackageLine) (StockCheck, error) {
	lines, err := Units(s.catalog, items)
	if err != nil {
		return StockCheck{}, err
	}

	out := StockCheck{Available: true}
	for _, l := range lines {
		available := 0
		item, err := s.repo.Get(ctx, l.ProductID)
		switch {
		case err == nil:
			available = item.Available
		case errors.Is(err, ErrNotFound):
		default:
			return StockCheck{}, err
		}

		inStock := available >= l.Quantity
		if !inStock {
			out.Available = false
		}
		out.Lines = append(out.Lines, LineAvailability{
			ProductID: l.ProductID,
			Requested: l.Quantity,
			Available: available,
			InStock:   inStock,
		})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, productID string) (StockItem, error) {
	return s.repo.Get(ctx, productID)
}

func (s *Service) List(ctx context.Context) ([]StockItem, error) {
	return s.repo.List(ctx)
}

func (s *Service) SetAvailable(ctx context.Context, productID string, available int) error {
	if available < 0 {
		return validate.Errorf("available", "must not be negative")
	}
	if _, err := s.catalog.Get(productID); err != nil {
		return validate.Errorf("productId", "unknown product %s", productID)
	}
	return s.repo.SetAvailable(ctx, productID, available)
}
