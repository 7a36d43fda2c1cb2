package order

import (
	"errors"
	"fmt"

	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
)

var (
	ErrNotFound            = errors.New("order not found")
	ErrOutOfStock          = errors.New("out of stock")
	ErrIdempotencyMismatch = errors.New("idempotency key reused with a different request")
	ErrInvalidTransition   = errors.New("invalid status transition")

	errIdempotencyRace = errors.New("idempotency race")
)

// OutOfStockError lists the products that could not be reserved.
type OutOfStockError struct {
	Depleted []inventory.DepletedLine
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: %d product(s) short", len(e.Depleted))
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
