package cart

import (
	"context"
	"errors"
	"sync"
)

// ErrLineLimit is returned when adding would push a line past its limit.
var ErrLineLimit = errors.New("cart line quantity limit exceeded")

// Carts serializes read-modify-write per cart key, so two requests for the
// same cart never interleave inside one process.
type Carts struct {
	persist *Persistence

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewCarts(persist *Persistence) *Carts {
	return &Carts{persist: persist, locks: make(map[string]*keyLock)}
}

func (s *Carts) Get(ctx context.Context, key string) State {
	var st State
	s.with(key, func() {
		st = s.persist.Load(ctx, key)
	})
	return st
}

// Update opens the cart under the key lock, runs fn and returns the state
// after fn together with the last save result.
func (s *Carts) Update(ctx context.Context, key string, fn func(c *Cart) SaveResult) (State, SaveResult) {
	var (
		st  State
		res SaveResult
	)
	s.with(key, func() {
		c := Open(ctx, key, s.persist)
		res = fn(c)
		st = c.State()
	})
	return st, res
}

func (s *Carts) AddItem(ctx context.Context, key string, item Item, quantity int) (State, SaveResult) {
	return s.Update(ctx, key, func(c *Cart) SaveResult { return c.AddItem(ctx, item, quantity) })
}

// AddItemUpTo adds like AddItem but leaves the cart untouched and returns
// ErrLineLimit when the merged line would hold more than limit.
func (s *Carts) AddItemUpTo(ctx context.Context, key string, item Item, quantity, limit int) (State, SaveResult, error) {
	if quantity == 0 {
		quantity = 1
	}
	var (
		st  State
		res SaveResult
		err error
	)
	s.with(key, func() {
		c := Open(ctx, key, s.persist)
		current := 0
		if line, ok := c.State().Find(ItemID(item.ProductID, item.PackageID)); ok {
			current = line.Quantity
		}
		if current+quantity > limit {
			err = ErrLineLimit
		} else {
			res = c.AddItem(ctx, item, quantity)
		}
		st = c.State()
	})
	return st, res, err
}

func (s *Carts) RemoveItem(ctx context.Context, key, id string) (State, SaveResult) {
	return s.Update(ctx, key, func(c *Cart) SaveResult { return c.RemoveItem(ctx, id) })
}

func (s *Carts) UpdateQuantity(ctx context.Context, key, id string, quantity int) (State, SaveResult) {
	return s.Update(ctx, key, func(c *Cart) SaveResult { return c.UpdateQuantity(ctx, id, quantity) })
}

func (s *Carts) Clear(ctx context.Context, key string) (State, SaveResult) {
	return s.Update(ctx, key, func(c *Cart) SaveResult { return c.Clear(ctx) })
}

// Checkout hands the current state to fn under the key lock and drops the
// stored cart only when fn succeeds.
func (s *Carts) Checkout(ctx context.Context, key string, fn func(State) error) error {
	var err error
	s.with(key, func() {
		st := s.persist.Load(ctx, key)
		if err = fn(st); err != nil {
			return
		}
		s.persist.Forget(ctx, key)
	})
	return err
}

func (s *Carts) with(key string, fn func()) {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	defer func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}()

	fn()
}
