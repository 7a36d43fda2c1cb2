package cart

import "context"

// Cart is the single owner of one cart's state. Every mutation writes through
// to the persistence strategy; a failed write never rolls back memory.
type Cart struct {
	key     string
	state   State
	persist *Persistence
}

// Open loads the cart stored under key.
func Open(ctx context.Context, key string, persist *Persistence) *Cart {
	return &Cart{key: key, state: persist.Load(ctx, key), persist: persist}
}

func (c *Cart) Key() string { return c.key }

func (c *Cart) State() State { return c.state }

func (c *Cart) AddItem(ctx context.Context, item Item, quantity int) SaveResult {
	return c.apply(ctx, AddItem(c.state, item, quantity))
}

func (c *Cart) RemoveItem(ctx context.Context, id string) SaveResult {
	return c.apply(ctx, RemoveItem(c.state, id))
}

func (c *Cart) UpdateQuantity(ctx context.Context, id string, quantity int) SaveResult {
	return c.apply(ctx, UpdateQuantity(c.state, id, quantity))
}

func (c *Cart) Clear(ctx context.Context) SaveResult {
	return c.apply(ctx, Clear())
}

func (c *Cart) apply(ctx context.Context, next State) SaveResult {
	c.state = next
	return c.persist.Save(ctx, c.key, c.state)
}
