package cart

// The reducer functions never fail and never mutate their input; each returns a
// new State with Total and ItemCount recomputed.

// AddItem merges on (ProductID, PackageID) or appends a new line. A zero
// quantity means 1. Negative quantities are not rejected here.
func AddItem(s State, item Item, quantity int) State {
	if quantity == 0 {
		quantity = 1
	}
	item.ID = ItemID(item.ProductID, item.PackageID)

	items := cloneItems(s.Items)
	for i := range items {
		if items[i].ProductID == item.ProductID && items[i].PackageID == item.PackageID {
			items[i].Quantity += quantity
			return State{Items: items}.recalculate()
		}
	}

	item.Quantity = quantity
	item.Features = append([]string(nil), item.Features...)
	items = append(items, item)
	return State{Items: items}.recalculate()
}

// RemoveItem drops the line with the given id. Unknown ids are a no-op.
func RemoveItem(s State, id string) State {
	items := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		if it.ID != id {
			items = append(items, it)
		}
	}
	return State{Items: items}.recalculate()
}

// UpdateQuantity sets an absolute quantity; quantity <= 0 removes the line.
func UpdateQuantity(s State, id string, quantity int) State {
	if quantity <= 0 {
		return RemoveItem(s, id)
	}
	items := cloneItems(s.Items)
	for i := range items {
		if items[i].ID == id {
			items[i].Quantity = quantity
		}
	}
	return State{Items: items}.recalculate()
}

func Clear() State {
	return Empty()
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
