package cart

import "math"

// Item is one product+package selection in the cart.
type Item struct {
	ID            string   `json:"id"`
	ProductID     string   `json:"productId"`
	PackageID     string   `json:"packageId"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Quantity      int      `json:"quantity"`
	Image         string   `json:"image,omitempty"`
	Features      []string `json:"features,omitempty"`
}

// State is the cart snapshot. Total and ItemCount are derived from Items and
// are only ever written by recalculate.
type State struct {
	Items     []Item  `json:"items"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"itemCount"`
}

// IDSeparator joins product and package ids in ItemID. Neither id may
// contain it; the catalog enforces that on load.
const IDSeparator = ":"

// ItemID is the composite identity of a cart line.
func ItemID(productID, packageID string) string {
	return productID + IDSeparator + packageID
}

func Empty() State {
	return State{Items: []Item{}}
}

func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the line with the given id.
func (s State) Find(id string) (Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

func (s State) recalculate() State {
	total := 0.0
	count := 0
	for _, it := range s.Items {
		total += it.Price * float64(it.Quantity)
		count += it.Quantity
	}
	s.Total = roundCents(total)
	s.ItemCount = count
	if s.Items == nil {
		s.Items = []Item{}
	}
	return s
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
