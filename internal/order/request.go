package order

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/issouf7507-dev/codeqr-sub000/internal/cart"
	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

// RequestItem is one line of the order body. Name and Price are what the
// shopper saw; the server prices from the catalog.
type RequestItem struct {
	ProductID string  `json:"productId"`
	PackageID string  `json:"packageId"`
	Quantity  int     `json:"quantity"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
}

// CreateRequest is the order creation body: the items plus the shipping
// fields inline.
type CreateRequest struct {
	Items []RequestItem `json:"items"`
	ShippingInfo
}

// FromCart builds the order body from a cart snapshot.
func FromCart(s cart.State, shipping ShippingInfo) CreateRequest {
	req := CreateRequest{ShippingInfo: shipping}
	for _, it := range s.Items {
		req.Items = append(req.Items, RequestItem{
			ProductID: it.ProductID,
			PackageID: it.PackageID,
			Quantity:  it.Quantity,
			Name:      it.Name,
			Price:     it.Price,
		})
	}
	return req
}

const maxLineQuantity = inventory.MaxLineQuantity

func (r CreateRequest) Validate() error {
	if len(r.Items) == 0 {
		return validate.Errorf("items", "at least one item is required")
	}
	for i, it := range r.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(it.ProductID) == "" || strings.TrimSpace(it.PackageID) == "" {
			return validate.Errorf(field, "productId and packageId are required")
		}
		if it.Quantity < 1 || it.Quantity > maxLineQuantity {
			return validate.Errorf(field+".quantity", "must be between 1 and %d", maxLineQuantity)
		}
	}
	return r.ShippingInfo.Validate()
}

func (s ShippingInfo) Validate() error {
	return validate.First(
		validate.Required("firstName", s.FirstName),
		validate.Required("lastName", s.LastName),
		validate.Email("email", s.Email),
		validate.Required("address", s.Address),
		validate.Required("city", s.City),
		validate.Required("postalCode", s.PostalCode),
		validate.Required("country", s.Country),
	)
}

func (s ShippingInfo) normalized() ShippingInfo {
	return ShippingInfo{
		FirstName:  strings.TrimSpace(s.FirstName),
		LastName:   strings.TrimSpace(s.LastName),
		Email:      strings.ToLower(strings.TrimSpace(s.Email)),
		Phone:      strings.TrimSpace(s.Phone),
		Address:    strings.TrimSpace(s.Address),
		City:       strings.TrimSpace(s.City),
		PostalCode: strings.TrimSpace(s.PostalCode),
		Country:    strings.TrimSpace(s.Country),
	}
}

// Fingerprint identifies the request for idempotency checks. Display-only
// fields (item name and price) and surrounding whitespace do not count.
func (r CreateRequest) Fingerprint() string {
	type line struct {
		ProductID string `json:"p"`
		PackageID string `json:"k"`
		Quantity  int    `json:"q"`
	}
	canon := struct {
		Items    []line       `json:"items"`
		Shipping ShippingInfo `json:"shipping"`
	}{Shipping: r.ShippingInfo.normalized()}
	for _, it := range r.Items {
		canon.Items = append(canon.Items, line{
			ProductID: strings.TrimSpace(it.ProductID),
			PackageID: strings.TrimSpace(it.PackageID),
			Quantity:  it.Quantity,
		})
	}
	data, _ := json.Marshal(canon)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
