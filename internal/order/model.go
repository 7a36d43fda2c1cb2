package order

import (
	"strconv"
	"strings"
	"time"
)

type ShippingInfo struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (s ShippingInfo) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

type Item struct {
	ProductID string  `json:"productId"`
	PackageID string  `json:"packageId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Order struct {
	ID         string       `json:"id"`
	Number     string       `json:"number"`
	UserID     *string      `json:"userId,omitempty"`
	Email      string       `json:"email"`
	Items      []Item       `json:"items"`
	Total      float64      `json:"total"`
	Status     Status       `json:"status"`
	Shipping   ShippingInfo `json:"shipping"`
	PaymentRef string       `json:"paymentRef,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

var ExportHeader = []string{
	"id", "number", "status", "email", "first_name", "last_name", "phone",
	"address", "city", "postal_code", "country", "items", "total", "payment_ref", "created_at",
}

func (o Order) ExportRow() []string {
	items := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, it.ProductID+"/"+it.PackageID+" x"+strconv.Itoa(it.Quantity))
	}
	return []string{
		o.ID, o.Number, string(o.Status), o.Email,
		o.Shipping.FirstName, o.Shipping.LastName, o.Shipping.Phone,
		o.Shipping.Address, o.Shipping.City, o.Shipping.PostalCode, o.Shipping.Country,
		strings.Join(items, "; "),
		strconv.FormatFloat(o.Total, 'f', 2, 64),
		o.PaymentRef,
		o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Filter narrows admin listings. Zero values match everything.
type Filter struct {
	Status Status
	Q      string
	From   *time.Time
	To     *time.Time
	UserID string
}

// Result is what checkout returns. Status is CREATED for a new order and
// IDEMPOTENT_REPLAY when an earlier order was returned for the same key.
type Result struct {
	Order  Order  `json:"order"`
	Status string `json:"status"`
}

const (
	ResultCreated          = "CREATED"
	ResultIdempotentReplay = "IDEMPOTENT_REPLAY"
)
