package events

import "time"

const Exchange = "codeqr.events"

var (
	OrderCreatedV1 = Kind{
		Name:       "OrderCreated",
		Version:    1,
		RoutingKey: "order.created.v1",
		Schema:     "contracts/events/order/OrderCreated.v1.payload.schema.json",
	}
	OrderStatusChangedV1 = Kind{
		Name:       "OrderStatusChanged",
		Version:    1,
		RoutingKey: "order.status_changed.v1",
		Schema:     "contracts/events/order/OrderStatusChanged.v1.payload.schema.json",
	}
	QRCodeActivatedV1 = Kind{
		Name:       "QRCodeActivated",
		Version:    1,
		RoutingKey: "qrcode.activated.v1",
		Schema:     "contracts/events/qrcode/QRCodeActivated.v1.payload.schema.json",
	}
	PaymentSucceededV1 = Kind{
		Name:       "PaymentSucceeded",
		Version:    1,
		RoutingKey: "payment.succeeded.v1",
		Schema:     "contracts/events/payment/PaymentSucceeded.v1.payload.schema.json",
	}
	PaymentFailedV1 = Kind{
		Name:       "PaymentFailed",
		Version:    1,
		RoutingKey: "payment.failed.v1",
		Schema:     "contracts/events/payment/PaymentFailed.v1.payload.schema.json",
	}
)

type OrderLine struct {
	ProductID string  `json:"productId"`
	PackageID string  `json:"packageId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID   string      `json:"orderId"`
	Number    string      `json:"number"`
	UserID    string      `json:"userId,omitempty"`
	Email     string      `json:"email"`
	Items     []OrderLine `json:"items"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
}

type OrderStatusChangedPayload struct {
	OrderID   string    `json:"orderId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedAt time.Time `json:"changedAt"`
}

type QRCodeActivatedPayload struct {
	QRCodeID    string    `json:"qrCodeId"`
	Code        string    `json:"code"`
	UserID      string    `json:"userId"`
	RedirectURL string    `json:"redirectUrl"`
	NewUser     bool      `json:"newUser"`
	ActivatedAt time.Time `json:"activatedAt"`
}

type PaymentSucceededPayload struct {
	OrderID    string    `json:"orderId"`
	PaymentRef string    `json:"paymentRef"`
	Amount     float64   `json:"amount"`
	PaidAt     time.Time `json:"paidAt"`
}

type PaymentFailedPayload struct {
	OrderID string    `json:"orderId"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}
