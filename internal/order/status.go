package order

type Status string

const (
	StatusPending       Status = "pending"
	StatusPaid          Status = "paid"
	StatusProcessing    Status = "processing"
	StatusShipped       Status = "shipped"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
	StatusPaymentFailed Status = "payment_failed"
)

var transitions = map[Status][]Status{
	StatusPending:       {StatusPaid, StatusPaymentFailed, StatusCancelled},
	StatusPaymentFailed: {StatusPaid, StatusCancelled},
	StatusPaid:          {StatusProcessing, StatusCancelled},
	StatusProcessing:    {StatusShipped, StatusCancelled},
	StatusShipped:       {StatusDelivered},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusPaymentFailed:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from s to next.
// Delivered and cancelled orders are final.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
