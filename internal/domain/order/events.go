package order

const (
	EventOrderPlaced       = "OrderPlaced"
	EventInventoryReserved = "InventoryReserved"
	EventPaymentProcessed  = "PaymentProcessed"
	EventOrderConfirmed    = "OrderConfirmed"
	EventOrderShipped      = "OrderShipped"
	EventOrderCancelled    = "OrderCancelled"
)

type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func (l Line) Total() int64 { return l.UnitPrice * int64(l.Quantity) }

type OrderPlaced struct {
	CustomerID  string `json:"customer_id"`
	Lines       []Line `json:"lines"`
	TotalAmount int64  `json:"total_amount"`
}

type InventoryReserved struct {
	ProductIDs []string `json:"product_ids"`
}

type PaymentProcessed struct {
	Amount           int64  `json:"amount"`
	PaymentReference string `json:"payment_reference"`
}

type OrderConfirmed struct{}

type OrderShipped struct {
	TrackingNumber string `json:"tracking_number"`
}

type OrderCancelled struct {
	Reason string `json:"reason"`
}
