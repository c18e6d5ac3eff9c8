package inventory

const (
	EventStockAdded    = "StockAdded"
	EventStockReserved = "StockReserved"
	EventStockReleased = "StockReleased"
	EventStockDeducted = "StockDeducted"
)

type StockAdded struct {
	Quantity int `json:"quantity"`
}

type StockReserved struct {
	OrderID  string `json:"order_id"`
	Quantity int    `json:"quantity"`
}

type StockReleased struct {
	OrderID  string `json:"order_id"`
	Quantity int    `json:"quantity"`
}

type StockDeducted struct {
	OrderID  string `json:"order_id"`
	Quantity int    `json:"quantity"`
}
