package domain

import "time"

// OrderStatus is a step of the kitchen workflow.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
)

// OrderStatuses lists the workflow in order.
var OrderStatuses = []OrderStatus{OrderPending, OrderPreparing, OrderReady, OrderDelivered}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	return s.Rank() >= 0
}

// Rank returns the position of s in the workflow, or -1 if unknown.
func (s OrderStatus) Rank() int {
	for i, known := range OrderStatuses {
		if s == known {
			return i
		}
	}
	return -1
}

// SelectedOption is a product option chosen for a line item.
type SelectedOption struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID int64            `json:"product_id"`
	Name      string           `json:"name,omitempty"`
	Quantity  int              `json:"quantity"`
	UnitPrice float64          `json:"price,omitempty"`
	Options   []SelectedOption `json:"options,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

// Amounts are the caller-supplied order totals.
type Amounts struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Order is a customer order bound to the table it was placed from.
// TableCode and TableID are captured at creation and never re-resolved.
type Order struct {
	ID         int64          `json:"id"`
	TableCode  string         `json:"table_code"`
	TableID    int64          `json:"table_id"`
	Items      []OrderItem    `json:"items"`
	Subtotal   float64        `json:"subtotal"`
	Tax        float64        `json:"tax"`
	Total      float64        `json:"total"`
	Status     OrderStatus    `json:"status"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	ClientMeta map[string]any `json:"client_meta,omitempty"`
}

// StatusChange is the payload of order status events.
type StatusChange struct {
	OrderID int64       `json:"orderId"`
	Status  OrderStatus `json:"status"`
}
