package orders

import "time"

// Order statuses.
const (
	StatusPlaced    = "Placed"
	StatusApproved  = "Approved"
	StatusShipped   = "Shipped"
	StatusDelivered = "Delivered"
	StatusDeclined  = "Declined"
	StatusCancelled = "Cancelled"
)

// transitions maps each status to the statuses an admin may move it to.
// Delivered, Declined and Cancelled are terminal.
var transitions = map[string][]string{
	StatusPlaced:   {StatusApproved, StatusDeclined, StatusCancelled},
	StatusApproved: {StatusShipped, StatusCancelled},
	StatusShipped:  {StatusDelivered},
}

// NextStatuses returns the legal next statuses for the given status.
func NextStatuses(status string) []string {
	return transitions[status]
}

// CanTransition reports whether an order may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Order is a customer order as shown in the console.
type Order struct {
	ID            int64
	Reference     string
	UserID        int64
	CustomerName  string
	CustomerEmail string
	Status        string
	Subtotal      float64
	Shipping      float64
	Total         float64
	Address       string
	PlacedAt      time.Time
	UpdatedAt     time.Time

	Items []Item
}

// Item is a single line of an order.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Name      string
	SKU       string
	UnitPrice float64
	Quantity  int
}

// ListFilters narrows order listings.
type ListFilters struct {
	Status string
	Search string
	Page   int
	Limit  int
}
