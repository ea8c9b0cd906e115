package orders

import "github.com/angelmondragon/shopfront-backend/pkg/enums"

var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
// Terminal statuses have no outgoing edges.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
