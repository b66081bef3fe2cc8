package domain

// orderTransitions enumerates the allowed status moves. Anything absent is
// rejected; DELIVERED and CANCELLED have no outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ValidOrderStatus reports whether s is one of the recognised lifecycle states.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
// Same-status moves return false; callers treat them as no-ops rather than
// transitions.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TerminalStatus reports whether the status admits no further transitions.
func TerminalStatus(s OrderStatus) bool {
	return len(orderTransitions[s]) == 0 && ValidOrderStatus(s)
}
