package orders

import "marketplace/internal/domain"

// validNext is the order state machine. Cancellation is not a transition:
// it deletes the order and is only refused for Delivered ones.
var validNext = map[domain.OrderStatus]map[domain.OrderStatus]bool{
	domain.OrderPending:    {domain.OrderInProgress: true, domain.OrderDelivered: true},
	domain.OrderInProgress: {domain.OrderDelivered: true},
	domain.OrderDelivered:  {},
}

func CanTransition(from, to domain.OrderStatus) bool {
	return validNext[from][to]
}

// Writable reports whether s may be stored through Advance.
func Writable(s domain.OrderStatus) bool {
	_, ok := validNext[s]
	return ok
}

// Cancellable reports whether an order in state s may still be cancelled.
func Cancellable(s domain.OrderStatus) bool {
	return s != domain.OrderDelivered
}
