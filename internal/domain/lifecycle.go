package domain

import "errors"

const (
	StateOrdered   = "ordered"
	StateDelivered = "delivered"
)

var ErrUnknownState = errors.New("unknown order state")

// OrderStatus mirrors the stored {ordered, delivered} flag pair. Ordered is
// the initial state, Delivered is terminal.
type OrderStatus struct {
	Ordered   bool `json:"ordered"`
	Delivered bool `json:"delivered"`
}

func NewOrderStatus() OrderStatus {
	return OrderStatus{Ordered: true}
}

func (s OrderStatus) State() string {
	if s.Delivered {
		return StateDelivered
	}
	if s.Ordered {
		return StateOrdered
	}
	return ""
}

// Transition moves the status toward target. Delivered never moves back.
func (s OrderStatus) Transition(target string) (OrderStatus, error) {
	switch target {
	case StateDelivered:
		return OrderStatus{Ordered: true, Delivered: true}, nil
	case StateOrdered:
		if s.Delivered {
			return s, errors.New("delivered order cannot return to ordered")
		}
		return NewOrderStatus(), nil
	default:
		return s, ErrUnknownState
	}
}

// Matches reports whether the status belongs to the list filter. An empty
// filter matches everything.
func (s OrderStatus) Matches(filter string) bool {
	switch filter {
	case "":
		return true
	case StateDelivered:
		return s.Delivered
	case StateOrdered:
		return s.Ordered && !s.Delivered
	default:
		return false
	}
}

func ValidFilter(filter string) bool {
	return filter == "" || filter == StateOrdered || filter == StateDelivered
}
