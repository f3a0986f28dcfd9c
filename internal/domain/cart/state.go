package cart

// State of the order lifecycle. Cart is the only mutable-content state;
// completed and cancelled are terminal.
type State string

const (
	StateCart           State = "cart"
	StateConfirmed      State = "confirmed"
	StateInPreparation  State = "in_preparation"
	StateReady          State = "ready"
	StateOutForDelivery State = "out_for_delivery"
	StateDelivered      State = "delivered"
	StateCompleted      State = "completed"
	StateCancelled      State = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// forward is the legal forward adjacency. Pickup orders complete straight
// from ready; home deliveries go out for delivery first.
var forward = map[State][]State{
	StateCart:           {StateConfirmed},
	StateConfirmed:      {StateInPreparation},
	StateInPreparation:  {StateReady},
	StateReady:          {StateOutForDelivery, StateCompleted},
	StateOutForDelivery: {StateDelivered},
	StateDelivered:      {StateCompleted},
}

// CanTransition reports whether from -> to is legal. Cancellation is allowed
// from every non-terminal state.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateCancelled {
		return true
	}
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidState reports whether s names a known lifecycle state.
func ValidState(s State) bool {
	switch s {
	case StateCart, StateConfirmed, StateInPreparation, StateReady,
		StateOutForDelivery, StateDelivered, StateCompleted, StateCancelled:
		return true
	}
	return false
}
