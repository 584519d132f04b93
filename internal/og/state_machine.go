/*
Og implements the order lifecycle state machine: the gateway's view of
every in-flight intent, from submission through ack, partial fills, and
into a terminal state.

# Module
  - StateMachine: per-ClientOrderID lifecycle, New->Sent->Acked->
    PartFilled->Filled, or ->Canceled/Rejected/Expired
  - Gateway: reconnect/resend wrapper around StateMachine for live adapters

# Source
  - intents from internal/strategy via the run loop
  - acks and fills from internal/adapter (live) or internal/execsim (backtest)

# Produce
  - Order, the gateway's authoritative view, consumed by internal/engine
    to decide whether a strategy still has an order working

# Sharded
  - none; ClientOrderID already encodes strategy_id
*/
package og

import (
	"arbitragefx/internal/errors"
	"arbitragefx/internal/strategy"
)

var (
	ErrDuplicateOrder    = errors.New("order already exists")
	ErrUnknownOrder      = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order state transition")
	ErrInvalidFill       = errors.New("invalid fill quantity")
)

// OrderState tracks the lifecycle of an order.
type OrderState uint16

const (
	OrderStateUnknown OrderState = iota
	OrderStateNew
	OrderStateSent
	OrderStateAcked
	OrderStatePartFilled
	OrderStateFilled
	OrderStateCanceled
	OrderStateRejected
	OrderStateExpired
)

// AckStatus is the terminal/non-terminal status carried by an adapter ack.
type AckStatus uint16

const (
	AckStatusAcked AckStatus = iota
	AckStatusRejected
	AckStatusCanceled
	AckStatusExpired
)

// Ack is a minimal order acknowledgment from a live adapter. execsim fills
// bypass Ack entirely and go straight through ApplyFill, since a
// simulated venue never acks before filling.
type Ack struct {
	ClientOrderID string
	Status        AckStatus
}

// Order holds the gateway's view of a submitted intent.
type Order struct {
	ClientOrderID string
	StrategyID    string
	Kind          strategy.ActionKind
	Qty           float64
	LeavesQty     float64
	State         OrderState
}

// StateMachine updates orders from intent/ack/fill/cancel events.
type StateMachine struct {
	orders map[string]*Order
}

// NewStateMachine creates an empty state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{orders: make(map[string]*Order)}
}

// Order returns the current order state.
func (m *StateMachine) Order(clientOrderID string) (*Order, bool) {
	o, ok := m.orders[clientOrderID]
	return o, ok
}

// ApplyIntent creates a new order in Sent state.
func (m *StateMachine) ApplyIntent(intent strategy.Intent) (*Order, error) {
	if intent.ClientOrderID == "" {
		return nil, ErrUnknownOrder
	}
	if _, ok := m.orders[intent.ClientOrderID]; ok {
		return nil, ErrDuplicateOrder
	}
	o := &Order{
		ClientOrderID: intent.ClientOrderID,
		StrategyID:    intent.StrategyID,
		Kind:          intent.Action.Kind,
		Qty:           intent.Action.Qty,
		LeavesQty:     intent.Action.Qty,
		State:         OrderStateSent,
	}
	m.orders[o.ClientOrderID] = o
	return o, nil
}

// ApplyAck updates an order from an adapter acknowledgment.
func (m *StateMachine) ApplyAck(ack Ack) (*Order, error) {
	o, ok := m.orders[ack.ClientOrderID]
	if !ok {
		return nil, ErrUnknownOrder
	}
	if isTerminal(o.State) {
		return o, ErrInvalidTransition
	}
	switch ack.Status {
	case AckStatusAcked:
		o.State = OrderStateAcked
	case AckStatusRejected:
		o.State = OrderStateRejected
	case AckStatusCanceled:
		o.State = OrderStateCanceled
	case AckStatusExpired:
		o.State = OrderStateExpired
	default:
		o.State = OrderStateUnknown
	}
	return o, nil
}

// ApplyFill reduces LeavesQty by the fill quantity and advances the order
// to PartFilled or Filled. A zero-qty fill is rejected with
// ErrInvalidFill; cancels go through ApplyCancel.
func (m *StateMachine) ApplyFill(f strategy.Fill) (*Order, error) {
	o, ok := m.orders[f.ClientOrderID]
	if !ok {
		return nil, ErrUnknownOrder
	}
	if isTerminal(o.State) {
		return o, ErrInvalidTransition
	}
	qty := absf(f.Qty)
	if qty <= 0 {
		return o, ErrInvalidFill
	}
	leaves := o.LeavesQty - qty
	if leaves <= 1e-9 {
		o.LeavesQty = 0
		o.State = OrderStateFilled
	} else {
		o.LeavesQty = leaves
		o.State = OrderStatePartFilled
	}
	return o, nil
}

// ApplyCancel transitions an order to Canceled. A cancel reaches it as a
// separate call, not as a qty-0 fill through ApplyFill.
func (m *StateMachine) ApplyCancel(clientOrderID string) (*Order, error) {
	o, ok := m.orders[clientOrderID]
	if !ok {
		return nil, ErrUnknownOrder
	}
	if isTerminal(o.State) {
		return o, ErrInvalidTransition
	}
	o.State = OrderStateCanceled
	return o, nil
}

func isTerminal(state OrderState) bool {
	switch state {
	case OrderStateFilled, OrderStateCanceled, OrderStateRejected, OrderStateExpired:
		return true
	default:
		return false
	}
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
