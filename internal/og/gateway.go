package og

import (
	"arbitragefx/internal/errors"
	"arbitragefx/internal/strategy"
)

var ErrGatewayDisconnected = errors.New("order gateway disconnected")

// GatewayConfig controls the stub gateway behavior.
type GatewayConfig struct {
	Session           string
	ResendOnReconnect bool
}

// Gateway wraps a StateMachine with reconnect/resend bookkeeping for a
// live adapter. A backtest run talks to internal/execsim directly and
// has no use for Gateway: execsim never disconnects.
type Gateway struct {
	cfg       GatewayConfig
	state     *StateMachine
	pending   map[string]strategy.Intent
	connected bool
}

// NewGateway creates a new gateway stub.
func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.Session == "" {
		cfg.Session = "default"
	}
	return &Gateway{
		cfg:       cfg,
		state:     NewStateMachine(),
		pending:   make(map[string]strategy.Intent),
		connected: true,
	}
}

// State returns the underlying order state machine.
func (g *Gateway) State() *StateMachine {
	return g.state
}

// Send registers a new intent and stores it for potential resend.
func (g *Gateway) Send(intent strategy.Intent) error {
	if _, err := g.state.ApplyIntent(intent); err != nil {
		return err
	}
	g.pending[intent.ClientOrderID] = intent
	if !g.connected {
		return ErrGatewayDisconnected
	}
	return nil
}

// OnAck updates order state from an acknowledgment.
func (g *Gateway) OnAck(ack Ack) error {
	order, err := g.state.ApplyAck(ack)
	if err != nil {
		return err
	}
	if isTerminal(order.State) {
		delete(g.pending, ack.ClientOrderID)
	}
	return nil
}

// OnFill updates order state from a fill.
func (g *Gateway) OnFill(f strategy.Fill) error {
	order, err := g.state.ApplyFill(f)
	if err != nil {
		return err
	}
	if isTerminal(order.State) {
		delete(g.pending, f.ClientOrderID)
	}
	return nil
}

// OnCancel updates order state from a CancelAck.
func (g *Gateway) OnCancel(clientOrderID string) error {
	order, err := g.state.ApplyCancel(clientOrderID)
	if err != nil {
		return err
	}
	if isTerminal(order.State) {
		delete(g.pending, clientOrderID)
	}
	return nil
}

// Disconnect marks the gateway as disconnected.
func (g *Gateway) Disconnect() {
	g.connected = false
}

// Reconnect marks the gateway as connected and returns pending intents
// to resend, if the gateway is configured to do so.
func (g *Gateway) Reconnect() []strategy.Intent {
	g.connected = true
	if !g.cfg.ResendOnReconnect {
		return nil
	}
	out := make([]strategy.Intent, 0, len(g.pending))
	for _, intent := range g.pending {
		out = append(out, intent)
	}
	return out
}
