package og

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbitragefx/internal/strategy"
)

func intent(coid string, qty float64) strategy.Intent {
	return strategy.Intent{
		Action:        strategy.BuyAction(qty),
		StrategyID:    "momentum-1",
		ClientOrderID: coid,
	}
}

func TestApplyIntentCreatesSentOrder(t *testing.T) {
	m := NewStateMachine()
	o, err := m.ApplyIntent(intent("CID-1", 2))
	require.NoError(t, err)
	assert.Equal(t, OrderStateSent, o.State)
	assert.Equal(t, 2.0, o.LeavesQty)
}

func TestApplyIntentRejectsDuplicate(t *testing.T) {
	m := NewStateMachine()
	_, err := m.ApplyIntent(intent("CID-1", 1))
	require.NoError(t, err)
	_, err = m.ApplyIntent(intent("CID-1", 1))
	assert.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestApplyAckOnUnknownOrderErrors(t *testing.T) {
	m := NewStateMachine()
	_, err := m.ApplyAck(Ack{ClientOrderID: "missing", Status: AckStatusAcked})
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestApplyAckAdvancesToAcked(t *testing.T) {
	m := NewStateMachine()
	_, _ = m.ApplyIntent(intent("CID-1", 1))
	o, err := m.ApplyAck(Ack{ClientOrderID: "CID-1", Status: AckStatusAcked})
	require.NoError(t, err)
	assert.Equal(t, OrderStateAcked, o.State)
}

func TestApplyFillPartialThenFull(t *testing.T) {
	m := NewStateMachine()
	_, _ = m.ApplyIntent(intent("CID-1", 3))

	o, err := m.ApplyFill(strategy.Fill{ClientOrderID: "CID-1", Qty: 1})
	require.NoError(t, err)
	assert.Equal(t, OrderStatePartFilled, o.State)
	assert.InDelta(t, 2.0, o.LeavesQty, 1e-9)

	o, err = m.ApplyFill(strategy.Fill{ClientOrderID: "CID-1", Qty: 2})
	require.NoError(t, err)
	assert.Equal(t, OrderStateFilled, o.State)
	assert.Zero(t, o.LeavesQty)
}

func TestApplyFillZeroQtyIsInvalid(t *testing.T) {
	m := NewStateMachine()
	_, _ = m.ApplyIntent(intent("CID-1", 1))
	_, err := m.ApplyFill(strategy.Fill{ClientOrderID: "CID-1", Qty: 0})
	assert.ErrorIs(t, err, ErrInvalidFill)
}

func TestApplyFillOnTerminalOrderErrors(t *testing.T) {
	m := NewStateMachine()
	_, _ = m.ApplyIntent(intent("CID-1", 1))
	_, err := m.ApplyCancel("CID-1")
	require.NoError(t, err)

	_, err = m.ApplyFill(strategy.Fill{ClientOrderID: "CID-1", Qty: 1})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyCancelOnUnknownOrderErrors(t *testing.T) {
	m := NewStateMachine()
	_, err := m.ApplyCancel("missing")
	assert.ErrorIs(t, err, ErrUnknownOrder)
}
