package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbitragefx/internal/schema"
)

func evOf(t schema.EventType) Event {
	return Event{Header: schema.EventHeader{Type: t}}
}

func TestPriorityOfClassification(t *testing.T) {
	assert.Equal(t, PrioritySys, PriorityOf(evOf(schema.EventSysTimer)))
	assert.Equal(t, PrioritySys, PriorityOf(evOf(schema.EventSysShutdown)))
	assert.Equal(t, PrioritySys, PriorityOf(evOf(schema.EventSysKillFile)))
	assert.Equal(t, PriorityRisk, PriorityOf(evOf(schema.EventRiskHalt)))
	assert.Equal(t, PriorityFill, PriorityOf(evOf(schema.EventFill)))
	assert.Equal(t, PriorityMarket, PriorityOf(evOf(schema.EventMarketData)))
}

func TestPriorityQueueDrainsHighestClassFirst(t *testing.T) {
	q := NewPriorityQueue(10)
	require.NoError(t, q.TryPublish(evOf(schema.EventMarketData), 1))
	require.NoError(t, q.TryPublish(evOf(schema.EventFill), 2))
	require.NoError(t, q.TryPublish(evOf(schema.EventSysTimer), 3))
	require.NoError(t, q.TryPublish(evOf(schema.EventRiskHalt), 4))

	var order []schema.EventType
	for {
		e, ok := q.TryPop()
		if !ok {
			break
		}
		order = append(order, e.Header.Type)
	}

	assert.Equal(t, []schema.EventType{
		schema.EventSysTimer,
		schema.EventRiskHalt,
		schema.EventFill,
		schema.EventMarketData,
	}, order)
}

func TestPriorityQueueFIFOWithinClass(t *testing.T) {
	q := NewPriorityQueue(10)
	require.NoError(t, q.TryPublish(Event{Header: schema.EventHeader{Type: schema.EventFill, Seq: 5}}, 5))
	require.NoError(t, q.TryPublish(Event{Header: schema.EventHeader{Type: schema.EventFill, Seq: 2}}, 2))
	require.NoError(t, q.TryPublish(Event{Header: schema.EventHeader{Type: schema.EventFill, Seq: 9}}, 9))

	var seqs []uint64
	for {
		e, ok := q.TryPop()
		if !ok {
			break
		}
		seqs = append(seqs, e.Header.Seq)
	}
	assert.Equal(t, []uint64{2, 5, 9}, seqs)
}

func TestPriorityQueueFullReturnsError(t *testing.T) {
	q := NewPriorityQueue(1)
	require.NoError(t, q.TryPublish(evOf(schema.EventFill), 1))
	assert.ErrorIs(t, q.TryPublish(evOf(schema.EventFill), 2), ErrQueueFull)
}

func TestPriorityQueueClosedRejectsPublish(t *testing.T) {
	q := NewPriorityQueue(1)
	q.Close()
	assert.True(t, q.Closed())
	assert.ErrorIs(t, q.TryPublish(evOf(schema.EventFill), 1), ErrQueueClosed)
}
