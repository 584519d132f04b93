/*
Adapter defines the exchange adapter contract: the boundary the run loop
talks to for live order placement and fill delivery. No venue-specific
implementation lives here — wiring a real exchange is deliberately out
of scope; this package owns only the interface and the bounded-channel
dispatcher that keeps a slow or misbehaving adapter from blocking the
run loop.

# Module
  - Adapter: the interface a live venue integration must satisfy
  - Dispatcher: bounded worker pool that calls Adapter.PlaceOrder
    off the caller's thread, with exponential backoff on error

# Source
  - strategy.Intent values handed to Dispatcher.Handle

# Produce
  - og.Ack values delivered back over Dispatcher.Acks; fills arrive over
    Adapter.FillsStream

# Sharded
  - none; one Dispatcher per process, one Adapter per venue
*/
package adapter

import (
	"context"

	"arbitragefx/internal/market"
	"arbitragefx/internal/og"
	"arbitragefx/internal/strategy"
)

// Adapter is the contract a live exchange integration implements. No
// concrete implementation ships here: spec §1 puts exchange HMAC
// signing and wire-protocol plumbing out of scope as an external
// collaborator.
type Adapter interface {
	// Candles streams closed candles for symbol, one per bar.
	Candles(ctx context.Context, symbol string) (<-chan CandleUpdate, error)
	// PlaceOrder submits an intent and returns once the venue has
	// accepted (not filled) it, or an error if rejected outright.
	PlaceOrder(ctx context.Context, intent strategy.Intent) (og.Ack, error)
	// Cancel requests cancellation of a working order.
	Cancel(ctx context.Context, clientOrderID string) (og.Ack, error)
	// OpenOrders lists orders the venue still considers working.
	OpenOrders(ctx context.Context) ([]og.Order, error)
	// Balance returns the account's available balance in quote currency.
	Balance(ctx context.Context) (float64, error)
	// FillsStream delivers fills as they occur, in venue sequence order.
	FillsStream(ctx context.Context) (<-chan strategy.Fill, error)
}

// CandleUpdate pairs a symbol's latest candle with its aux bundle, as
// delivered by a live feed.
type CandleUpdate struct {
	Symbol string
	Candle market.Candle
	Aux    market.AuxBundle
}
