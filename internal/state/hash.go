package state

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"arbitragefx/internal/strategy"
)

// StateHash is a deterministic, stable serialization of a StrategyState
// hashed with SHA-256 and truncated to 128 bits. Field order is fixed
// (not alphabetical, not map iteration) and every f64 is serialized as
// its IEEE-754 bits in little-endian, so two processes on two machines
// compute the same hash given the same state.
func StateHash(s strategy.StrategyState) [16]byte {
	h := sha256.New()
	h.Write([]byte(s.ID))
	writeFloat(h, s.Position)
	writeFloat(h, s.EntryPrice)
	writeFloat(h, s.Cash)
	writeFloat(h, s.Equity)
	writeFloat(h, s.RealizedPnl)
	writeUint(h, s.Wins)
	writeUint(h, s.Losses)
	writeInt(h, s.LastTradeTs)
	writeInt(h, s.LastLossTs)
	writeUint(h, s.TradesToday)
	writeInt(h, s.TradeDay)
	writeInt(h, s.StartTs)
	writeFloat(h, s.MaxDrawdown)

	sum := h.Sum(nil)
	var out [16]byte
	copy(out[:], sum[:16])
	return out
}

func writeFloat(h interface{ Write([]byte) (int, error) }, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	h.Write(buf[:])
}

func writeUint(h interface{ Write([]byte) (int, error) }, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

func writeInt(h interface{ Write([]byte) (int, error) }, v int64) {
	writeUint(h, uint64(v))
}

// HashString renders a StateHash as a 32-character lowercase hex string
// for log lines and the final-summary report.
func HashString(hash [16]byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 32)
	for i, b := range hash {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}
