package risk

// PositionSizer tracks rolling win/loss counts and amounts per strategy
// and exposes Kelly fraction / expectancy as a tuning aid. Supplemented
// from the original source's RiskEngine.kelly_size / current_expectancy,
// dropped by the distilled spec. Not wired into qty selection: the
// reducer already owns qty via Action.Buy{qty}/Sell{qty}.
type PositionSizer struct {
	wins        uint64
	losses      uint64
	winAmount   float64
	lossAmount  float64
}

// Record tallies one realized trade outcome.
func (s *PositionSizer) Record(realizedPnl float64) {
	if realizedPnl > 0 {
		s.wins++
		s.winAmount += realizedPnl
	} else if realizedPnl < 0 {
		s.losses++
		s.lossAmount += -realizedPnl
	}
}

// Expectancy returns the average realized PnL per completed round trip.
func (s *PositionSizer) Expectancy() float64 {
	total := s.wins + s.losses
	if total == 0 {
		return 0
	}
	return (s.winAmount - s.lossAmount) / float64(total)
}

// KellyFraction returns the Kelly-criterion position fraction implied by
// the observed win rate and win/loss size ratio, clamped to [0, 1].
func (s *PositionSizer) KellyFraction() float64 {
	total := s.wins + s.losses
	if total == 0 || s.losses == 0 {
		return 0
	}
	winRate := float64(s.wins) / float64(total)
	avgWin := s.winAmount / maxf(float64(s.wins), 1)
	avgLoss := s.lossAmount / maxf(float64(s.losses), 1)
	if avgLoss <= 0 {
		return 0
	}
	ratio := avgWin / avgLoss
	kelly := winRate - (1-winRate)/maxf(ratio, 1e-9)
	if kelly < 0 {
		return 0
	}
	if kelly > 1 {
		return 1
	}
	return kelly
}
