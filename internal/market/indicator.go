package market

import "math"

const eps = 1e-12

// WarmupBars is the default number of samples required before indicator
// output is considered ready (spec default: 30).
const WarmupBars = 30

const (
	emaFastSpan   = 6
	emaSlowSpan   = 24
	sigmaWindow   = 200
	vwapWindow    = 50
	volumeWindow  = 200
	momentumSpan  = 30
)

// welford is an online mean/variance accumulator over a bounded sliding
// window. Once the window is full, each push replaces the oldest sample
// with an incremental update of mean and m2 (no Kahan compensation),
// clamping m2 at zero against rounding drift — acceptable because the
// window is only ever read through a max(sigma, eps) guard.
type welford struct {
	window   []float64
	capacity int
	head     int
	count    int
	mean     float64
	m2       float64
}

func newWelford(capacity int) *welford {
	if capacity <= 0 {
		capacity = 1
	}
	return &welford{window: make([]float64, capacity), capacity: capacity}
}

func (w *welford) push(x float64) {
	if w.count < w.capacity {
		w.count++
		n := float64(w.count)
		delta := x - w.mean
		w.mean += delta / n
		w.m2 += delta * (x - w.mean)
		w.window[w.head] = x
		w.head = (w.head + 1) % w.capacity
		return
	}

	old := w.window[w.head]
	w.window[w.head] = x
	w.head = (w.head + 1) % w.capacity

	n := float64(w.count)
	oldMean := w.mean
	w.mean += (x - old) / n
	w.m2 += (x - old) * (x - w.mean + old - oldMean)
	if w.m2 < 0 {
		w.m2 = 0
	}
}

func (w *welford) variance() float64 {
	if w.count <= 1 {
		return 0
	}
	return w.m2 / float64(w.count-1)
}

func (w *welford) sigma() float64 {
	return math.Sqrt(w.variance())
}

func zscore(x, mean, sigma float64) float64 {
	return (x - mean) / math.Max(sigma, eps)
}

// IndicatorSnapshot is the derived per-candle read computed by Welford-style
// online updates. Readable only after State.Ready() reports true.
type IndicatorSnapshot struct {
	EMAFast        float64
	EMASlow        float64
	RollingSigmaPrice float64
	RollingSigmaVol   float64
	VolumeMean     float64
	Vwap           float64
	ZMomentum      float64
	ZVol           float64
	ZVolumeSpike   float64
	ZStretch       float64
}

// IndicatorState maintains rolling statistics for one symbol.
type IndicatorState struct {
	samples int

	emaFast float64
	emaSlow float64
	emaInit bool

	priceStats  *welford
	volStats    *welford
	volumeStats *welford
	momentum    *welford

	vwapPriceVol float64
	vwapVolume   float64
	vwapRing     []vwapPoint
	vwapHead     int
	vwapCount    int

	lastClose    float64
	lastLogPrice float64
	haveLast     bool
}

type vwapPoint struct {
	priceVol float64
	volume   float64
}

// NewIndicatorState builds a fresh per-symbol indicator accumulator.
func NewIndicatorState() *IndicatorState {
	return &IndicatorState{
		priceStats:  newWelford(sigmaWindow),
		volStats:    newWelford(sigmaWindow),
		volumeStats: newWelford(volumeWindow),
		momentum:    newWelford(momentumSpan),
		vwapRing:    make([]vwapPoint, vwapWindow),
	}
}

// Ready reports whether WarmupBars samples have been observed.
func (s *IndicatorState) Ready() bool {
	return s.samples >= WarmupBars
}

// Update advances all accumulators with one candle and returns the
// resulting snapshot. Never divides without a guard: every denominator
// is routed through max(denom, eps) or max(denom, 1.0).
func (s *IndicatorState) Update(c Candle) IndicatorSnapshot {
	s.samples++

	if !s.emaInit {
		s.emaFast = c.Close
		s.emaSlow = c.Close
		s.emaInit = true
	} else {
		kFast := 2.0 / (emaFastSpan + 1)
		kSlow := 2.0 / (emaSlowSpan + 1)
		s.emaFast += kFast * (c.Close - s.emaFast)
		s.emaSlow += kSlow * (c.Close - s.emaSlow)
	}

	s.priceStats.push(c.Close)

	logRet := 0.0
	if s.haveLast && s.lastLogPrice > 0 && c.Close > 0 {
		logRet = math.Log(c.Close / s.lastLogPrice)
	}
	s.lastLogPrice = c.Close
	s.haveLast = true
	s.volStats.push(logRet)

	s.volumeStats.push(c.Volume)

	momentumVal := 0.0
	if s.lastClose != 0 {
		momentumVal = c.Close - s.lastClose
	}
	s.lastClose = c.Close
	s.momentum.push(momentumVal)

	s.pushVwap(c)

	vwap := s.vwap()
	stretch := 0.0
	if vwap > eps {
		stretch = (c.Close - vwap) / vwap
	}

	snap := IndicatorSnapshot{
		EMAFast:           s.emaFast,
		EMASlow:           s.emaSlow,
		RollingSigmaPrice: s.priceStats.sigma(),
		RollingSigmaVol:   s.volStats.sigma(),
		VolumeMean:        s.volumeStats.mean,
		Vwap:              vwap,
		ZMomentum:         zscore(momentumVal, s.momentum.mean, s.momentum.sigma()),
		ZVol:              zscore(s.volStats.window[prevIndex(s.volStats.head, s.volStats.capacity)], s.volStats.mean, s.volStats.sigma()),
		ZVolumeSpike:      zscore(c.Volume, s.volumeStats.mean, s.volumeStats.sigma()),
		ZStretch:          stretch,
	}
	return snap
}

func prevIndex(head, capacity int) int {
	idx := head - 1
	if idx < 0 {
		idx += capacity
	}
	return idx
}

func (s *IndicatorState) pushVwap(c Candle) {
	if s.vwapCount == len(s.vwapRing) {
		old := s.vwapRing[s.vwapHead]
		s.vwapPriceVol -= old.priceVol
		s.vwapVolume -= old.volume
	} else {
		s.vwapCount++
	}
	p := vwapPoint{priceVol: c.Close * c.Volume, volume: c.Volume}
	s.vwapRing[s.vwapHead] = p
	s.vwapHead = (s.vwapHead + 1) % len(s.vwapRing)
	s.vwapPriceVol += p.priceVol
	s.vwapVolume += p.volume
}

func (s *IndicatorState) vwap() float64 {
	return s.vwapPriceVol / math.Max(s.vwapVolume, 1.0)
}
