package metrics

import (
	"sync"
	"time"
)

// Sink is a bounded rolling-window latency sample buffer plus aggregate
// counters, as described by the Metrics Sink component. It is safe for
// concurrent use; every mutation is serialised by an internal mutex,
// matching the "single writer, point-in-time snapshot reads" rule shared
// by every stateful piece of this system.
type Sink struct {
	mu sync.Mutex

	namespace string

	windowSize int
	samples    []float64 // ring buffer
	head       int
	count      int // number of valid entries in samples (<= windowSize)

	total     uint64
	hedged    uint64
	hedgeWins uint64
	sumCost   float64

	openedAt time.Time
}

// New creates a Sink with the given options.
func New(opts ...Option) *Sink {
	cfg := newConfig(opts...)
	return &Sink{
		namespace:  cfg.namespace,
		windowSize: cfg.windowSize,
		samples:    make([]float64, cfg.windowSize),
		openedAt:   time.Now(),
	}
}

// Record appends s to the rolling window and updates the aggregate
// counters. It never returns an error: a Sample is always well-formed by
// construction.
func (s *Sink) Record(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples[s.head] = sample.TotalLatencyMS
	s.head = (s.head + 1) % s.windowSize
	if s.count < s.windowSize {
		s.count++
	}

	s.total++
	if sample.Hedged {
		s.hedged++
	}
	if sample.HedgeWon {
		s.hedgeWins++
	}
	cost := sample.Cost
	if cost == 0 {
		cost = 1
	}
	s.sumCost += cost
}

// Reset clears every sample and counter, reopening the uptime epoch.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = make([]float64, s.windowSize)
	s.head = 0
	s.count = 0
	s.total = 0
	s.hedged = 0
	s.hedgeWins = 0
	s.sumCost = 0
	s.openedAt = time.Now()
}

// GetStats computes and returns a snapshot of every statistic the Metrics
// Sink component defines. It returns ErrNotStarted if Record has never
// been called.
func (s *Sink) GetStats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total == 0 {
		return Stats{}, ErrNotStarted
	}

	window := make([]float64, s.count)
	copy(window, s.samples[:s.count])

	percentiles := Percentiles(window, []float64{50, 90, 95, 99, 99.9})

	var sum, min, max float64
	for i, v := range window {
		sum += v
		if i == 0 || v < min {
			min = v
		}
		if i == 0 || v > max {
			max = v
		}
	}
	mean := safeDiv(sum, float64(len(window)))
	median := Percentile(window, 50)

	uptime := time.Since(s.openedAt)
	uptimeMS := float64(uptime.Milliseconds())
	if uptimeMS <= 0 {
		uptimeMS = 1 // avoid a divide producing +Inf for a near-instant snapshot
	}

	totalF := float64(s.total)
	hedgedF := float64(s.hedged)

	return Stats{
		Total:              s.total,
		SampleCount:        len(window),
		HedgeRate:          safeDiv(hedgedF, totalF),
		HedgeWinRate:       safeDiv(float64(s.hedgeWins), hedgedF),
		HedgeEffectiveness: safeDiv(float64(s.hedgeWins), totalF),
		P50:                percentiles[50],
		P90:                percentiles[90],
		P95:                percentiles[95],
		P99:                percentiles[99],
		P999:               percentiles[99.9],
		Min:                min,
		Max:                max,
		Mean:               mean,
		Median:             median,
		TotalCost:          s.sumCost,
		AverageCost:        safeDiv(s.sumCost, totalF),
		CostOverheadPct:    round2(safeDiv(s.sumCost-totalF, totalF) * 100),
		UptimeMS:           uptimeMS,
		ThroughputPerSec:   safeDiv(totalF*1000, uptimeMS),
	}, nil
}

// getNamespace exposes the configured Prometheus namespace to prometheus.go.
func (s *Sink) getNamespace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namespace
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
