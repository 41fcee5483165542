package strategy

import (
	"sync"

	"github.com/kroma-labs/hedge-go/metrics"
)

// percentileStrategy tracks a rolling window of observed latencies and
// sets the hedge delay to a cached percentile of that window, recomputed
// as each new sample arrives. This is Google's recommended form: hedge at
// roughly the P95/P99 of recent latency rather than a hand-tuned constant.
//
// The ring buffer shape is the same one the FIFO latency tracker this
// package is modeled on uses: a fixed-size slice plus a write head,
// overwriting the oldest entry once full.
type percentileStrategy struct {
	mu sync.Mutex

	percentile   float64
	windowSize   int
	minSamples   int
	currentDelay float64

	samples []float64
	head    int
	count   int
}

func newPercentile(o *Options) *percentileStrategy {
	return &percentileStrategy{
		percentile:   o.Percentile,
		windowSize:   o.WindowSize,
		minSamples:   o.MinSamples,
		currentDelay: o.InitialDelay,
		samples:      make([]float64, o.WindowSize),
	}
}

func (p *percentileStrategy) CalculateDelay() Delay {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Delay{MS: p.currentDelay}
}

func (p *percentileStrategy) Update(o Outcome) {
	latency := o.TotalLatencyMS
	switch {
	case o.HasPrimaryLatency:
		latency = o.PrimaryLatencyMS
	case o.HasBackupLatency:
		latency = o.BackupLatencyMS
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.samples[p.head] = latency
	p.head = (p.head + 1) % p.windowSize
	if p.count < p.windowSize {
		p.count++
	}

	if p.count < p.minSamples {
		return
	}

	window := make([]float64, p.count)
	copy(window, p.samples[:p.count])
	p.currentDelay = metrics.Percentile(window, p.percentile)
}

func (p *percentileStrategy) Kind() Kind { return KindPercentile }

func (p *percentileStrategy) Stats() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]any{
		"kind":          KindPercentile,
		"current_delay": p.currentDelay,
		"sample_count":  p.count,
		"percentile":    p.percentile,
	}
}

func (p *percentileStrategy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = make([]float64, p.windowSize)
	p.head = 0
	p.count = 0
}
