package strategy

import "math"

// Tags carries the workload dimensions a caller wants reflected in the
// computed delay. Pass these to CalculateWithTags; plain CalculateDelay
// (required for Strategy conformance) returns the untagged base delay.
type Tags struct {
	PromptLength    int
	ModelComplexity string // "simple" | "medium" | "complex"
	TimeOfDay       string // "peak" | "normal" | "off_peak"
	Priority        string // "high" | "normal" | "low"
}

// workloadAwareStrategy multiplies a base delay by independent per-
// dimension factors. Stateless beyond the configured base delay.
type workloadAwareStrategy struct {
	baseDelay float64
}

func newWorkloadAware(o *Options) *workloadAwareStrategy {
	base := o.BaseDelay
	if base <= 0 {
		base = o.InitialDelay
	}
	return &workloadAwareStrategy{baseDelay: base}
}

func (w *workloadAwareStrategy) CalculateDelay() Delay {
	return Delay{MS: w.baseDelay}
}

// CalculateWithTags computes the workload-multiplied delay for tags,
// clamped to >= 10ms and rounded to the nearest millisecond. Unknown or
// zero-value tags default to a 1.0 multiplier.
func (w *workloadAwareStrategy) CalculateWithTags(tags Tags) Delay {
	mult := 1.0

	switch {
	case tags.PromptLength > 4000:
		mult *= 2.5
	case tags.PromptLength > 2000:
		mult *= 2.0
	case tags.PromptLength > 1000:
		mult *= 1.5
	}

	switch tags.ModelComplexity {
	case "simple":
		mult *= 0.5
	case "complex":
		mult *= 2.0
	}

	switch tags.TimeOfDay {
	case "peak":
		mult *= 0.7
	case "off_peak":
		mult *= 1.3
	}

	switch tags.Priority {
	case "high":
		mult *= 0.6
	case "low":
		mult *= 1.5
	}

	delay := w.baseDelay * mult
	if delay < 10 {
		delay = 10
	}
	return Delay{MS: math.Round(delay)}
}

func (w *workloadAwareStrategy) Update(Outcome) {}

func (w *workloadAwareStrategy) Kind() Kind { return KindWorkloadAware }
