package strategy

// offStrategy is the degenerate "never hedge" policy. The executor must
// honor Delay.Off by skipping the hedge timer entirely.
type offStrategy struct{}

func (offStrategy) CalculateDelay() Delay { return Delay{Off: true} }

func (offStrategy) Update(Outcome) {}

func (offStrategy) Kind() Kind { return KindOff }
