package cascade

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kroma-labs/hedge-go/hedge"
	"github.com/kroma-labs/hedge-go/metrics"
	"github.com/kroma-labs/hedge-go/telemetry"
)

// tierResult is the narrow record a tier's request goroutine sends back
// to Run on completion.
type tierResult[T any] struct {
	index      int
	value      T
	err        error
	finishedAt time.Time
	rank       uint64
}

// Run escalates through tiers in order: tier 0 starts first, and each
// subsequent tier starts once the previous one's delay elapses, or once it
// returns without a gate-satisfying Ok, leaving earlier tiers running
// in the background. The first tier (by completion, not list order) to
// produce an Ok result that clears its own quality gate wins; everything
// else is cancelled. See the package doc for the full algorithm.
func Run[T any](ctx context.Context, tiers []Tier[T], cfg Config) (value T, outcome Outcome, err error) {
	var zero T

	defer func() {
		if r := recover(); r != nil {
			debugLogger.Error().Interface("panic", r).Msg("recovered panic in cascade executor")
			value = zero
			outcome = Outcome{}
			err = &hedge.Error{Kind: hedge.ErrorInternal, Cause: fmt.Errorf("cascade: recovered panic: %v", r)}
		}
	}()

	if len(tiers) == 0 {
		return zero, Outcome{}, &hedge.Error{Kind: hedge.ErrorConfigInvalid, Cause: errors.New("cascade: tier list must not be empty")}
	}

	requestID := cfg.requestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	runCtx := ctx
	var cancelTimeout context.CancelFunc
	if cfg.timeout > 0 {
		runCtx, cancelTimeout = context.WithTimeout(ctx, cfg.timeout)
		defer cancelTimeout()
	}
	if cfg.bus != nil {
		var endSpan func()
		runCtx, endSpan = cfg.bus.StartSpan(runCtx, "cascade.run")
		defer endSpan()
	}
	runCtx, cancelRun := context.WithCancel(runCtx)
	defer cancelRun()

	start := time.Now()
	if cfg.bus != nil {
		cfg.bus.Emit(runCtx, cfg.telemetryPrefix, telemetry.SuffixMultiLevelStart,
			nil, map[string]string{"request_id": requestID})
	}

	var (
		rankCounter  atomic.Uint64
		spawnedCount int
		totalCost    float64
		resultsCh    = make(chan tierResult[T], len(tiers))
		done         = make([]*tierResult[T], len(tiers))
		spawned      = make([]bool, len(tiers))
	)

	spawn := func(i int) {
		tier := tiers[i]
		cfg.debugf(requestID, tier.Name, "start")
		if cfg.bus != nil {
			cfg.bus.Emit(runCtx, cfg.telemetryPrefix, telemetry.SuffixTierStart,
				nil, map[string]string{"request_id": requestID, "tier": tier.Name})
		}

		if tier.Breaker != nil && !tier.Breaker.allow() {
			r := tierResult[T]{index: i, err: errBreakerOpen, finishedAt: time.Now(), rank: rankCounter.Add(1)}
			select {
			case resultsCh <- r:
			case <-runCtx.Done():
			}
			return
		}

		spawned[i] = true
		spawnedCount++
		cost := tier.Cost
		if cost == 0 {
			cost = 1.0
		}
		totalCost += cost

		go func() {
			v, err := tier.RequestFn(runCtx)
			finishedAt := time.Now()
			rank := rankCounter.Add(1)
			if tier.Breaker != nil {
				tier.Breaker.recordResult(err)
			}
			select {
			case resultsCh <- tierResult[T]{index: i, value: v, err: err, finishedAt: finishedAt, rank: rank}:
			case <-runCtx.Done():
			}
		}()
	}

	evaluate := func(r tierResult[T]) (passes bool, score float64, invalid bool) {
		if r.err != nil {
			return false, 0, false
		}
		return Gate(any(r.value), tiers[r.index].QualityThreshold)
	}

	var (
		winner   *tierResult[T]
		timedOut bool
	)

escalate:
	for i := 0; i < len(tiers); i++ {
		spawn(i)
		delayTimer := time.NewTimer(time.Duration(tiers[i].DelayMS) * time.Millisecond)

		for {
			select {
			case r := <-resultsCh:
				done[r.index] = &r
				cfg.debugf(requestID, tiers[r.index].Name, "completed")
				if cfg.bus != nil {
					cfg.bus.Emit(runCtx, cfg.telemetryPrefix, telemetry.SuffixTierCompleted,
						nil, map[string]string{"request_id": requestID, "tier": tiers[r.index].Name})
				}
				if passes, _, invalid := evaluate(r); passes {
					if invalid && cfg.bus != nil {
						debugLogger.Warn().Str("request_id", requestID).Str("tier", tiers[r.index].Name).
							Msg("non-numeric quality score, defaulted to 1.0")
					}
					winner = &r
					delayTimer.Stop()
					break escalate
				}
				if r.index == i {
					delayTimer.Stop()
					continue escalate
				}
			case <-delayTimer.C:
				cfg.debugf(requestID, tiers[i].Name, "timeout")
				if cfg.bus != nil {
					cfg.bus.Emit(runCtx, cfg.telemetryPrefix, telemetry.SuffixTierTimeout,
						nil, map[string]string{"request_id": requestID, "tier": tiers[i].Name})
				}
				continue escalate
			case <-runCtx.Done():
				timedOut = true
				delayTimer.Stop()
				break escalate
			}
		}
	}

	if winner == nil && !timedOut {
		winner = waitGrace(runCtx, resultsCh, done, evaluate, cfg.graceWindow)
	}

	cancelRun()
	if cfg.bus != nil {
		for i, d := range done {
			if spawned[i] && d == nil {
				cfg.bus.Emit(runCtx, cfg.telemetryPrefix, telemetry.SuffixTierCancelled,
					nil, map[string]string{"request_id": requestID, "tier": tiers[i].Name})
			}
		}
	}
	elapsed := time.Since(start)

	if winner == nil {
		winner = firstSatisfying(done, tiers)
	}
	if winner == nil {
		winner = firstOk(done)
	}

	if winner != nil {
		passes, score, invalid := evaluate(*winner)
		outcome := Outcome{
			RequestID:            requestID,
			TierName:             tiers[winner.index].Name,
			TierIndex:            winner.index,
			TiersFired:           spawnedCount,
			TotalCost:            totalCost,
			QualityScore:         score,
			QualityGateSatisfied: passes,
			QualityGateInvalid:   invalid,
			TotalLatencyMS:       float64(elapsed.Milliseconds()),
		}
		if cfg.sink != nil {
			cfg.sink.Record(metrics.Sample{TotalLatencyMS: outcome.TotalLatencyMS, Cost: totalCost})
		}
		if cfg.bus != nil {
			cfg.bus.Emit(runCtx, cfg.telemetryPrefix, telemetry.SuffixMultiLevelStop,
				map[string]float64{"duration": outcome.TotalLatencyMS},
				map[string]string{"request_id": requestID, "tier": outcome.TierName},
			)
		}
		return winner.value, outcome, nil
	}

	kind := hedge.ErrorAllTiersFailed
	cause := lastTierError(done)
	if timedOut {
		kind = hedge.ErrorTimeout
		cause = context.DeadlineExceeded
	}
	herr := &hedge.Error{
		Kind:         kind,
		Cause:        cause,
		AttemptCount: spawnedCount,
		ElapsedMS:    elapsed.Milliseconds(),
	}
	if cfg.bus != nil {
		cfg.bus.Emit(runCtx, cfg.telemetryPrefix, telemetry.SuffixMultiLevelException,
			map[string]float64{"duration": float64(elapsed.Milliseconds())},
			map[string]string{"request_id": requestID},
		)
	}
	return zero, Outcome{}, herr
}

var errBreakerOpen = errors.New("cascade: tier breaker open")

// waitGrace waits up to graceWindow for any tier still pending after the
// escalation loop finished without a winner, per step 4 of the algorithm.
func waitGrace[T any](
	ctx context.Context,
	resultsCh chan tierResult[T],
	done []*tierResult[T],
	evaluate func(tierResult[T]) (bool, float64, bool),
	graceWindow time.Duration,
) *tierResult[T] {
	pending := 0
	for i := range done {
		if done[i] == nil {
			pending++
		}
	}
	if pending == 0 {
		return nil
	}

	timer := time.NewTimer(graceWindow)
	defer timer.Stop()

	for pending > 0 {
		select {
		case r := <-resultsCh:
			done[r.index] = &r
			pending--
			if passes, _, _ := evaluate(r); passes {
				return &r
			}
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

func firstSatisfying[T any](done []*tierResult[T], tiers []Tier[T]) *tierResult[T] {
	for i, r := range done {
		if r == nil || r.err != nil {
			continue
		}
		if passes, _, _ := Gate(any(r.value), tiers[i].QualityThreshold); passes {
			return r
		}
	}
	return nil
}

func firstOk[T any](done []*tierResult[T]) *tierResult[T] {
	for _, r := range done {
		if r != nil && r.err == nil {
			return r
		}
	}
	return nil
}

func lastTierError[T any](done []*tierResult[T]) error {
	var best *tierResult[T]
	for _, r := range done {
		if r == nil {
			continue
		}
		if best == nil || r.finishedAt.Before(best.finishedAt) || (r.finishedAt.Equal(best.finishedAt) && r.rank < best.rank) {
			best = r
		}
	}
	if best == nil {
		return errors.New("cascade: all tiers failed")
	}
	return best.err
}
