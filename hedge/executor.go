package hedge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kroma-labs/hedge-go/metrics"
	"github.com/kroma-labs/hedge-go/strategy"
	"github.com/kroma-labs/hedge-go/telemetry"
	"golang.org/x/sync/errgroup"
)

// Request issues f as a hedged call: a primary attempt, and — unless the
// configured strategy is Off — a bounded set of delayed backup attempts,
// racing to the first success and cancelling the rest. See the package
// doc for the full state-machine description.
func Request[T any](ctx context.Context, f func(context.Context) (T, error), cfg Config) (value T, outcome Outcome, err error) {
	var zero T

	// A panic inside the executor itself (not inside an attempt goroutine,
	// which recovers its own panic in spawn and reports it as a failed
	// attempt) is recovered here and reported as
	// ErrorInternal rather than crashing the caller, per the error-handling
	// design's "unexpected panics... are caught and returned as
	// Err(internal)" rule.
	defer func() {
		if r := recover(); r != nil {
			debugLogger.Error().Interface("panic", r).Msg("recovered panic in hedge executor")
			value = zero
			outcome = Outcome{}
			err = &Error{Kind: ErrorInternal, Cause: fmt.Errorf("hedge: recovered panic: %v", r)}
		}
	}()

	if err := cfg.validate(); err != nil {
		return zero, Outcome{}, &Error{Kind: ErrorConfigInvalid, Cause: err}
	}

	strat, err := cfg.resolveStrategy()
	if err != nil {
		return zero, Outcome{}, &Error{Kind: ErrorConfigInvalid, Cause: err}
	}

	requestID := cfg.requestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	deadlineCtx, cancelDeadline := context.WithTimeout(ctx, cfg.timeout)
	defer cancelDeadline()

	spanCtx := deadlineCtx
	if cfg.bus != nil {
		var endSpan func()
		spanCtx, endSpan = cfg.bus.StartSpan(deadlineCtx, "hedge.request")
		defer endSpan()
	}
	raceCtx, cancelRace := context.WithCancel(spanCtx)

	start := time.Now()

	if cfg.bus != nil {
		cfg.bus.Emit(raceCtx, cfg.telemetryPrefix, telemetry.SuffixRequestStart,
			map[string]float64{"system_time": float64(start.UnixMilli())},
			map[string]string{"request_id": requestID, "strategy": string(strat.Kind())},
		)
	}

	delay := strat.CalculateDelay()
	if cfg.hasTags {
		if tagged, ok := strat.(strategy.TaggedStrategy); ok {
			delay = tagged.CalculateWithTags(cfg.tags)
		}
	}

	var (
		spawnedCount   atomic.Int64
		rankCounter    atomic.Uint64
		hedgeFired     atomic.Bool
		slotsRemaining atomic.Int64
		resultsCh      = make(chan attemptResult, cfg.maxHedges+1)
	)

	g, gctx := errgroup.WithContext(raceCtx)

	spawn := func(role attemptRole) {
		spawnedCount.Add(1)
		startedAt := time.Now()
		cfg.debugf(requestID, role, "spawned")
		g.Go(func() error {
			var v T
			var err error
			func() {
				// A panicking attempt counts as a failed attempt instead of
				// taking the process down.
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("hedge: attempt crashed: %v", r)
					}
				}()
				v, err = f(gctx)
			}()
			finishedAt := time.Now()
			rank := rankCounter.Add(1)
			cfg.debugf(requestID, role, "finished", finishedAt.Sub(startedAt).Milliseconds())

			ar := attemptResult{
				role: role, startedAt: startedAt, finishedAt: finishedAt,
				rank: rank, err: err, value: v,
			}
			// resultsCh has room for every attempt this call can spawn
			// (1 + maxHedges), so this send never blocks, and a loser's
			// result is still there for the post-cancellation drain.
			resultsCh <- ar
			return nil // attempt failures are data, not errgroup errors
		})
	}

	spawn(attemptRole{primary: true})

	var hedgeTimer *time.Timer
	if !delay.Off {
		slotsRemaining.Store(int64(cfg.maxHedges))
		d := delay.Duration()
		for k := 0; k < cfg.maxHedges; k++ {
			backupIndex := k + 1
			offset := d
			if k > 0 {
				offset = d + time.Duration(float64(d)*math.Pow(1.5, float64(k)))
			}
			timer := time.AfterFunc(offset, func() {
				defer slotsRemaining.Add(-1)
				if backupIndex == 1 {
					hedgeFired.Store(true)
				}
				if raceCtx.Err() != nil {
					return
				}
				if cfg.backupRateLimit != nil && !cfg.backupRateLimit.Allow() {
					if cfg.bus != nil {
						cfg.bus.Emit(raceCtx, cfg.telemetryPrefix, telemetry.SuffixHedgeSkipped,
							nil, map[string]string{"request_id": requestID, "reason": "rate_limited"})
					}
					return
				}
				if cfg.bus != nil {
					cfg.bus.Emit(raceCtx, cfg.telemetryPrefix, telemetry.SuffixHedgeFired,
						map[string]float64{"delay": float64(offset.Milliseconds())},
						map[string]string{"request_id": requestID})
				}
				spawn(attemptRole{backupIndex: backupIndex})
			})
			if backupIndex == 1 {
				hedgeTimer = timer
			}
		}
	}

	var (
		winner          *attemptResult
		received        []attemptResult
		finalErr        error
		timedOut        bool
		primaryTerminal bool
	)

raceLoop:
	for {
		select {
		case ar := <-resultsCh:
			received = append(received, ar)
			for {
				select {
				case extra := <-resultsCh:
					received = append(received, extra)
					continue
				default:
				}
				break
			}

			if ar.role.primary && ar.err != nil && !hedgeFired.Load() {
				finalErr = ar.err
				primaryTerminal = true
				break raceLoop
			}

			for i := range received {
				a := received[i]
				if a.err != nil {
					continue
				}
				if winner == nil || a.isEarlier(*winner) {
					w := a
					winner = &w
				}
			}
			if winner != nil {
				break raceLoop
			}

			allSlotsDecided := delay.Off || slotsRemaining.Load() == 0
			if allSlotsDecided && int64(len(received)) >= spawnedCount.Load() {
				// All currently-known attempts have reported in and no
				// further backups remain to be scheduled: all failed.
				finalErr = lastError(received)
				break raceLoop
			}

		case <-deadlineCtx.Done():
			timedOut = true
			break raceLoop
		}
	}

	if hedgeTimer != nil {
		hedgeTimer.Stop()
	}

	elapsed := time.Since(start)

	if cfg.enableCancellation {
		cancelRace()
		// Wait for every spawned attempt to return and emit
		// request.cancelled for each loser before request.stop/
		// request.exception below: those two events must be emitted
		// strictly after every hedge.fired, hedge.won, and
		// request.cancelled of this same request. Safe to block on:
		// raceCtx is already cancelled, so a cooperative f returns
		// promptly.
		_ = g.Wait()
	drain:
		for {
			select {
			case ar := <-resultsCh:
				received = append(received, ar)
			default:
				break drain
			}
		}
		for i := range received {
			a := received[i]
			if winner != nil && a.role == winner.role {
				continue
			}
			if errors.Is(a.err, context.Canceled) {
				cfg.debugf(requestID, a.role, "cancelled")
				if cfg.bus != nil {
					cfg.bus.Emit(raceCtx, cfg.telemetryPrefix, telemetry.SuffixRequestCancelled,
						nil, map[string]string{"request_id": requestID, "role": a.role.String()})
				}
			}
		}
	}

	backupsSpawned := spawnedCount.Load() - 1
	cost := float64(1 + backupsSpawned)
	hedged := !delay.Off && backupsSpawned > 0

	if winner != nil && !timedOut {
		outcome := Outcome{
			RequestID:      requestID,
			Hedged:         hedged,
			HedgeWon:       !winner.role.primary,
			HedgeDelayMS:   delayMSOrZero(delay),
			TotalLatencyMS: float64(elapsed.Milliseconds()),
			Cost:           cost,
			StrategyKind:   strat.Kind(),
		}
		if winner.role.primary {
			outcome.HasPrimaryLatency = true
			outcome.PrimaryLatencyMS = float64(winner.finishedAt.Sub(winner.startedAt).Milliseconds())
		} else {
			outcome.HasBackupLatency = true
			outcome.BackupLatencyMS = float64(winner.finishedAt.Sub(winner.startedAt).Milliseconds())
		}
		if p := findPrimaryLatency(received); p != nil && !outcome.HasPrimaryLatency {
			outcome.HasPrimaryLatency = true
			outcome.PrimaryLatencyMS = *p
		}

		safeUpdate(strat, toStrategyOutcome(outcome, false))
		if cfg.sink != nil {
			cfg.sink.Record(toMetricsSample(outcome))
		}
		if cfg.bus != nil {
			if outcome.HedgeWon {
				cfg.bus.Emit(raceCtx, cfg.telemetryPrefix, telemetry.SuffixHedgeWon,
					map[string]float64{"latency": outcome.BackupLatencyMS},
					map[string]string{"request_id": requestID},
				)
			}
			cfg.bus.Emit(raceCtx, cfg.telemetryPrefix, telemetry.SuffixRequestStop,
				map[string]float64{"duration": outcome.TotalLatencyMS},
				map[string]string{"request_id": requestID},
			)
		}
		return winner.value.(T), outcome, nil
	}

	// Error path: timeout, a terminal primary failure, or all attempts failed.
	kind := ErrorAllTasksFailed
	switch {
	case timedOut:
		kind = ErrorTimeout
		finalErr = context.DeadlineExceeded
	case primaryTerminal:
		kind = ErrorRequestFailed
	}
	herr := &Error{
		Kind:         kind,
		Cause:        finalErr,
		AttemptCount: int(spawnedCount.Load()),
		ElapsedMS:    elapsed.Milliseconds(),
	}

	errOutcome := Outcome{
		RequestID:      requestID,
		Hedged:         hedged,
		HedgeDelayMS:   delayMSOrZero(delay),
		TotalLatencyMS: float64(elapsed.Milliseconds()),
		Cost:           cost,
		StrategyKind:   strat.Kind(),
	}
	safeUpdate(strat, toStrategyOutcome(errOutcome, true))
	if cfg.sink != nil {
		cfg.sink.Record(toMetricsSample(errOutcome))
	}
	if cfg.bus != nil {
		cfg.bus.Emit(raceCtx, cfg.telemetryPrefix, telemetry.SuffixRequestException,
			map[string]float64{"duration": errOutcome.TotalLatencyMS},
			map[string]string{"request_id": requestID},
		)
	}

	return zero, Outcome{}, herr
}

// safeUpdate calls strat.Update, recovering and logging a panic instead of
// propagating it: a strategy's learning step must never affect the outcome
// this call already decided to return.
func safeUpdate(strat strategy.Strategy, o strategy.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			debugLogger.Error().Interface("panic", r).Str("strategy_kind", string(strat.Kind())).
				Msg("recovered panic in strategy.Update")
		}
	}()
	strat.Update(o)
}

func lastError(received []attemptResult) error {
	var best *attemptResult
	for i := range received {
		a := received[i]
		if best == nil || a.isEarlier(*best) {
			b := a
			best = &b
		}
	}
	if best == nil {
		return errors.New("hedge: all attempts failed")
	}
	return best.err
}

func findPrimaryLatency(received []attemptResult) *float64 {
	for _, a := range received {
		if a.role.primary {
			ms := float64(a.finishedAt.Sub(a.startedAt).Milliseconds())
			return &ms
		}
	}
	return nil
}

func delayMSOrZero(d strategy.Delay) float64 {
	if d.Off {
		return 0
	}
	return d.MS
}

func toStrategyOutcome(o Outcome, errored bool) strategy.Outcome {
	return strategy.Outcome{
		Hedged:            o.Hedged,
		HedgeWon:          o.HedgeWon,
		Errored:           errored,
		HedgeDelayMS:      o.HedgeDelayMS,
		PrimaryLatencyMS:  o.PrimaryLatencyMS,
		HasPrimaryLatency: o.HasPrimaryLatency,
		BackupLatencyMS:   o.BackupLatencyMS,
		HasBackupLatency:  o.HasBackupLatency,
		TotalLatencyMS:    o.TotalLatencyMS,
	}
}

func toMetricsSample(o Outcome) metrics.Sample {
	return metrics.Sample{
		TotalLatencyMS: o.TotalLatencyMS,
		Hedged:         o.Hedged,
		HedgeWon:       o.HedgeWon,
		Cost:           o.Cost,
	}
}
