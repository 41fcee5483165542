// Package chaostest provides a synthetic, chaos-driven request function
// for exercising the hedging executor and multi-tier cascade under
// injected latency and error rates, adapted from the teacher's
// httpclient.ChaosConfig into a nullary function shape matching
// hedge.Request's f parameter instead of an HTTP transport middleware.
package chaostest

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// Config configures a synthetic request function's injected behavior.
type Config struct {
	// LatencyMS is the fixed delay every call incurs before resolving.
	LatencyMS int
	// LatencyJitterMS adds a uniform random delay in [0, LatencyJitterMS).
	LatencyJitterMS int
	// ErrorRate is the probability (0..1) a call resolves as an error
	// instead of a value.
	ErrorRate float64
	// SlowCallRate is the probability (0..1) a call incurs an additional
	// SlowExtraMS delay, simulating the occasional long-tail straggler
	// hedging is meant to mask.
	SlowCallRate float64
	// SlowExtraMS is the extra latency added on a slow call.
	SlowExtraMS int
}

// delay returns the total synthetic delay for one call, including any
// slow-call extra and jitter.
func (c Config) delay() time.Duration {
	d := time.Duration(c.LatencyMS) * time.Millisecond
	if c.LatencyJitterMS > 0 {
		d += time.Duration(rand.IntN(c.LatencyJitterMS)) * time.Millisecond
	}
	if c.SlowCallRate > 0 && rand.Float64() < c.SlowCallRate {
		d += time.Duration(c.SlowExtraMS) * time.Millisecond
	}
	return d
}

func (c Config) shouldError() bool {
	return c.ErrorRate > 0 && rand.Float64() < c.ErrorRate
}

// Server is a stateful fake backend: each call increments a counter so
// tests can assert how many attempts were actually invoked (e.g. to
// confirm a backup fired).
type Server struct {
	cfg   Config
	calls atomic.Int64
}

// NewServer builds a Server from cfg.
func NewServer(cfg Config) *Server { return &Server{cfg: cfg} }

// Calls returns the number of times Request has been invoked so far.
func (s *Server) Calls() int64 { return s.calls.Load() }

// Request is a function suitable as hedge.Request's f or cascade.Tier's
// RequestFn: it sleeps for the configured synthetic delay (respecting
// ctx cancellation) and then resolves Ok(value) or Err per ErrorRate.
func (s *Server) Request(value string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		s.calls.Add(1)
		d := s.cfg.delay()
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if s.cfg.shouldError() {
			return "", errTransient
		}
		return value, nil
	}
}

var errTransient = chaosError("chaostest: injected transient error")

type chaosError string

func (e chaosError) Error() string { return string(e) }
