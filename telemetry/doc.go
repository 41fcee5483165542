// Package telemetry implements the typed event bus shared by the hedging
// executor and the multi-tier cascade.
//
// Every event is a suffix (e.g. "request.start", "hedge.fired") appended to
// a caller-chosen prefix, carrying a numeric measurements map and a string
// metadata map. Events are recorded as OpenTelemetry counters/histograms
// and as span events on the context's active span, and are additionally
// fanned out to any callback subscribers registered via Subscribe — no
// OpenTelemetry SDK is required to observe them.
//
// # Quick start
//
//	bus := telemetry.New(telemetry.WithServiceName("checkout-hedge"))
//	bus.Subscribe(func(e telemetry.Event) {
//	    log.Printf("%s: %+v", e.Name, e.Measurements)
//	})
//	bus.Emit(ctx, "checkout.", telemetry.SuffixHedgeFired, map[string]float64{"delay": 42}, nil)
package telemetry
