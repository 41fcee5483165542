package hedge

import (
	"os"

	"github.com/rs/zerolog"
)

// debugLogger is the package-level debug-trace logger, enabled per call
// via WithDebug. Logging here is purely observational: it must never
// affect race resolution or attempt scheduling.
var debugLogger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "hedge").Logger()

func (c Config) debugf(requestID string, attempt attemptRole, event string, elapsed ...int64) {
	if !c.debug {
		return
	}
	l := debugLogger.Debug().
		Str("request_id", requestID).
		Str("role", attempt.String()).
		Str("event", event)
	if len(elapsed) > 0 {
		l = l.Int64("elapsed_ms", elapsed[0])
	}
	l.Msg("attempt transition")
}
