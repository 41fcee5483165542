package cascade

import (
	"os"

	"github.com/rs/zerolog"
)

var debugLogger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "cascade").Logger()

func (c Config) debugf(requestID, tierName, event string) {
	if !c.debug {
		return
	}
	debugLogger.Debug().
		Str("request_id", requestID).
		Str("tier", tierName).
		Str("event", event).
		Msg("tier transition")
}
