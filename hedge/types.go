package hedge

import (
	"strconv"
	"time"

	"github.com/kroma-labs/hedge-go/strategy"
)

// Outcome is the metadata returned to the caller alongside a successful
// value, and the basis for the metadata attached to a failed call's error.
type Outcome struct {
	RequestID string

	Hedged   bool
	HedgeWon bool

	// HedgeDelayMS is the delay the strategy produced before the primary
	// started, even when no backup ever fired. It is 0 when the strategy
	// is Off.
	HedgeDelayMS float64

	PrimaryLatencyMS  float64
	HasPrimaryLatency bool

	BackupLatencyMS  float64
	HasBackupLatency bool

	TotalLatencyMS float64

	// Cost is 1 + the number of backups actually fired.
	Cost float64

	StrategyKind strategy.Kind
}

// attemptRole identifies which slot in the hedged call an attempt filled.
type attemptRole struct {
	primary     bool
	backupIndex int // 1-based; meaningless when primary is true
}

func (r attemptRole) String() string {
	if r.primary {
		return "primary"
	}
	return "backup-" + strconv.Itoa(r.backupIndex)
}

// attemptResult is the narrow record an in-flight attempt goroutine sends
// back to the executor on completion.
type attemptResult struct {
	role attemptRole

	startedAt  time.Time
	finishedAt time.Time
	rank       uint64

	err error
	// value is stored as `any` here (instead of the generic T) so the
	// channel type doesn't need to thread the executor's type parameter
	// through this unexported bookkeeping struct.
	value any
}

// isEarlier reports whether a precedes b under the race resolution rule:
// lexicographic order on (finished_at, completion_rank).
func (a attemptResult) isEarlier(b attemptResult) bool {
	if !a.finishedAt.Equal(b.finishedAt) {
		return a.finishedAt.Before(b.finishedAt)
	}
	return a.rank < b.rank
}
