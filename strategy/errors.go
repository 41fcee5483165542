package strategy

import "errors"

// ErrNotStarted is returned by Registry.Stats and Registry.Reset when no
// strategy instance has been started under the given name.
var ErrNotStarted = errors.New("strategy: no instance started under this name")
