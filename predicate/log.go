package predicate

import "github.com/btcsuite/btclog"

// log is this subsystem's logger, following the per-package
// btclog.Logger convention: a disabled backend by default, wired up by
// UseLogger from the daemon's main package once logging is configured.
var log = btclog.Disabled

// UseLogger sets the package-wide logger used by the predicate VM and
// codec, e.g. for parse/execution diagnostics at debug level.
func UseLogger(logger btclog.Logger) {
	log = logger
}
