package arbiter

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger sets the package-wide logger for the certification pipeline.
func UseLogger(logger btclog.Logger) {
	log = logger
}
