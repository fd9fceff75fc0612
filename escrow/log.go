package escrow

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger sets the package-wide logger for escrow construction.
func UseLogger(logger btclog.Logger) {
	log = logger
}
