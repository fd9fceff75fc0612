package contract

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger sets the package-wide logger for contract validation.
func UseLogger(logger btclog.Logger) {
	log = logger
}
