package payout

import "github.com/btcsuite/btclog"

var log = btclog.Disabled

// UseLogger sets the package-wide logger for payout validation.
func UseLogger(logger btclog.Logger) {
	log = logger
}
