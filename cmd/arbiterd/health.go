package main

import (
	"os"
	"time"

	"github.com/lightningnetwork/lnd/healthcheck"
	"github.com/lightningnetwork/lnd/ticker"
)

// startHousekeeping runs the liveness observers healthcheck provides
// (here, that the data directory is still reachable) plus a ticker-
// driven loop that logs a debug line on every tick, the
// same pattern server.go's own background goroutines follow for
// long-lived upkeep tasks. It returns a stop function.
func startHousekeeping(cfg *config) func() {
	dataDirCheck := healthcheck.NewObservation(
		"data directory reachable",
		func() error {
			_, err := os.Stat(cfg.DataDir)
			return err
		},
		cfg.HealthCheckInterval,
		10*time.Second,
		time.Second,
		1,
	)

	monitor := healthcheck.NewMonitor(&healthcheck.Config{
		Checks:   []*healthcheck.Observation{dataDirCheck},
		Interval: cfg.HealthCheckInterval,
	})
	if err := monitor.Start(); err != nil {
		ltndLog.Warnf("health monitor failed to start: %v", err)
	}

	houseKeepTicker := ticker.New(cfg.HealthCheckInterval)
	houseKeepTicker.Resume()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-houseKeepTicker.Ticks():
				ltndLog.Debugf("housekeeping tick")
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		houseKeepTicker.Stop()
		_ = monitor.Stop()
	}
}
