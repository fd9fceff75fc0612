package main

import (
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/btcwager/wagerd/arbiter"
	"github.com/btcwager/wagerd/contract"
	"github.com/btcwager/wagerd/escrow"
	"github.com/btcwager/wagerd/payout"
	"github.com/btcwager/wagerd/predicate"
)

var (
	logRotator *rotator.Rotator

	ltndLog = btclog.Disabled
	srvrLog = btclog.Disabled
)

// initLogRotator opens (creating if absent) a rotating log file under
// logDir and wires it up as the sink every subsystem logger writes to,
// the same split-to-stdout-and-file idiom lnd.go's own backendLog
// setup follows.
func initLogRotator(logDir string) error {
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}
	logFile := filepath.Join(logDir, defaultLogFilename)

	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// useLoggers points every package's subsystem logger at a single
// btclog.Backend writing to both stdout and the rotating log file.
func useLoggers(level btclog.Level) {
	backend := btclog.NewBackend(logWriter{})

	predicate.UseLogger(backend.Logger("PRED"))
	escrow.UseLogger(backend.Logger("ESCR"))
	contract.UseLogger(backend.Logger("CONT"))
	payout.UseLogger(backend.Logger("PYUT"))
	arbiter.UseLogger(backend.Logger("ARBT"))

	ltndLog = backend.Logger("ARBD")
	srvrLog = backend.Logger("SRVR")
	ltndLog.SetLevel(level)
	srvrLog.SetLevel(level)
}

// logWriter fans every write out to stdout and the rotator, mirroring
// how lnd.go's own backendLog multiplexes subsystem output.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}
