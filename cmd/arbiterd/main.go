package main

import (
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"
	"github.com/coreos/go-systemd/daemon"
	flags "github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/tor"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/btcwager/wagerd/arbiter"
)

// arbiterdMain is the true entry point, split out from main so that
// deferred cleanup always runs even when the daemon exits early,
// exactly the lndMain/main split lnd.go itself uses.
func arbiterdMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogRotator(cfg.LogDir); err != nil {
		return fmt.Errorf("initializing log rotator: %w", err)
	}
	useLoggers(btclog.LevelInfo)
	ltndLog.Infof("wagerd arbiter starting up")

	params, err := netParamsFromString(cfg.Network)
	if err != nil {
		return err
	}

	privBytes, err := os.ReadFile(cfg.ArbiterKeyPath)
	if err != nil {
		return fmt.Errorf("reading arbiter key: %w", err)
	}
	privBytes, err = hexDecodeTrim(privBytes)
	if err != nil {
		return fmt.Errorf("decoding arbiter key: %w", err)
	}
	priv, _ := btcec.PrivKeyFromBytes(privBytes)

	feeAddr, err := btcutil.DecodeAddress(cfg.FeeAddress, params)
	if err != nil {
		return fmt.Errorf("decoding fee address: %w", err)
	}

	var auditLog *arbiter.AuditLog
	if cfg.AuditLogPath != "" {
		auditLog, err = arbiter.OpenAuditLog(cfg.AuditLogPath)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer auditLog.Close()
	}

	cert, err := arbiter.New(arbiter.Config{
		PrivKey:              priv,
		FeeAddress:           feeAddr,
		Params:               params,
		IdempotenceCacheSize: cfg.IdempotenceCacheSize,
		RateLimit:            rate.Limit(cfg.RateLimit),
		RateBurst:            cfg.RateBurst,
		DurableStorePath:     cfg.DurableStorePath,
		AuditLog:             auditLog,
	})
	if err != nil {
		return fmt.Errorf("constructing certifier: %w", err)
	}
	defer cert.Close()

	for _, collector := range cert.Metrics() {
		if err := prometheus.Register(collector); err != nil {
			ltndLog.Warnf("failed to register metrics collector: %v", err)
		}
	}

	stopHousekeeping := startHousekeeping(cfg)
	defer stopHousekeeping()

	if !cfg.NoNATTraversal {
		if _, portStr, err := net.SplitHostPort(cfg.RPCListen); err == nil {
			if port, err := strconv.Atoi(portStr); err == nil {
				go mapExternalPort(port)
			}
		}
	}

	if cfg.TorSOCKS != "" && cfg.TorControl != "" {
		if err := startTorListener(cfg); err != nil {
			ltndLog.Warnf("Tor listener setup failed: %v", err)
		}
	}

	rootKey, err := loadOrCreateRootKey(cfg.Macaroon.RootKeyPath)
	if err != nil {
		return fmt.Errorf("loading macaroon root key: %w", err)
	}
	auth := newMacaroonAuth(rootKey)

	var pubkey [33]byte
	copy(pubkey[:], priv.PubKey().SerializeCompressed())
	server := newRPCServer(cert, pubkey, feeAddr)

	tlsCert, err := loadOrCreateTLSCert(cfg.TLSCertPath, cfg.TLSKeyPath)
	if err != nil {
		return fmt.Errorf("loading TLS certificate: %w", err)
	}

	httpServer := &http.Server{
		Addr:      cfg.RPCListen,
		Handler:   server.routes(auth),
		TLSConfig: &tls.Config{Certificates: []tls.Certificate{tlsCert}},
	}

	listener, err := tls.Listen("tcp", cfg.RPCListen, httpServer.TLSConfig)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.RPCListen, err)
	}

	errCh := make(chan error, 1)
	go func() {
		srvrLog.Infof("arbiter service listening on %s", cfg.RPCListen)
		errCh <- httpServer.Serve(listener)
	}()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		ltndLog.Debugf("systemd notify failed: %v", err)
	} else if sent {
		ltndLog.Infof("notified systemd of readiness")
	}

	return <-errCh
}

func main() {
	if err := arbiterdMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func startTorListener(cfg *config) error {
	controller := tor.NewController(cfg.TorControl, "", "")
	if err := controller.Start(); err != nil {
		return err
	}
	defer controller.Stop()

	_, portStr, err := net.SplitHostPort(cfg.RPCListen)
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return err
	}

	onionCfg := tor.AddOnionConfig{
		VirtualPort: port,
		TargetPorts: []int{port},
		Store:       tor.NewOnionFile(cfg.DataDir+"/onion_key", 0600, false, nil),
	}
	addr, err := controller.AddOnionV3(onionCfg)
	if err != nil {
		return err
	}
	ltndLog.Infof("Tor onion service published at %s", addr)
	return nil
}

func hexDecodeTrim(b []byte) ([]byte, error) {
	return hex.DecodeString(strings.TrimSpace(string(b)))
}

func netParamsFromString(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}
