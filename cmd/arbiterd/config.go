package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	flags "github.com/jessevdk/go-flags"

	"golang.org/x/time/rate"
)

const (
	defaultConfigFilename = "arbiterd.conf"
	defaultLogFilename    = "arbiterd.log"
	defaultDataDirname    = "data"
	defaultRPCPort        = 8443
	defaultRateLimit      = rate.Limit(5)
	defaultRateBurst      = 10
	defaultIdempotenceLRU = uint64(4096)
)

var (
	defaultDataDir = btcDir("arbiterd")
)

// config mirrors lnd's own loadConfig shape: a flat struct tagged for
// jessevdk/go-flags, populated from the config file then overridden by
// whatever flags were actually passed on the command line.
type config struct {
	ConfigFile string `long:"configfile" description:"Path to configuration file"`
	DataDir    string `long:"datadir" description:"Directory to store the idempotence store, audit log and TLS material"`
	LogDir     string `long:"logdir" description:"Directory to log output to"`

	RPCListen string `long:"rpclisten" description:"host:port the arbiter HTTP service listens on"`

	TLSCertPath string `long:"tlscertpath" description:"Path to write the self-signed TLS certificate to"`
	TLSKeyPath  string `long:"tlskeypath" description:"Path to write the self-signed TLS key to"`

	TorSOCKS       string `long:"tor.socks" description:"Tor SOCKS5 proxy address (enables an onion-service listener when set along with tor.control)"`
	TorControl     string `long:"tor.control" description:"Tor control port address"`
	NoNATTraversal bool   `long:"no-nat-traversal" description:"Disable best-effort UPnP/NAT-PMP port mapping"`

	Network string `long:"network" description:"mainnet, testnet3, regtest or simnet"`

	ArbiterKeyPath string `long:"arbiterkeypath" description:"Path to the arbiter's raw private key (hex-encoded, 32 bytes)"`
	FeeAddress     string `long:"feeaddress" description:"Address the arbiter's 1% fee output must pay"`

	RateLimit float64 `long:"ratelimit" description:"Signing requests/sec permitted before rate-limiting kicks in"`
	RateBurst int     `long:"rateburst" description:"Signing request burst size"`

	IdempotenceCacheSize uint64 `long:"idempotencecachesize" description:"In-memory LRU capacity for certified cxids"`
	DurableStorePath     string `long:"durablestorepath" description:"Path to a bolt-backed durable idempotence store; empty disables it"`
	AuditLogPath         string `long:"auditlogpath" description:"Path to the sqlite certification audit log; empty disables it"`

	HealthCheckInterval time.Duration `long:"healthcheckinterval" description:"Interval between liveness checks"`

	Macaroon struct {
		RootKeyPath string `long:"rootkeypath" description:"Path to the macaroon root key"`
		Expiry      time.Duration `long:"expiry" description:"Validity window minted into each macaroon"`
	} `group:"macaroon" namespace:"macaroon"`
}

func defaultConfig() config {
	cfg := config{
		ConfigFile:           filepath.Join(defaultDataDir, defaultConfigFilename),
		DataDir:              defaultDataDir,
		LogDir:               filepath.Join(defaultDataDir, "logs"),
		RPCListen:            fmt.Sprintf("localhost:%d", defaultRPCPort),
		TLSCertPath:          filepath.Join(defaultDataDir, "tls.cert"),
		TLSKeyPath:           filepath.Join(defaultDataDir, "tls.key"),
		Network:              "mainnet",
		RateLimit:            float64(defaultRateLimit),
		RateBurst:            defaultRateBurst,
		IdempotenceCacheSize: defaultIdempotenceLRU,
		DurableStorePath:     filepath.Join(defaultDataDir, "idempotence.db"),
		AuditLogPath:         filepath.Join(defaultDataDir, "audit.db"),
		HealthCheckInterval:  time.Minute,
	}
	cfg.Macaroon.RootKeyPath = filepath.Join(defaultDataDir, "macaroon.key")
	cfg.Macaroon.Expiry = 24 * time.Hour
	return cfg
}

// loadConfig parses the command line, then the config file it names
// (if that file exists), then the command line again so flags win,
// falling back to the values already set by defaultConfig for anything
// left unspecified.
func loadConfig() (*config, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		if err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if _, err := parser.Parse(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	if cfg.ArbiterKeyPath == "" {
		return nil, fmt.Errorf("--arbiterkeypath is required")
	}
	if cfg.FeeAddress == "" {
		return nil, fmt.Errorf("--feeaddress is required")
	}

	return &cfg, nil
}

// btcDir mirrors lnd's own btcutil.AppDataDir convention for picking a
// default, per-OS application data directory.
func btcDir(subdir string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", subdir)
	}
	return filepath.Join(home, "."+subdir)
}
