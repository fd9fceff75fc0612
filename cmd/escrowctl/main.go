// Package main implements escrowctl, the arbiter operator's ops/admin
// control plane — distinct from the interactive player shell/CLI
// spec.md §1 explicitly places out of the CORE's scope. escrowctl
// never builds or signs a contract or payout on a player's behalf; it
// inspects a running arbiterd (health, the two public GET endpoints),
// tails its certification audit log, mints scoped submit macaroons for
// distribution to players, and manages the arbiter's encrypted-at-rest
// signing key.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"
)

const defaultServerAddr = "https://localhost:8443"

var escrowctlHomeDir = appDataDir("escrowctl")

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[escrowctl] %v\n", err)
	os.Exit(1)
}

// appDataDir mirrors btcutil.AppDataDir's behavior without pulling in
// the whole package just for a path join.
func appDataDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+name)
	}
	return filepath.Join(home, "."+name)
}

func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = strings.Replace(path, "~", home, 1)
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}

func main() {
	app := cli.NewApp()
	app.Name = "escrowctl"
	app.Version = "0.1"
	app.Usage = "operator control plane for a wagerd arbiter"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: defaultServerAddr,
			Usage: "base URL (https://host:port) of the arbiter's HTTP surface",
		},
		cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip TLS certificate verification (self-signed arbiterd deployments)",
		},
	}
	app.Commands = []cli.Command{
		statusCommand,
		arbiterInfoCommand,
		auditTailCommand,
		mintMacaroonCommand,
		sealKeyCommand,
		unlockKeyCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
