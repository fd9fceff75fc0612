package main

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/exp/slices"
	"golang.org/x/term"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli"

	macaroon "gopkg.in/macaroon.v2"
	"gopkg.in/macaroon-bakery.v2/bakery/checkers"

	"github.com/btcwager/wagerd/arbiter"
)

func httpClient(ctx *cli.Context) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: ctx.GlobalBool("insecure")},
		},
	}
}

func getJSON(ctx *cli.Context, path string, out interface{}) error {
	resp, err := httpClient(ctx).Get(ctx.GlobalString("rpcserver") + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var statusCommand = cli.Command{
	Name:  "status",
	Usage: "check the arbiter's /healthz endpoint",
	Action: func(ctx *cli.Context) error {
		var health map[string]string
		if err := getJSON(ctx, "/healthz", &health); err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"field", "value"})
		keys := make([]string, 0, len(health))
		for k := range health {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			t.AppendRow(table.Row{k, health[k]})
		}
		t.Render()
		return nil
	},
}

var arbiterInfoCommand = cli.Command{
	Name:  "info",
	Usage: "fetch the arbiter's escrow pubkey and fee address",
	Action: func(ctx *cli.Context) error {
		var pub, fee map[string]string
		if err := getJSON(ctx, "/escrow-pubkey", &pub); err != nil {
			return err
		}
		if err := getJSON(ctx, "/fee-address", &fee); err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"field", "value"})
		t.AppendRow(table.Row{"escrow_pubkey", pub["pubkey_hex"]})
		t.AppendRow(table.Row{"fee_address", fee["fee_address"]})
		t.Render()
		return nil
	},
}

var auditTailCommand = cli.Command{
	Name:      "audit-tail",
	Usage:     "print the arbiter's n most recent certification decisions",
	ArgsUsage: "db-path",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "n", Value: 20, Usage: "number of entries to show"},
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.NewExitError("usage: audit-tail [--n N] db-path", 1)
		}
		log, err := arbiter.OpenAuditLog(cleanAndExpandPath(ctx.Args().First()))
		if err != nil {
			return err
		}
		defer log.Close()

		entries, err := log.Tail(ctx.Int("n"))
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"id", "recorded_at", "kind", "accepted", "cxid", "detail"})
		for _, e := range entries {
			t.AppendRow(table.Row{
				e.ID, e.RecordedAt.Format(time.RFC3339), e.Kind, e.Accepted, e.Cxid, e.Detail,
			})
		}
		t.Render()
		return nil
	},
}

var mintMacaroonCommand = cli.Command{
	Name:  "mint-macaroon",
	Usage: "mint a bearer macaroon scoped to one arbiter operation, for distribution to a submitter",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "rootkey", Usage: "path to the arbiter's macaroon root key"},
		cli.StringFlag{Name: "operation", Usage: "submit-contract or submit-payout"},
		cli.DurationFlag{Name: "expiry", Value: time.Hour, Usage: "validity window"},
	},
	Action: func(ctx *cli.Context) error {
		rootKey, err := ioutil.ReadFile(cleanAndExpandPath(ctx.String("rootkey")))
		if err != nil {
			return fmt.Errorf("reading macaroon root key: %w", err)
		}
		operation := ctx.String("operation")

		mac, err := macaroon.New(rootKey, []byte(operation), "wagerd-arbiter", macaroon.LatestVersion)
		if err != nil {
			return err
		}
		if err := mac.AddFirstPartyCaveat([]byte(fmt.Sprintf("operation = %s", operation))); err != nil {
			return err
		}
		if err := mac.AddFirstPartyCaveat(
			checkers.TimeBeforeCaveat(time.Now().Add(ctx.Duration("expiry"))).Condition,
		); err != nil {
			return err
		}

		data, err := mac.MarshalBinary()
		if err != nil {
			return err
		}
		fmt.Println(base64.StdEncoding.EncodeToString(data))
		return nil
	},
}

// The arbiter's signing key is never stored in plaintext on disk
// outside of a short-lived decrypt step at startup. seal/unlock use a
// scrypt-derived key from an operator passphrase (the same
// passphrase-to-symmetric-key pattern pktwallet's seed storage and
// bfix-gospel's dispatcher tests use the x/crypto KDF family for) to
// wrap the raw private key with AES-256-GCM. The file layout is
// salt(16) || nonce(12) || ciphertext.

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

func readPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return pass, nil
}

var sealKeyCommand = cli.Command{
	Name:      "seal-key",
	Usage:     "encrypt a plaintext hex arbiter private key at rest with a passphrase",
	ArgsUsage: "plaintext-key-path encrypted-out-path",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.NewExitError("usage: seal-key plaintext-key-path encrypted-out-path", 1)
		}
		plainHex, err := ioutil.ReadFile(cleanAndExpandPath(ctx.Args().Get(0)))
		if err != nil {
			return err
		}
		keyBytes, err := hex.DecodeString(string(trimNewline(plainHex)))
		if err != nil {
			return fmt.Errorf("decoding private key hex: %w", err)
		}

		passphrase, err := readPassphrase("passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("confirm passphrase: ")
		if err != nil {
			return err
		}
		if string(passphrase) != string(confirm) {
			return fmt.Errorf("passphrases do not match")
		}

		salt := make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return err
		}
		derivedKey, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, scryptKeyLen)
		if err != nil {
			return fmt.Errorf("deriving key: %w", err)
		}

		block, err := aes.NewCipher(derivedKey)
		if err != nil {
			return err
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return err
		}
		nonce := make([]byte, gcm.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return err
		}
		ciphertext := gcm.Seal(nil, nonce, keyBytes, nil)

		out := append(append(append([]byte{}, salt...), nonce...), ciphertext...)
		if err := ioutil.WriteFile(cleanAndExpandPath(ctx.Args().Get(1)), out, 0600); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "sealed key written")
		return nil
	},
}

var unlockKeyCommand = cli.Command{
	Name:      "unlock-key",
	Usage:     "decrypt a sealed arbiter private key and print it as hex, for arbiterd's --arbiterkeypath at startup",
	ArgsUsage: "encrypted-key-path",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.NewExitError("usage: unlock-key encrypted-key-path", 1)
		}
		sealed, err := ioutil.ReadFile(cleanAndExpandPath(ctx.Args().First()))
		if err != nil {
			return err
		}
		if len(sealed) < saltLen+12 {
			return fmt.Errorf("sealed key file is truncated")
		}
		salt, rest := sealed[:saltLen], sealed[saltLen:]

		passphrase, err := readPassphrase("passphrase: ")
		if err != nil {
			return err
		}
		derivedKey, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, scryptKeyLen)
		if err != nil {
			return fmt.Errorf("deriving key: %w", err)
		}
		block, err := aes.NewCipher(derivedKey)
		if err != nil {
			return err
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return err
		}
		if len(rest) < gcm.NonceSize() {
			return fmt.Errorf("sealed key file is truncated")
		}
		nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
		plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return fmt.Errorf("decrypting sealed key (wrong passphrase?): %w", err)
		}
		fmt.Println(hex.EncodeToString(plaintext))
		return nil
	},
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
