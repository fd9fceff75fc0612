package main

import (
	"crypto/tls"
	"os"
	"time"

	"github.com/lightningnetwork/lnd/cert"
)

const certValidity = 14 * 30 * 24 * time.Hour

// loadOrCreateTLSCert loads the TLS key pair at certPath/keyPath,
// generating a fresh self-signed pair the first time the daemon runs
// (or once the existing one has aged past certValidity), the same
// self-signed-unless-IsOutdated flow lnd's own RPC listener follows.
func loadOrCreateTLSCert(certPath, keyPath string) (tls.Certificate, error) {
	if _, err := os.Stat(certPath); os.IsNotExist(err) {
		if err := genSelfSignedCert(certPath, keyPath); err != nil {
			return tls.Certificate{}, err
		}
	}

	tlsCert, parsedCert, err := cert.LoadCert(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, err
	}

	if cert.IsOutdated(parsedCert, nil, nil, false) {
		if err := genSelfSignedCert(certPath, keyPath); err != nil {
			return tls.Certificate{}, err
		}
		tlsCert, _, err = cert.LoadCert(certPath, keyPath)
		if err != nil {
			return tls.Certificate{}, err
		}
	}

	return tlsCert, nil
}

func genSelfSignedCert(certPath, keyPath string) error {
	certBytes, keyBytes, err := cert.GenCertPair(
		"wagerd autogenerated cert",
		nil, nil, false, certValidity,
	)
	if err != nil {
		return err
	}
	return cert.WriteCertPair(certPath, keyPath, certBytes, keyBytes)
}
