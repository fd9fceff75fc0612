package main

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/btcwager/wagerd/arbiter"
)

// rpcServer exposes the four logical endpoints spec.md §6 names over
// plain HTTP, mirroring the handler-per-endpoint shape lnd's own
// rpcserver.go wires into its listener (there over gRPC, here over a
// simpler REST surface since the arbiter has no streaming calls).
type rpcServer struct {
	cert    *arbiter.Certifier
	pubkey  [33]byte
	feeAddr btcutil.Address
}

func newRPCServer(cert *arbiter.Certifier, pubkey [33]byte, feeAddr btcutil.Address) *rpcServer {
	return &rpcServer{cert: cert, pubkey: pubkey, feeAddr: feeAddr}
}

func (s *rpcServer) routes(auth *macaroonAuth) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/escrow-pubkey", s.handleEscrowPubkey)
	mux.HandleFunc("/fee-address", s.handleFeeAddress)
	mux.HandleFunc("/submit-contract", auth.requireMacaroon("submit-contract", s.handleSubmitContract))
	mux.HandleFunc("/submit-payout", auth.requireMacaroon("submit-payout", s.handleSubmitPayout))
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *rpcServer) handleEscrowPubkey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"pubkey_hex": hex.EncodeToString(s.pubkey[:]),
	})
}

func (s *rpcServer) handleFeeAddress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"fee_address": s.feeAddr.EncodeAddress(),
	})
}

func (s *rpcServer) handleSubmitContract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContractHex string `json:"contract_hex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	contractBytes, err := hex.DecodeString(req.ContractHex)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sigHex, err := s.cert.SubmitContract(contractBytes)
	if err != nil {
		// spec.md §7: validation errors are safe to reveal as-is.
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sig_hex": sigHex})
}

func (s *rpcServer) handleSubmitPayout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PayoutHex string `json:"payout_hex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payoutBytes, err := hex.DecodeString(req.PayoutHex)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	psbtHex, err := s.cert.SubmitPayout(payoutBytes)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"psbt_hex": psbtHex})
}

func (s *rpcServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
