package chainclient

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcwager/wagerd/escrow"
)

// MockClient is an in-memory Client for tests and the dry-run mode of
// the player-facing tooling.
type MockClient struct {
	UTXOs       map[string][]escrow.UTXO
	Broadcasted []*wire.MsgTx
	FeeEstimate btcutil.Amount
}

func NewMockClient() *MockClient {
	return &MockClient{UTXOs: make(map[string][]escrow.UTXO)}
}

func (m *MockClient) ListUnspent(_ context.Context, addr btcutil.Address) ([]escrow.UTXO, error) {
	return m.UTXOs[addr.String()], nil
}

func (m *MockClient) Broadcast(_ context.Context, tx *wire.MsgTx) error {
	m.Broadcasted = append(m.Broadcasted, tx)
	return nil
}

func (m *MockClient) EstimateFee(_ context.Context, _ uint32) (btcutil.Amount, error) {
	return m.FeeEstimate, nil
}
