package chainclient

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/btcwager/wagerd/escrow"
)

var _ Client = (*MockClient)(nil)

func TestMockClientListUnspent(t *testing.T) {
	priv := mustAddr(t)
	m := NewMockClient()
	m.UTXOs[priv.String()] = []escrow.UTXO{{Value: 50_000}}

	utxos, err := m.ListUnspent(context.Background(), priv)
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	require.Equal(t, btcutil.Amount(50_000), utxos[0].Value)
}

func TestMockClientBroadcast(t *testing.T) {
	m := NewMockClient()
	tx := wire.NewMsgTx(wire.TxVersion)
	require.NoError(t, m.Broadcast(context.Background(), tx))
	require.Len(t, m.Broadcasted, 1)
}

func mustAddr(t *testing.T) btcutil.Address {
	t.Helper()
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		make([]byte, 20), &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	return addr
}
