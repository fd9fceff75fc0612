package contract

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcwager/wagerd/predicate"
	"github.com/btcwager/wagerd/wagererr"
)

const opSerialize = "contract_serialize"

// ToBytes produces the canonical encoding from spec.md §6:
//
//	u8 version | 33*3 pubkeys | u32_be len+p1_addr | u32_be len+p2_addr |
//	u32_be len+funding_tx | u32_be len+predicate | 3*(u8 sig_len+der_sig)
//
// The three signature slots are always emitted, in slot order, with
// sig_len = 0 marking an unsigned slot — this keeps slot identity
// explicit across the wire, which the strict per-slot state table in
// §4.G depends on (see Sigs' doc comment).
func (c *Contract) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(c.Version)
	buf.Write(c.P1Pubkey[:])
	buf.Write(c.P2Pubkey[:])
	buf.Write(c.ArbiterPubkey[:])

	if err := writeLenPrefixed(&buf, []byte(c.P1PayoutAddress.String())); err != nil {
		return nil, err
	}
	if err := writeLenPrefixed(&buf, []byte(c.P2PayoutAddress.String())); err != nil {
		return nil, err
	}

	if c.FundingTx == nil {
		return nil, wagererr.New(wagererr.KindFundingTxMalformed, opSerialize,
			"contract has no funding transaction")
	}
	var txBuf bytes.Buffer
	if err := c.FundingTx.Serialize(&txBuf); err != nil {
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opSerialize,
			"serializing funding tx", err)
	}
	if err := writeLenPrefixed(&buf, txBuf.Bytes()); err != nil {
		return nil, err
	}

	if err := writeLenPrefixed(&buf, predicate.Encode(c.PayoutScript)); err != nil {
		return nil, err
	}

	for slot := 0; slot < numSlots; slot++ {
		sig := c.Sigs[slot]
		if len(sig) > 255 {
			return nil, wagererr.New(wagererr.KindSignatureInvalid, opSerialize,
				"signature exceeds 255 bytes")
		}
		buf.WriteByte(byte(len(sig)))
		buf.Write(sig)
	}

	return buf.Bytes(), nil
}

// FromBytes parses the canonical encoding. params is required to decode
// the two payout addresses and is retained on the returned Contract so
// later calls (Validate, ToBytes) don't need it passed again.
func FromBytes(data []byte, params *chaincfg.Params) (*Contract, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, truncated("reading version")
	}
	if version != Version {
		return nil, wagererr.New(wagererr.KindFundingTxMalformed, opSerialize,
			"unsupported contract serialization version")
	}

	c := &Contract{Version: version, Params: params}

	if _, err := readFull(r, c.P1Pubkey[:]); err != nil {
		return nil, err
	}
	if _, err := readFull(r, c.P2Pubkey[:]); err != nil {
		return nil, err
	}
	if _, err := readFull(r, c.ArbiterPubkey[:]); err != nil {
		return nil, err
	}

	p1AddrBytes, err := readLenPrefixed(r)
	if err != nil {
		return nil, err
	}
	p2AddrBytes, err := readLenPrefixed(r)
	if err != nil {
		return nil, err
	}
	c.P1PayoutAddress, err = btcutil.DecodeAddress(string(p1AddrBytes), params)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opSerialize,
			"decoding p1 payout address", err)
	}
	c.P2PayoutAddress, err = btcutil.DecodeAddress(string(p2AddrBytes), params)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opSerialize,
			"decoding p2 payout address", err)
	}

	txBytes, err := readLenPrefixed(r)
	if err != nil {
		return nil, err
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(txBytes)); err != nil {
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opSerialize,
			"deserializing funding tx", err)
	}
	c.FundingTx = tx

	predicateBytes, err := readLenPrefixed(r)
	if err != nil {
		return nil, err
	}
	script, err := predicate.Parse(predicateBytes)
	if err != nil {
		return nil, err
	}
	c.PayoutScript = script

	for slot := 0; slot < numSlots; slot++ {
		sigLen, err := r.ReadByte()
		if err != nil {
			return nil, truncated("reading signature length")
		}
		if sigLen == 0 {
			continue
		}
		sig := make([]byte, sigLen)
		if _, err := readFull(r, sig); err != nil {
			return nil, err
		}
		c.Sigs[slot] = sig
	}

	return c, nil
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(data))); err != nil {
		return wagererr.Wrap(wagererr.KindSerializationTruncated, opSerialize,
			"writing length prefix", err)
	}
	buf.Write(data)
	return nil
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, truncated("reading length prefix")
	}
	out := make([]byte, length)
	if _, err := readFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readFull(r *bytes.Reader, out []byte) (int, error) {
	n, err := r.Read(out)
	if err != nil || n != len(out) {
		return n, truncated("reading fixed-length field")
	}
	return n, nil
}

func truncated(where string) error {
	return wagererr.New(wagererr.KindSerializationTruncated, opSerialize, where)
}
