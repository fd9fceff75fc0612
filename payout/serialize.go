package payout

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/btcwager/wagerd/contract"
	"github.com/btcwager/wagerd/wagererr"
)

const opSerialize = "payout_serialize"

// ToBytes produces the canonical encoding from spec.md §6:
//
//	u8 version | u32_be len+contract_bytes | u32_be len+psbt_bytes |
//	(u8 sig_len+der_sig)?
//
// The trailing script-sig is genuinely optional (0 or 1, never a fixed
// slot count like Contract's three signatures), so a bare sig_len = 0
// with nothing following it is sufficient and unambiguous.
func (p *Payout) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(p.Version)

	contractBytes, err := p.Contract.ToBytes()
	if err != nil {
		return nil, err
	}
	if err := writeLenPrefixed(&buf, contractBytes); err != nil {
		return nil, err
	}

	if p.Psbt == nil {
		return nil, wagererr.New(wagererr.KindPayoutMalformed, opSerialize,
			"payout has no redemption psbt")
	}
	var psbtBuf bytes.Buffer
	if err := p.Psbt.Serialize(&psbtBuf); err != nil {
		return nil, wagererr.Wrap(wagererr.KindPayoutMalformed, opSerialize,
			"serializing psbt", err)
	}
	if err := writeLenPrefixed(&buf, psbtBuf.Bytes()); err != nil {
		return nil, err
	}

	if len(p.ScriptSig) > 255 {
		return nil, wagererr.New(wagererr.KindSignatureInvalid, opSerialize,
			"script-sig exceeds 255 bytes")
	}
	buf.WriteByte(byte(len(p.ScriptSig)))
	buf.Write(p.ScriptSig)

	return buf.Bytes(), nil
}

// FromBytes parses the canonical encoding. params is threaded through to
// contract.FromBytes to decode the embedded contract's payout addresses.
func FromBytes(data []byte, params *chaincfg.Params) (*Payout, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, truncated("reading version")
	}
	if version != Version {
		return nil, wagererr.New(wagererr.KindPayoutMalformed, opSerialize,
			"unsupported payout serialization version")
	}

	contractBytes, err := readLenPrefixed(r)
	if err != nil {
		return nil, err
	}
	c, err := contract.FromBytes(contractBytes, params)
	if err != nil {
		return nil, err
	}

	psbtBytes, err := readLenPrefixed(r)
	if err != nil {
		return nil, err
	}
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(psbtBytes), false)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindPayoutMalformed, opSerialize,
			"deserializing psbt", err)
	}

	sigLen, err := r.ReadByte()
	if err != nil {
		return nil, truncated("reading script-sig length")
	}
	var scriptSig []byte
	if sigLen > 0 {
		scriptSig = make([]byte, sigLen)
		if _, err := readFull(r, scriptSig); err != nil {
			return nil, err
		}
	}

	return &Payout{
		Version:   version,
		Contract:  *c,
		Psbt:      packet,
		ScriptSig: scriptSig,
	}, nil
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
