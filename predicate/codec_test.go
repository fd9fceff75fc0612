package predicate

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"

	"github.com/btcwager/wagerd/wagererr"
)

func mustHash(b byte) chainhash.Hash {
	var h chainhash.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

// TestCodecRoundTrip exercises the universal property from the spec:
// parse(encode(P)) == P for every valid predicate P.
func TestCodecRoundTrip(t *testing.T) {
	pk := bytes.Repeat([]byte{0xAB}, 33)
	script := TwoOutcome(pk, mustHash(0x11), mustHash(0x22))

	encoded := Encode(script)
	decoded, err := Parse(encoded)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !decoded.Equal(script) {
		t.Fatalf("round trip mismatch:\nwant %s\ngot  %s",
			spew.Sdump(script), spew.Sdump(decoded))
	}

	// Canonical: re-encoding the parsed form reproduces the exact bytes.
	if !bytes.Equal(Encode(decoded), encoded) {
		t.Fatalf("encode(parse(x)) != x")
	}
}

func TestCodecRejectsUnbalancedDelimiters(t *testing.T) {
	pk := bytes.Repeat([]byte{0xAB}, 33)
	script := TwoOutcome(pk, mustHash(0x11), mustHash(0x22))
	encoded := Encode(script)

	// Corrupt a delimiter byte: overwrite the OP_ENDIF that closes the
	// IF/ELSE block (second-to-last byte, before OP_VALIDATE) with a
	// second OP_ELSE and expect ScriptMalformed with no partial state
	// escaping the parser. Flipping a byte inside a push payload, such
	// as the pubkey, yields a different but well-formed script.
	corrupted := append([]byte(nil), encoded...)
	endifIdx := len(corrupted) - 2
	if Opcode(corrupted[endifIdx]) != OP_ENDIF {
		t.Fatalf("expected OP_ENDIF at offset %d, got %#x", endifIdx, corrupted[endifIdx])
	}
	corrupted[endifIdx] = byte(OP_ELSE)

	_, err := Parse(corrupted)
	if !wagererr.Is(err, wagererr.KindScriptMalformed) {
		t.Fatalf("expected ScriptMalformed parsing corrupted script, got %v", err)
	}
}

func TestCodecRejectsMissingTerminalValidate(t *testing.T) {
	script := Script{Literal{Value: 0x01}}
	encoded := Encode(script)
	_, err := Parse(encoded)
	if !wagererr.Is(err, wagererr.KindScriptMalformed) {
		t.Fatalf("expected ScriptMalformed, got %v", err)
	}
}

func TestCodecRejectsValidateInsideBranch(t *testing.T) {
	script := Script{
		Literal{Value: 0x01},
		If{True: Script{Validate{}}},
		Validate{},
	}
	encoded := Encode(script)
	_, err := Parse(encoded)
	if !wagererr.Is(err, wagererr.KindScriptMalformed) {
		t.Fatalf("expected ScriptMalformed, got %v", err)
	}
}

func TestCodecRejectsExcessiveNesting(t *testing.T) {
	// Three levels of OP_IF nesting exceeds the depth-2 bound.
	script := Script{
		If{True: Script{
			If{True: Script{
				If{True: Script{Validate{}}},
			}},
		}},
	}
	encoded := Encode(script)
	_, err := Parse(encoded)
	if !wagererr.Is(err, wagererr.KindPredicateTooDeep) {
		t.Fatalf("expected PredicateTooDeep, got %v", err)
	}
}

func TestCodecUnknownOpcode(t *testing.T) {
	_, err := Parse([]byte{0x99})
	if !wagererr.Is(err, wagererr.KindUnknownOpcode) {
		t.Fatalf("expected UnknownOpcode, got %v", err)
	}
}

func TestCodecTruncatedPushData(t *testing.T) {
	_, err := Parse([]byte{byte(OP_PUSHDATA1), 0x20, 0x01, 0x02})
	if !wagererr.Is(err, wagererr.KindSerializationTruncated) {
		t.Fatalf("expected SerializationTruncated, got %v", err)
	}
}
