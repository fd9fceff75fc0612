package predicate

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// TwoOutcome builds the canonical "two-outcome" predicate described in
// the spec: the oracle's signature (pushed by the caller before
// execution) authorizes redemption to whichever of the two payout
// transactions it actually signed.
//
//	PUSHDATA1 len(PK) PK
//	2DUP
//	PUSHDATA1 32 txidP1
//	VERIFYSIG
//	IF
//	  OP_1
//	ELSE
//	  PUSHDATA1 32 txidP2
//	  VERIFYSIG
//	ENDIF
//	VALIDATE
//
// 2DUP keeps {pubkey, sig} available on the stack for the ELSE branch in
// case the first VERIFYSIG against txidP1 fails. PK is the oracle's
// pubkey (spec §4.A calls this parameter "arbiter_pubkey PK"; what
// OP_VERIFYSIG actually authenticates against it is the oracle's
// outcome signature, so the escrow builder parameterizes this as the
// oracle's key rather than the arbiter's own — see DESIGN.md).
func TwoOutcome(oraclePubkey []byte, txidP1, txidP2 chainhash.Hash) Script {
	return Script{
		PushData{Data: append([]byte(nil), oraclePubkey...)},
		TwoDup{},
		PushData{Data: append([]byte(nil), txidP1[:]...)},
		VerifySig{},
		If{
			True: Script{Literal{Value: 0x01}},
			False: Script{
				PushData{Data: append([]byte(nil), txidP2[:]...)},
				VerifySig{},
			},
		},
		Validate{},
	}
}
