package predicate

import (
	"bytes"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	goerrors "github.com/go-errors/errors"

	"github.com/btcwager/wagerd/wagererr"
)

const opExec = "predicate_execute"

var (
	falseBytes = []byte{0x00}
	trueBytes  = []byte{0x01}
)

// RedemptionContext is the minimal view of "the payout under evaluation"
// the VM needs: the txid that OP_VERIFYSIG binds every signature to. It
// is satisfied by payout.Payout without predicate importing payout
// (which would be a cycle — payout imports predicate, not vice versa).
type RedemptionContext interface {
	RedemptionTxID() chainhash.Hash
}

// VM is the stack machine described by the spec: a stack of byte
// strings, a nesting-depth counter, an optional validity verdict, and a
// reference to the payout under evaluation. It is synchronous,
// single-threaded, and does no I/O.
type VM struct {
	stack [][]byte
	depth int
	valid *bool
	ctx   RedemptionContext
}

// Execute runs script against a fresh VM seeded with a single stack item
// (the oracle's script-sig, pushed by the caller before execution begins
// per the spec's description of the canonical predicate). It returns the
// VM's final validity verdict.
//
// The VM never panics on adversarial input: malformed ASTs (which can
// only arise from a hand-built Script bypassing Parse, since Parse
// itself guarantees well-formedness) are reported as ScriptMalformed.
// Only a true implementation bug — an unreachable Op variant — is
// allowed to panic, and even that is recovered here into an error so a
// misbehaving predicate can never crash the arbiter process.
func Execute(script Script, oracleSig []byte, ctx RedemptionContext) (valid bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := goerrors.Wrap(r, 2)
			err = wagererr.Wrap(wagererr.KindScriptMalformed, opExec,
				"predicate execution panicked", stack)
			valid = false
		}
	}()

	vm := &VM{
		stack: [][]byte{oracleSig},
		ctx:   ctx,
	}
	if err := vm.run(script); err != nil {
		return false, err
	}
	if vm.valid == nil {
		return false, wagererr.New(wagererr.KindScriptMalformed, opExec,
			"script did not reach OP_VALIDATE")
	}
	return *vm.valid, nil
}

func (vm *VM) run(script Script) error {
	for _, op := range script {
		if err := vm.step(op); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) step(op Op) error {
	switch v := op.(type) {
	case Literal:
		vm.push([]byte{v.Value})
	case PushData:
		vm.push(v.Data)
	case Drop:
		if _, err := vm.pop(); err != nil {
			return err
		}
	case Dup:
		top, err := vm.peek(0)
		if err != nil {
			return err
		}
		vm.push(top)
	case TwoDup:
		a, err := vm.peek(1)
		if err != nil {
			return err
		}
		b, err := vm.peek(0)
		if err != nil {
			return err
		}
		vm.push(a)
		vm.push(b)
	case Equal:
		a, err := vm.pop()
		if err != nil {
			return err
		}
		b, err := vm.pop()
		if err != nil {
			return err
		}
		vm.pushBool(bytes.Equal(a, b))
	case Sha256:
		a, err := vm.pop()
		if err != nil {
			return err
		}
		sum := sha256.Sum256(a)
		vm.push(sum[:])
	case VerifySig:
		return vm.execVerifySig()
	case Validate:
		top, err := vm.pop()
		if err != nil {
			return err
		}
		result := !bytes.Equal(top, falseBytes)
		vm.valid = &result
	case If:
		return vm.execIf(v)
	default:
		// Not reachable via Parse's output; a caller that hand-built
		// an AST with an unknown Op type gets a clean error via the
		// panic recovery in Execute, not a crash.
		panic("predicate: unknown Op at execution time")
	}
	return nil
}

func (vm *VM) execIf(v If) error {
	vm.depth++
	defer func() { vm.depth-- }()
	if vm.depth > MaxNestingDepth {
		return wagererr.New(wagererr.KindScriptLimitExceeded, opExec,
			"OP_IF nesting exceeds maximum depth at execution time")
	}

	cond, err := vm.pop()
	if err != nil {
		return err
	}
	if !bytes.Equal(cond, falseBytes) {
		return vm.run(v.True)
	}
	if v.False != nil {
		return vm.run(v.False)
	}
	return nil
}

// execVerifySig implements OP_VERIFYSIG exactly as specified: pop three
// items as {msg, pubkey, sig} with the top being msg, then push OP_1 iff
// msg equals the redemption txid AND sig verifies over msg under pubkey.
func (vm *VM) execVerifySig() error {
	msg, err := vm.pop()
	if err != nil {
		return err
	}
	pubkeyBytes, err := vm.pop()
	if err != nil {
		return err
	}
	sigBytes, err := vm.pop()
	if err != nil {
		return err
	}

	txid := vm.ctx.RedemptionTxID()
	if !bytes.Equal(msg, txid[:]) {
		vm.pushBool(false)
		return nil
	}

	pubkey, err := btcec.ParsePubKey(pubkeyBytes)
	if err != nil {
		vm.pushBool(false)
		return nil
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		vm.pushBool(false)
		return nil
	}

	vm.pushBool(sig.Verify(msg, pubkey))
	return nil
}

func (vm *VM) push(item []byte) {
	vm.stack = append(vm.stack, item)
}

func (vm *VM) pushBool(b bool) {
	if b {
		vm.push(trueBytes)
	} else {
		vm.push(falseBytes)
	}
}

func (vm *VM) pop() ([]byte, error) {
	if len(vm.stack) == 0 {
		return nil, wagererr.New(wagererr.KindScriptStackUnderflow, opExec,
			"pop on empty stack")
	}
	top := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return top, nil
}

// peek returns a copy of the stack item at the given offset from the top
// (0 = top) without removing it, for OP_DUP/OP_2DUP.
func (vm *VM) peek(offset int) ([]byte, error) {
	idx := len(vm.stack) - 1 - offset
	if idx < 0 {
		return nil, wagererr.New(wagererr.KindScriptStackUnderflow, opExec,
			"peek past bottom of stack")
	}
	item := make([]byte, len(vm.stack[idx]))
	copy(item, vm.stack[idx])
	return item, nil
}
