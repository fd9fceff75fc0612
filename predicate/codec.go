package predicate

import (
	"encoding/binary"

	"github.com/btcwager/wagerd/wagererr"
)

const opCodec = "predicate_codec"

// Encode serializes a Script to its canonical wire form. Encoding is
// deterministic: the same AST always yields the same bytes, which is
// what lets cxid be computed purely from the predicate and stay stable
// across implementations.
func Encode(s Script) []byte {
	var buf []byte
	for _, op := range s {
		buf = appendOp(buf, op)
	}
	return buf
}

func appendOp(buf []byte, op Op) []byte {
	switch v := op.(type) {
	case Literal:
		return append(buf, v.Value)
	case PushData:
		return appendPushData(buf, v.Data)
	case Drop:
		return append(buf, byte(OP_DROP))
	case Dup:
		return append(buf, byte(OP_DUP))
	case TwoDup:
		return append(buf, byte(OP_2DUP))
	case Equal:
		return append(buf, byte(OP_EQUAL))
	case VerifySig:
		return append(buf, byte(OP_VERIFYSIG))
	case Sha256:
		return append(buf, byte(OP_SHA256))
	case Validate:
		return append(buf, byte(OP_VALIDATE))
	case If:
		buf = append(buf, byte(OP_IF))
		buf = append(buf, Encode(v.True)...)
		if v.False != nil {
			buf = append(buf, byte(OP_ELSE))
			buf = append(buf, Encode(v.False)...)
		}
		buf = append(buf, byte(OP_ENDIF))
		return buf
	default:
		// Unreachable for any Op produced by this package's own
		// constructors; a third-party Op implementation is a
		// programming error, not a malformed-input condition.
		panic("predicate: unknown Op implementation")
	}
}

// canonicalPushOpcode picks the minimal PUSHDATA variant for n bytes of
// payload, matching the encoder so encode(parse(x)) == x for canonical x.
func canonicalPushOpcode(n int) Opcode {
	switch {
	case n < 1<<8:
		return OP_PUSHDATA1
	case n < 1<<16:
		return OP_PUSHDATA2
	default:
		return OP_PUSHDATA4
	}
}

func appendPushData(buf []byte, data []byte) []byte {
	op := canonicalPushOpcode(len(data))
	buf = append(buf, byte(op))
	switch op {
	case OP_PUSHDATA1:
		buf = append(buf, byte(len(data)))
	case OP_PUSHDATA2:
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(data)))
		buf = append(buf, lenBuf[:]...)
	case OP_PUSHDATA4:
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
		buf = append(buf, lenBuf[:]...)
	}
	return append(buf, data...)
}

// Parse decodes a canonical predicate script. It is recursive-descent:
// OP_IF/OP_ELSE/OP_ENDIF are matched as delimiters and folded into a
// single If node; they never escape into the returned AST.
func Parse(data []byte) (Script, error) {
	if len(data) > MaxScriptBytes {
		return nil, wagererr.New(wagererr.KindScriptMalformed, opCodec,
			"encoded script exceeds maximum length")
	}
	pos := 0
	s, err := parseBlock(data, &pos, 0)
	if err != nil {
		return nil, err
	}
	if pos != len(data) {
		return nil, wagererr.New(wagererr.KindScriptMalformed, opCodec,
			"trailing bytes after top-level script")
	}
	if err := checkTerminal(s); err != nil {
		return nil, err
	}
	return s, nil
}

// parseBlock reads opcodes until it hits OP_ELSE, OP_ENDIF, or end of
// input (only valid for the top-level call, depth 0). The delimiter
// itself, if any, is left unconsumed for the caller to inspect.
func parseBlock(data []byte, pos *int, depth int) (Script, error) {
	var s Script
	for *pos < len(data) {
		b := data[*pos]
		switch Opcode(b) {
		case OP_ELSE, OP_ENDIF:
			return s, nil
		}

		op, err := parseOne(data, pos, depth)
		if err != nil {
			return nil, err
		}
		s = append(s, op)
	}
	return s, nil
}

func parseOne(data []byte, pos *int, depth int) (Op, error) {
	b := data[*pos]
	switch Opcode(b) {
	case OP_0:
		*pos++
		return Literal{Value: 0x00}, nil
	case OP_1:
		*pos++
		return Literal{Value: 0x01}, nil
	case OP_PUSHDATA1:
		return parsePushData(data, pos, 1)
	case OP_PUSHDATA2:
		return parsePushData(data, pos, 2)
	case OP_PUSHDATA4:
		return parsePushData(data, pos, 4)
	case OP_DROP:
		*pos++
		return Drop{}, nil
	case OP_DUP:
		*pos++
		return Dup{}, nil
	case OP_2DUP:
		*pos++
		return TwoDup{}, nil
	case OP_EQUAL:
		*pos++
		return Equal{}, nil
	case OP_VERIFYSIG:
		*pos++
		return VerifySig{}, nil
	case OP_SHA256:
		*pos++
		return Sha256{}, nil
	case OP_VALIDATE:
		*pos++
		return Validate{}, nil
	case OP_IF:
		return parseIf(data, pos, depth)
	default:
		return nil, wagererr.New(wagererr.KindUnknownOpcode, opCodec,
			opcodeAt(b))
	}
}

func opcodeAt(b byte) string {
	return Opcode(b).String()
}

func parsePushData(data []byte, pos *int, lenBytes int) (Op, error) {
	*pos++ // consume the opcode byte
	if *pos+lenBytes > len(data) {
		return nil, wagererr.New(wagererr.KindSerializationTruncated, opCodec,
			"truncated pushdata length prefix")
	}
	var n int
	switch lenBytes {
	case 1:
		n = int(data[*pos])
	case 2:
		n = int(binary.BigEndian.Uint16(data[*pos:]))
	case 4:
		n = int(binary.BigEndian.Uint32(data[*pos:]))
	}
	*pos += lenBytes
	if *pos+n > len(data) {
		return nil, wagererr.New(wagererr.KindSerializationTruncated, opCodec,
			"truncated pushdata payload")
	}
	payload := make([]byte, n)
	copy(payload, data[*pos:*pos+n])
	*pos += n
	return PushData{Data: payload}, nil
}

func parseIf(data []byte, pos *int, depth int) (Op, error) {
	*pos++ // consume OP_IF
	if depth+1 > MaxNestingDepth {
		return nil, wagererr.New(wagererr.KindPredicateTooDeep, opCodec,
			"OP_IF nesting exceeds maximum depth")
	}

	trueBranch, err := parseBlock(data, pos, depth+1)
	if err != nil {
		return nil, err
	}
	if *pos >= len(data) {
		return nil, wagererr.New(wagererr.KindScriptMalformed, opCodec,
			"unterminated OP_IF (missing OP_ENDIF)")
	}

	var falseBranch Script
	if Opcode(data[*pos]) == OP_ELSE {
		*pos++
		falseBranch, err = parseBlock(data, pos, depth+1)
		if err != nil {
			return nil, err
		}
		if *pos >= len(data) || Opcode(data[*pos]) != OP_ENDIF {
			return nil, wagererr.New(wagererr.KindScriptMalformed, opCodec,
				"unterminated OP_IF/OP_ELSE (missing OP_ENDIF)")
		}
	}
	if Opcode(data[*pos]) != OP_ENDIF {
		return nil, wagererr.New(wagererr.KindScriptMalformed, opCodec,
			"expected OP_ENDIF")
	}
	*pos++ // consume OP_ENDIF

	return If{True: trueBranch, False: falseBranch}, nil
}

// checkTerminal enforces the grammar rule that an executable predicate
// ends with exactly one top-level OP_VALIDATE, and that OP_VALIDATE
// never appears anywhere else (including inside If branches, where it
// would only govern one of two possible execution paths).
func checkTerminal(s Script) error {
	if len(s) == 0 {
		return wagererr.New(wagererr.KindScriptMalformed, opCodec,
			"script has no terminal OP_VALIDATE")
	}
	if _, ok := s[len(s)-1].(Validate); !ok {
		return wagererr.New(wagererr.KindScriptMalformed, opCodec,
			"script must end with OP_VALIDATE")
	}
	for i, op := range s {
		if err := noValidateExcept(op, i == len(s)-1); err != nil {
			return err
		}
	}
	return nil
}

func noValidateExcept(op Op, allowed bool) error {
	switch v := op.(type) {
	case Validate:
		if !allowed {
			return wagererr.New(wagererr.KindScriptMalformed, opCodec,
				"OP_VALIDATE may only appear as the final top-level instruction")
		}
	case If:
		for _, inner := range v.True {
			if _, ok := inner.(Validate); ok {
				return wagererr.New(wagererr.KindScriptMalformed, opCodec,
					"OP_VALIDATE may not appear inside an OP_IF branch")
			}
			if err := noValidateExcept(inner, false); err != nil {
				return err
			}
		}
		for _, inner := range v.False {
			if _, ok := inner.(Validate); ok {
				return wagererr.New(wagererr.KindScriptMalformed, opCodec,
					"OP_VALIDATE may not appear inside an OP_IF branch")
			}
			if err := noValidateExcept(inner, false); err != nil {
				return err
			}
		}
	}
	return nil
}
