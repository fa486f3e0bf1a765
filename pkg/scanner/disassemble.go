package scanner

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// ScriptOp is one decoded instruction from a script: either a data push
// (Data set to the pushed bytes, possibly empty) or a plain opcode
// (Data nil).
type ScriptOp struct {
	Name string
	Data []byte
}

// DecodeScript walks raw script bytes into their instruction sequence.
// It is the structured core that both Disassemble and ParseOpReturn
// build on, so the push-length arithmetic for PUSHDATA1/2/4 lives in
// one place instead of three.
func DecodeScript(script []byte) []ScriptOp {
	var ops []ScriptOp
	i := 0
	for i < len(script) {
		b := script[i]
		i++

		var op ScriptOp
		var consumed int
		switch {
		case b == 0x00:
			op = ScriptOp{Name: "OP_0"}
		case b >= 0x01 && b <= 0x4b:
			op, consumed = readPush(script, i, int(b), fmt.Sprintf("OP_PUSHBYTES_%d", b))
		case b == 0x4c:
			op, consumed = readLengthPrefixedPush(script, i, 1, "OP_PUSHDATA1")
		case b == 0x4d:
			op, consumed = readLengthPrefixedPush(script, i, 2, "OP_PUSHDATA2")
		case b == 0x4e:
			op, consumed = readLengthPrefixedPush(script, i, 4, "OP_PUSHDATA4")
		default:
			op = ScriptOp{Name: opcodeToName(b)}
		}
		i += consumed
		ops = append(ops, op)
	}
	return ops
}

// readPush reads a fixed-length push of n bytes starting at start. A
// push that runs past the end of the script is reported bare, with no
// data attached, and consumes the rest of the script.
func readPush(script []byte, start, n int, name string) (ScriptOp, int) {
	if start+n > len(script) {
		return ScriptOp{Name: name}, len(script) - start
	}
	return ScriptOp{Name: name, Data: script[start : start+n]}, n
}

// readLengthPrefixedPush reads a PUSHDATA1/2/4 instruction: lenBytes
// little-endian bytes giving the push length, followed by the payload.
// A push whose length prefix itself doesn't fit is reported bare and
// consumes nothing, matching how the interpreter would fall through to
// reading the next byte as a fresh opcode. A push whose payload runs
// past the end of the script is reported with whatever data remains.
func readLengthPrefixedPush(script []byte, start, lenBytes int, name string) (ScriptOp, int) {
	if start+lenBytes > len(script) {
		return ScriptOp{Name: name}, 0
	}

	var n int
	switch lenBytes {
	case 1:
		n = int(script[start])
	case 2:
		n = int(binary.LittleEndian.Uint16(script[start : start+2]))
	case 4:
		n = int(binary.LittleEndian.Uint32(script[start : start+4]))
	}

	dataStart := start + lenBytes
	dataEnd := dataStart + n
	if dataEnd > len(script) {
		dataEnd = len(script)
	}
	return ScriptOp{Name: name, Data: script[dataStart:dataEnd]}, dataEnd - start
}

func renderOp(op ScriptOp) string {
	if op.Data == nil {
		return op.Name
	}
	return op.Name + " " + hex.EncodeToString(op.Data)
}

// Disassemble converts raw script bytes into the space-separated ASM
// string format the core expects to tokenize: OP_0, OP_1..OP_16,
// OP_PUSHBYTES_<n> <hex> for direct pushes, OP_PUSHDATA1/2/4 <hex> for
// the indirect pushes, named opcodes for everything else, and
// OP_UNKNOWN_0x<nn> for unrecognized bytes.
func Disassemble(script []byte) string {
	ops := DecodeScript(script)
	if len(ops) == 0 {
		return ""
	}
	rendered := make([]string, len(ops))
	for i, op := range ops {
		rendered[i] = renderOp(op)
	}
	return strings.Join(rendered, " ")
}

// opcodeToName returns the canonical name for an opcode byte, per
// Bitcoin Core's script/script.h opcode table.
func opcodeToName(op byte) string {
	switch op {
	case 0x4f:
		return "OP_1NEGATE"
	case 0x50:
		return "OP_RESERVED"
	case 0x51:
		return "OP_1"
	case 0x52:
		return "OP_2"
	case 0x53:
		return "OP_3"
	case 0x54:
		return "OP_4"
	case 0x55:
		return "OP_5"
	case 0x56:
		return "OP_6"
	case 0x57:
		return "OP_7"
	case 0x58:
		return "OP_8"
	case 0x59:
		return "OP_9"
	case 0x5a:
		return "OP_10"
	case 0x5b:
		return "OP_11"
	case 0x5c:
		return "OP_12"
	case 0x5d:
		return "OP_13"
	case 0x5e:
		return "OP_14"
	case 0x5f:
		return "OP_15"
	case 0x60:
		return "OP_16"
	case 0x61:
		return "OP_NOP"
	case 0x62:
		return "OP_VER"
	case 0x63:
		return "OP_IF"
	case 0x64:
		return "OP_NOTIF"
	case 0x65:
		return "OP_VERIF"
	case 0x66:
		return "OP_VERNOTIF"
	case 0x67:
		return "OP_ELSE"
	case 0x68:
		return "OP_ENDIF"
	case 0x69:
		return "OP_VERIFY"
	case 0x6a:
		return "OP_RETURN"
	case 0x6b:
		return "OP_TOALTSTACK"
	case 0x6c:
		return "OP_FROMALTSTACK"
	case 0x6d:
		return "OP_2DROP"
	case 0x6e:
		return "OP_2DUP"
	case 0x6f:
		return "OP_3DUP"
	case 0x70:
		return "OP_2OVER"
	case 0x71:
		return "OP_2ROT"
	case 0x72:
		return "OP_2SWAP"
	case 0x73:
		return "OP_IFDUP"
	case 0x74:
		return "OP_DEPTH"
	case 0x75:
		return "OP_DROP"
	case 0x76:
		return "OP_DUP"
	case 0x77:
		return "OP_NIP"
	case 0x78:
		return "OP_OVER"
	case 0x79:
		return "OP_PICK"
	case 0x7a:
		return "OP_ROLL"
	case 0x7b:
		return "OP_ROT"
	case 0x7c:
		return "OP_SWAP"
	case 0x7d:
		return "OP_TUCK"
	case 0x7e:
		return "OP_CAT"
	case 0x7f:
		return "OP_SUBSTR"
	case 0x80:
		return "OP_LEFT"
	case 0x81:
		return "OP_RIGHT"
	case 0x82:
		return "OP_SIZE"
	case 0x83:
		return "OP_INVERT"
	case 0x84:
		return "OP_AND"
	case 0x85:
		return "OP_OR"
	case 0x86:
		return "OP_XOR"
	case 0x87:
		return "OP_EQUAL"
	case 0x88:
		return "OP_EQUALVERIFY"
	case 0x89:
		return "OP_RESERVED1"
	case 0x8a:
		return "OP_RESERVED2"
	case 0x8b:
		return "OP_1ADD"
	case 0x8c:
		return "OP_1SUB"
	case 0x8d:
		return "OP_2MUL"
	case 0x8e:
		return "OP_2DIV"
	case 0x8f:
		return "OP_NEGATE"
	case 0x90:
		return "OP_ABS"
	case 0x91:
		return "OP_NOT"
	case 0x92:
		return "OP_0NOTEQUAL"
	case 0x93:
		return "OP_ADD"
	case 0x94:
		return "OP_SUB"
	case 0x95:
		return "OP_MUL"
	case 0x96:
		return "OP_DIV"
	case 0x97:
		return "OP_MOD"
	case 0x98:
		return "OP_LSHIFT"
	case 0x99:
		return "OP_RSHIFT"
	case 0x9a:
		return "OP_BOOLAND"
	case 0x9b:
		return "OP_BOOLOR"
	case 0x9c:
		return "OP_NUMEQUAL"
	case 0x9d:
		return "OP_NUMEQUALVERIFY"
	case 0x9e:
		return "OP_NUMNOTEQUAL"
	case 0x9f:
		return "OP_LESSTHAN"
	case 0xa0:
		return "OP_GREATERTHAN"
	case 0xa1:
		return "OP_LESSTHANOREQUAL"
	case 0xa2:
		return "OP_GREATERTHANOREQUAL"
	case 0xa3:
		return "OP_MIN"
	case 0xa4:
		return "OP_MAX"
	case 0xa5:
		return "OP_WITHIN"
	case 0xa6:
		return "OP_RIPEMD160"
	case 0xa7:
		return "OP_SHA1"
	case 0xa8:
		return "OP_SHA256"
	case 0xa9:
		return "OP_HASH160"
	case 0xaa:
		return "OP_HASH256"
	case 0xab:
		return "OP_CODESEPARATOR"
	case 0xac:
		return "OP_CHECKSIG"
	case 0xad:
		return "OP_CHECKSIGVERIFY"
	case 0xae:
		return "OP_CHECKMULTISIG"
	case 0xaf:
		return "OP_CHECKMULTISIGVERIFY"
	case 0xb0:
		return "OP_NOP1"
	case 0xb1:
		return OpCheckLockTimeVerify
	case 0xb2:
		return OpCheckSequenceVerify
	case 0xb3:
		return "OP_NOP4"
	case 0xb4:
		return "OP_NOP5"
	case 0xb5:
		return "OP_NOP6"
	case 0xb6:
		return "OP_NOP7"
	case 0xb7:
		return "OP_NOP8"
	case 0xb8:
		return "OP_NOP9"
	case 0xb9:
		return "OP_NOP10"
	case 0xba:
		return "OP_CHECKSIGADD"
	case 0xfd:
		return "OP_PUBKEYHASH"
	case 0xfe:
		return "OP_PUBKEY"
	case 0xff:
		return "OP_INVALIDOPCODE"
	}
	return fmt.Sprintf("OP_UNKNOWN_0x%02x", op)
}

// ParseOpReturn extracts the concatenated data pushes from an OP_RETURN
// output script and tags a couple of well-known protocol prefixes. Data
// collection stops at the first non-push instruction after OP_RETURN,
// since a well-formed OP_RETURN output carries pushes only.
func ParseOpReturn(script []byte) (dataHex string, dataUtf8 *string, protocol string) {
	if len(script) == 0 || script[0] != 0x6a {
		return "", nil, "unknown"
	}

	var allData []byte
	for _, op := range DecodeScript(script)[1:] {
		if op.Data == nil {
			break
		}
		allData = append(allData, op.Data...)
	}

	dataHex = hex.EncodeToString(allData)

	if len(allData) > 0 && isValidUTF8(allData) {
		str := string(allData)
		dataUtf8 = &str
	}

	switch {
	case len(allData) >= 4 && bytes.Equal(allData[:4], []byte{0x6f, 0x6d, 0x6e, 0x69}):
		protocol = "omni"
	case len(allData) >= 5 && bytes.Equal(allData[:5], []byte{0x01, 0x09, 0xf9, 0x11, 0x02}):
		protocol = "opentimestamps"
	default:
		protocol = "unknown"
	}

	return dataHex, dataUtf8, protocol
}

func isValidUTF8(data []byte) bool {
	s := string(data)
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}
