package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens_EmptyIsNonNil(t *testing.T) {
	tokens := Tokens("")
	assert.NotNil(t, tokens)
	assert.Empty(t, tokens)
}

func TestContainsCLTV_CanonicalAndAlias(t *testing.T) {
	assert.True(t, ContainsCLTV("100 OP_CHECKLOCKTIMEVERIFY OP_DROP"))
	assert.True(t, ContainsCLTV("100 OP_CLTV OP_DROP"))
	assert.False(t, ContainsCLTV("100 OP_CHECKSEQUENCEVERIFY"))
}

func TestContainsCSV_CanonicalAndAlias(t *testing.T) {
	assert.True(t, ContainsCSV("100 OP_CHECKSEQUENCEVERIFY OP_DROP"))
	assert.True(t, ContainsCSV("100 OP_CSV OP_DROP"))
}

func TestPrecedingNumber(t *testing.T) {
	tokens := Tokens("700000 OP_CHECKLOCKTIMEVERIFY OP_DROP")
	v, ok := PrecedingNumber(tokens, 1)
	assert.True(t, ok)
	assert.Equal(t, int64(700000), v)

	_, ok = PrecedingNumber(tokens, 0)
	assert.False(t, ok)

	hexTokens := Tokens("0x90 OP_CHECKLOCKTIMEVERIFY")
	_, ok = PrecedingNumber(hexTokens, 1)
	assert.False(t, ok)
}

func TestFindAll(t *testing.T) {
	tokens := Tokens("1 OP_CHECKSEQUENCEVERIFY OP_DROP 2 OP_CSV")
	idxs := FindAll(tokens, OpCheckSequenceVerify, OpCsvAlias)
	assert.Equal(t, []int{1, 4}, idxs)
}

func TestDisassemble_PushBytes(t *testing.T) {
	// OP_PUSHBYTES_2 0xabcd
	asm := Disassemble([]byte{0x02, 0xab, 0xcd})
	assert.Equal(t, "OP_PUSHBYTES_2 abcd", asm)
}

func TestDisassemble_NamedOpcode(t *testing.T) {
	asm := Disassemble([]byte{0xb1}) // OP_CHECKLOCKTIMEVERIFY
	assert.Equal(t, "OP_CHECKLOCKTIMEVERIFY", asm)
}

func TestDisassemble_Empty(t *testing.T) {
	assert.Equal(t, "", Disassemble(nil))
}

func TestClassifyOutputScript(t *testing.T) {
	p2pkh := append([]byte{0x76, 0xa9, 0x14}, make([]byte, 20)...)
	p2pkh = append(p2pkh, 0x88, 0xac)
	assert.Equal(t, "p2pkh", ClassifyOutputScript(p2pkh))

	p2wpkh := append([]byte{0x00, 0x14}, make([]byte, 20)...)
	assert.Equal(t, "v0_p2wpkh", ClassifyOutputScript(p2wpkh))

	p2wsh := append([]byte{0x00, 0x20}, make([]byte, 32)...)
	assert.Equal(t, "v0_p2wsh", ClassifyOutputScript(p2wsh))

	p2tr := append([]byte{0x51, 0x20}, make([]byte, 32)...)
	assert.Equal(t, "v1_p2tr", ClassifyOutputScript(p2tr))

	assert.Equal(t, "op_return", ClassifyOutputScript([]byte{0x6a, 0x00}))
	assert.Equal(t, "unknown", ClassifyOutputScript(nil))
}

func TestParseOpReturn_Unknown(t *testing.T) {
	_, _, protocol := ParseOpReturn([]byte{0x6a, 0x01, 0xff})
	assert.Equal(t, "unknown", protocol)
}

func TestParseOpReturn_NotOpReturn(t *testing.T) {
	dataHex, dataUtf8, protocol := ParseOpReturn([]byte{0x51})
	assert.Equal(t, "", dataHex)
	assert.Nil(t, dataUtf8)
	assert.Equal(t, "unknown", protocol)
}
