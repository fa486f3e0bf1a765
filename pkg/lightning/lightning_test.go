package lightning

import (
	"strings"
	"testing"

	"cltvscan/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p2wshOutput(value uint64) types.Output {
	return types.Output{ScriptpubkeyType: "v0_p2wsh", Value: value}
}

func p2wpkhOutput(value uint64) types.Output {
	return types.Output{ScriptpubkeyType: "v0_p2wpkh", Value: value}
}

// P1: Classify is pure.
func TestClassify_Purity(t *testing.T) {
	tx := &types.TransactionRecord{
		Locktime: 0x20000042,
		Vin:      []types.Input{{Sequence: 0x80000001}},
		Vout:     []types.Output{p2wshOutput(330), p2wshOutput(330)},
	}
	c1 := Classify(tx)
	c2 := Classify(tx)
	assert.Equal(t, c1, c2)
}

// P2: any coinbase input forces the zero classification.
func TestClassify_CoinbaseExclusion(t *testing.T) {
	tx := &types.TransactionRecord{
		Locktime: 0x20000042,
		Vin:      []types.Input{{IsCoinbase: true, Sequence: 0x80000001}},
	}
	c := Classify(tx)
	assert.Nil(t, c.TxType)
	assert.Equal(t, types.ConfidenceNone, c.Confidence)
}

// P3: confidence never decreases as more commitment signals match.
func TestCommitmentConfidence_Monotonic(t *testing.T) {
	none := commitmentConfidence(types.CommitmentSignals{})
	one := commitmentConfidence(types.CommitmentSignals{LocktimeMatch: true})
	two := commitmentConfidence(types.CommitmentSignals{LocktimeMatch: true, SequenceMatch: true})
	three := commitmentConfidence(types.CommitmentSignals{LocktimeMatch: true, SequenceMatch: true, HasAnchorOutputs: true})

	assert.LessOrEqual(t, int(none), int(one))
	assert.LessOrEqual(t, int(one), int(two))
	assert.LessOrEqual(t, int(two), int(three))
}

// P4: is_lightning_locktime boundary, exhaustively at the named edges.
func TestIsLightningLocktime_Boundary(t *testing.T) {
	cases := []struct {
		locktime uint32
		want     bool
	}{
		{0x1FFFFFFF, false},
		{0x20000000, true},
		{0x20FFFFFF, true},
		{0x21000000, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isLightningLocktime(c.locktime))
	}
}

// P7: commitment-number round-trip across the 24-bit space (sampled).
func TestExtractCommitmentParams_RoundTrip(t *testing.T) {
	samples := []struct{ l24, s24 uint32 }{
		{0x000000, 0x000000},
		{0xABCDEF, 0x123456},
		{0xFFFFFF, 0xFFFFFF},
		{0x000001, 0xFFFFFE},
	}
	for _, s := range samples {
		tx := &types.TransactionRecord{
			Locktime: 0x20000000 | s.l24,
			Vin:      []types.Input{{Sequence: 0x80000000 | s.s24}},
			Vout:     []types.Output{p2wshOutput(330)},
		}
		signals := detectCommitmentSignals(tx)
		params := extractCommitmentParams(tx, signals)
		require.NotNil(t, params.CommitmentNumber)
		want := (uint64(s.s24) << 24) | uint64(s.l24)
		assert.Equal(t, want, *params.CommitmentNumber)
	}
}

// S1 — Regular transaction: no Lightning signals at all.
func TestClassify_S1_RegularTransaction(t *testing.T) {
	tx := &types.TransactionRecord{
		Locktime: 0,
		Vin:      []types.Input{{Sequence: 0xFFFFFFFF}},
		Vout:     []types.Output{p2wpkhOutput(50000), p2wpkhOutput(60000)},
	}
	c := Classify(tx)
	assert.Nil(t, c.TxType)
	assert.Equal(t, types.ConfidenceNone, c.Confidence)
	assert.False(t, detectCommitmentSignals(tx).LocktimeMatch)
}

// S2 — Anchor commitment, HighlyLikely.
func TestClassify_S2_AnchorCommitment(t *testing.T) {
	tx := &types.TransactionRecord{
		Locktime: 0x20000042,
		Vin:      []types.Input{{Sequence: 0x80000001}},
		Vout: []types.Output{
			p2wshOutput(100000),
			p2wpkhOutput(200000),
			p2wshOutput(330),
			p2wshOutput(330),
		},
	}
	c := Classify(tx)
	require.NotNil(t, c.TxType)
	assert.Equal(t, types.TxCommitment, *c.TxType)
	assert.Equal(t, types.ConfidenceHighlyLikely, c.Confidence)
	assert.Equal(t, uint32(2), c.CommitmentSignals.AnchorOutputCount)
}

// S3 — Older commitment with no anchors: Possible or higher.
func TestClassify_S3_OlderCommitmentNoAnchors(t *testing.T) {
	tx := &types.TransactionRecord{
		Locktime: 0x20000100,
		Vin:      []types.Input{{Sequence: 0x80000005}},
		Vout:     []types.Output{p2wshOutput(100000), p2wpkhOutput(50000)},
	}
	c := Classify(tx)
	require.NotNil(t, c.TxType)
	assert.Equal(t, types.TxCommitment, *c.TxType)
	assert.GreaterOrEqual(t, int(c.Confidence), int(types.ConfidencePossible))
	assert.False(t, c.CommitmentSignals.HasAnchorOutputs)
}

// S4 — Commitment number recovery.
func TestClassify_S4_CommitmentNumberRecovery(t *testing.T) {
	tx := &types.TransactionRecord{
		Locktime: 0x20ABCDEF,
		Vin:      []types.Input{{Sequence: 0x80123456}},
		Vout:     []types.Output{p2wshOutput(330)},
	}
	c := Classify(tx)
	require.NotNil(t, c.Params.CommitmentNumber)
	assert.Equal(t, uint64(0x123456ABCDEF), *c.Params.CommitmentNumber)
}

// S5 — HTLC-timeout.
func TestClassify_S5_HtlcTimeout(t *testing.T) {
	witnessScript := "OP_CHECKLOCKTIMEVERIFY OP_DROP 1 OP_CHECKSEQUENCEVERIFY OP_DROP"
	tx := &types.TransactionRecord{
		Locktime: 886100,
		Vin: []types.Input{
			{
				Sequence:              0xFFFFFFFE,
				Witness:               []string{"", "3045", "00"},
				InnerWitnessscriptAsm: &witnessScript,
			},
		},
	}
	c := Classify(tx)
	require.NotNil(t, c.TxType)
	assert.Equal(t, types.TxHtlcTimeout, *c.TxType)
	assert.Equal(t, types.ConfidenceHighlyLikely, c.Confidence)
	require.NotNil(t, c.Params.CltvExpiry)
	assert.Equal(t, uint32(886100), *c.Params.CltvExpiry)
}

// S6 — HTLC-success: preimage revealed.
func TestClassify_S6_HtlcSuccess(t *testing.T) {
	preimage := strings.Repeat("ab", 32)
	witnessScript := "OP_CSV OP_DROP"
	tx := &types.TransactionRecord{
		Locktime: 0,
		Vin: []types.Input{
			{
				Sequence:              0xFFFFFFFE,
				Witness:               []string{preimage, "3045"},
				InnerWitnessscriptAsm: &witnessScript,
			},
		},
	}
	c := Classify(tx)
	require.NotNil(t, c.TxType)
	assert.Equal(t, types.TxHtlcSuccess, *c.TxType)
	assert.True(t, c.Params.PreimageRevealed)
	require.NotNil(t, c.Params.Preimage)
	assert.Equal(t, preimage, *c.Params.Preimage)
}

// S7 — False preimage (non-hex) is not treated as a preimage.
func TestClassify_S7_FalsePreimageNonHex(t *testing.T) {
	notHex := strings.Repeat("zz", 32)
	tx := &types.TransactionRecord{
		Vin: []types.Input{{Witness: []string{notHex}}},
	}
	signals := detectHtlcSignals(tx)
	assert.False(t, signals.HasPreimage)
}

// S8 — Commitment priority over HTLC when both patterns are present.
func TestClassify_S8_CommitmentPriorityOverHtlc(t *testing.T) {
	preimage := strings.Repeat("ab", 32)
	witnessScript := "OP_CHECKSEQUENCEVERIFY OP_DROP"
	tx := &types.TransactionRecord{
		Locktime: 0x20000042,
		Vin: []types.Input{
			{
				Sequence:              0x80000001,
				Witness:               []string{preimage},
				InnerWitnessscriptAsm: &witnessScript,
			},
		},
		Vout: []types.Output{p2wshOutput(330), p2wshOutput(330)},
	}
	c := Classify(tx)
	require.NotNil(t, c.TxType)
	assert.Equal(t, types.TxCommitment, *c.TxType)
	assert.NotEqual(t, types.TxHtlcSuccess, *c.TxType)
}

// S9 — CSV delay extraction from a branching witness script.
func TestExtractCsvDelays_S9(t *testing.T) {
	witnessScript := "OP_IF abc OP_ELSE 144 OP_CHECKSEQUENCEVERIFY OP_DROP def OP_ENDIF"
	tx := &types.TransactionRecord{
		Vin: []types.Input{{InnerWitnessscriptAsm: &witnessScript}},
	}
	delays := extractCsvDelays(tx)
	assert.Contains(t, delays, uint16(144))
}

// S10 — Locktime just below the Lightning encoding range.
func TestClassify_S10_BoundaryBelowRange(t *testing.T) {
	tx := &types.TransactionRecord{Locktime: 0x1FFFFFFF}
	signals := detectCommitmentSignals(tx)
	assert.False(t, signals.LocktimeMatch)
}
