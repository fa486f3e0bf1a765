package report

import (
	"testing"

	"cltvscan/pkg/lightning"
	"cltvscan/pkg/timelock"
	"cltvscan/pkg/types"

	"github.com/stretchr/testify/assert"
)

func TestFlags_ActiveTimelockAndRbf(t *testing.T) {
	tx := &types.TransactionRecord{
		Locktime: 700000,
		Vin: []types.Input{
			{Sequence: 0xFFFFFFFE},
		},
		Vout: []types.Output{{ScriptpubkeyType: "v0_p2wpkh"}},
	}
	analysis := timelock.Analyze(tx)
	lc := lightning.Classify(tx)
	flags := Flags(tx, analysis, lc)

	codes := flagCodes(flags)
	assert.Contains(t, codes, ActiveTimelock)
	assert.Contains(t, codes, RbfSignaling)
	assert.NotContains(t, codes, LightningDetected)
	assert.NotContains(t, codes, UnknownOutputScript)
}

func TestFlags_LightningDetected(t *testing.T) {
	tx := &types.TransactionRecord{
		Locktime: 0x20000042,
		Vin:      []types.Input{{Sequence: 0x80000001}},
		Vout: []types.Output{
			{ScriptpubkeyType: "v0_p2wsh", Value: 330},
			{ScriptpubkeyType: "v0_p2wsh", Value: 330},
		},
	}
	analysis := timelock.Analyze(tx)
	lc := lightning.Classify(tx)
	flags := Flags(tx, analysis, lc)

	assert.Contains(t, flagCodes(flags), LightningDetected)
}

func TestFlags_UnknownOutputScript(t *testing.T) {
	tx := &types.TransactionRecord{
		Vin:  []types.Input{{Sequence: 0xFFFFFFFF}},
		Vout: []types.Output{{ScriptpubkeyType: "unknown"}},
	}
	analysis := timelock.Analyze(tx)
	lc := lightning.Classify(tx)
	flags := Flags(tx, analysis, lc)

	assert.Contains(t, flagCodes(flags), UnknownOutputScript)
}

func TestFlags_NoneForPlainTransaction(t *testing.T) {
	tx := &types.TransactionRecord{
		Vin:  []types.Input{{Sequence: 0xFFFFFFFF}},
		Vout: []types.Output{{ScriptpubkeyType: "v0_p2wpkh"}},
	}
	analysis := timelock.Analyze(tx)
	lc := lightning.Classify(tx)
	flags := Flags(tx, analysis, lc)

	assert.Empty(t, flags)
}

func TestAnalyze_WiresBothAnalyzers(t *testing.T) {
	tx := &types.TransactionRecord{
		Vin:  []types.Input{{Sequence: 0xFFFFFFFF}},
		Vout: []types.Output{{ScriptpubkeyType: "v0_p2wpkh"}},
	}
	analysis, lc, flags := Analyze(tx)
	assert.NotNil(t, analysis)
	assert.NotNil(t, lc)
	assert.Empty(t, flags)
}

func flagCodes(flags []Flag) []string {
	codes := make([]string, len(flags))
	for i, f := range flags {
		codes[i] = f.Code
	}
	return codes
}
