// Package timelock implements the Timelock Extractor: it decomposes a
// transaction's nLockTime, per-input nSequence fields, and witness/redeem
// scripts into the precise set of active timelock predicates, honoring
// BIP-65/68/112/113 bit layouts. Analyze never fails — a forensic tool
// must gracefully tolerate unusual or adversarial transactions.
package timelock

import (
	"fmt"

	"cltvscan/pkg/scanner"
	"cltvscan/pkg/types"
)

const lightningEncodingThreshold = 500_000_000

// Analyze is the Timelock Extractor's single entry point.
func Analyze(tx *types.TransactionRecord) *types.TransactionAnalysis {
	nlocktime := classifyNLockTime(tx.Locktime)

	inputs := make([]types.InputSequenceInfo, 0, len(tx.Vin))
	anySequenceBelowFinal := false
	for i, in := range tx.Vin {
		info := classifySequence(i, in.Sequence)
		inputs = append(inputs, info)
		if in.Sequence < 0xFFFFFFFF {
			anySequenceBelowFinal = true
		}
	}

	var cltv, csv []types.ScriptTimelock
	for i, in := range tx.Vin {
		cltv = append(cltv, scriptTimelocks(i, types.FieldScriptSig, in.ScriptsigAsm, scanner.OpCheckLockTimeVerify, scanner.OpCltvAlias, interpretCLTV)...)
		if in.InnerRedeemscriptAsm != nil {
			cltv = append(cltv, scriptTimelocks(i, types.FieldRedeemScript, *in.InnerRedeemscriptAsm, scanner.OpCheckLockTimeVerify, scanner.OpCltvAlias, interpretCLTV)...)
		}
		if in.InnerWitnessscriptAsm != nil {
			cltv = append(cltv, scriptTimelocks(i, types.FieldWitnessScript, *in.InnerWitnessscriptAsm, scanner.OpCheckLockTimeVerify, scanner.OpCltvAlias, interpretCLTV)...)
		}

		csv = append(csv, scriptTimelocks(i, types.FieldScriptSig, in.ScriptsigAsm, scanner.OpCheckSequenceVerify, scanner.OpCsvAlias, interpretCSV)...)
		if in.InnerRedeemscriptAsm != nil {
			csv = append(csv, scriptTimelocks(i, types.FieldRedeemScript, *in.InnerRedeemscriptAsm, scanner.OpCheckSequenceVerify, scanner.OpCsvAlias, interpretCSV)...)
		}
		if in.InnerWitnessscriptAsm != nil {
			csv = append(csv, scriptTimelocks(i, types.FieldWitnessScript, *in.InnerWitnessscriptAsm, scanner.OpCheckSequenceVerify, scanner.OpCsvAlias, interpretCSV)...)
		}
	}

	relativeCount := 0
	for _, in := range inputs {
		if in.Meaning == types.SequenceRelativeTimelock {
			relativeCount++
		}
	}

	nlocktimeActive := nlocktime.Kind != types.NLockTimeDisabled && anySequenceBelowFinal

	summary := types.AnalysisSummary{
		NlocktimeActive:       nlocktimeActive,
		RelativeTimelockCount: relativeCount,
		CltvCount:             len(cltv),
		CsvCount:              len(csv),
	}
	summary.HasActiveTimelocks = summary.NlocktimeActive || summary.RelativeTimelockCount > 0 ||
		summary.CltvCount > 0 || summary.CsvCount > 0

	return &types.TransactionAnalysis{
		Txid:          tx.Txid,
		NLockTime:     nlocktime,
		Inputs:        inputs,
		CltvTimelocks: cltv,
		CsvTimelocks:  csv,
		Summary:       summary,
	}
}

func classifyNLockTime(locktime uint32) types.NLockTimeInfo {
	switch {
	case locktime == 0:
		return types.NLockTimeInfo{
			RawValue:      locktime,
			Kind:          types.NLockTimeDisabled,
			HumanReadable: "disabled",
		}
	case locktime < lightningEncodingThreshold:
		return types.NLockTimeInfo{
			RawValue:      locktime,
			Kind:          types.NLockTimeBlockHeight,
			HumanReadable: fmt.Sprintf("block %d", locktime),
		}
	default:
		return types.NLockTimeInfo{
			RawValue:      locktime,
			Kind:          types.NLockTimeUnixTime,
			HumanReadable: fmt.Sprintf("unix %d", locktime),
		}
	}
}

// classifySequence implements the BIP-68 (relative locktime)/BIP-112 (CSV)/
// BIP-125 (RBF signaling) decision table: final, RBF-signaling, locktime
// disabled-bit set, or a relative timelock in blocks or 512-second units.
func classifySequence(index int, seq uint32) types.InputSequenceInfo {
	info := types.InputSequenceInfo{
		InputIndex: index,
		RawHex:     fmt.Sprintf("0x%08x", seq),
		Raw:        seq,
	}

	switch {
	case seq == 0xFFFFFFFF:
		info.Meaning = types.SequenceFinal

	case seq == 0xFFFFFFFE || seq == 0xFFFFFFFD:
		info.Meaning = types.SequenceRbfEnabled

	case seq&0x80000000 != 0:
		info.Meaning = types.SequenceLocktimeEnabled

	case seq&0x80000000 == 0:
		info.Meaning = types.SequenceRelativeTimelock
		value := uint16(seq & 0xFFFF)
		if seq&0x00400000 != 0 {
			info.RelativeTimelock = &types.RelativeTimelock{
				Units:         types.UnitTimePeriods,
				Value:         value,
				HumanReadable: fmt.Sprintf("%d seconds (~%s)", uint32(value)*512, humanDuration(uint32(value)*512)),
			}
		} else {
			info.RelativeTimelock = &types.RelativeTimelock{
				Units:         types.UnitBlocks,
				Value:         value,
				HumanReadable: fmt.Sprintf("%d blocks", value),
			}
		}

	default:
		info.Meaning = types.SequenceNonStandard
	}

	return info
}

func humanDuration(seconds uint32) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh", seconds/3600)
	default:
		return fmt.Sprintf("%dd", seconds/86400)
	}
}

// scriptTimelocks scans one script field of one input for occurrences
// of the given opcode (and its alias), recording a ScriptTimelock per
// occurrence.
func scriptTimelocks(
	inputIndex int,
	field types.ScriptField,
	asm string,
	opcode, alias string,
	interpret func(int64) (types.ScriptTimelockInterpretation, string),
) []types.ScriptTimelock {
	tokens := scanner.Tokens(asm)
	var out []types.ScriptTimelock
	for _, idx := range scanner.FindAll(tokens, opcode, alias) {
		raw, ok := scanner.PrecedingNumber(tokens, idx)
		if !ok {
			out = append(out, types.ScriptTimelock{
				InputIndex:    inputIndex,
				ScriptField:   field,
				RawValue:      -1,
				HumanReadable: "unknown",
			})
			continue
		}
		interp, human := interpret(raw)
		out = append(out, types.ScriptTimelock{
			InputIndex:     inputIndex,
			ScriptField:    field,
			RawValue:       raw,
			Interpretation: interp,
			HumanReadable:  human,
		})
	}
	return out
}

func interpretCLTV(raw int64) (types.ScriptTimelockInterpretation, string) {
	if raw < lightningEncodingThreshold {
		return types.InterpAbsoluteBlockHeight, fmt.Sprintf("block %d", raw)
	}
	return types.InterpAbsoluteUnixTime, fmt.Sprintf("unix %d", raw)
}

func interpretCSV(raw int64) (types.ScriptTimelockInterpretation, string) {
	u := uint32(raw)
	if u&0x00400000 != 0 {
		low := u & 0xFFFF
		seconds := low * 512
		return types.InterpRelativeTime, fmt.Sprintf("%d seconds (~%s)", seconds, humanDuration(seconds))
	}
	low := raw & 0xFFFF
	return types.InterpRelativeBlocks, fmt.Sprintf("%d blocks", low)
}
