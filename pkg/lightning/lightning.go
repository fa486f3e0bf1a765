// Package lightning implements the Lightning Classifier: a layered
// heuristic/signal model over a transaction's locktime encoding,
// sequence encoding, output value patterns (anchor outputs), witness
// contents (preimages), and witness-script opcode patterns, deciding
// Commitment | HtlcTimeout | HtlcSuccess | None with a calibrated
// confidence level.
//
// Lightning channel transactions leave distinctive on-chain footprints
// at each lifecycle stage (BOLT #3): a commitment transaction marks its
// locktime and first-input sequence with the upper bytes 0x20 and 0x80,
// splits an obscured commitment number across their lower 24 bits, and
// may carry 330-sat anchor outputs for CPFP
// fee bumping; its HTLC outputs settle on a second-stage transaction
// that either reveals a payment preimage (HtlcSuccess) or waits out a
// CLTV expiry (HtlcTimeout).
//
// Classify consumes the raw transaction directly; it does not depend on
// the Timelock Extractor's output, so the two analyzers run
// independently of one another.
package lightning

import (
	"cltvscan/pkg/scanner"
	"cltvscan/pkg/types"
)

const anchorOutputValue = 330

// Classify is the Lightning Classifier's single entry point.
func Classify(tx *types.TransactionRecord) *types.LightningClassification {
	for _, in := range tx.Vin {
		if in.IsCoinbase {
			return zeroClassification()
		}
	}

	commitmentSignals := detectCommitmentSignals(tx)
	htlcSignals := detectHtlcSignals(tx)

	if confidence := commitmentConfidence(commitmentSignals); confidence >= types.ConfidencePossible {
		txType := types.TxCommitment
		return &types.LightningClassification{
			TxType:            &txType,
			Confidence:        confidence,
			CommitmentSignals: commitmentSignals,
			HtlcSignals:       htlcSignals,
			Params:            extractCommitmentParams(tx, commitmentSignals),
		}
	}

	if txType, confidence, params, ok := classifyHtlc(tx, htlcSignals); ok {
		return &types.LightningClassification{
			TxType:            &txType,
			Confidence:        confidence,
			CommitmentSignals: commitmentSignals,
			HtlcSignals:       htlcSignals,
			Params:            params,
		}
	}

	return &types.LightningClassification{
		TxType:            nil,
		Confidence:        types.ConfidenceNone,
		CommitmentSignals: commitmentSignals,
		HtlcSignals:       htlcSignals,
		Params:            types.LightningParams{CsvDelays: []uint16{}},
	}
}

func zeroClassification() *types.LightningClassification {
	return &types.LightningClassification{
		TxType:            nil,
		Confidence:        types.ConfidenceNone,
		CommitmentSignals: types.CommitmentSignals{},
		HtlcSignals:       types.HtlcSignals{},
		Params:            types.LightningParams{CsvDelays: []uint16{}},
	}
}

// ─── Commitment detection ───────────────────────────────────────────────

func isLightningLocktime(locktime uint32) bool {
	return (locktime >> 24) == 0x20
}

func isLightningSequence(sequence uint32) bool {
	return (sequence >> 24) == 0x80
}

func detectCommitmentSignals(tx *types.TransactionRecord) types.CommitmentSignals {
	locktimeMatch := isLightningLocktime(tx.Locktime)

	sequenceMatch := false
	for _, in := range tx.Vin {
		if isLightningSequence(in.Sequence) {
			sequenceMatch = true
			break
		}
	}

	var anchorCount uint32
	for _, out := range tx.Vout {
		if out.Value == anchorOutputValue {
			anchorCount++
		}
	}

	return types.CommitmentSignals{
		LocktimeMatch:     locktimeMatch,
		SequenceMatch:     sequenceMatch,
		HasAnchorOutputs:  anchorCount > 0,
		AnchorOutputCount: anchorCount,
	}
}

func commitmentConfidence(s types.CommitmentSignals) types.Confidence {
	score := 0
	if s.LocktimeMatch {
		score++
	}
	if s.SequenceMatch {
		score++
	}
	if s.HasAnchorOutputs {
		score++
	}

	switch {
	case score == 0:
		return types.ConfidenceNone
	case score == 1:
		return types.ConfidencePossible
	default:
		return types.ConfidenceHighlyLikely
	}
}

// extractCommitmentParams recovers the BOLT #3 obscured commitment
// number. Unobscuring requires the channel's payment_basepoint, which
// is off-chain data; we emit the obscured value as-is — an intentional
// terminal state, not a bug.
func extractCommitmentParams(tx *types.TransactionRecord, signals types.CommitmentSignals) types.LightningParams {
	var commitmentNumber *uint64
	if signals.LocktimeMatch && signals.SequenceMatch {
		locktimeLower := uint64(tx.Locktime & 0x00FFFFFF)
		var seqLower uint64
		for _, in := range tx.Vin {
			if isLightningSequence(in.Sequence) {
				seqLower = uint64(in.Sequence & 0x00FFFFFF)
				break
			}
		}
		n := (seqLower << 24) | locktimeLower
		commitmentNumber = &n
	}

	var htlcOutputCount uint32
	for _, out := range tx.Vout {
		if out.ScriptpubkeyType == "v0_p2wsh" && out.Value != anchorOutputValue {
			htlcOutputCount++
		}
	}
	if htlcOutputCount > 0 {
		htlcOutputCount--
	}

	return types.LightningParams{
		CommitmentNumber: commitmentNumber,
		HtlcOutputCount:  &htlcOutputCount,
		CsvDelays:        extractCsvDelays(tx),
	}
}

// ─── HTLC detection ──────────────────────────────────────────────────────

func detectHtlcSignals(tx *types.TransactionRecord) types.HtlcSignals {
	var preimage *string
	scriptHasCltv := false
	scriptHasCsv := false

	for _, in := range tx.Vin {
		if preimage == nil {
			for _, elem := range in.Witness {
				if isPreimageCandidate(elem) {
					e := elem
					preimage = &e
					break
				}
			}
		}

		if in.InnerWitnessscriptAsm != nil {
			if scanner.ContainsCLTV(*in.InnerWitnessscriptAsm) {
				scriptHasCltv = true
			}
			if scanner.ContainsCSV(*in.InnerWitnessscriptAsm) {
				scriptHasCsv = true
			}
		}
	}

	return types.HtlcSignals{
		LocktimeValue: tx.Locktime,
		HasPreimage:   preimage != nil,
		Preimage:      preimage,
		ScriptHasCltv: scriptHasCltv,
		ScriptHasCsv:  scriptHasCsv,
	}
}

func isPreimageCandidate(elem string) bool {
	if len(elem) != 64 {
		return false
	}
	for _, c := range elem {
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}

func isRealisticBlockHeight(locktime uint32) bool {
	return locktime > 0 && locktime < 500_000_000 && (locktime>>24) != 0x20
}

func classifyHtlc(tx *types.TransactionRecord, signals types.HtlcSignals) (types.LightningTxType, types.Confidence, types.LightningParams, bool) {
	hasHtlcScript := signals.ScriptHasCltv || signals.ScriptHasCsv
	if !hasHtlcScript {
		return "", types.ConfidenceNone, types.LightningParams{}, false
	}

	csvDelays := extractCsvDelays(tx)

	switch {
	case signals.HasPreimage && tx.Locktime == 0:
		return types.TxHtlcSuccess, types.ConfidenceHighlyLikely, types.LightningParams{
			PreimageRevealed: true,
			Preimage:         signals.Preimage,
			CsvDelays:        csvDelays,
		}, true

	case !signals.HasPreimage && isRealisticBlockHeight(tx.Locktime):
		expiry := tx.Locktime
		return types.TxHtlcTimeout, types.ConfidenceHighlyLikely, types.LightningParams{
			CltvExpiry: &expiry,
			CsvDelays:  csvDelays,
		}, true

	default:
		params := types.LightningParams{CsvDelays: csvDelays}
		if isRealisticBlockHeight(tx.Locktime) {
			expiry := tx.Locktime
			params.CltvExpiry = &expiry
		}
		return types.TxHtlcTimeout, types.ConfidencePossible, params, true
	}
}

// extractCsvDelays scans every input's witness script for
// OP_CHECKSEQUENCEVERIFY/OP_CSV and collects the preceding numeric
// literal. Duplicates are preserved in encounter order: multiple
// HTLC-like paths often share identical delays.
func extractCsvDelays(tx *types.TransactionRecord) []uint16 {
	delays := []uint16{}
	for _, in := range tx.Vin {
		if in.InnerWitnessscriptAsm == nil {
			continue
		}
		tokens := scanner.Tokens(*in.InnerWitnessscriptAsm)
		for _, idx := range scanner.FindAll(tokens, scanner.OpCheckSequenceVerify, scanner.OpCsvAlias) {
			raw, ok := scanner.PrecedingNumber(tokens, idx)
			if !ok || raw < 0 || raw > 0xFFFF {
				continue
			}
			delays = append(delays, uint16(raw))
		}
	}
	return delays
}
