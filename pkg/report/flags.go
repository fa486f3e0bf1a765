// Package report computes a small set of advisory flags from the two
// analyzers' output. It is informational only — it never rejects or
// validates a transaction, consistent with both analyzers' Non-goals.
package report

import (
	"cltvscan/pkg/lightning"
	"cltvscan/pkg/timelock"
	"cltvscan/pkg/types"
)

// Flag is one advisory code attached to a report.
type Flag struct {
	Code string `json:"code"`
}

const (
	ActiveTimelock      = "ACTIVE_TIMELOCK"
	RbfSignaling        = "RBF_SIGNALING"
	LightningDetected   = "LIGHTNING_DETECTED"
	UnknownOutputScript = "UNKNOWN_OUTPUT_SCRIPT"
)

// Flags derives the closed set of advisory codes applicable to a
// transaction from its timelock analysis and lightning classification.
func Flags(tx *types.TransactionRecord, analysis *types.TransactionAnalysis, lc *types.LightningClassification) []Flag {
	flags := make([]Flag, 0, 4)

	if analysis.Summary.HasActiveTimelocks {
		flags = append(flags, Flag{Code: ActiveTimelock})
	}

	for _, in := range analysis.Inputs {
		if in.Meaning == types.SequenceRbfEnabled {
			flags = append(flags, Flag{Code: RbfSignaling})
			break
		}
	}

	if lc.TxType != nil {
		flags = append(flags, Flag{Code: LightningDetected})
	}

	for _, out := range tx.Vout {
		if out.ScriptpubkeyType == "unknown" {
			flags = append(flags, Flag{Code: UnknownOutputScript})
			break
		}
	}

	return flags
}

// Analyze is a convenience wrapper running both analyzers and deriving
// flags in one call, for callers (CLI, HTTP server) that want the full
// picture without wiring the two packages together themselves.
func Analyze(tx *types.TransactionRecord) (*types.TransactionAnalysis, *types.LightningClassification, []Flag) {
	analysis := timelock.Analyze(tx)
	lc := lightning.Classify(tx)
	return analysis, lc, Flags(tx, analysis, lc)
}
