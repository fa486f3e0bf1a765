package report

import (
	"fmt"
	"io"
	"strings"

	"cltvscan/pkg/types"
)

const ruleWidth = 72

func rule() string {
	return strings.Repeat("─", ruleWidth)
}

// PrintTimelockAnalysis writes a human-readable rendering of a
// TransactionAnalysis in a title/rule/grouped-section layout.
func PrintTimelockAnalysis(w io.Writer, analysis *types.TransactionAnalysis) {
	fmt.Fprintf(w, "Transaction: %s\n", analysis.Txid)
	fmt.Fprintln(w, rule())

	raw := ""
	if analysis.NLockTime.RawValue > 0 {
		raw = fmt.Sprintf(" (raw: %d)", analysis.NLockTime.RawValue)
	}
	fmt.Fprintf(w, "nLockTime:   %s%s\n\n", analysis.NLockTime.HumanReadable, raw)

	fmt.Fprintf(w, "Inputs (%d):\n", len(analysis.Inputs))
	for _, in := range analysis.Inputs {
		fmt.Fprintf(w, "  [%d] %s — %s\n", in.InputIndex, in.RawHex, sequenceMeaningText(in))
	}

	if len(analysis.CltvTimelocks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "OP_CHECKLOCKTIMEVERIFY (%d):\n", len(analysis.CltvTimelocks))
		for _, tl := range analysis.CltvTimelocks {
			fmt.Fprintf(w, "  input[%d] %s: %s (raw: %d)\n", tl.InputIndex, tl.ScriptField, tl.HumanReadable, tl.RawValue)
		}
	}

	if len(analysis.CsvTimelocks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "OP_CHECKSEQUENCEVERIFY (%d):\n", len(analysis.CsvTimelocks))
		for _, tl := range analysis.CsvTimelocks {
			fmt.Fprintf(w, "  input[%d] %s: %s (raw: %d)\n", tl.InputIndex, tl.ScriptField, tl.HumanReadable, tl.RawValue)
		}
	}

	fmt.Fprintln(w)
	if analysis.Summary.HasActiveTimelocks {
		var parts []string
		if analysis.Summary.NlocktimeActive {
			parts = append(parts, "nLockTime")
		}
		if analysis.Summary.RelativeTimelockCount > 0 {
			parts = append(parts, fmt.Sprintf("%d nSequence", analysis.Summary.RelativeTimelockCount))
		}
		if analysis.Summary.CltvCount > 0 {
			parts = append(parts, fmt.Sprintf("%d CLTV", analysis.Summary.CltvCount))
		}
		if analysis.Summary.CsvCount > 0 {
			parts = append(parts, fmt.Sprintf("%d CSV", analysis.Summary.CsvCount))
		}
		fmt.Fprintf(w, "Active timelocks: %s\n", strings.Join(parts, ", "))
	} else {
		fmt.Fprintln(w, "No active timelocks.")
	}
}

func sequenceMeaningText(in types.InputSequenceInfo) string {
	switch in.Meaning {
	case types.SequenceFinal:
		return "final"
	case types.SequenceLocktimeEnabled:
		return "locktime enabled"
	case types.SequenceRbfEnabled:
		return "RBF + locktime"
	case types.SequenceRelativeTimelock:
		if in.RelativeTimelock != nil {
			return "relative timelock: " + in.RelativeTimelock.HumanReadable
		}
		return "relative timelock"
	default:
		return "non-standard"
	}
}

// PrintLightningClassification writes a human-readable rendering of a
// LightningClassification.
func PrintLightningClassification(w io.Writer, txid string, lc *types.LightningClassification) {
	fmt.Fprintf(w, "Transaction: %s\n", txid)
	fmt.Fprintln(w, rule())

	if lc.TxType == nil {
		fmt.Fprintln(w, "Lightning: not identified")
	} else {
		fmt.Fprintf(w, "Lightning:   %s [%s]\n", txTypeText(*lc.TxType), lc.Confidence)
	}

	s := lc.CommitmentSignals
	if s.LocktimeMatch || s.SequenceMatch || s.HasAnchorOutputs {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Commitment signals:")
		if s.LocktimeMatch {
			fmt.Fprintln(w, "  locktime in 0x20 range (Lightning encoding)")
		}
		if s.SequenceMatch {
			fmt.Fprintln(w, "  sequence with 0x80 upper byte")
		}
		if s.HasAnchorOutputs {
			fmt.Fprintf(w, "  %d anchor output(s) (330 sats)\n", s.AnchorOutputCount)
		}
	}

	p := lc.Params
	hasParams := p.CommitmentNumber != nil || p.CltvExpiry != nil || p.PreimageRevealed ||
		len(p.CsvDelays) > 0 || p.HtlcOutputCount != nil

	if hasParams {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Parameters:")
		if p.CommitmentNumber != nil {
			fmt.Fprintf(w, "  commitment number: %d (obscured)\n", *p.CommitmentNumber)
		}
		if p.HtlcOutputCount != nil {
			fmt.Fprintf(w, "  HTLC outputs: %d\n", *p.HtlcOutputCount)
		}
		if p.CltvExpiry != nil {
			fmt.Fprintf(w, "  CLTV expiry: block %d\n", *p.CltvExpiry)
		}
		if p.PreimageRevealed {
			if p.Preimage != nil {
				fmt.Fprintf(w, "  preimage: %s\n", *p.Preimage)
			} else {
				fmt.Fprintln(w, "  preimage: revealed")
			}
		}
		if len(p.CsvDelays) > 0 {
			delays := make([]string, len(p.CsvDelays))
			for i, d := range p.CsvDelays {
				delays[i] = fmt.Sprintf("%d blocks", d)
			}
			fmt.Fprintf(w, "  CSV delays: %s\n", strings.Join(delays, ", "))
		}
	}
}

func txTypeText(t types.LightningTxType) string {
	switch t {
	case types.TxCommitment:
		return "Commitment (force-close)"
	case types.TxHtlcTimeout:
		return "HTLC-timeout (refund)"
	case types.TxHtlcSuccess:
		return "HTLC-success (claim)"
	default:
		return string(t)
	}
}
