// Package ingest is the Ingestion Adapter: it turns raw wire-format
// Bitcoin data (a hex transaction plus its prevout set, or a decoded
// block) into the types.TransactionRecord values the forensic core
// consumes. It is not part of the core itself — a real deployment
// would plug in its own data source here.
package ingest

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"cltvscan/pkg/scanner"
	"cltvscan/pkg/types"

	"github.com/btcsuite/btcd/wire"
)

// Fixture is the on-disk JSON shape accepted by the CLI and HTTP server.
type Fixture struct {
	Network  string         `json:"network"`
	RawTx    string         `json:"raw_tx"`
	Prevouts []PrevoutInput `json:"prevouts"`
}

// PrevoutInput is one entry of a Fixture's prevout set, keyed by the
// outpoint it funds.
type PrevoutInput struct {
	Txid            string `json:"txid"`
	Vout            uint32 `json:"vout"`
	ValueSats       int64  `json:"value_sats"`
	ScriptPubkeyHex string `json:"scriptpubkey_hex"`
}

const coinbaseNullHash = "0000000000000000000000000000000000000000000000000000000000000000"

// FromFixture decodes fixture.RawTx and matches each non-coinbase input
// against fixture.Prevouts by "txid:vout", producing a fully classified
// TransactionRecord.
func FromFixture(fixture Fixture) (*types.TransactionRecord, error) {
	rawTxBytes, err := hex.DecodeString(fixture.RawTx)
	if err != nil {
		return nil, fmt.Errorf("invalid raw_tx hex: %w", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(rawTxBytes)); err != nil {
		return nil, fmt.Errorf("failed to deserialize transaction: %w", err)
	}

	prevoutMap := make(map[string]PrevoutInput, len(fixture.Prevouts))
	for _, p := range fixture.Prevouts {
		key := fmt.Sprintf("%s:%d", p.Txid, p.Vout)
		if _, exists := prevoutMap[key]; exists {
			return nil, errors.New("duplicate prevout in fixture")
		}
		prevoutMap[key] = p
	}

	for _, txIn := range tx.TxIn {
		if isCoinbaseOutpoint(txIn) {
			continue
		}
		key := fmt.Sprintf("%s:%d", txIn.PreviousOutPoint.Hash.String(), txIn.PreviousOutPoint.Index)
		if _, exists := prevoutMap[key]; !exists {
			return nil, fmt.Errorf("missing prevout for input %s", key)
		}
	}

	record := &types.TransactionRecord{
		Txid:     tx.TxHash().String(),
		Version:  tx.Version,
		Locktime: tx.LockTime,
		Size:     tx.SerializeSize(),
	}
	baseSize := tx.SerializeSizeStripped()
	record.Weight = baseSize*3 + record.Size

	record.Vin = make([]types.Input, 0, len(tx.TxIn))
	for _, txIn := range tx.TxIn {
		record.Vin = append(record.Vin, buildInput(txIn, prevoutMap, fixture.Network))
	}

	record.Vout = make([]types.Output, 0, len(tx.TxOut))
	for _, txOut := range tx.TxOut {
		record.Vout = append(record.Vout, buildOutput(txOut, fixture.Network))
	}

	return record, nil
}

func isCoinbaseOutpoint(txIn *wire.TxIn) bool {
	return txIn.PreviousOutPoint.Hash.String() == coinbaseNullHash && txIn.PreviousOutPoint.Index == 0xFFFFFFFF
}

func buildInput(txIn *wire.TxIn, prevoutMap map[string]PrevoutInput, network string) types.Input {
	isCoinbase := isCoinbaseOutpoint(txIn)

	witness := make([]string, 0, len(txIn.Witness))
	for _, item := range txIn.Witness {
		witness = append(witness, hex.EncodeToString(item))
	}

	input := types.Input{
		Witness:      witness,
		IsCoinbase:   isCoinbase,
		Sequence:     txIn.Sequence,
		ScriptsigHex: hex.EncodeToString(txIn.SignatureScript),
		ScriptsigAsm: scanner.Disassemble(txIn.SignatureScript),
	}

	if isCoinbase {
		return input
	}

	input.Txid = txIn.PreviousOutPoint.Hash.String()
	input.Vout = txIn.PreviousOutPoint.Index

	key := fmt.Sprintf("%s:%d", input.Txid, input.Vout)
	prevout := prevoutMap[key]
	prevoutScriptBytes, _ := hex.DecodeString(prevout.ScriptPubkeyHex)
	scriptType := scanner.ClassifyInputScript(txIn.SignatureScript, txIn.Witness, prevoutScriptBytes)

	switch {
	case len(prevoutScriptBytes) == 23 && len(txIn.SignatureScript) > 0:
		// P2SH prevout: the redeem script is the final push in scriptSig.
		redeem := lastScriptSigPush(txIn.SignatureScript)
		if redeem != nil {
			asm := scanner.Disassemble(redeem)
			input.InnerRedeemscriptAsm = &asm
		}
	}

	if (scriptType == "v0_p2wsh" || scriptType == "p2sh-p2wsh") && len(txIn.Witness) > 0 {
		witnessScript := txIn.Witness[len(txIn.Witness)-1]
		asm := scanner.Disassemble(witnessScript)
		input.InnerWitnessscriptAsm = &asm
	}

	return input
}

// lastScriptSigPush returns the final data push of a scriptSig, which
// for a P2SH spend is the redeem script. Small-integer opcodes (OP_0,
// OP_1NEGATE, OP_1..OP_16) carry no data bytes and are skipped; scanning
// stops at OP_PUSHDATA4 or any other non-push opcode.
func lastScriptSigPush(scriptSig []byte) []byte {
	var last []byte
	i := 0
	for i < len(scriptSig) {
		op := scriptSig[i]
		i++
		switch {
		case op == 0x00 || op == 0x4f || (op >= 0x51 && op <= 0x60):
			// no data bytes follow
		case op == 0x4d:
			if i+2 > len(scriptSig) {
				return last
			}
			n := int(scriptSig[i]) | int(scriptSig[i+1])<<8
			i += 2
			if i+n > len(scriptSig) {
				return last
			}
			last = scriptSig[i : i+n]
			i += n
		case op >= 0x01 && op <= 0x4b:
			n := int(op)
			if i+n > len(scriptSig) {
				return last
			}
			last = scriptSig[i : i+n]
			i += n
		case op == 0x4c:
			if i >= len(scriptSig) {
				return last
			}
			n := int(scriptSig[i])
			i++
			if i+n > len(scriptSig) {
				return last
			}
			last = scriptSig[i : i+n]
			i += n
		default:
			return last
		}
	}
	return last
}

func buildOutput(txOut *wire.TxOut, network string) types.Output {
	scriptType := scanner.ClassifyOutputScript(txOut.PkScript)
	output := types.Output{
		ScriptpubkeyHex:  hex.EncodeToString(txOut.PkScript),
		ScriptpubkeyAsm:  scanner.Disassemble(txOut.PkScript),
		ScriptpubkeyType: scriptType,
		Value:            uint64(txOut.Value),
	}
	output.ScriptpubkeyAddress = scanner.AddressFromScript(txOut.PkScript, network)
	return output
}
