package scanner

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// ClassifyOutputScript recognizes the handful of output script
// templates the Ingestion Adapter needs a type tag for.
func ClassifyOutputScript(scriptPubkey []byte) string {
	if len(scriptPubkey) == 0 {
		return "unknown"
	}

	switch {
	case len(scriptPubkey) == 25 &&
		scriptPubkey[0] == 0x76 && // OP_DUP
		scriptPubkey[1] == 0xa9 && // OP_HASH160
		scriptPubkey[2] == 0x14 && // push 20
		scriptPubkey[23] == 0x88 && // OP_EQUALVERIFY
		scriptPubkey[24] == 0xac: // OP_CHECKSIG
		return "p2pkh"

	case len(scriptPubkey) == 23 &&
		scriptPubkey[0] == 0xa9 && // OP_HASH160
		scriptPubkey[1] == 0x14 && // push 20
		scriptPubkey[22] == 0x87: // OP_EQUAL
		return "p2sh"

	case len(scriptPubkey) == 22 &&
		scriptPubkey[0] == 0x00 &&
		scriptPubkey[1] == 0x14:
		return "v0_p2wpkh"

	case len(scriptPubkey) == 34 &&
		scriptPubkey[0] == 0x00 &&
		scriptPubkey[1] == 0x20:
		return "v0_p2wsh"

	case len(scriptPubkey) == 34 &&
		scriptPubkey[0] == 0x51 &&
		scriptPubkey[1] == 0x20:
		return "v1_p2tr"

	case scriptPubkey[0] == 0x6a:
		return "op_return"
	}

	return "unknown"
}

// ClassifyInputScript recognizes the input-side spending pattern given
// its scriptSig, witness stack, and the prevout script it spends.
func ClassifyInputScript(scriptSig []byte, witness [][]byte, prevoutScript []byte) string {
	hasWitness := len(witness) > 0
	scriptSigEmpty := len(scriptSig) == 0
	prevoutType := ClassifyOutputScript(prevoutScript)

	if scriptSigEmpty && len(witness) == 1 && (len(witness[0]) == 64 || len(witness[0]) == 65) && prevoutType == "v1_p2tr" {
		return "p2tr_keypath"
	}

	if scriptSigEmpty && len(witness) > 1 && prevoutType == "v1_p2tr" {
		lastItem := witness[len(witness)-1]
		if len(lastItem) > 0 && (lastItem[0]&0xfe) == 0xc0 {
			return "p2tr_scriptpath"
		}
	}

	if scriptSigEmpty && len(witness) == 2 && prevoutType == "v0_p2wpkh" {
		return "v0_p2wpkh"
	}

	if scriptSigEmpty && hasWitness && prevoutType == "v0_p2wsh" {
		return "v0_p2wsh"
	}

	if len(scriptSig) == 23 && scriptSig[0] == 0x16 && scriptSig[1] == 0x00 && scriptSig[2] == 0x14 && len(witness) == 2 {
		return "p2sh-p2wpkh"
	}

	if len(scriptSig) == 35 && scriptSig[0] == 0x22 && scriptSig[1] == 0x00 && scriptSig[2] == 0x20 && hasWitness {
		return "p2sh-p2wsh"
	}

	if !scriptSigEmpty && !hasWitness && prevoutType == "p2pkh" {
		return "p2pkh"
	}

	if scriptSigEmpty && !hasWitness {
		switch prevoutType {
		case "p2pkh", "p2sh":
			return prevoutType
		}
	}

	return "unknown"
}

// AddressFromScript derives the receiving address for a scriptPubKey,
// or nil if the script type carries no address (OP_RETURN, unknown).
func AddressFromScript(scriptPubkey []byte, network string) *string {
	scriptType := ClassifyOutputScript(scriptPubkey)

	var netParams *chaincfg.Params
	if network == "mainnet" {
		netParams = &chaincfg.MainNetParams
	} else {
		netParams = &chaincfg.TestNet3Params
	}

	var addr btcutil.Address
	var err error

	switch scriptType {
	case "p2pkh":
		if len(scriptPubkey) != 25 {
			return nil
		}
		addr, err = btcutil.NewAddressPubKeyHash(scriptPubkey[3:23], netParams)

	case "p2sh":
		if len(scriptPubkey) != 23 {
			return nil
		}
		addr, err = btcutil.NewAddressScriptHash(scriptPubkey[2:22], netParams)

	case "v0_p2wpkh":
		if len(scriptPubkey) != 22 {
			return nil
		}
		addr, err = btcutil.NewAddressWitnessPubKeyHash(scriptPubkey[2:22], netParams)

	case "v0_p2wsh":
		if len(scriptPubkey) != 34 {
			return nil
		}
		addr, err = btcutil.NewAddressWitnessScriptHash(scriptPubkey[2:34], netParams)

	case "v1_p2tr":
		if len(scriptPubkey) != 34 {
			return nil
		}
		addr, err = btcutil.NewAddressTaproot(scriptPubkey[2:34], netParams)

	default:
		return nil
	}

	if err != nil {
		return nil
	}

	addrStr := addr.EncodeAddress()
	return &addrStr
}
