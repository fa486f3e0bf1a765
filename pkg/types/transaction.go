// Package types holds the immutable value types the forensic core
// operates on: the TransactionRecord shape it consumes, and the
// TransactionAnalysis / LightningClassification shapes it produces.
// Nothing in this package has behavior.
package types

// TransactionRecord is the shape the Timelock Extractor and Lightning
// Classifier consume. It is owned by the external data source (a node
// or indexer); the core never constructs one itself, only reads it.
type TransactionRecord struct {
	Txid     string   `json:"txid"`
	Version  int32    `json:"version"`
	Locktime uint32   `json:"locktime"`
	Vin      []Input  `json:"vin"`
	Vout     []Output `json:"vout"`
	Size     int      `json:"size"`
	Weight   int      `json:"weight"`
}

// Input is one transaction input as consumed by the core.
type Input struct {
	Txid                  string   `json:"txid"`
	Vout                  uint32   `json:"vout"`
	ScriptsigHex          string   `json:"scriptsig"`
	ScriptsigAsm          string   `json:"scriptsig_asm"`
	InnerRedeemscriptAsm  *string  `json:"inner_redeemscript_asm,omitempty"`
	InnerWitnessscriptAsm *string  `json:"inner_witnessscript_asm,omitempty"`
	Witness               []string `json:"witness,omitempty"`
	IsCoinbase            bool     `json:"is_coinbase"`
	Sequence              uint32   `json:"sequence"`
}

// Output is one transaction output as consumed by the core.
type Output struct {
	ScriptpubkeyHex     string  `json:"scriptpubkey"`
	ScriptpubkeyAsm     string  `json:"scriptpubkey_asm"`
	ScriptpubkeyType    string  `json:"scriptpubkey_type"`
	ScriptpubkeyAddress *string `json:"scriptpubkey_address,omitempty"`
	Value               uint64  `json:"value"`
}
