package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawTxP2PKHToP2WPKH is a hand-assembled, non-segwit transaction: one
// input spending a P2PKH prevout, one P2WPKH output of 10000 sats,
// locktime disabled.
const rawTxP2PKHToP2WPKH = "010000000111111111111111111111111111111111111111111111111111111111111111110000000000ffffffff011027000000000000160014222222222222222222222222222222222222222200000000"

const prevoutTxid = "1111111111111111111111111111111111111111111111111111111111111111"

func TestFromFixture_P2PKHInput_P2WPKHOutput(t *testing.T) {
	fixture := Fixture{
		Network: "mainnet",
		RawTx:   rawTxP2PKHToP2WPKH,
		Prevouts: []PrevoutInput{
			{Txid: prevoutTxid, Vout: 0, ValueSats: 20000, ScriptPubkeyHex: "76a914333333333333333333333333333333333333333388ac"},
		},
	}

	tx, err := FromFixture(fixture)
	require.NoError(t, err)

	require.Len(t, tx.Vin, 1)
	assert.False(t, tx.Vin[0].IsCoinbase)
	assert.Equal(t, prevoutTxid, tx.Vin[0].Txid)

	require.Len(t, tx.Vout, 1)
	assert.Equal(t, "v0_p2wpkh", tx.Vout[0].ScriptpubkeyType)
	assert.Equal(t, uint64(10000), tx.Vout[0].Value)
	assert.Equal(t, uint32(0), tx.Locktime)
}

func TestFromFixture_MissingPrevout(t *testing.T) {
	fixture := Fixture{
		Network:  "mainnet",
		RawTx:    rawTxP2PKHToP2WPKH,
		Prevouts: nil,
	}

	_, err := FromFixture(fixture)
	assert.Error(t, err)
}

func TestFromFixture_InvalidHex(t *testing.T) {
	_, err := FromFixture(Fixture{RawTx: "not-hex"})
	assert.Error(t, err)
}

func TestFromFixture_DuplicatePrevout(t *testing.T) {
	fixture := Fixture{
		RawTx: rawTxP2PKHToP2WPKH,
		Prevouts: []PrevoutInput{
			{Txid: prevoutTxid, Vout: 0, ValueSats: 1, ScriptPubkeyHex: "00"},
			{Txid: prevoutTxid, Vout: 0, ValueSats: 2, ScriptPubkeyHex: "00"},
		},
	}
	_, err := FromFixture(fixture)
	assert.Error(t, err)
}
