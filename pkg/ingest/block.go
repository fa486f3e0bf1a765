package ingest

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"cltvscan/pkg/types"

	btcec "github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// DecodedBlock is the result of decoding a blk*.dat/rev*.dat pair:
// the block header plus one TransactionRecord per transaction.
type DecodedBlock struct {
	Header          BlockHeader
	MerkleRootValid bool
	Bip34Height     int64
	Transactions    []*types.TransactionRecord
}

// BlockHeader mirrors the 80-byte Bitcoin block header.
type BlockHeader struct {
	Version       int32
	PrevBlockHash string
	MerkleRoot    string
	Timestamp     uint32
	Bits          string
	Nonce         uint32
	BlockHash     string
}

// FromBlockFiles decodes the first block in blkPath, recovers every
// non-coinbase input's prevout from revPath's undo data, and returns one
// TransactionRecord per transaction. Both files are XOR-obfuscated on disk
// per Bitcoin Core's on-disk format, keyed by the bytes in xorPath.
func FromBlockFiles(blkPath, revPath, xorPath string) (*DecodedBlock, error) {
	xorKey, err := os.ReadFile(xorPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read XOR key: %w", err)
	}

	blkData, err := os.ReadFile(blkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read block file: %w", err)
	}
	blkData = xorDecode(blkData, xorKey)

	revData, err := os.ReadFile(revPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read undo file: %w", err)
	}
	revData = xorDecode(revData, xorKey)

	return decodeOneBlock(bytes.NewReader(blkData), bytes.NewReader(revData))
}

func decodeOneBlock(blkReader io.Reader, revReader io.ReadSeeker) (*DecodedBlock, error) {
	var magic [4]byte
	if _, err := io.ReadFull(blkReader, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read block magic: %w", err)
	}

	var blockSizeLE [4]byte
	if _, err := io.ReadFull(blkReader, blockSizeLE[:]); err != nil {
		return nil, fmt.Errorf("failed to read block size: %w", err)
	}

	var header wire.BlockHeader
	if err := header.Deserialize(blkReader); err != nil {
		return nil, fmt.Errorf("failed to parse block header: %w", err)
	}
	blockHash := header.BlockHash().String()

	txCount, err := readCompactSize(blkReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read tx count: %w", err)
	}

	transactions := make([]*wire.MsgTx, 0, txCount)
	txHashes := make([]chainhash.Hash, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx := wire.NewMsgTx(wire.TxVersion)
		if err := tx.Deserialize(blkReader); err != nil {
			return nil, fmt.Errorf("failed to parse tx %d: %w", i, err)
		}
		transactions = append(transactions, tx)
		txHashes = append(txHashes, tx.TxHash())
	}

	computedMerkleRoot := computeMerkleRoot(txHashes)
	merkleRootValid := bytes.Equal(computedMerkleRoot[:], header.MerkleRoot[:])

	decoded := &DecodedBlock{
		Header: BlockHeader{
			Version:       header.Version,
			PrevBlockHash: header.PrevBlock.String(),
			MerkleRoot:    header.MerkleRoot.String(),
			Timestamp:     uint32(header.Timestamp.Unix()),
			Bits:          fmt.Sprintf("%08x", header.Bits),
			Nonce:         header.Nonce,
			BlockHash:     blockHash,
		},
		MerkleRootValid: merkleRootValid,
	}

	if !merkleRootValid {
		return decoded, nil
	}

	if len(transactions) == 0 {
		return nil, fmt.Errorf("block %s has no transactions", blockHash)
	}

	prevouts, err := parseUndoFile(revReader, len(transactions))
	if err != nil {
		return nil, fmt.Errorf("failed to parse undo data: %w", err)
	}

	decoded.Bip34Height = extractBIP34Height(transactions[0].TxIn[0].SignatureScript)

	decoded.Transactions = make([]*types.TransactionRecord, 0, len(transactions))
	for i, tx := range transactions {
		var txPrevouts []PrevoutInput
		if i > 0 {
			txPrevouts = make([]PrevoutInput, len(prevouts[i-1]))
			for j, txIn := range tx.TxIn {
				p := prevouts[i-1][j]
				p.Txid = txIn.PreviousOutPoint.Hash.String()
				p.Vout = txIn.PreviousOutPoint.Index
				txPrevouts[j] = p
			}
		}

		var buf bytes.Buffer
		if err := tx.Serialize(&buf); err != nil {
			return nil, fmt.Errorf("failed to re-serialize tx %d: %w", i, err)
		}

		record, err := FromFixture(Fixture{
			Network:  "mainnet",
			RawTx:    hex.EncodeToString(buf.Bytes()),
			Prevouts: txPrevouts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to analyze tx %d: %w", i, err)
		}
		decoded.Transactions = append(decoded.Transactions, record)
	}

	return decoded, nil
}

func computeMerkleRoot(txHashes []chainhash.Hash) chainhash.Hash {
	if len(txHashes) == 0 {
		return chainhash.Hash{}
	}
	if len(txHashes) == 1 {
		return txHashes[0]
	}

	nextLevel := make([]chainhash.Hash, 0, (len(txHashes)+1)/2)
	for i := 0; i < len(txHashes); i += 2 {
		left := txHashes[i]
		right := txHashes[i]
		if i+1 < len(txHashes) {
			right = txHashes[i+1]
		}
		combined := append(append([]byte{}, left[:]...), right[:]...)
		nextLevel = append(nextLevel, chainhash.DoubleHashH(combined))
	}
	return computeMerkleRoot(nextLevel)
}

// parseUndoFile parses rev*.dat's CBlockUndo records to recover prevouts
// for every non-coinbase input. The first record in a rev file may belong
// to the previous blk file's last block, so records are skipped by their
// tx-undo count until one matches wantCount.
func parseUndoFile(r io.ReadSeeker, txCount int) ([][]PrevoutInput, error) {
	wantCount := uint64(txCount - 1)

	for {
		recordStart, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("seek error: %w", err)
		}

		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return nil, fmt.Errorf("no matching undo record found: %w", err)
		}
		undoSize := binary.LittleEndian.Uint32(header[4:8])

		txUndoCount, err := readBitcoinVarInt(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read tx undo count: %w", err)
		}
		if txUndoCount != wantCount {
			nextRecord := recordStart + 8 + int64(undoSize) + 32
			if _, err := r.Seek(nextRecord, io.SeekStart); err != nil {
				return nil, fmt.Errorf("failed to skip mismatched undo record: %w", err)
			}
			continue
		}

		allPrevouts := make([][]PrevoutInput, 0, txUndoCount)
		for i := uint64(0); i < txUndoCount; i++ {
			inputCount, err := readBitcoinVarInt(r)
			if err != nil {
				return nil, fmt.Errorf("tx %d: failed to read input count: %w", i, err)
			}
			txPrevouts := make([]PrevoutInput, 0, inputCount)
			for j := uint64(0); j < inputCount; j++ {
				prevout, err := readUndoPrevout(r)
				if err != nil {
					return nil, fmt.Errorf("tx %d input %d: %w", i, j, err)
				}
				txPrevouts = append(txPrevouts, prevout)
			}
			allPrevouts = append(allPrevouts, txPrevouts)
		}
		return allPrevouts, nil
	}
}

// readUndoPrevout reads one Coin entry per Bitcoin Core's
// TxInUndoFormatter (undo.h): nCode, an optional dummy version byte,
// a compressed amount, and a compressed scriptPubKey.
func readUndoPrevout(r io.Reader) (PrevoutInput, error) {
	nCode, err := readBitcoinVarInt(r)
	if err != nil {
		return PrevoutInput{}, fmt.Errorf("nCode: %w", err)
	}
	nHeight := nCode >> 1

	if nHeight > 0 {
		if _, err := readBitcoinVarInt(r); err != nil {
			return PrevoutInput{}, fmt.Errorf("version dummy: %w", err)
		}
	}

	compressedAmount, err := readBitcoinVarInt(r)
	if err != nil {
		return PrevoutInput{}, fmt.Errorf("amount: %w", err)
	}
	valueSats := decompressAmount(compressedAmount)

	nSize, err := readBitcoinVarInt(r)
	if err != nil {
		return PrevoutInput{}, fmt.Errorf("nSize: %w", err)
	}

	var scriptPubkey []byte
	switch nSize {
	case 0: // P2PKH
		hash := make([]byte, 20)
		if _, err := io.ReadFull(r, hash); err != nil {
			return PrevoutInput{}, fmt.Errorf("P2PKH hash: %w", err)
		}
		scriptPubkey = append([]byte{0x76, 0xa9, 0x14}, hash...)
		scriptPubkey = append(scriptPubkey, 0x88, 0xac)

	case 1: // P2SH
		hash := make([]byte, 20)
		if _, err := io.ReadFull(r, hash); err != nil {
			return PrevoutInput{}, fmt.Errorf("P2SH hash: %w", err)
		}
		scriptPubkey = append([]byte{0xa9, 0x14}, hash...)
		scriptPubkey = append(scriptPubkey, 0x87)

	case 2, 3: // Compressed P2PK
		key := make([]byte, 33)
		key[0] = byte(nSize)
		if _, err := io.ReadFull(r, key[1:]); err != nil {
			return PrevoutInput{}, fmt.Errorf("P2PK compressed: %w", err)
		}
		scriptPubkey = append([]byte{0x21}, key...)
		scriptPubkey = append(scriptPubkey, 0xac)

	case 4, 5: // Uncompressed P2PK, stored as x-coordinate only
		xcoord := make([]byte, 32)
		if _, err := io.ReadFull(r, xcoord); err != nil {
			return PrevoutInput{}, fmt.Errorf("P2PK uncompressed: %w", err)
		}
		compressedKey := append([]byte{byte(nSize - 2)}, xcoord...)
		pubKey, err := btcec.ParsePubKey(compressedKey)
		if err != nil {
			scriptPubkey = append([]byte{0x21}, compressedKey...)
			scriptPubkey = append(scriptPubkey, 0xac)
		} else {
			uncompressed := pubKey.SerializeUncompressed()
			scriptPubkey = append([]byte{0x41}, uncompressed...)
			scriptPubkey = append(scriptPubkey, 0xac)
		}

	default: // Raw script, length = nSize - 6
		scriptLen := nSize - 6
		scriptPubkey = make([]byte, scriptLen)
		if _, err := io.ReadFull(r, scriptPubkey); err != nil {
			return PrevoutInput{}, fmt.Errorf("raw script (len=%d): %w", scriptLen, err)
		}
	}

	return PrevoutInput{ValueSats: valueSats, ScriptPubkeyHex: hex.EncodeToString(scriptPubkey)}, nil
}

// extractBIP34Height reads the coinbase height push mandated by BIP-34.
func extractBIP34Height(scriptSig []byte) int64 {
	if len(scriptSig) < 2 {
		return 0
	}
	pushLen := int(scriptSig[0])
	if pushLen < 1 || pushLen > 8 || 1+pushLen > len(scriptSig) {
		return 0
	}
	heightBytes := scriptSig[1 : 1+pushLen]
	var height int64
	for i, b := range heightBytes {
		height |= int64(b) << (8 * i)
	}
	return height
}
