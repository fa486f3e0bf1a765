// Command scan is the CLI front end over the timelock and lightning
// analyzers.
//
// Usage:
//
//	scan tx <fixture.json> [--json]
//	scan block <blk.dat> <rev.dat> <xor.dat> [--json]
//	scan lightning tx <fixture.json> [--json]
//	scan lightning block <blk.dat> <rev.dat> <xor.dat> [--json]
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"cltvscan/pkg/ingest"
	"cltvscan/pkg/lightning"
	"cltvscan/pkg/report"
	"cltvscan/pkg/timelock"
	"cltvscan/pkg/types"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

func main() {
	if len(os.Args) < 2 {
		usageAndExit()
	}

	switch os.Args[1] {
	case "tx":
		runTx(os.Args[2:])
	case "block":
		runBlock(os.Args[2:])
	case "lightning":
		runLightning(os.Args[2:])
	default:
		usageAndExit()
	}
}

func usageAndExit() {
	fmt.Fprintln(os.Stderr, "Usage: scan tx <fixture.json> [--json]")
	fmt.Fprintln(os.Stderr, "       scan block <blk.dat> <rev.dat> <xor.dat> [--json]")
	fmt.Fprintln(os.Stderr, "       scan lightning tx <fixture.json> [--json]")
	fmt.Fprintln(os.Stderr, "       scan lightning block <blk.dat> <rev.dat> <xor.dat> [--json]")
	os.Exit(1)
}

func hasFlag(args []string, flag string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a != flag {
			out = append(out, a)
		}
	}
	return out
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func runTx(args []string) {
	jsonOut := containsFlag(args, "--json")
	args = hasFlag(args, "--json")
	if len(args) < 1 {
		usageAndExit()
	}

	tx := loadFixtureTx(args[0])
	analysis := timelock.Analyze(tx)

	if jsonOut {
		printJSON(analysis)
		return
	}
	report.PrintTimelockAnalysis(os.Stdout, analysis)
}

func runLightning(args []string) {
	if len(args) < 1 {
		usageAndExit()
	}

	switch args[0] {
	case "tx":
		runLightningTx(args[1:])
	case "block":
		runLightningBlock(args[1:])
	default:
		usageAndExit()
	}
}

func runLightningTx(args []string) {
	jsonOut := containsFlag(args, "--json")
	args = hasFlag(args, "--json")
	if len(args) < 1 {
		usageAndExit()
	}

	tx := loadFixtureTx(args[0])
	lc := lightning.Classify(tx)

	if jsonOut {
		printJSON(lc)
		return
	}
	report.PrintLightningClassification(os.Stdout, tx.Txid, lc)
}

func runBlock(args []string) {
	jsonOut := containsFlag(args, "--json")
	args = hasFlag(args, "--json")
	if len(args) < 3 {
		usageAndExit()
	}

	decoded := loadDecodedBlock(args[0], args[1], args[2])

	for _, tx := range decoded.Transactions {
		analysis := timelock.Analyze(tx)
		if jsonOut {
			printJSON(analysis)
			continue
		}
		report.PrintTimelockAnalysis(os.Stdout, analysis)
		fmt.Println()
	}
}

func runLightningBlock(args []string) {
	jsonOut := containsFlag(args, "--json")
	args = hasFlag(args, "--json")
	if len(args) < 3 {
		usageAndExit()
	}

	decoded := loadDecodedBlock(args[0], args[1], args[2])

	for _, tx := range decoded.Transactions {
		lc := lightning.Classify(tx)
		if jsonOut {
			printJSON(lc)
			continue
		}
		report.PrintLightningClassification(os.Stdout, tx.Txid, lc)
		fmt.Println()
	}
}

func loadFixtureTx(path string) *types.TransactionRecord {
	data, err := os.ReadFile(path)
	if err != nil {
		fail("FILE_NOT_FOUND", fmt.Sprintf("failed to read fixture: %v", err))
	}

	var fixture ingest.Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		fail("INVALID_FIXTURE", fmt.Sprintf("failed to parse fixture JSON: %v", err))
	}

	tx, err := ingest.FromFixture(fixture)
	if err != nil {
		fail("INVALID_TX", err.Error())
	}
	return tx
}

func loadDecodedBlock(blkPath, revPath, xorPath string) *ingest.DecodedBlock {
	for _, path := range []string{blkPath, revPath, xorPath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fail("FILE_NOT_FOUND", fmt.Sprintf("file not found: %s", path))
		}
	}

	decoded, err := ingest.FromBlockFiles(blkPath, revPath, xorPath)
	if err != nil {
		fail("INVALID_BLOCK", err.Error())
	}
	if !decoded.MerkleRootValid {
		fail("INVALID_MERKLE_ROOT", fmt.Sprintf("computed merkle root does not match header (block %s)", decoded.Header.BlockHash))
	}
	return decoded
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("ENCODE_ERROR", err.Error())
	}
	fmt.Println(string(out))
}

func fail(code, message string) {
	logger.Error().Str("code", code).Msg(message)
	os.Exit(1)
}
