// Package scanner tokenizes disassembled Bitcoin scripts (ASM strings)
// and recognizes the numeric pushes that precede OP_CHECKLOCKTIMEVERIFY
// and OP_CHECKSEQUENCEVERIFY. It also carries the byte-level script
// tools (disassembly, output/input classification, address derivation)
// the Ingestion Adapter needs to build a TransactionRecord out of raw
// wire-format transactions — a stand-in for the data source's own
// disassembler, not something the Timelock Extractor or Lightning
// Classifier depend on.
package scanner

import (
	"strconv"
	"strings"
)

// Opcode name aliases accepted in addition to the canonical spellings.
const (
	OpCheckLockTimeVerify = "OP_CHECKLOCKTIMEVERIFY"
	OpCltvAlias           = "OP_CLTV"
	OpCheckSequenceVerify = "OP_CHECKSEQUENCEVERIFY"
	OpCsvAlias            = "OP_CSV"
)

// Tokens splits a disassembled script on any run of ASCII whitespace.
// Empty or whitespace-only input yields an empty, non-nil slice.
func Tokens(asm string) []string {
	fields := strings.Fields(asm)
	if fields == nil {
		return []string{}
	}
	return fields
}

// ContainsOpcode reports whether any token in asm equals, by exact
// token equality, any of the given opcode names.
func ContainsOpcode(asm string, names ...string) bool {
	for _, tok := range Tokens(asm) {
		for _, name := range names {
			if tok == name {
				return true
			}
		}
	}
	return false
}

// ContainsCLTV reports whether asm contains OP_CHECKLOCKTIMEVERIFY or
// its alias OP_CLTV.
func ContainsCLTV(asm string) bool {
	return ContainsOpcode(asm, OpCheckLockTimeVerify, OpCltvAlias)
}

// ContainsCSV reports whether asm contains OP_CHECKSEQUENCEVERIFY or
// its alias OP_CSV.
func ContainsCSV(asm string) bool {
	return ContainsOpcode(asm, OpCheckSequenceVerify, OpCsvAlias)
}

// PrecedingNumber parses the token immediately before position i as a
// signed decimal integer. Returns (0, false) if i is not positive, out
// of range, or the preceding token is not a decimal numeral (e.g. a hex
// push like "0x90").
func PrecedingNumber(tokens []string, i int) (int64, bool) {
	if i <= 0 || i >= len(tokens) {
		return 0, false
	}
	v, err := strconv.ParseInt(tokens[i-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FindAll returns the token indices at which any of the given opcode
// names occurs, in source order.
func FindAll(tokens []string, names ...string) []int {
	var out []int
	for i, tok := range tokens {
		for _, name := range names {
			if tok == name {
				out = append(out, i)
				break
			}
		}
	}
	return out
}
