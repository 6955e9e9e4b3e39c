package chain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DecodedBatchMinted is the typed result of decoding one BatchMinted log
// from its wire representation, whichever transport delivered it (signed
// webhook push or eth_getLogs replay both resolve to this).
type DecodedBatchMinted struct {
	Minter       common.Address
	Author       common.Address
	StartTokenID *big.Int
	Quantity     *big.Int
	TotalPaid    *big.Int
}

// DecodeBatchMintedHex decodes a BatchMinted log from its webhook-wire
// form: hex-string topics (with or without "0x") and a hex-string data
// blob. Field layout is identical to DecodeBatchMinted in
// internal/chain/contract: topics[1]/[2] last 20 bytes for minter/author,
// topics[3] as a full uint256 for startTokenId (never from the data
// section), data[0:32]/[32:64] for quantity/totalPaid (spec.md §4.2).
func DecodeBatchMintedHex(topics []string, dataHex string) (*DecodedBatchMinted, error) {
	if len(topics) != 4 {
		return nil, fmt.Errorf("BatchMinted: expected 4 topics, got %d", len(topics))
	}

	minterBytes, err := hexBytes(topics[1])
	if err != nil {
		return nil, fmt.Errorf("BatchMinted: decode topics[1]: %w", err)
	}
	authorBytes, err := hexBytes(topics[2])
	if err != nil {
		return nil, fmt.Errorf("BatchMinted: decode topics[2]: %w", err)
	}
	startBytes, err := hexBytes(topics[3])
	if err != nil {
		return nil, fmt.Errorf("BatchMinted: decode topics[3]: %w", err)
	}

	data, err := hexBytes(dataHex)
	if err != nil {
		return nil, fmt.Errorf("BatchMinted: decode data: %w", err)
	}
	if len(data) < 64 {
		return nil, fmt.Errorf("BatchMinted: data section shorter than 64 bytes, got %d", len(data))
	}

	return &DecodedBatchMinted{
		Minter:       common.BytesToAddress(minterBytes),
		Author:       common.BytesToAddress(authorBytes),
		StartTokenID: new(big.Int).SetBytes(startBytes),
		Quantity:     new(big.Int).SetBytes(data[0:32]),
		TotalPaid:    new(big.Int).SetBytes(data[32:64]),
	}, nil
}

func hexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

// ChecksumAddress returns the EIP-55 mixed-case checksummed form of a hex
// address, the normalisation spec.md §4.2 requires on every decoded
// address.
func ChecksumAddress(addr common.Address) string {
	return addr.Hex()
}
