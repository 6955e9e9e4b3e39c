// Code generated in the manner of abigen output, hand-maintained because
// this repository does not invoke the Go toolchain as part of its build.
// Mirrors the shape of the teacher's contracts/token/GXToken.go binding:
// a Caller/Transactor/Filterer split wrapping a single bind.BoundContract.
package contract

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// GliskRevealABI is the input ABI used to generate this binding. Only the
// subset of the full contract spec.md relies on is declared here:
// nextTokenId, tokenPromptAuthor, isRevealed, tokenURI, revealTokens and the
// BatchMinted event.
const GliskRevealABI = `[
	{"constant":true,"inputs":[],"name":"nextTokenId","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenPromptAuthor","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"isRevealed","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"tokenIds","type":"uint256[]"},{"name":"uris","type":"string[]"}],"name":"revealTokens","outputs":[],"payable":false,"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"minter","type":"address"},{"indexed":true,"name":"author","type":"address"},{"indexed":true,"name":"startTokenId","type":"uint256"},{"indexed":false,"name":"quantity","type":"uint256"},{"indexed":false,"name":"totalPaid","type":"uint256"}],"name":"BatchMinted","type":"event"}
]`

// BatchMintedEventSignature is the literal string hashed into topics[0] for
// every BatchMinted log (spec.md §4.2).
const BatchMintedEventSignature = "BatchMinted(address,address,uint256,uint256,uint256)"

// GliskReveal is a binding around the deployed NFT contract.
type GliskReveal struct {
	GliskRevealCaller
	GliskRevealTransactor
	GliskRevealFilterer
}

// GliskRevealCaller wraps the read-only methods.
type GliskRevealCaller struct {
	contract *bind.BoundContract
}

// GliskRevealTransactor wraps the state-mutating methods.
type GliskRevealTransactor struct {
	contract *bind.BoundContract
}

// GliskRevealFilterer wraps log filtering/parsing.
type GliskRevealFilterer struct {
	contract *bind.BoundContract
	abi      abi.ABI
}

// NewGliskReveal binds address on backend.
func NewGliskReveal(address common.Address, backend bind.ContractBackend) (*GliskReveal, error) {
	parsed, err := abi.JSON(strings.NewReader(GliskRevealABI))
	if err != nil {
		return nil, err
	}
	contract := bind.NewBoundContract(address, parsed, backend, backend, backend)
	return &GliskReveal{
		GliskRevealCaller:     GliskRevealCaller{contract: contract},
		GliskRevealTransactor: GliskRevealTransactor{contract: contract},
		GliskRevealFilterer:   GliskRevealFilterer{contract: contract, abi: parsed},
	}, nil
}

// NextTokenId implements the chain's tokenId watermark: tokens [1, N-1] are
// asserted to exist (spec.md §4.3a).
func (c *GliskRevealCaller) NextTokenId(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	err := c.contract.Call(opts, &out, "nextTokenId")
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// TokenPromptAuthor returns the wallet address the chain records as the
// author for tokenId.
func (c *GliskRevealCaller) TokenPromptAuthor(opts *bind.CallOpts, tokenID *big.Int) (common.Address, error) {
	var out []interface{}
	err := c.contract.Call(opts, &out, "tokenPromptAuthor", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// IsRevealed reports whether tokenId has already been revealed on-chain.
func (c *GliskRevealCaller) IsRevealed(opts *bind.CallOpts, tokenID *big.Int) (bool, error) {
	var out []interface{}
	err := c.contract.Call(opts, &out, "isRevealed", tokenID)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// TokenURI returns the metadata URI bound to a revealed token.
func (c *GliskRevealCaller) TokenURI(opts *bind.CallOpts, tokenID *big.Int) (string, error) {
	var out []interface{}
	err := c.contract.Call(opts, &out, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// RevealTokens submits (or, if opts.NoSend, simulates) the batch reveal
// transaction binding each id to its metadata uri (spec.md §4.7).
func (t *GliskRevealTransactor) RevealTokens(opts *bind.TransactOpts, tokenIDs []*big.Int, uris []string) (*types.Transaction, error) {
	if len(tokenIDs) != len(uris) {
		return nil, errors.New("tokenIDs and uris length mismatch")
	}
	return t.contract.Transact(opts, "revealTokens", tokenIDs, uris)
}

// PackRevealTokens returns the ABI-encoded calldata for revealTokens,
// used by the keeper to run eth_estimateGas/eth_call simulations without
// going through bind.TransactOpts (internal/chain/gas.go).
func (f *GliskRevealFilterer) PackRevealTokens(tokenIDs []*big.Int, uris []string) ([]byte, error) {
	return f.abi.Pack("revealTokens", tokenIDs, uris)
}

// ParseBatchMinted decodes a raw log already confirmed (by the caller) to
// match address and topics[0] into its typed fields.
func (f *GliskRevealFilterer) ParseBatchMinted(l types.Log) (minter, author common.Address, startTokenID, quantity, totalPaid *big.Int, err error) {
	return DecodeBatchMinted(l)
}

// DecodeBatchMinted implements the exact field layout spec.md §4.2 mandates:
// minter = topics[1] last 20 bytes, author = topics[2] last 20 bytes,
// startTokenId = topics[3] as a full uint256 (NOT from the data section),
// quantity = data[0:32], totalPaid = data[32:64].
func DecodeBatchMinted(l types.Log) (minter, author common.Address, startTokenID, quantity, totalPaid *big.Int, err error) {
	if len(l.Topics) != 4 {
		return common.Address{}, common.Address{}, nil, nil, nil, errors.New("BatchMinted: expected 4 topics")
	}
	if len(l.Data) < 64 {
		return common.Address{}, common.Address{}, nil, nil, nil, errors.New("BatchMinted: data section shorter than 64 bytes")
	}
	minter = common.BytesToAddress(l.Topics[1].Bytes())
	author = common.BytesToAddress(l.Topics[2].Bytes())
	startTokenID = new(big.Int).SetBytes(l.Topics[3].Bytes())
	quantity = new(big.Int).SetBytes(l.Data[0:32])
	totalPaid = new(big.Int).SetBytes(l.Data[32:64])
	return minter, author, startTokenID, quantity, totalPaid, nil
}
