// Package chain wraps the go-ethereum JSON-RPC client and the GliskReveal
// contract binding behind the narrow surface the pipeline actually needs:
// read-only contract views, log replay, gas estimation and signed
// submission. Every exported method classifies its error with
// internal/classify before returning, the way spec.md §7 requires at the
// source of the call.
package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/NikitaPirate/Glisk/internal/chain/contract"
	"github.com/NikitaPirate/Glisk/internal/classify"
	"github.com/NikitaPirate/Glisk/internal/logger"
	"github.com/NikitaPirate/Glisk/internal/metrics"
)

// BatchMintedTopic0 is keccak256(BatchMintedEventSignature), computed once
// at package init instead of on every decoded log (SPEC_FULL.md §3.2).
var BatchMintedTopic0 = crypto.Keccak256Hash([]byte(contract.BatchMintedEventSignature))

// Client is the pipeline's sole entrypoint to the L2 node.
type Client struct {
	eth      *ethclient.Client
	reveal   *contract.GliskReveal
	address  common.Address
	keeper   *ecdsa.PrivateKey
	chainID  *big.Int
	log      *zap.SugaredLogger
}

// Dial connects to rpcURL and binds the reveal contract at contractAddr,
// deriving the keeper's signer from keeperHexKey (no leading 0x required).
func Dial(ctx context.Context, rpcURL, contractAddr, keeperHexKey string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, classify.Transient("chain.Dial", err)
	}
	reveal, err := contract.NewGliskReveal(common.HexToAddress(contractAddr), eth)
	if err != nil {
		return nil, classify.Permanent("chain.Dial.bind", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keeperHexKey, "0x"))
	if err != nil {
		return nil, classify.Permanent("chain.Dial.key", err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, classify.Transient("chain.Dial.chainID", err)
	}
	return &Client{
		eth:     eth,
		reveal:  reveal,
		address: common.HexToAddress(contractAddr),
		keeper:  key,
		chainID: chainID,
		log:     logger.For(logger.Chain),
	}, nil
}

// KeeperAddress returns the address the keeper's transactions are sent from.
func (c *Client) KeeperAddress() common.Address {
	return crypto.PubkeyToAddress(c.keeper.PublicKey)
}

// NextTokenID is retried with exponential backoff (1s, 2s, 4s) on RPC
// errors per spec.md §4.3a; a contract-call error (e.g. function missing)
// is returned immediately as permanent.
func (c *Client) NextTokenID(ctx context.Context) (uint64, error) {
	backoffs := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	var lastErr error
	for attempt := 0; attempt <= len(backoffs); attempt++ {
		n, err := c.reveal.NextTokenId(&bind.CallOpts{Context: ctx})
		if err == nil {
			return n.Uint64(), nil
		}
		lastErr = err
		if isABIMismatch(err) {
			return 0, classify.Permanent("chain.NextTokenID", err)
		}
		if attempt < len(backoffs) {
			c.log.Warnw("nextTokenId RPC error, retrying", "attempt", attempt, "err", err)
			select {
			case <-time.After(backoffs[attempt]):
			case <-ctx.Done():
				return 0, classify.Transient("chain.NextTokenID", ctx.Err())
			}
		}
	}
	metrics.ChainRPCErrors.WithLabelValues("nextTokenId").Inc()
	return 0, classify.Transient("chain.NextTokenID", lastErr)
}

func isABIMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no contract code") ||
		strings.Contains(msg, "abi: ") ||
		strings.Contains(msg, "execution reverted")
}

// TokenPromptAuthorWallet returns the checksummed wallet address the chain
// records as the author for tokenID.
func (c *Client) TokenPromptAuthorWallet(ctx context.Context, tokenID uint64) (string, error) {
	addr, err := c.reveal.TokenPromptAuthor(&bind.CallOpts{Context: ctx}, new(big.Int).SetUint64(tokenID))
	if err != nil {
		metrics.ChainRPCErrors.WithLabelValues("tokenPromptAuthor").Inc()
		return "", classify.Transient("chain.TokenPromptAuthor", err)
	}
	return addr.Hex(), nil
}

// IsRevealed reports whether tokenID is already revealed on-chain.
func (c *Client) IsRevealed(ctx context.Context, tokenID uint64) (bool, error) {
	ok, err := c.reveal.IsRevealed(&bind.CallOpts{Context: ctx}, new(big.Int).SetUint64(tokenID))
	if err != nil {
		metrics.ChainRPCErrors.WithLabelValues("isRevealed").Inc()
		return false, classify.Transient("chain.IsRevealed", err)
	}
	return ok, nil
}

// TokenURI returns the metadata URI already bound to a revealed token.
func (c *Client) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	uri, err := c.reveal.TokenURI(&bind.CallOpts{Context: ctx}, new(big.Int).SetUint64(tokenID))
	if err != nil {
		metrics.ChainRPCErrors.WithLabelValues("tokenURI").Inc()
		return "", classify.Transient("chain.TokenURI", err)
	}
	return uri, nil
}

// FilterLogs replays BatchMinted logs for [fromBlock, toBlock] emitted by
// the bound contract address (spec.md §4.3b).
func (c *Client) FilterLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{BatchMintedTopic0}},
	}
	logs, err := c.eth.FilterLogs(ctx, q)
	if err != nil {
		if isRateLimited(err) {
			return nil, classify.Transient("chain.FilterLogs.rate_limited", err)
		}
		metrics.ChainRPCErrors.WithLabelValues("filterLogs").Inc()
		return nil, classify.Transient("chain.FilterLogs", err)
	}
	return logs, nil
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

// LatestBlock returns the current chain head block number.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		metrics.ChainRPCErrors.WithLabelValues("blockNumber").Inc()
		return 0, classify.Transient("chain.LatestBlock", err)
	}
	return n, nil
}

// BlockTimestamp returns the timestamp of blockNumber, used by event
// replay to populate MintEvent.BlockTimestamp precisely rather than
// approximating with time.Now() (spec.md §4.3b persists "same
// persistence as §4.2", and §4.2's MintEvent carries block_timestamp).
func (c *Client) BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		metrics.ChainRPCErrors.WithLabelValues("headerByNumber").Inc()
		return time.Time{}, classify.Transient("chain.BlockTimestamp", err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// TransactionReceipt returns the receipt for txHash, or (nil, nil) if it
// has not been mined yet.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	r, err := c.eth.TransactionReceipt(ctx, txHash)
	if err == ethereum.NotFound {
		return nil, nil
	}
	if err != nil {
		metrics.ChainRPCErrors.WithLabelValues("transactionReceipt").Inc()
		return nil, classify.Transient("chain.TransactionReceipt", err)
	}
	return r, nil
}
