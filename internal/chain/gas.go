package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/NikitaPirate/Glisk/internal/classify"
)

// GasParams holds the EIP-1559 fields the keeper attaches to a reveal
// transaction, computed per spec.md §4.7:
//
//	maxFee      = 2*baseFee + bufferedPriority
//	maxPriority = basePriority * (1 + gasBuffer)
type GasParams struct {
	GasLimit     uint64
	MaxFeePerGas *big.Int
	MaxPriority  *big.Int
}

// EstimateReveal simulates revealTokens as the keeper address, applies the
// safety buffer to the returned gas, and computes EIP-1559 fee parameters
// capped at gasPriceCapGwei.
func (c *Client) EstimateReveal(ctx context.Context, tokenIDs []*big.Int, uris []string, gasBuffer float64, gasPriceCapGwei float64) (*GasParams, error) {
	calldata, err := c.reveal.PackRevealTokens(tokenIDs, uris)
	if err != nil {
		return nil, classify.Permanent("chain.EstimateReveal.pack", err)
	}

	from := c.KeeperAddress()
	msg := ethereum.CallMsg{From: from, To: &c.address, Data: calldata}

	gasUsed, err := c.eth.EstimateGas(ctx, msg)
	if err != nil {
		return nil, classifyEstimateErr(err)
	}
	bufferedGas := uint64(float64(gasUsed) * (1 + gasBuffer))

	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, classify.Transient("chain.EstimateReveal.header", err)
	}
	if head.BaseFee == nil {
		return nil, classify.Permanent("chain.EstimateReveal.header", errNotEIP1559)
	}

	basePriority, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, classify.Transient("chain.EstimateReveal.tipcap", err)
	}

	bufferedPriority := applyBuffer(basePriority, gasBuffer)
	maxFee := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), bufferedPriority)

	capWei := gweiToWei(gasPriceCapGwei)
	if capWei.Sign() > 0 && maxFee.Cmp(capWei) > 0 {
		maxFee = capWei
		if bufferedPriority.Cmp(maxFee) > 0 {
			bufferedPriority = new(big.Int).Set(maxFee)
		}
	}

	return &GasParams{
		GasLimit:     bufferedGas,
		MaxFeePerGas: maxFee,
		MaxPriority:  bufferedPriority,
	}, nil
}

func applyBuffer(v *big.Int, buffer float64) *big.Int {
	f := new(big.Float).SetPrec(53).Mul(new(big.Float).SetInt(v), big.NewFloat(1+buffer))
	out, _ := f.Int(nil)
	return out
}

func gweiToWei(gwei float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(1e9))
	out, _ := f.Int(nil)
	return out
}

var errNotEIP1559 = errors.New("chain head has no BaseFee: RPC endpoint is not EIP-1559 aware")

func classifyEstimateErr(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return classify.Permanent("chain.EstimateReveal", classify.InsufficientFunds)
	case strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert"):
		return classify.Permanent("chain.EstimateReveal", classify.ExecutionReverted)
	default:
		return classify.Transient("chain.EstimateReveal", err)
	}
}

// SubmitReveal signs and broadcasts the revealTokens transaction, returning
// its hash immediately after the node accepts it into the mempool (before
// confirmation — spec.md §4.7 "sent" status, SPEC_FULL.md §5 item 1).
func (c *Client) SubmitReveal(ctx context.Context, tokenIDs []*big.Int, uris []string, gp *GasParams) (common.Hash, error) {
	calldata, err := c.reveal.PackRevealTokens(tokenIDs, uris)
	if err != nil {
		return common.Hash{}, classify.Permanent("chain.SubmitReveal.pack", err)
	}

	from := c.KeeperAddress()
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, classify.Transient("chain.SubmitReveal.nonce", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: gp.MaxPriority,
		GasFeeCap: gp.MaxFeePerGas,
		Gas:       gp.GasLimit,
		To:        &c.address,
		Data:      calldata,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.keeper)
	if err != nil {
		return common.Hash{}, classify.Permanent("chain.SubmitReveal.sign", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, classify.Transient("chain.SubmitReveal.send", err)
	}
	return signed.Hash(), nil
}

// WaitMined polls for a receipt until timeout elapses, returning
// (nil, nil) on timeout so the caller can treat it as spec.md's "transient:
// tokens remain ready" case rather than an error.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, classify.Transient("chain.WaitMined", ctx.Err())
		}
	}
}

// ExplorerTxURL builds an operator-facing block-explorer link for logs
// (spec.md §7 "surfaced via logs with explorer URLs").
func ExplorerTxURL(baseURL string, txHash common.Hash) string {
	return strings.TrimRight(baseURL, "/") + "/tx/" + txHash.Hex()
}
