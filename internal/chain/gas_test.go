package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/NikitaPirate/Glisk/internal/classify"
)

func TestApplyBuffer(t *testing.T) {
	out := applyBuffer(big.NewInt(1000), 0.20)
	assert.Equal(t, big.NewInt(1200), out)
}

func TestApplyBufferZero(t *testing.T) {
	out := applyBuffer(big.NewInt(1000), 0)
	assert.Equal(t, big.NewInt(1000), out)
}

func TestGweiToWei(t *testing.T) {
	out := gweiToWei(50)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(50), big.NewInt(1e9)), out)
}

func TestClassifyEstimateErrInsufficientFunds(t *testing.T) {
	err := classifyEstimateErr(&fakeErr{"insufficient funds for gas * price + value"})
	assert.Equal(t, classify.KindPermanent, classify.KindOf(err))
	assert.ErrorIs(t, err, classify.InsufficientFunds)
}

func TestClassifyEstimateErrExecutionReverted(t *testing.T) {
	err := classifyEstimateErr(&fakeErr{"execution reverted: custom message"})
	assert.Equal(t, classify.KindPermanent, classify.KindOf(err))
	assert.ErrorIs(t, err, classify.ExecutionReverted)
}

func TestClassifyEstimateErrDefaultsTransient(t *testing.T) {
	err := classifyEstimateErr(&fakeErr{"connection reset by peer"})
	assert.Equal(t, classify.KindTransient, classify.KindOf(err))
}

func TestExplorerTxURL(t *testing.T) {
	hash := common.HexToHash("0xabc")
	assert.Equal(t, "https://sepolia.basescan.org/tx/"+hash.Hex(), ExplorerTxURL("https://sepolia.basescan.org/", hash))
	assert.Equal(t, "https://sepolia.basescan.org/tx/"+hash.Hex(), ExplorerTxURL("https://sepolia.basescan.org", hash))
}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }
