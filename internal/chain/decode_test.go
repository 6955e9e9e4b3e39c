package chain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBatchMintedHex(t *testing.T) {
	topics := []string{
		"0xdeadbeef", // topic0, event signature, unused by the decoder
		"0x0000000000000000000000001111111111111111111111111111111111111111",
		"0x0000000000000000000000002222222222222222222222222222222222222222",
		"0x0000000000000000000000000000000000000000000000000000000000002a", // startTokenId = 42
	}
	quantity := "0000000000000000000000000000000000000000000000000000000000000005"
	totalPaid := "0000000000000000000000000000000000000000000000000000000000000064"
	data := "0x" + quantity + totalPaid

	decoded, err := DecodeBatchMintedHex(topics, data)
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", strings.ToLower(decoded.Minter.Hex()))
	assert.Equal(t, "0x2222222222222222222222222222222222222222", strings.ToLower(decoded.Author.Hex()))
	assert.Equal(t, uint64(42), decoded.StartTokenID.Uint64())
	assert.Equal(t, uint64(5), decoded.Quantity.Uint64())
	assert.Equal(t, uint64(100), decoded.TotalPaid.Uint64())
}

func TestDecodeBatchMintedHexRejectsWrongTopicCount(t *testing.T) {
	_, err := DecodeBatchMintedHex([]string{"0x1", "0x2"}, "0x00")
	assert.Error(t, err)
}

func TestDecodeBatchMintedHexRejectsShortData(t *testing.T) {
	topics := []string{"0x00", "0x01", "0x02", "0x03"}
	_, err := DecodeBatchMintedHex(topics, "0x0000")
	assert.Error(t, err)
}
