package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeTokenIDsRoundTrip(t *testing.T) {
	ids := []uint64{1, 2, 42, 1000000}
	decoded, err := DecodeTokenIDs(EncodeTokenIDs(ids))
	require.NoError(t, err)
	assert.Equal(t, ids, decoded)
}

func TestEncodeTokenIDsEmpty(t *testing.T) {
	assert.Equal(t, "", EncodeTokenIDs(nil))
}

func TestDecodeTokenIDsEmptyString(t *testing.T) {
	ids, err := DecodeTokenIDs("")
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestDecodeTokenIDsRejectsMalformedCSV(t *testing.T) {
	_, err := DecodeTokenIDs("1,not-a-number,3")
	assert.Error(t, err)
}
