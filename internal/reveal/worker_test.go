package reveal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NikitaPirate/Glisk/internal/store"
)

func TestDedupeByTokenIDDropsOverlap(t *testing.T) {
	a := []store.Token{{ID: 1, TokenID: 10}, {ID: 2, TokenID: 11}}
	b := []store.Token{{ID: 2, TokenID: 11}, {ID: 3, TokenID: 12}}

	out := dedupeByTokenID(a, b)

	ids := make([]uint64, len(out))
	for i, t := range out {
		ids[i] = t.TokenID
	}
	assert.Equal(t, []uint64{10, 11, 12}, ids)
}

func TestDedupeByTokenIDEmptyInputs(t *testing.T) {
	assert.Empty(t, dedupeByTokenID(nil, nil))
}

func TestDedupeByTokenIDNoOverlap(t *testing.T) {
	a := []store.Token{{ID: 1, TokenID: 1}}
	b := []store.Token{{ID: 2, TokenID: 2}}
	assert.Len(t, dedupeByTokenID(a, b), 2)
}
