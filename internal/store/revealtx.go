package store

import (
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
)

// EncodeTokenIDs joins on-chain token ids into RevealTransaction's stored
// CSV column.
func EncodeTokenIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

// DecodeTokenIDs is EncodeTokenIDs' inverse.
func DecodeTokenIDs(csv string) ([]uint64, error) {
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	ids := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids[i] = n
	}
	return ids, nil
}

// InsertRevealTransaction records a newly-submitted batch, status sent
// (spec.md SPEC_FULL.md §5 decision: written as sent before confirmation,
// not pending).
func InsertRevealTransaction(tx *gorm.DB, tokenIDs []uint64, txHash, gasPrice string) (*RevealTransaction, error) {
	rt := &RevealTransaction{
		TokenIDsCSV: EncodeTokenIDs(tokenIDs),
		TxHash:      &txHash,
		GasPrice:    &gasPrice,
		Status:      RevealSent,
	}
	if err := tx.Create(rt).Error; err != nil {
		return nil, err
	}
	return rt, nil
}

// ConfirmRevealTransaction marks rt confirmed with the block it landed in.
func ConfirmRevealTransaction(tx *gorm.DB, rt *RevealTransaction, blockNumber uint64) error {
	now := time.Now()
	rt.Status = RevealConfirmed
	rt.BlockNumber = &blockNumber
	rt.ConfirmedAt = &now
	return tx.Save(rt).Error
}

// FailRevealTransaction marks rt failed (on-chain revert); member tokens
// are left ready for operator investigation (spec.md §4.7).
func FailRevealTransaction(tx *gorm.DB, rt *RevealTransaction) error {
	rt.Status = RevealFailed
	return tx.Save(rt).Error
}

// PendingRevealTransactions lists every row still pending, the startup
// reconciliation scan spec.md §4.7 requires. "pending" here is legacy:
// this system never writes pending itself (SPEC_FULL.md §5), but a
// previous process generation or manual insert could still leave one, so
// reconciliation still looks for it alongside sent.
func PendingRevealTransactions(tx *gorm.DB) ([]RevealTransaction, error) {
	var rows []RevealTransaction
	err := tx.Where("status IN (?)", []RevealStatus{RevealPending, RevealSent}).Find(&rows).Error
	return rows, err
}
