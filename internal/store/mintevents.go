package store

import (
	"github.com/jinzhu/gorm"
)

// MintEventExists reports whether a MintEvent for (txHash, logIndex)
// already exists, the at-most-once guard spec.md §4.2 step 1 requires.
func MintEventExists(tx *gorm.DB, txHash string, logIndex int) (bool, error) {
	var count int
	err := tx.Model(&MintEvent{}).
		Where("tx_hash = ? AND log_index = ?", txHash, logIndex).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertMintEvent records one decoded log. Callers must have already
// checked MintEventExists inside the same transaction.
func InsertMintEvent(tx *gorm.DB, e *MintEvent) error {
	return tx.Create(e).Error
}
