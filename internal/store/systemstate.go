package store

import (
	"errors"

	"github.com/jinzhu/gorm"
)

// GetSystemState reads a SystemState value, returning ("", false) when
// the key has never been set.
func GetSystemState(tx *gorm.DB, key string) (string, bool, error) {
	var s SystemState
	err := tx.Where("key = ?", key).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return s.Value, true, nil
}

// UpsertSystemState writes key=value, the singleton-register upsert
// semantics spec.md §3 requires.
func UpsertSystemState(tx *gorm.DB, key, value string) error {
	return tx.Exec(
		`INSERT INTO system_state (key, value, updated_at) VALUES (?, ?, now())
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	).Error
}
