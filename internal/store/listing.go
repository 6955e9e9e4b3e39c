package store

import (
	"errors"

	"github.com/jinzhu/gorm"
)

// ErrOffsetNegative and ErrLimitOutOfRange guard the pagination bounds
// spec.md §4.9 fixes: offset in [0, inf), limit in [1, 100].
var (
	ErrOffsetNegative  = errors.New("store: offset must be >= 0")
	ErrLimitOutOfRange = errors.New("store: limit must be in [1, 100]")
)

// TokensByAuthorWallet returns a page of tokens owned by the author at
// wallet (checksummed match, case-insensitive), plus the total count for
// that author. An unknown wallet returns (nil, 0, nil) — spec.md §4.9
// "returns empty on unknown address without error."
func (s *Store) TokensByAuthorWallet(wallet string, offset, limit int) ([]Token, int, error) {
	if offset < 0 {
		return nil, 0, ErrOffsetNegative
	}
	if limit < 1 || limit > 100 {
		return nil, 0, ErrLimitOutOfRange
	}

	var author Author
	err := s.db.Where("lower(wallet_address) = lower(?)", wallet).First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.Model(&Token{}).Where("author_id = ?", author.ID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tokens []Token
	err = s.db.Where("author_id = ?", author.ID).
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&tokens).Error
	if err != nil {
		return nil, 0, err
	}
	return tokens, total, nil
}
