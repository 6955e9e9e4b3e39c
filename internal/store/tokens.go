package store

import (
	"github.com/jinzhu/gorm"
)

// ClaimDetected leases up to limit tokens in status detected, oldest
// first, skipping rows already locked by another transaction
// (spec.md §4.4). The returned tokens are locked under tx until it
// commits or rolls back.
func ClaimDetected(tx *gorm.DB, limit int) ([]Token, error) {
	return claim(tx, StatusDetected, limit)
}

// ClaimUploading leases up to limit tokens in status uploading.
func ClaimUploading(tx *gorm.DB, limit int) ([]Token, error) {
	return claim(tx, StatusUploading, limit)
}

// ClaimReady leases up to limit tokens in status ready.
func ClaimReady(tx *gorm.DB, limit int) ([]Token, error) {
	return claim(tx, StatusReady, limit)
}

func claim(tx *gorm.DB, status TokenStatus, limit int) ([]Token, error) {
	var tokens []Token
	err := tx.Raw(
		`SELECT * FROM tokens_s0
		 WHERE status = ?
		 ORDER BY created_at ASC
		 LIMIT ?
		 FOR UPDATE SKIP LOCKED`,
		status, limit,
	).Scan(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// BeginTx starts a new transaction the caller owns: commit or rollback is
// the caller's responsibility. Used by the reveal worker's two-phase
// claim, which keeps its leased rows locked across the batch wait.
func (s *Store) BeginTx() *gorm.DB {
	return s.db.Begin()
}

// WithTx runs fn inside a fresh transaction, committing on nil error and
// rolling back otherwise — the per-token unit-of-work factory spec.md §9
// calls for ("each worker uses its own short transaction per token").
func (s *Store) WithTx(fn func(tx *gorm.DB) error) error {
	tx := s.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// GetToken re-reads a token by id within tx, the pattern every per-token
// transaction starts with ("re-fetch the token, verify it is still ...").
func GetToken(tx *gorm.DB, id uint64) (*Token, error) {
	var t Token
	if err := tx.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ResetOrphanGenerating moves every token stuck in generating back to
// detected, the one-shot startup reset spec.md §4.8 requires for
// recovering from a process crash mid-generation.
func (s *Store) ResetOrphanGenerating() (int, error) {
	result := s.db.Table("tokens_s0").
		Where("status = ?", StatusGenerating).
		Update("status", StatusDetected)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// GetTokenByTokenID looks up a token by its on-chain id rather than its
// primary key, the lookup reveal reconciliation needs since
// RevealTransaction only ever records on-chain ids.
func GetTokenByTokenID(tx *gorm.DB, tokenID uint64) (*Token, error) {
	var t Token
	if err := tx.Where("token_id = ?", tokenID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// TransitionTo moves t to status, persisting via Save. Callers are
// responsible for verifying the current status matches an allowed
// transition (spec.md §4.1) before calling this — an invalid transition
// here is a bug, not a runtime condition to recover from.
func TransitionTo(tx *gorm.DB, t *Token, status TokenStatus) error {
	t.Status = status
	return tx.Save(t).Error
}

// MarkFailed transitions t to failed and records the terminal error
// message, truncated to the 1000-char bound spec.md §3 sets on
// generation_error.
func MarkFailed(tx *gorm.DB, t *Token, reason string) error {
	reason = truncate(reason, 1000)
	t.Status = StatusFailed
	t.GenerationError = &reason
	return tx.Save(t).Error
}

// RecordTransientFailure bumps the attempt counter and error message
// without changing status, leaving the token for the next poll tick
// (spec.md §4.5 "No retry cap").
func RecordTransientFailure(tx *gorm.DB, t *Token, reason string) error {
	reason = truncate(reason, 1000)
	t.GenerationAttempts++
	t.GenerationError = &reason
	return tx.Save(t).Error
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// InsertToken creates one token row in the given status; the webhook
// ingester and both gap-repair paths insert with StatusDetected.
func InsertToken(tx *gorm.DB, tokenID, authorID uint64, status TokenStatus) error {
	return tx.Create(&Token{TokenID: tokenID, AuthorID: authorID, Status: status}).Error
}

// InsertRevealedToken inserts a token discovered already-revealed on
// chain during gap repair (spec.md §4.3a step 2), with no reveal tx hash
// recorded since this system never submitted it.
func InsertRevealedToken(tx *gorm.DB, tokenID, authorID uint64, metadataCID string) error {
	return tx.Create(&Token{
		TokenID:     tokenID,
		AuthorID:    authorID,
		Status:      StatusRevealed,
		MetadataCID: &metadataCID,
	}).Error
}

// IsUniqueViolation reports whether err is a Postgres unique-key
// violation (pq error code 23505), the signal gap repair and the webhook
// ingester use to detect "already inserted by the other path"
// (spec.md §4.3a step 3, §4.2 step 1).
func IsUniqueViolation(err error) bool {
	return isPQUniqueViolation(err)
}

// MissingTokenIDs runs the generate_series LEFT JOIN query spec.md §4.3a
// describes, bounded by an optional limit (0 means unbounded), returning
// the gap set in ascending order.
func MissingTokenIDs(tx *gorm.DB, upperExclusive uint64, limit int) ([]uint64, error) {
	if upperExclusive <= 1 {
		return nil, nil
	}
	q := `
		SELECT gs.id AS id FROM generate_series(1, ?) AS gs(id)
		LEFT JOIN tokens_s0 t ON t.token_id = gs.id
		WHERE t.token_id IS NULL
		ORDER BY gs.id ASC`
	args := []interface{}{upperExclusive - 1}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []struct{ ID uint64 }
	if err := tx.Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]uint64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}
