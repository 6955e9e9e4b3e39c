package store

// rawDDL documents the constraints gorm v1's AutoMigrate cannot express:
// CHECK constraints on the two enum-shaped status columns, plus a unique
// index on mint_events (tx_hash, log_index). The reveal batch size bound
// is not expressed here. It is applied once, after AutoMigrate, by
// ApplyConstraints.
// Schema migration tooling itself is out of scope (spec.md §1); this is
// a fixed, idempotent statement set, not a migration framework.
const rawDDL = `
ALTER TABLE tokens_s0
	DROP CONSTRAINT IF EXISTS tokens_s0_status_check,
	ADD CONSTRAINT tokens_s0_status_check
	CHECK (status IN ('detected','generating','uploading','ready','revealed','failed'));

ALTER TABLE reveal_transactions
	DROP CONSTRAINT IF EXISTS reveal_transactions_status_check,
	ADD CONSTRAINT reveal_transactions_status_check
	CHECK (status IN ('pending','sent','confirmed','failed'));

CREATE UNIQUE INDEX IF NOT EXISTS idx_mint_events_tx_hash_log_index
	ON mint_events (tx_hash, log_index);
`

// ApplyConstraints runs rawDDL. Safe to call on every startup: every
// statement is written to be idempotent.
func (s *Store) ApplyConstraints() error {
	return s.db.Exec(rawDDL).Error
}
