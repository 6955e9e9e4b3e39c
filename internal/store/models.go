// Package store is the pipeline's only persistence layer: a gorm-backed
// Postgres connection, the row-level lease queries every stage worker
// claims its batch through, and the per-token transaction factory the
// workers build their unit-of-work on (spec.md §9 Design Notes).
package store

import "time"

// TokenStatus is the token state machine's enum (spec.md §4.1).
type TokenStatus string

const (
	StatusDetected   TokenStatus = "detected"
	StatusGenerating TokenStatus = "generating"
	StatusUploading  TokenStatus = "uploading"
	StatusReady      TokenStatus = "ready"
	StatusRevealed   TokenStatus = "revealed"
	StatusFailed     TokenStatus = "failed"
)

// RevealStatus is RevealTransaction.status (spec.md §3).
type RevealStatus string

const (
	RevealPending   RevealStatus = "pending"
	RevealSent      RevealStatus = "sent"
	RevealConfirmed RevealStatus = "confirmed"
	RevealFailed    RevealStatus = "failed"
)

// Author mirrors an externally-managed profile; the pipeline only ever
// reads it and writes nothing back (spec.md §3).
type Author struct {
	ID            uint64 `gorm:"primary_key"`
	WalletAddress string `gorm:"unique_index;not null"` // stored checksummed (EIP-55)
	PromptText    *string
	TwitterHandle *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Token is one generative-NFT slot tracked through the pipeline.
// Table name tokens_s0 per spec.md §6 (the "S0" collection generation).
type Token struct {
	ID                 uint64 `gorm:"primary_key"`
	TokenID            uint64 `gorm:"unique_index;not null"`
	AuthorID           uint64 `gorm:"index;not null"`
	Author             Author `gorm:"foreignkey:AuthorID"`
	Status             TokenStatus `gorm:"index;not null"`
	ImageURL           *string
	ImageCID           *string
	MetadataCID        *string
	RevealTxHash       *string
	GenerationAttempts int `gorm:"not null;default:0"`
	GenerationError    *string
	CreatedAt          time.Time `gorm:"index"`
	UpdatedAt          time.Time
}

// TableName pins the table to the name spec.md §6 gives it, since gorm's
// pluralizer would otherwise produce "tokens".
func (Token) TableName() string { return "tokens_s0" }

// MintEvent is an append-only record of one decoded BatchMinted log.
type MintEvent struct {
	ID             uint64 `gorm:"primary_key"`
	TxHash         string `gorm:"not null;unique_index:idx_mint_events_tx_log"`
	LogIndex       int    `gorm:"not null;unique_index:idx_mint_events_tx_log"`
	BlockNumber    uint64 `gorm:"not null;index"`
	BlockTimestamp time.Time
	TokenID        uint64 `gorm:"not null"` // representative start-id for the batch
	AuthorWallet   string `gorm:"not null"`
	Recipient      string `gorm:"not null"`
	DetectedAt     time.Time `gorm:"not null"`
}

// RevealTransaction is one submitted (or simulated-then-abandoned) batch
// reveal call. TokenIDs is stored as a comma-separated list of on-chain
// token ids — gorm v1 has no native array/JSON column type for Postgres,
// so the teacher's own simple-column convention is followed rather than
// reaching for a second serialisation library.
type RevealTransaction struct {
	ID          uint64 `gorm:"primary_key"`
	TokenIDsCSV string `gorm:"column:token_ids;not null"`
	TxHash      *string
	BlockNumber *uint64
	GasPrice    *string // decimal string; wei doesn't fit int64 reliably at high gas prices
	Status      RevealStatus `gorm:"index;not null"`
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// SystemState is a singleton key/value register, addressed by
// alphanumeric-underscore keys, used at minimum for last_processed_block.
type SystemState struct {
	Key       string `gorm:"primary_key"`
	Value     string `gorm:"not null"` // JSON-encoded
	UpdatedAt time.Time
}

// TableName matches spec.md §6's singular table name.
func (SystemState) TableName() string { return "system_state" }

// ImageGenerationJob is an append-only audit row for one generation
// attempt; it carries no invariants the pipeline itself relies on.
type ImageGenerationJob struct {
	ID         uint64 `gorm:"primary_key"`
	TokenID    uint64 `gorm:"index;not null"`
	Prompt     string `gorm:"not null"`
	UsedFallback bool `gorm:"not null;default:false"`
	Success    bool   `gorm:"not null"`
	ImageURL   *string
	Error      *string
	CreatedAt  time.Time
}

// IPFSUploadRecord is an append-only audit row for one pin attempt
// (image or metadata).
type IPFSUploadRecord struct {
	ID        uint64 `gorm:"primary_key"`
	TokenID   uint64 `gorm:"index;not null"`
	Kind      string `gorm:"not null"` // "image" | "metadata"
	CID       *string
	Success   bool `gorm:"not null"`
	Error     *string
	CreatedAt time.Time
}
