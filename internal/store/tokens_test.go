package store

import (
	"testing"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// openTestDB opens an in-memory SQLite database for the repository helpers
// that are portable SQL (gorm's query builder, no raw Postgres syntax).
// ClaimDetected/ClaimUploading/ClaimReady and MissingTokenIDs are excluded
// from this file: both issue raw SQL ("FOR UPDATE SKIP LOCKED",
// "generate_series") that SQLite's driver rejects outright rather than
// degrading to a serialised equivalent, so they have no meaningful
// in-memory test double and are left to manual verification against a real
// Postgres instance (see DESIGN.md).
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.AutoMigrate(&Token{}).Error)
	return db
}

func TestInsertTokenStartsAtDetected(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InsertToken(db, 1, 7, StatusDetected))

	got, err := GetTokenByTokenID(db, 1)
	require.NoError(t, err)
	require.Equal(t, StatusDetected, got.Status)
	require.Equal(t, uint64(7), got.AuthorID)
}

func TestInsertRevealedTokenRecordsMetadataCID(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InsertRevealedToken(db, 5, 1, "bafy123"))

	got, err := GetTokenByTokenID(db, 5)
	require.NoError(t, err)
	require.Equal(t, StatusRevealed, got.Status)
	require.NotNil(t, got.MetadataCID)
	require.Equal(t, "bafy123", *got.MetadataCID)
	require.Nil(t, got.RevealTxHash)
}

func TestTransitionToUpdatesStatus(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InsertToken(db, 1, 1, StatusDetected))
	tok, err := GetTokenByTokenID(db, 1)
	require.NoError(t, err)

	require.NoError(t, TransitionTo(db, tok, StatusGenerating))

	reloaded, err := GetToken(db, tok.ID)
	require.NoError(t, err)
	require.Equal(t, StatusGenerating, reloaded.Status)
}

func TestMarkFailedTruncatesReason(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InsertToken(db, 1, 1, StatusGenerating))
	tok, err := GetTokenByTokenID(db, 1)
	require.NoError(t, err)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, MarkFailed(db, tok, string(long)))

	reloaded, err := GetToken(db, tok.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, reloaded.Status)
	require.NotNil(t, reloaded.GenerationError)
	require.Len(t, *reloaded.GenerationError, 1000)
}

func TestRecordTransientFailureBumpsAttemptsWithoutChangingStatus(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, InsertToken(db, 1, 1, StatusGenerating))
	tok, err := GetTokenByTokenID(db, 1)
	require.NoError(t, err)

	require.NoError(t, RecordTransientFailure(db, tok, "rate limited"))
	require.NoError(t, RecordTransientFailure(db, tok, "rate limited again"))

	reloaded, err := GetToken(db, tok.ID)
	require.NoError(t, err)
	require.Equal(t, StatusGenerating, reloaded.Status)
	require.Equal(t, 2, reloaded.GenerationAttempts)
	require.Equal(t, "rate limited again", *reloaded.GenerationError)
}

func TestResetOrphanGeneratingOnlyTouchesGenerating(t *testing.T) {
	db := openTestDB(t)
	s := &Store{db: db}
	require.NoError(t, InsertToken(db, 1, 1, StatusGenerating))
	require.NoError(t, InsertToken(db, 2, 1, StatusGenerating))
	require.NoError(t, InsertToken(db, 3, 1, StatusReady))

	n, err := s.ResetOrphanGenerating()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	ready, err := GetTokenByTokenID(db, 3)
	require.NoError(t, err)
	require.Equal(t, StatusReady, ready.Status)

	reset, err := GetTokenByTokenID(db, 1)
	require.NoError(t, err)
	require.Equal(t, StatusDetected, reset.Status)
}
