package store

import (
	"errors"
	"strings"

	"github.com/jinzhu/gorm"
)

// ErrNoDefaultAuthor signals the designated default-author wallet has no
// matching row — a deployment misconfiguration, not a runtime condition
// any single request can recover from.
var ErrNoDefaultAuthor = errors.New("store: default author wallet not found")

// ResolveAuthor looks up wallet case-insensitively, falling back to
// defaultWallet when no author row exists for it (spec.md §4.2 step 2 —
// existence-based fallback only; prompt-specific fallback for generation
// is ResolvePrompt below).
func (s *Store) ResolveAuthor(wallet, defaultWallet string) (*Author, error) {
	a, err := s.findByWallet(wallet)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	def, err := s.findByWallet(defaultWallet)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoDefaultAuthor
		}
		return nil, err
	}
	return def, nil
}

// ResolvePrompt returns the author's prompt text, or the default
// author's prompt when the author's own is unset/blank (spec.md §4.5
// step 2). Returns ("", false) when neither has usable prompt text —
// the image worker treats that as a permanent failure.
func (s *Store) ResolvePrompt(author *Author, defaultWallet string) (string, bool) {
	if author.PromptText != nil && strings.TrimSpace(*author.PromptText) != "" {
		return *author.PromptText, true
	}
	def, err := s.findByWallet(defaultWallet)
	if err != nil || def.PromptText == nil || strings.TrimSpace(*def.PromptText) == "" {
		return "", false
	}
	return *def.PromptText, true
}

func (s *Store) findByWallet(wallet string) (*Author, error) {
	var a Author
	err := s.db.Where("lower(wallet_address) = lower(?)", wallet).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAuthorByID is a plain lookup used when a token's AuthorID is already
// known (e.g. building upload metadata).
func (s *Store) GetAuthorByID(id uint64) (*Author, error) {
	var a Author
	if err := s.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
