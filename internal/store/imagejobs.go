package store

import "github.com/jinzhu/gorm"

// RecordImageGenerationJob appends one audit row for a generation
// attempt (spec.md §3 "Audit records ... append-only").
func RecordImageGenerationJob(tx *gorm.DB, tokenID uint64, prompt string, usedFallback, success bool, imageURL, errMsg *string) error {
	return tx.Create(&ImageGenerationJob{
		TokenID:      tokenID,
		Prompt:       prompt,
		UsedFallback: usedFallback,
		Success:      success,
		ImageURL:     imageURL,
		Error:        errMsg,
	}).Error
}
