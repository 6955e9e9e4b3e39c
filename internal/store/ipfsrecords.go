package store

import "github.com/jinzhu/gorm"

const (
	PinKindImage    = "image"
	PinKindMetadata = "metadata"
)

// RecordIPFSUpload appends one audit row for a pin attempt (spec.md §4.6
// step 5 "Record audit rows for each pin").
func RecordIPFSUpload(tx *gorm.DB, tokenID uint64, kind string, success bool, cid, errMsg *string) error {
	return tx.Create(&IPFSUploadRecord{
		TokenID: tokenID,
		Kind:    kind,
		CID:     cid,
		Success: success,
		Error:   errMsg,
	}).Error
}
