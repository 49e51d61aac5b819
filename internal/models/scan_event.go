package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScanEvent records one label-scan call: who asked, where the uploaded
// image landed in object storage (empty when storage is not configured)
// and the parsed model payload as raw JSON.
type ScanEvent struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"not null;index"`
	StorageKey string `gorm:"size:200"`
	Payload    datatypes.JSON
	CreatedAt  time.Time
}
