package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Champion is read-only catalog data; the draft core only validates that a
// submitted id exists. Synced from an external source.
type Champion struct {
	ID           int            `json:"id" gorm:"primaryKey"`
	Slug         string         `json:"slug" gorm:"uniqueIndex;not null"` // e.g. "Aatrox"
	Name         string         `json:"name" gorm:"not null"`
	Title        string         `json:"title"`
	ImageURL     string         `json:"imageUrl"`
	Tags         datatypes.JSON `json:"tags" gorm:"type:jsonb"`
	LastSyncedAt time.Time      `json:"lastSyncedAt"`
}
