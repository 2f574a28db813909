package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLen caps a single message body; MaxMessagesPerSession is a hard
// ceiling on the session log, not a sliding window.
const (
	MaxMessageLen         = 500
	MaxMessagesPerSession = 50
)

type Message struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID    uuid.UUID  `json:"sessionId" gorm:"type:uuid;not null;index"`
	AuthorName   string     `json:"authorName" gorm:"not null"`
	AuthorUserID *uuid.UUID `json:"authorUserId" gorm:"type:uuid"`
	Content      string     `json:"content" gorm:"size:500;not null"`
	CreatedAt    time.Time  `json:"createdAt"`
}
