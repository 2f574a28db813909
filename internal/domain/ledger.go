package domain

import (
	"time"

	"github.com/google/uuid"
)

type LedgerReason string

const (
	ReasonPicked LedgerReason = "picked"
	ReasonBanned LedgerReason = "banned"
)

// LedgerEntry records one champion consumed by a completed game in a series.
// Team stores the side's resolution to a team slot at the time the game
// completed, so later availability checks never depend on the session's
// current side assignment.
type LedgerEntry struct {
	ID         uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID  uuid.UUID    `json:"sessionId" gorm:"type:uuid;not null;uniqueIndex:idx_ledger_dedupe,priority:1"`
	ChampionID int          `json:"championId" gorm:"not null;uniqueIndex:idx_ledger_dedupe,priority:2"`
	GameNumber int          `json:"gameNumber" gorm:"not null;uniqueIndex:idx_ledger_dedupe,priority:3"`
	Reason     LedgerReason `json:"reason" gorm:"not null;uniqueIndex:idx_ledger_dedupe,priority:4"`
	Side       Side         `json:"side" gorm:"not null"`
	Team       int          `json:"team" gorm:"not null"`
	CreatedAt  time.Time    `json:"createdAt"`
}
