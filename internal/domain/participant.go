package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCaptain   Role = "captain"
	RoleSpectator Role = "spectator"
)

type Participant struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID   uuid.UUID  `json:"sessionId" gorm:"type:uuid;not null;index;uniqueIndex:idx_participants_session_user,where:user_id is not null"`
	UserID      *uuid.UUID `json:"userId" gorm:"type:uuid;index;uniqueIndex:idx_participants_session_user,where:user_id is not null"`
	DisplayName string     `json:"displayName" gorm:"not null"`
	Role        Role       `json:"role" gorm:"not null;default:'spectator'"`
	Connected   bool       `json:"connected" gorm:"not null;default:true"`
	LastSeenAt  time.Time  `json:"lastSeenAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (p *Participant) Identity() Identity {
	if p.UserID != nil {
		return IdentityOfUser(*p.UserID)
	}
	return IdentityOfName(p.DisplayName)
}
