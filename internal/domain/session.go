package domain

import (
	"time"

	"github.com/google/uuid"
)

type DraftMode string

const (
	ModeNormal   DraftMode = "normal"
	ModeFearless DraftMode = "fearless"
	ModeIronman  DraftMode = "ironman"
)

type SessionStatus string

const (
	SessionLobby      SessionStatus = "lobby"
	SessionInProgress SessionStatus = "in_progress"
	SessionPaused     SessionStatus = "paused"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

type Side string

const (
	SideBlue Side = "blue"
	SideRed  Side = "red"
	SideNone Side = ""
)

func (s Side) Opposite() Side {
	switch s {
	case SideBlue:
		return SideRed
	case SideRed:
		return SideBlue
	default:
		return SideNone
	}
}

type Session struct {
	ID           uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	InviteToken  string        `json:"inviteToken" gorm:"uniqueIndex;not null"`
	Name         string        `json:"name" gorm:"not null"`
	Mode         DraftMode     `json:"mode" gorm:"not null;default:'normal'"`
	PlannedGames int           `json:"plannedGames" gorm:"not null;default:1"`
	BanSeconds   int           `json:"banSeconds" gorm:"not null;default:30"`
	PickSeconds  int           `json:"pickSeconds" gorm:"not null;default:30"`
	Status       SessionStatus `json:"status" gorm:"not null;default:'lobby'"`
	CurrentGame  int           `json:"currentGame" gorm:"not null;default:0"`

	Team1Name          string     `json:"team1Name" gorm:"column:team1_name"`
	Team1CaptainUserID *uuid.UUID `json:"team1CaptainUserId" gorm:"column:team1_captain_user_id;type:uuid"`
	Team1CaptainName   *string    `json:"team1CaptainName" gorm:"column:team1_captain_name"`
	Team1Side          Side       `json:"team1Side" gorm:"column:team1_side;default:''"`
	Team1Ready         bool       `json:"team1Ready" gorm:"column:team1_ready;not null;default:false"`

	Team2Name          string     `json:"team2Name" gorm:"column:team2_name"`
	Team2CaptainUserID *uuid.UUID `json:"team2CaptainUserId" gorm:"column:team2_captain_user_id;type:uuid"`
	Team2CaptainName   *string    `json:"team2CaptainName" gorm:"column:team2_captain_name"`
	Team2Side          Side       `json:"team2Side" gorm:"column:team2_side;default:''"`
	Team2Ready         bool       `json:"team2Ready" gorm:"column:team2_ready;not null;default:false"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SlotIdentity returns the identity occupying a team slot (1 or 2).
func (s *Session) SlotIdentity(team int) Identity {
	switch team {
	case 1:
		return Identity{UserID: s.Team1CaptainUserID, DisplayName: deref(s.Team1CaptainName)}
	case 2:
		return Identity{UserID: s.Team2CaptainUserID, DisplayName: deref(s.Team2CaptainName)}
	default:
		return Identity{}
	}
}

func (s *Session) SideOf(team int) Side {
	switch team {
	case 1:
		return s.Team1Side
	case 2:
		return s.Team2Side
	default:
		return SideNone
	}
}

func (s *Session) Ready(team int) bool {
	switch team {
	case 1:
		return s.Team1Ready
	case 2:
		return s.Team2Ready
	default:
		return false
	}
}

// TeamBySide resolves the session's CURRENT side assignment to a team slot
// number, 0 if no team holds that side. Historical games carry their own
// mapping in Game.BlueTeam.
func (s *Session) TeamBySide(side Side) int {
	if side == SideNone {
		return 0
	}
	if s.Team1Side == side {
		return 1
	}
	if s.Team2Side == side {
		return 2
	}
	return 0
}

func (s *Session) Terminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionCancelled
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
