package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GameStatus string

const (
	GamePending   GameStatus = "pending"
	GameDrafting  GameStatus = "drafting"
	GameCompleted GameStatus = "completed"
)

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

// Slot array element values. A slot holds SlotEmpty until its turn resolves,
// SlotBlank when a timer expired with no selection, or a champion id.
const (
	SlotEmpty = 0
	SlotBlank = -1
)

const SlotsPerSide = 5

// PickEdit is one entry of a game's post-hoc edit audit log.
type PickEdit struct {
	Side        Side      `json:"side"`
	Index       int       `json:"index"`
	Original    int       `json:"original"`
	Replacement int       `json:"replacement"`
	At          time.Time `json:"at"`
}

type Game struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID  `json:"sessionId" gorm:"type:uuid;not null;uniqueIndex:idx_games_session_number,priority:1"`
	Number    int        `json:"number" gorm:"not null;uniqueIndex:idx_games_session_number,priority:2"`
	Status    GameStatus `json:"status" gorm:"not null;default:'pending'"`

	// BlueTeam records which team slot (1 or 2) holds blue side for this
	// game; sides may swap between games in a series. 0 until drafting.
	BlueTeam int `json:"blueTeam" gorm:"not null;default:0"`

	Cursor      int            `json:"cursor" gorm:"not null;default:0"`
	Phase       string         `json:"phase"`
	TimerAnchor *time.Time     `json:"timerAnchor"`
	BlueBans    datatypes.JSON `json:"blueBans" gorm:"type:jsonb"`
	RedBans     datatypes.JSON `json:"redBans" gorm:"type:jsonb"`
	BluePicks   datatypes.JSON `json:"bluePicks" gorm:"type:jsonb"`
	RedPicks    datatypes.JSON `json:"redPicks" gorm:"type:jsonb"`
	EditLog     datatypes.JSON `json:"editLog" gorm:"type:jsonb"`
	Winner      *Side          `json:"winner"`
	CompletedAt *time.Time     `json:"completedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TeamOnSide resolves a side to the team slot number via this game's own
// blue/red mapping.
func (g *Game) TeamOnSide(side Side) int {
	if g.BlueTeam == 0 {
		return 0
	}
	if side == SideBlue {
		return g.BlueTeam
	}
	if side == SideRed {
		return 3 - g.BlueTeam
	}
	return 0
}

// SideOfTeam is the inverse of TeamOnSide.
func (g *Game) SideOfTeam(team int) Side {
	switch {
	case g.BlueTeam == 0:
		return SideNone
	case team == g.BlueTeam:
		return SideBlue
	case team == 3-g.BlueTeam:
		return SideRed
	default:
		return SideNone
	}
}

func (g *Game) Slots(side Side, action Action) []int {
	return DecodeSlots(g.rawSlots(side, action))
}

func (g *Game) rawSlots(side Side, action Action) datatypes.JSON {
	switch {
	case side == SideBlue && action == ActionBan:
		return g.BlueBans
	case side == SideRed && action == ActionBan:
		return g.RedBans
	case side == SideBlue && action == ActionPick:
		return g.BluePicks
	default:
		return g.RedPicks
	}
}

// SlotColumn is the database column holding the given slot array.
func SlotColumn(side Side, action Action) string {
	switch {
	case side == SideBlue && action == ActionBan:
		return "blue_bans"
	case side == SideRed && action == ActionBan:
		return "red_bans"
	case side == SideBlue && action == ActionPick:
		return "blue_picks"
	default:
		return "red_picks"
	}
}

func (g *Game) Edits() []PickEdit {
	var edits []PickEdit
	if len(g.EditLog) > 0 {
		_ = json.Unmarshal(g.EditLog, &edits)
	}
	return edits
}

func EmptySlots() datatypes.JSON {
	return EncodeSlots(make([]int, SlotsPerSide))
}

func EncodeSlots(slots []int) datatypes.JSON {
	raw, _ := json.Marshal(slots)
	return raw
}

func DecodeSlots(raw datatypes.JSON) []int {
	slots := make([]int, SlotsPerSide)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &slots)
	}
	if len(slots) < SlotsPerSide {
		slots = append(slots, make([]int, SlotsPerSide-len(slots))...)
	}
	return slots
}
