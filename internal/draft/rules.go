package draft

import (
	"time"

	"github.com/prodraft/draft-series-backend/internal/domain"
)

// GracePeriod is allowed past a step's configured limit before an
// auto-submission is considered due. Clients derive the deadline from the
// shared timer anchor; the server never schedules timeouts itself.
const GracePeriod = 3 * time.Second

// Deadline is the wall-clock instant after which the acting captain's client
// may auto-submit for the given step.
func Deadline(anchor time.Time, step Step, banSeconds, pickSeconds int) time.Time {
	limit := pickSeconds
	if step.Action == domain.ActionBan {
		limit = banSeconds
	}
	return anchor.Add(time.Duration(limit)*time.Second + GracePeriod)
}

// UsedInGame reports whether a champion already occupies any ban or pick
// slot of the game. Blank and empty slots never match.
func UsedInGame(g *domain.Game, championID int) bool {
	if championID == domain.SlotEmpty || championID == domain.SlotBlank {
		return false
	}
	for _, side := range []domain.Side{domain.SideBlue, domain.SideRed} {
		for _, action := range []domain.Action{domain.ActionBan, domain.ActionPick} {
			for _, id := range g.Slots(side, action) {
				if id == championID {
					return true
				}
			}
		}
	}
	return false
}

// Restricted reports whether the ledger bars a champion from the asking
// team in the given game number. Entries from the current or later games
// never restrict; only strictly earlier games carry over.
//
// Ironman: every entry counts, either side, pick or ban.
// Fearless: only picked entries, and only against the team that made them —
// resolved through the team slot recorded on the entry, not current sides.
// Normal: nothing carries over.
func Restricted(mode domain.DraftMode, entries []domain.LedgerEntry, team, gameNumber, championID int) bool {
	if mode == domain.ModeNormal {
		return false
	}
	for _, e := range entries {
		if e.ChampionID != championID || e.GameNumber >= gameNumber {
			continue
		}
		switch mode {
		case domain.ModeIronman:
			return true
		case domain.ModeFearless:
			if e.Reason == domain.ReasonPicked && e.Team == team {
				return true
			}
		}
	}
	return false
}

// UnavailableTo lists every champion the ledger bars from a team in the
// given game number, deduplicated.
func UnavailableTo(mode domain.DraftMode, entries []domain.LedgerEntry, team, gameNumber int) []int {
	seen := map[int]bool{}
	var out []int
	for _, e := range entries {
		if seen[e.ChampionID] {
			continue
		}
		if Restricted(mode, entries, team, gameNumber, e.ChampionID) {
			seen[e.ChampionID] = true
			out = append(out, e.ChampionID)
		}
	}
	return out
}
