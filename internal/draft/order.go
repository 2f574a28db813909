package draft

import "github.com/prodraft/draft-series-backend/internal/domain"

type Phase string

const (
	PhaseBan1  Phase = "ban1"
	PhasePick1 Phase = "pick1"
	PhaseBan2  Phase = "ban2"
	PhasePick2 Phase = "pick2"
	PhaseDone  Phase = "done"
)

// Step is one entry of the fixed draft order: which side acts and whether it
// bans or picks.
type Step struct {
	Side   domain.Side
	Action domain.Action
}

// Order is the standard tournament sequence for a single game. It is the
// same for every game and every draft mode.
var Order = []Step{
	// Ban phase 1
	{Side: domain.SideBlue, Action: domain.ActionBan},
	{Side: domain.SideRed, Action: domain.ActionBan},
	{Side: domain.SideBlue, Action: domain.ActionBan},
	{Side: domain.SideRed, Action: domain.ActionBan},
	{Side: domain.SideBlue, Action: domain.ActionBan},
	{Side: domain.SideRed, Action: domain.ActionBan},
	// Pick phase 1
	{Side: domain.SideBlue, Action: domain.ActionPick},
	{Side: domain.SideRed, Action: domain.ActionPick},
	{Side: domain.SideRed, Action: domain.ActionPick},
	{Side: domain.SideBlue, Action: domain.ActionPick},
	{Side: domain.SideBlue, Action: domain.ActionPick},
	{Side: domain.SideRed, Action: domain.ActionPick},
	// Ban phase 2
	{Side: domain.SideRed, Action: domain.ActionBan},
	{Side: domain.SideBlue, Action: domain.ActionBan},
	{Side: domain.SideRed, Action: domain.ActionBan},
	{Side: domain.SideBlue, Action: domain.ActionBan},
	// Pick phase 2
	{Side: domain.SideRed, Action: domain.ActionPick},
	{Side: domain.SideBlue, Action: domain.ActionPick},
	{Side: domain.SideBlue, Action: domain.ActionPick},
	{Side: domain.SideRed, Action: domain.ActionPick},
}

func Total() int { return len(Order) }

func StepAt(i int) (Step, bool) {
	if i < 0 || i >= len(Order) {
		return Step{}, false
	}
	return Order[i], true
}

func PhaseAt(cursor int) Phase {
	switch {
	case cursor >= len(Order):
		return PhaseDone
	case cursor <= 5:
		return PhaseBan1
	case cursor <= 11:
		return PhasePick1
	case cursor <= 15:
		return PhaseBan2
	default:
		return PhasePick2
	}
}

// SlotFor maps an action index to the array slot it fills: the step's side
// and action, plus the ordinal of that (side, action) pair so far.
func SlotFor(cursor int) (domain.Side, domain.Action, int) {
	step := Order[cursor]
	ordinal := 0
	for i := 0; i < cursor; i++ {
		if Order[i].Side == step.Side && Order[i].Action == step.Action {
			ordinal++
		}
	}
	return step.Side, step.Action, ordinal
}
