package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prodraft/draft-series-backend/internal/domain"
	"github.com/prodraft/draft-series-backend/internal/draft"
	"github.com/prodraft/draft-series-backend/internal/store"
)

type GameService struct {
	store   *store.Store
	log     *zap.Logger
	catalog ChampionCatalog
	notify  Notifier
}

func NewGameService(st *store.Store, log *zap.Logger, catalog ChampionCatalog, notify Notifier) *GameService {
	return &GameService{store: st, log: log, catalog: catalog, notify: notify}
}

func (s *GameService) Get(ctx context.Context, sessionID uuid.UUID, number int) (*domain.Game, error) {
	return getGame(s.store.DB().WithContext(ctx), sessionID, number)
}

func (s *GameService) List(ctx context.Context, sessionID uuid.UUID) ([]domain.Game, error) {
	var games []domain.Game
	err := s.store.DB().WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("number asc").
		Find(&games).Error
	return games, err
}

// CreateNext creates the next pending game of the series. Its predecessor
// must be completed; the composite unique index on (session, number) makes
// a racing duplicate fail cleanly.
func (s *GameService) CreateNext(ctx context.Context, sessionID uuid.UUID) (*domain.Game, error) {
	var game *domain.Game
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		sess, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != domain.SessionInProgress {
			return preconditionf("session is %s", sess.Status)
		}

		var last domain.Game
		if err := tx.Where("session_id = ?", sessionID).
			Order("number desc").First(&last).Error; err != nil {
			return err
		}
		if last.Status != domain.GameCompleted {
			return preconditionf("game %d has not completed", last.Number)
		}
		if last.Number >= sess.PlannedGames {
			return preconditionf("series is planned for %d games; extend it first", sess.PlannedGames)
		}

		game = newPendingGame(sessionID, last.Number+1)
		if err := tx.Create(game).Error; err != nil {
			if isUniqueViolation(err) {
				return conflictf("game %d already exists", game.Number)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(sessionID, TopicGame)
	return game, nil
}

type SubmitActionInput struct {
	SessionID     uuid.UUID
	GameNumber    int
	ParticipantID uuid.UUID
	// ActionIndex is the step the caller believes is current. Two racing
	// submissions for the same index resolve to exactly one applied write.
	ActionIndex int
	// ChampionID nil records the blank sentinel.
	ChampionID *int
	// Auto marks a timeout auto-submission: an illegal champion hint then
	// degrades to the blank sentinel instead of failing, since the turn
	// must advance either way.
	Auto bool
}

// SubmitAction validates and applies one ban or pick as a single atomic
// transition: slot write, cursor advance, timer reset, and, on the final
// step, completion plus the ledger append.
func (s *GameService) SubmitAction(ctx context.Context, in SubmitActionInput) (*domain.Game, error) {
	var completed bool
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		sess, err := getSession(tx, in.SessionID)
		if err != nil {
			return err
		}
		if sess.Status == domain.SessionPaused {
			return preconditionf("session is paused")
		}
		if sess.Status != domain.SessionInProgress {
			return preconditionf("session is %s", sess.Status)
		}

		g, err := getGame(tx, in.SessionID, in.GameNumber)
		if err != nil {
			return err
		}
		if g.Status != domain.GameDrafting {
			return preconditionf("game %d is %s", g.Number, g.Status)
		}
		if in.ActionIndex != g.Cursor {
			return conflictf("action %d already resolved", in.ActionIndex)
		}

		step, ok := draft.StepAt(g.Cursor)
		if !ok {
			return preconditionf("draft is already complete")
		}
		actingTeam := g.TeamOnSide(step.Side)
		p, err := getParticipant(tx, in.SessionID, in.ParticipantID)
		if err != nil {
			return err
		}
		if !sess.SlotIdentity(actingTeam).Equal(p.Identity()) {
			return preconditionf("it is not this captain's turn")
		}

		value := domain.SlotBlank
		if in.ChampionID != nil {
			legal, reason, err := s.champLegal(ctx, tx, sess, g, actingTeam, *in.ChampionID)
			if err != nil {
				return err
			}
			switch {
			case legal:
				value = *in.ChampionID
			case in.Auto:
				// untrusted hover hint failed re-validation
				value = domain.SlotBlank
			default:
				return reason
			}
		}

		side, action, ordinal := draft.SlotFor(g.Cursor)
		slots := g.Slots(side, action)
		slots[ordinal] = value

		next := g.Cursor + 1
		now := time.Now().UTC()
		updates := map[string]any{
			domain.SlotColumn(side, action): domain.EncodeSlots(slots),
			"cursor":                        next,
			"phase":                         string(draft.PhaseAt(next)),
			"timer_anchor":                  now,
		}
		if next >= draft.Total() {
			completed = true
			updates["status"] = domain.GameCompleted
			updates["phase"] = ""
			updates["timer_anchor"] = nil
			updates["completed_at"] = now
		}

		res := tx.Model(&domain.Game{}).
			Where("id = ? AND cursor = ? AND status = ?", g.ID, in.ActionIndex, domain.GameDrafting).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictf("action %d already resolved", in.ActionIndex)
		}

		if completed {
			// reflect the write we just made before walking the arrays
			g.Cursor = next
			setSlots(g, side, action, slots)
			if err := appendLedgerForGame(tx, g); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Changed(in.SessionID, TopicGame)
	if completed {
		s.notify.Changed(in.SessionID, TopicLedger)
		s.log.Info("game completed",
			zap.String("session_id", in.SessionID.String()),
			zap.Int("game", in.GameNumber))
	}
	return s.Get(ctx, in.SessionID, in.GameNumber)
}

// champLegal re-validates a champion server-side regardless of where the
// hint came from.
func (s *GameService) champLegal(ctx context.Context, tx *gorm.DB, sess *domain.Session, g *domain.Game, team, championID int) (bool, error, error) {
	if championID <= 0 {
		return false, validationf("champion id %d", championID), nil
	}
	exists, err := s.catalog.Exists(ctx, championID)
	if err != nil {
		return false, nil, err
	}
	if !exists {
		return false, validationf("unknown champion %d", championID), nil
	}
	if draft.UsedInGame(g, championID) {
		return false, conflictf("champion %d is already used this game", championID), nil
	}
	entries, err := ledgerEntries(tx, sess.ID)
	if err != nil {
		return false, nil, err
	}
	if draft.Restricted(sess.Mode, entries, team, g.Number, championID) {
		return false, conflictf("champion %d is unavailable in %s mode", championID, sess.Mode), nil
	}
	return true, nil, nil
}

type EditPickInput struct {
	SessionID  uuid.UUID
	GameNumber int
	Side       domain.Side
	Index      int
	ChampionID int
}

// EditPick is a post-hoc record correction: it overwrites one pick slot and
// appends an audit entry. It never touches the ledger; the draft is not
// re-opened.
func (s *GameService) EditPick(ctx context.Context, in EditPickInput) (*domain.Game, error) {
	if err := validSlot(in.Side, in.Index); err != nil {
		return nil, err
	}
	exists, err := s.catalog.Exists(ctx, in.ChampionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, validationf("unknown champion %d", in.ChampionID)
	}

	err = s.store.Tx(ctx, func(tx *gorm.DB) error {
		g, err := getGame(tx, in.SessionID, in.GameNumber)
		if err != nil {
			return err
		}
		slots := g.Slots(in.Side, domain.ActionPick)
		original := slots[in.Index]
		slots[in.Index] = in.ChampionID

		edits := append(g.Edits(), domain.PickEdit{
			Side:        in.Side,
			Index:       in.Index,
			Original:    original,
			Replacement: in.ChampionID,
			At:          time.Now().UTC(),
		})
		rawEdits, err := json.Marshal(edits)
		if err != nil {
			return err
		}
		return tx.Model(g).Updates(map[string]any{
			domain.SlotColumn(in.Side, domain.ActionPick): domain.EncodeSlots(slots),
			"edit_log": rawEdits,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(in.SessionID, TopicGame)
	return s.Get(ctx, in.SessionID, in.GameNumber)
}

type FillSlotInput struct {
	SessionID  uuid.UUID
	GameNumber int
	Side       domain.Side
	Action     domain.Action
	Index      int
	ChampionID int
}

// FillTimedOutSlot replaces a blank-sentinel slot with a real champion and
// brings the ledger in line, so series restrictions reflect the corrected
// value.
func (s *GameService) FillTimedOutSlot(ctx context.Context, in FillSlotInput) (*domain.Game, error) {
	if err := validSlot(in.Side, in.Index); err != nil {
		return nil, err
	}
	if in.Action != domain.ActionBan && in.Action != domain.ActionPick {
		return nil, validationf("action must be ban or pick")
	}
	exists, err := s.catalog.Exists(ctx, in.ChampionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, validationf("unknown champion %d", in.ChampionID)
	}

	err = s.store.Tx(ctx, func(tx *gorm.DB) error {
		g, err := getGame(tx, in.SessionID, in.GameNumber)
		if err != nil {
			return err
		}
		slots := g.Slots(in.Side, in.Action)
		if slots[in.Index] != domain.SlotBlank {
			return preconditionf("slot %d is not a timed-out blank", in.Index)
		}
		if draft.UsedInGame(g, in.ChampionID) {
			return conflictf("champion %d is already used this game", in.ChampionID)
		}
		slots[in.Index] = in.ChampionID

		if err := tx.Model(g).
			Update(domain.SlotColumn(in.Side, in.Action), domain.EncodeSlots(slots)).Error; err != nil {
			return err
		}
		if g.Status != domain.GameCompleted {
			return nil
		}
		reason := domain.ReasonPicked
		if in.Action == domain.ActionBan {
			reason = domain.ReasonBanned
		}
		return appendLedger(tx, []domain.LedgerEntry{{
			ID:         uuid.New(),
			SessionID:  g.SessionID,
			ChampionID: in.ChampionID,
			GameNumber: g.Number,
			Reason:     reason,
			Side:       in.Side,
			Team:       g.TeamOnSide(in.Side),
		}})
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(in.SessionID, TopicGame)
	s.notify.Changed(in.SessionID, TopicLedger)
	return s.Get(ctx, in.SessionID, in.GameNumber)
}

// Reset returns a drafting game to its first step. Operational escape
// hatch, not part of normal flow.
func (s *GameService) Reset(ctx context.Context, sessionID uuid.UUID, number int) (*domain.Game, error) {
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		g, err := getGame(tx, sessionID, number)
		if err != nil {
			return err
		}
		if g.Status != domain.GameDrafting {
			return preconditionf("only a drafting game can be reset")
		}
		return tx.Model(g).Updates(map[string]any{
			"blue_bans":    domain.EmptySlots(),
			"red_bans":     domain.EmptySlots(),
			"blue_picks":   domain.EmptySlots(),
			"red_picks":    domain.EmptySlots(),
			"cursor":       0,
			"phase":        string(draft.PhaseAt(0)),
			"timer_anchor": time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Warn("game reset",
		zap.String("session_id", sessionID.String()),
		zap.Int("game", number))
	s.notify.Changed(sessionID, TopicGame)
	return s.Get(ctx, sessionID, number)
}

func (s *GameService) SetWinner(ctx context.Context, sessionID uuid.UUID, number int, winner domain.Side) (*domain.Game, error) {
	if winner != domain.SideBlue && winner != domain.SideRed {
		return nil, validationf("winner must be blue or red")
	}
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		g, err := getGame(tx, sessionID, number)
		if err != nil {
			return err
		}
		if g.Status != domain.GameCompleted {
			return preconditionf("game %d has not completed", number)
		}
		return tx.Model(g).Update("winner", winner).Error
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(sessionID, TopicGame)
	return s.Get(ctx, sessionID, number)
}

// appendLedgerForGame writes one entry per non-blank ban and pick of a
// completed game, tagged with the side's team resolution at completion.
func appendLedgerForGame(tx *gorm.DB, g *domain.Game) error {
	var entries []domain.LedgerEntry
	for i := range draft.Order {
		side, action, ordinal := draft.SlotFor(i)
		id := g.Slots(side, action)[ordinal]
		if id == domain.SlotEmpty || id == domain.SlotBlank {
			continue
		}
		reason := domain.ReasonPicked
		if action == domain.ActionBan {
			reason = domain.ReasonBanned
		}
		entries = append(entries, domain.LedgerEntry{
			ID:         uuid.New(),
			SessionID:  g.SessionID,
			ChampionID: id,
			GameNumber: g.Number,
			Reason:     reason,
			Side:       side,
			Team:       g.TeamOnSide(side),
		})
	}
	return appendLedger(tx, entries)
}

// appendLedger inserts entries idempotently: a duplicate
// (session, champion, game, reason) is a no-op.
func appendLedger(tx *gorm.DB, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
}

func ledgerEntries(tx *gorm.DB, sessionID uuid.UUID) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := tx.Where("session_id = ?", sessionID).
		Order("game_number asc, created_at asc").
		Find(&entries).Error
	return entries, err
}

func getGame(tx *gorm.DB, sessionID uuid.UUID, number int) (*domain.Game, error) {
	var g domain.Game
	err := tx.First(&g, "session_id = ? AND number = ?", sessionID, number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("game %d", number)
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func setSlots(g *domain.Game, side domain.Side, action domain.Action, slots []int) {
	raw := domain.EncodeSlots(slots)
	switch {
	case side == domain.SideBlue && action == domain.ActionBan:
		g.BlueBans = raw
	case side == domain.SideRed && action == domain.ActionBan:
		g.RedBans = raw
	case side == domain.SideBlue && action == domain.ActionPick:
		g.BluePicks = raw
	default:
		g.RedPicks = raw
	}
}

func validSlot(side domain.Side, index int) error {
	if side != domain.SideBlue && side != domain.SideRed {
		return validationf("side must be blue or red")
	}
	if index < 0 || index >= domain.SlotsPerSide {
		return validationf("slot index must be 0..%d", domain.SlotsPerSide-1)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if err == nil {
		return false
	}
	// driver-specific fallbacks matched by message; both postgres and
	// sqlite mention one of these
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
