package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prodraft/draft-series-backend/internal/domain"
	"github.com/prodraft/draft-series-backend/internal/draft"
	"github.com/prodraft/draft-series-backend/internal/store"
)

const (
	MinPlannedGames = 1
	MaxPlannedGames = 5
)

type SessionService struct {
	store  *store.Store
	log    *zap.Logger
	mod    Moderator
	notify Notifier
}

func NewSessionService(st *store.Store, log *zap.Logger, mod Moderator, notify Notifier) *SessionService {
	return &SessionService{store: st, log: log, mod: mod, notify: notify}
}

type CreateSessionInput struct {
	Name         string
	Mode         domain.DraftMode
	PlannedGames int
	BanSeconds   int
	PickSeconds  int
	Team1Name    string
	Team2Name    string
}

func (in CreateSessionInput) validate() error {
	if in.Name == "" {
		return validationf("session name is required")
	}
	switch in.Mode {
	case domain.ModeNormal, domain.ModeFearless, domain.ModeIronman:
	default:
		return validationf("unknown draft mode %q", in.Mode)
	}
	if in.PlannedGames < MinPlannedGames || in.PlannedGames > MaxPlannedGames {
		return validationf("planned games must be between %d and %d", MinPlannedGames, MaxPlannedGames)
	}
	if in.BanSeconds <= 0 || in.PickSeconds <= 0 {
		return validationf("phase time limits must be positive")
	}
	return nil
}

// Create makes an empty session (no captains) plus a pending game 1.
func (s *SessionService) Create(ctx context.Context, in CreateSessionInput) (*domain.Session, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.moderate(ctx, in.Name, in.Team1Name, in.Team2Name); err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ID:           uuid.New(),
		InviteToken:  uuid.NewString(),
		Name:         in.Name,
		Mode:         in.Mode,
		PlannedGames: in.PlannedGames,
		BanSeconds:   in.BanSeconds,
		PickSeconds:  in.PickSeconds,
		Status:       domain.SessionLobby,
		Team1Name:    in.Team1Name,
		Team2Name:    in.Team2Name,
	}
	game := newPendingGame(sess.ID, 1)

	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(sess).Error; err != nil {
			return err
		}
		return tx.Create(game).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session created",
		zap.String("session_id", sess.ID.String()),
		zap.String("mode", string(sess.Mode)),
		zap.Int("planned_games", sess.PlannedGames))
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return getSession(s.store.DB().WithContext(ctx), id)
}

func (s *SessionService) GetByInviteToken(ctx context.Context, token string) (*domain.Session, error) {
	var sess domain.Session
	err := s.store.DB().WithContext(ctx).First(&sess, "invite_token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("session with token")
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

type UpdateSessionInput struct {
	Name         *string
	Mode         *domain.DraftMode
	PlannedGames *int
	BanSeconds   *int
	PickSeconds  *int
}

// Update changes settings; only allowed in the lobby, before any draft ran.
func (s *SessionService) Update(ctx context.Context, id uuid.UUID, in UpdateSessionInput) (*domain.Session, error) {
	if in.Name != nil {
		if *in.Name == "" {
			return nil, validationf("session name is required")
		}
		if err := s.moderate(ctx, *in.Name); err != nil {
			return nil, err
		}
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Mode != nil {
		switch *in.Mode {
		case domain.ModeNormal, domain.ModeFearless, domain.ModeIronman:
			updates["mode"] = *in.Mode
		default:
			return nil, validationf("unknown draft mode %q", *in.Mode)
		}
	}
	if in.PlannedGames != nil {
		if *in.PlannedGames < MinPlannedGames || *in.PlannedGames > MaxPlannedGames {
			return nil, validationf("planned games must be between %d and %d", MinPlannedGames, MaxPlannedGames)
		}
		updates["planned_games"] = *in.PlannedGames
	}
	if in.BanSeconds != nil {
		if *in.BanSeconds <= 0 {
			return nil, validationf("ban seconds must be positive")
		}
		updates["ban_seconds"] = *in.BanSeconds
	}
	if in.PickSeconds != nil {
		if *in.PickSeconds <= 0 {
			return nil, validationf("pick seconds must be positive")
		}
		updates["pick_seconds"] = *in.PickSeconds
	}

	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		sess, err := getSession(tx, id)
		if err != nil {
			return err
		}
		if sess.Status != domain.SessionLobby {
			return preconditionf("settings are frozen once the session leaves the lobby")
		}
		if len(updates) > 0 {
			if err := tx.Model(sess).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(id, TopicSession)
	return s.Get(ctx, id)
}

// ClaimSlot seats a captain on a team slot. Re-claiming one's own slot is a
// no-op; a slot held by a different identity is a conflict.
func (s *SessionService) ClaimSlot(ctx context.Context, sessionID uuid.UUID, team int, participantID uuid.UUID) (*domain.Session, error) {
	if err := validTeam(team); err != nil {
		return nil, err
	}
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		sess, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		if sess.Terminal() {
			return preconditionf("session is %s", sess.Status)
		}
		p, err := getParticipant(tx, sessionID, participantID)
		if err != nil {
			return err
		}
		if p.Role != domain.RoleCaptain {
			return preconditionf("only captains claim team slots")
		}

		ident := p.Identity()
		if sess.SlotIdentity(team).Equal(ident) {
			return nil
		}

		updates := map[string]any{
			teamCol(team, "captain_user_id"): ident.UserID,
			teamCol(team, "captain_name"):    nilIfEmpty(ident.DisplayName),
		}
		res := tx.Model(&domain.Session{}).
			Where(fmt.Sprintf("id = ? AND %s IS NULL AND %s IS NULL",
				teamCol(team, "captain_user_id"), teamCol(team, "captain_name")), sessionID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictf("team %d slot is already claimed", team)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(sessionID, TopicSession)
	return s.Get(ctx, sessionID)
}

// ReleaseSlot vacates a slot, but only for the identity recorded on it; a
// stale client cannot vacate someone else's seat.
func (s *SessionService) ReleaseSlot(ctx context.Context, sessionID uuid.UUID, team int, participantID uuid.UUID) (*domain.Session, error) {
	if err := validTeam(team); err != nil {
		return nil, err
	}
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		p, err := getParticipant(tx, sessionID, participantID)
		if err != nil {
			return err
		}
		res := clearSlotIfHeldBy(tx, sessionID, team, p.Identity())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictf("team %d slot is not held by this identity", team)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(sessionID, TopicSession)
	return s.Get(ctx, sessionID)
}

// SelectSide assigns blue or red to a team; rejected while a game is being
// drafted or when the other team already holds that side.
func (s *SessionService) SelectSide(ctx context.Context, sessionID uuid.UUID, team int, side domain.Side, participantID uuid.UUID) (*domain.Session, error) {
	if err := validTeam(team); err != nil {
		return nil, err
	}
	if side != domain.SideBlue && side != domain.SideRed {
		return nil, validationf("side must be blue or red")
	}
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		sess, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		if sess.Terminal() {
			return preconditionf("session is %s", sess.Status)
		}
		if err := s.requireSlotHolder(tx, sess, team, participantID); err != nil {
			return err
		}
		if err := requireNoDraftingGame(tx, sessionID); err != nil {
			return err
		}

		other := 3 - team
		res := tx.Model(&domain.Session{}).
			Where(fmt.Sprintf("id = ? AND %s <> ?", teamCol(other, "side")), sessionID, side).
			Update(teamCol(team, "side"), side)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictf("side %s is already taken", side)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(sessionID, TopicSession)
	return s.Get(ctx, sessionID)
}

// ClearSide unsets a team's side and, with it, its ready flag.
func (s *SessionService) ClearSide(ctx context.Context, sessionID uuid.UUID, team int, participantID uuid.UUID) (*domain.Session, error) {
	if err := validTeam(team); err != nil {
		return nil, err
	}
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		sess, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		if sess.Terminal() {
			return preconditionf("session is %s", sess.Status)
		}
		if err := s.requireSlotHolder(tx, sess, team, participantID); err != nil {
			return err
		}
		if err := requireNoDraftingGame(tx, sessionID); err != nil {
			return err
		}
		return tx.Model(&domain.Session{}).Where("id = ?", sessionID).
			Updates(map[string]any{
				teamCol(team, "side"):  domain.SideNone,
				teamCol(team, "ready"): false,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(sessionID, TopicSession)
	return s.Get(ctx, sessionID)
}

// SetReady flips a team's ready flag. The moment both teams are ready (and
// seated, and on differing sides) the session advances: lobby sessions go
// in_progress with game 1 drafting; in-progress sessions promote the next
// pending game instead.
func (s *SessionService) SetReady(ctx context.Context, sessionID uuid.UUID, team int, ready bool, participantID uuid.UUID) (*domain.Session, error) {
	if err := validTeam(team); err != nil {
		return nil, err
	}
	var startedGame int
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		sess, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		if sess.Terminal() || sess.Status == domain.SessionPaused {
			return preconditionf("session is %s", sess.Status)
		}
		if err := s.requireSlotHolder(tx, sess, team, participantID); err != nil {
			return err
		}
		if ready && sess.SideOf(team) == domain.SideNone {
			return preconditionf("choose a side before readying")
		}

		if err := tx.Model(&domain.Session{}).Where("id = ?", sessionID).
			Update(teamCol(team, "ready"), ready).Error; err != nil {
			return err
		}
		if !ready {
			return nil
		}
		n, err := s.maybeAdvance(tx, sessionID)
		if err != nil {
			return err
		}
		startedGame = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(sessionID, TopicSession)
	if startedGame > 0 {
		s.notify.Changed(sessionID, TopicGame)
		s.log.Info("game started",
			zap.String("session_id", sessionID.String()),
			zap.Int("game", startedGame))
	}
	return s.Get(ctx, sessionID)
}

// maybeAdvance performs the both-ready observation. Returns the game number
// it started, 0 if the handshake is still incomplete.
func (s *SessionService) maybeAdvance(tx *gorm.DB, sessionID uuid.UUID) (int, error) {
	sess, err := getSession(tx, sessionID)
	if err != nil {
		return 0, err
	}
	if sess.SlotIdentity(1).IsZero() || sess.SlotIdentity(2).IsZero() {
		return 0, nil
	}
	if sess.Team1Side == domain.SideNone || sess.Team2Side == domain.SideNone || sess.Team1Side == sess.Team2Side {
		return 0, nil
	}
	if !sess.Team1Ready || !sess.Team2Ready {
		return 0, nil
	}

	next := sess.CurrentGame + 1
	now := time.Now().UTC()
	res := tx.Model(&domain.Game{}).
		Where("session_id = ? AND number = ? AND status = ?", sessionID, next, domain.GamePending).
		Updates(map[string]any{
			"status":       domain.GameDrafting,
			"blue_team":    sess.TeamBySide(domain.SideBlue),
			"cursor":       0,
			"phase":        string(draft.PhaseAt(0)),
			"timer_anchor": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// No pending successor yet (needs CreateNextGame), or a racing
		// ready call already promoted it. Either way, nothing to do.
		return 0, nil
	}

	updates := map[string]any{
		"current_game": next,
		"team1_ready":  false,
		"team2_ready":  false,
	}
	if sess.Status == domain.SessionLobby {
		updates["status"] = domain.SessionInProgress
	}
	if err := tx.Model(&domain.Session{}).Where("id = ?", sessionID).Updates(updates).Error; err != nil {
		return 0, err
	}
	return next, nil
}

// ExtendSeries raises the planned game count mid-series, capped at five.
func (s *SessionService) ExtendSeries(ctx context.Context, sessionID uuid.UUID, plannedGames int) (*domain.Session, error) {
	if plannedGames > MaxPlannedGames {
		return nil, validationf("a series is at most %d games", MaxPlannedGames)
	}
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		sess, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != domain.SessionInProgress && sess.Status != domain.SessionPaused {
			return preconditionf("only a running series can be extended")
		}
		if plannedGames <= sess.PlannedGames {
			return validationf("planned games must grow, have %d", sess.PlannedGames)
		}
		return tx.Model(sess).Update("planned_games", plannedGames).Error
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(sessionID, TopicSession)
	return s.Get(ctx, sessionID)
}

// End finishes a session: pending games are discarded and planned/current
// game counts freeze at the number of games that actually completed, so a
// best-of-5 stopped after 3 reads back as 3/3. completedGames, when given,
// is the caller's expectation and must match.
func (s *SessionService) End(ctx context.Context, sessionID uuid.UUID, completedGames *int) (*domain.Session, error) {
	return s.finish(ctx, sessionID, domain.SessionCompleted, completedGames)
}

func (s *SessionService) Cancel(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	return s.finish(ctx, sessionID, domain.SessionCancelled, nil)
}

func (s *SessionService) finish(ctx context.Context, sessionID uuid.UUID, status domain.SessionStatus, completedGames *int) (*domain.Session, error) {
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		sess, err := getSession(tx, sessionID)
		if err != nil {
			return err
		}
		if sess.Terminal() {
			return preconditionf("session is already %s", sess.Status)
		}

		var completed int64
		if err := tx.Model(&domain.Game{}).
			Where("session_id = ? AND status = ?", sessionID, domain.GameCompleted).
			Count(&completed).Error; err != nil {
			return err
		}
		if completedGames != nil && *completedGames != int(completed) {
			return validationf("expected %d completed games, found %d", *completedGames, completed)
		}

		if err := tx.Where("session_id = ? AND status = ?", sessionID, domain.GamePending).
			Delete(&domain.Game{}).Error; err != nil {
			return err
		}
		// conditional so a concurrent End/Cancel that committed after our
		// read cannot be overwritten out of its terminal state
		res := tx.Model(&domain.Session{}).
			Where("id = ? AND status NOT IN ?", sessionID,
				[]domain.SessionStatus{domain.SessionCompleted, domain.SessionCancelled}).
			Updates(map[string]any{
				"status":        status,
				"planned_games": completed,
				"current_game":  completed,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return preconditionf("session is already finished")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("session finished",
		zap.String("session_id", sessionID.String()),
		zap.String("status", string(status)))
	s.notify.Changed(sessionID, TopicSession)
	s.notify.Changed(sessionID, TopicGame)
	return s.Get(ctx, sessionID)
}

func (s *SessionService) Pause(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	return s.setStatus(ctx, sessionID, domain.SessionInProgress, domain.SessionPaused)
}

func (s *SessionService) Resume(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	return s.setStatus(ctx, sessionID, domain.SessionPaused, domain.SessionInProgress)
}

func (s *SessionService) setStatus(ctx context.Context, sessionID uuid.UUID, from, to domain.SessionStatus) (*domain.Session, error) {
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Session{}).
			Where("id = ? AND status = ?", sessionID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := getSession(tx, sessionID); err != nil {
				return err
			}
			return preconditionf("session is not %s", from)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(sessionID, TopicSession)
	return s.Get(ctx, sessionID)
}

// Delete removes a session and everything scoped to it.
func (s *SessionService) Delete(ctx context.Context, sessionID uuid.UUID) error {
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		if _, err := getSession(tx, sessionID); err != nil {
			return err
		}
		for _, model := range []any{
			&domain.Message{}, &domain.Participant{}, &domain.LedgerEntry{}, &domain.Game{},
		} {
			if err := tx.Where("session_id = ?", sessionID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&domain.Session{}, "id = ?", sessionID).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("session deleted", zap.String("session_id", sessionID.String()))
	return nil
}

func (s *SessionService) moderate(ctx context.Context, texts ...string) error {
	var nonEmpty []string
	for _, t := range texts {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	verdict, err := s.mod.Check(ctx, nonEmpty)
	if err != nil {
		return fmt.Errorf("moderation check: %w", err)
	}
	if verdict.Flagged {
		return moderationf("%s", verdict.Reason)
	}
	return nil
}

func (s *SessionService) requireSlotHolder(tx *gorm.DB, sess *domain.Session, team int, participantID uuid.UUID) error {
	p, err := getParticipant(tx, sess.ID, participantID)
	if err != nil {
		return err
	}
	if !sess.SlotIdentity(team).Equal(p.Identity()) {
		return preconditionf("team %d slot is not held by this identity", team)
	}
	return nil
}

func newPendingGame(sessionID uuid.UUID, number int) *domain.Game {
	return &domain.Game{
		ID:        uuid.New(),
		SessionID: sessionID,
		Number:    number,
		Status:    domain.GamePending,
		BlueBans:  domain.EmptySlots(),
		RedBans:   domain.EmptySlots(),
		BluePicks: domain.EmptySlots(),
		RedPicks:  domain.EmptySlots(),
	}
}

// getSessionForUpdate reads the session row under FOR UPDATE so writers
// scoped to the session serialize on it. The sqlite driver drops the
// locking clause; its single writer serializes anyway.
func getSessionForUpdate(tx *gorm.DB, id uuid.UUID) (*domain.Session, error) {
	return getSession(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func getSession(tx *gorm.DB, id uuid.UUID) (*domain.Session, error) {
	var sess domain.Session
	err := tx.First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("session %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func getParticipant(tx *gorm.DB, sessionID, participantID uuid.UUID) (*domain.Participant, error) {
	var p domain.Participant
	err := tx.First(&p, "id = ? AND session_id = ?", participantID, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("participant %s", participantID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func requireNoDraftingGame(tx *gorm.DB, sessionID uuid.UUID) error {
	var drafting int64
	if err := tx.Model(&domain.Game{}).
		Where("session_id = ? AND status = ?", sessionID, domain.GameDrafting).
		Count(&drafting).Error; err != nil {
		return err
	}
	if drafting > 0 {
		return preconditionf("a game is being drafted")
	}
	return nil
}

func clearSlotIfHeldBy(tx *gorm.DB, sessionID uuid.UUID, team int, ident domain.Identity) *gorm.DB {
	updates := map[string]any{
		teamCol(team, "captain_user_id"): nil,
		teamCol(team, "captain_name"):    nil,
		teamCol(team, "side"):            domain.SideNone,
		teamCol(team, "ready"):           false,
	}
	q := tx.Model(&domain.Session{})
	if ident.UserID != nil {
		q = q.Where(fmt.Sprintf("id = ? AND %s = ?", teamCol(team, "captain_user_id")), sessionID, *ident.UserID)
	} else {
		q = q.Where(fmt.Sprintf("id = ? AND %s = ?", teamCol(team, "captain_name")), sessionID, ident.DisplayName)
	}
	return q.Updates(updates)
}

// renameAnonSlotHolder follows an anonymous captain's display-name change
// into any slot recorded under the old name; for anonymous participants the
// name is the identity, so a stale slot no longer matches its holder.
func renameAnonSlotHolder(tx *gorm.DB, sessionID uuid.UUID, oldName, newName string) error {
	for _, team := range []int{1, 2} {
		err := tx.Model(&domain.Session{}).
			Where(fmt.Sprintf("id = ? AND %s = ? AND %s IS NULL",
				teamCol(team, "captain_name"), teamCol(team, "captain_user_id")),
				sessionID, oldName).
			Update(teamCol(team, "captain_name"), newName).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func validTeam(team int) error {
	if team != 1 && team != 2 {
		return validationf("team must be 1 or 2")
	}
	return nil
}

func teamCol(team int, suffix string) string {
	return fmt.Sprintf("team%d_%s", team, suffix)
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
