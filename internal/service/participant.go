package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prodraft/draft-series-backend/internal/domain"
	"github.com/prodraft/draft-series-backend/internal/kvstore"
	"github.com/prodraft/draft-series-backend/internal/store"
)

// ParticipantService is the presence registry. Anonymous participants are
// correlated to sessions through tokens in the kv collaborator; the kv store
// is best-effort and a lost token simply mints a new identity.
type ParticipantService struct {
	store  *store.Store
	log    *zap.Logger
	mod    Moderator
	kv     kvstore.Store
	notify Notifier
}

func NewParticipantService(st *store.Store, log *zap.Logger, mod Moderator, kv kvstore.Store, notify Notifier) *ParticipantService {
	return &ParticipantService{store: st, log: log, mod: mod, kv: kv, notify: notify}
}

type JoinInput struct {
	SessionID   uuid.UUID
	Role        domain.Role
	DisplayName string
	// UserID is set for authenticated users; AnonToken is a previously
	// issued anonymous token. At most one of the two.
	UserID    *uuid.UUID
	AnonToken string
}

type JoinResult struct {
	Participant *domain.Participant `json:"participant"`
	// AnonToken is issued on first anonymous join; the caller must persist
	// it to reconnect as the same participant.
	AnonToken string `json:"anonToken,omitempty"`
}

// Join is idempotent with respect to a stable identity: authenticated
// re-joins and anonymous re-joins with a valid token update the existing row
// instead of creating a second one.
func (s *ParticipantService) Join(ctx context.Context, in JoinInput) (*JoinResult, error) {
	if in.Role != domain.RoleCaptain && in.Role != domain.RoleSpectator {
		return nil, validationf("role must be captain or spectator")
	}
	if in.DisplayName == "" {
		return nil, validationf("display name is required")
	}
	if in.UserID != nil && in.AnonToken != "" {
		return nil, validationf("user id and anonymous token are mutually exclusive")
	}
	verdict, err := s.mod.Check(ctx, []string{in.DisplayName})
	if err != nil {
		return nil, err
	}
	if verdict.Flagged {
		return nil, moderationf("%s", verdict.Reason)
	}

	var result JoinResult
	join := func(tx *gorm.DB) error {
		sess, err := getSession(tx, in.SessionID)
		if err != nil {
			return err
		}
		if sess.Terminal() {
			return preconditionf("session is %s", sess.Status)
		}

		now := time.Now().UTC()
		if existing, err := s.findExisting(tx, in); err != nil {
			return err
		} else if existing != nil {
			if existing.UserID == nil && existing.DisplayName != in.DisplayName {
				// the name is an anonymous participant's identity; a held
				// slot must follow the rename or its holder is locked out
				if err := renameAnonSlotHolder(tx, in.SessionID, existing.DisplayName, in.DisplayName); err != nil {
					return err
				}
			}
			if err := tx.Model(existing).Updates(map[string]any{
				"display_name": in.DisplayName,
				"role":         in.Role,
				"connected":    true,
				"last_seen_at": now,
			}).Error; err != nil {
				return err
			}
			existing.DisplayName = in.DisplayName
			existing.Role = in.Role
			existing.Connected = true
			existing.LastSeenAt = now
			result.Participant = existing
			if existing.UserID == nil {
				result.AnonToken = existing.ID.String()
			}
			return nil
		}

		p := &domain.Participant{
			ID:          uuid.New(),
			SessionID:   in.SessionID,
			UserID:      in.UserID,
			DisplayName: in.DisplayName,
			Role:        in.Role,
			Connected:   true,
			LastSeenAt:  now,
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		result.Participant = p
		if in.UserID == nil {
			result.AnonToken = p.ID.String()
		}
		return nil
	}
	err = s.store.Tx(ctx, join)
	if isUniqueViolation(err) {
		// lost a create race with the same user's concurrent join; the
		// winner's row is committed now, so the re-join path takes over
		result = JoinResult{}
		err = s.store.Tx(ctx, join)
	}
	if err != nil {
		return nil, err
	}

	if result.AnonToken != "" {
		// token mirror for reconnect discovery; losing it only costs a
		// fresh identity
		if err := s.kv.Set(identityKey(in.SessionID), []byte(result.AnonToken)); err != nil {
			s.log.Warn("identity store unavailable", zap.Error(err))
		}
	}
	s.notify.Changed(in.SessionID, TopicParticipants)
	return &result, nil
}

func (s *ParticipantService) findExisting(tx *gorm.DB, in JoinInput) (*domain.Participant, error) {
	var p domain.Participant
	var err error
	switch {
	case in.UserID != nil:
		err = tx.First(&p, "session_id = ? AND user_id = ?", in.SessionID, *in.UserID).Error
	case in.AnonToken != "":
		id, parseErr := uuid.Parse(in.AnonToken)
		if parseErr != nil {
			return nil, nil // stale or foreign token, mint fresh
		}
		err = tx.First(&p, "session_id = ? AND id = ? AND user_id IS NULL", in.SessionID, id).Error
	default:
		return nil, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RecoverToken rediscovers a previously issued anonymous token for a
// session, if the kv collaborator still has it.
func (s *ParticipantService) RecoverToken(sessionID uuid.UUID) (string, bool) {
	raw, err := s.kv.Get(identityKey(sessionID))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// Leave removes a participant. A leaving captain vacates a team slot only
// when the slot records the same identity.
func (s *ParticipantService) Leave(ctx context.Context, sessionID, participantID uuid.UUID) error {
	var wasAnon bool
	err := s.store.Tx(ctx, func(tx *gorm.DB) error {
		p, err := getParticipant(tx, sessionID, participantID)
		if err != nil {
			return err
		}
		wasAnon = p.UserID == nil
		if p.Role == domain.RoleCaptain {
			ident := p.Identity()
			for _, team := range []int{1, 2} {
				if res := clearSlotIfHeldBy(tx, sessionID, team, ident); res.Error != nil {
					return res.Error
				}
			}
		}
		return tx.Delete(&domain.Participant{}, "id = ?", participantID).Error
	})
	if err != nil {
		return err
	}
	if wasAnon {
		if err := s.kv.Delete(identityKey(sessionID)); err != nil {
			s.log.Warn("identity store unavailable", zap.Error(err))
		}
	}
	s.notify.Changed(sessionID, TopicParticipants)
	s.notify.Changed(sessionID, TopicSession)
	return nil
}

func (s *ParticipantService) List(ctx context.Context, sessionID uuid.UUID) ([]domain.Participant, error) {
	var out []domain.Participant
	err := s.store.DB().WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// Heartbeat refreshes presence for a connected participant.
func (s *ParticipantService) Heartbeat(ctx context.Context, sessionID, participantID uuid.UUID, connected bool) error {
	res := s.store.DB().WithContext(ctx).Model(&domain.Participant{}).
		Where("id = ? AND session_id = ?", participantID, sessionID).
		Updates(map[string]any{
			"connected":    connected,
			"last_seen_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFoundf("participant %s", participantID)
	}
	s.notify.Changed(sessionID, TopicParticipants)
	return nil
}

func identityKey(sessionID uuid.UUID) string {
	return "identity/" + sessionID.String()
}
