package service

import (
	"context"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prodraft/draft-series-backend/internal/domain"
	"github.com/prodraft/draft-series-backend/internal/kvstore"
	"github.com/prodraft/draft-series-backend/internal/store"
)

// ChatService is the session-scoped message log: hard cap, no eviction,
// every message moderated before acceptance.
type ChatService struct {
	store  *store.Store
	log    *zap.Logger
	mod    Moderator
	kv     kvstore.Store
	notify Notifier
}

func NewChatService(st *store.Store, log *zap.Logger, mod Moderator, kv kvstore.Store, notify Notifier) *ChatService {
	return &ChatService{store: st, log: log, mod: mod, kv: kv, notify: notify}
}

type SendMessageInput struct {
	SessionID     uuid.UUID
	ParticipantID uuid.UUID
	Content       string
}

func (s *ChatService) Send(ctx context.Context, in SendMessageInput) (*domain.Message, error) {
	if in.Content == "" {
		return nil, validationf("message content is required")
	}
	if utf8.RuneCountInString(in.Content) > domain.MaxMessageLen {
		return nil, validationf("message exceeds %d characters", domain.MaxMessageLen)
	}
	verdict, err := s.mod.Check(ctx, []string{in.Content})
	if err != nil {
		return nil, err
	}
	if verdict.Flagged {
		return nil, moderationf("%s", verdict.Reason)
	}

	msg := &domain.Message{ID: uuid.New()}
	err = s.store.Tx(ctx, func(tx *gorm.DB) error {
		// lock the session row so concurrent senders serialize; without
		// it two transactions can both count 49 and both insert
		sess, err := getSessionForUpdate(tx, in.SessionID)
		if err != nil {
			return err
		}
		if sess.Terminal() {
			return preconditionf("session is %s", sess.Status)
		}
		p, err := getParticipant(tx, in.SessionID, in.ParticipantID)
		if err != nil {
			return err
		}

		msg.SessionID = in.SessionID
		msg.AuthorName = p.DisplayName
		msg.AuthorUserID = p.UserID
		msg.Content = in.Content
		msg.CreatedAt = time.Now().UTC()

		// guarded insert keeps the count check and the write atomic under
		// concurrent senders
		res := tx.Exec(
			`INSERT INTO messages (id, session_id, author_name, author_user_id, content, created_at)
			 SELECT ?, ?, ?, ?, ?, ?
			 WHERE (SELECT COUNT(*) FROM messages WHERE session_id = ?) < ?`,
			msg.ID, msg.SessionID, msg.AuthorName, msg.AuthorUserID, msg.Content, msg.CreatedAt,
			in.SessionID, domain.MaxMessagesPerSession,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflictf("chat log is full (%d messages)", domain.MaxMessagesPerSession)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Changed(in.SessionID, TopicChat)
	return msg, nil
}

func (s *ChatService) List(ctx context.Context, sessionID uuid.UUID) ([]domain.Message, error) {
	var msgs []domain.Message
	err := s.store.DB().WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc").
		Find(&msgs).Error
	return msgs, err
}

// MarkSeen remembers how far a participant has read, in the best-effort kv
// collaborator.
func (s *ChatService) MarkSeen(sessionID, participantID uuid.UUID, count int) {
	key := seenKey(sessionID, participantID)
	if err := s.kv.Set(key, []byte(strconv.Itoa(count))); err != nil {
		s.log.Warn("last-seen store unavailable", zap.Error(err))
	}
}

func (s *ChatService) LastSeen(sessionID, participantID uuid.UUID) int {
	raw, err := s.kv.Get(seenKey(sessionID, participantID))
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(string(raw))
	return n
}

func seenKey(sessionID, participantID uuid.UUID) string {
	return "chatseen/" + sessionID.String() + "/" + participantID.String()
}
