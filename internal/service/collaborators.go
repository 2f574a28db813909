package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prodraft/draft-series-backend/internal/domain"
)

// Topics for change notifications. Clients refetch the named resource; they
// never receive deltas.
const (
	TopicSession      = "session"
	TopicGame         = "game"
	TopicParticipants = "participants"
	TopicChat         = "chat"
	TopicLedger       = "ledger"
)

// Notifier fans authoritative-change signals out to connected clients.
// Hover previews never pass through here; they go from the ws layer straight
// into the room.
type Notifier interface {
	Changed(sessionID uuid.UUID, topic string)
}

type NopNotifier struct{}

func (NopNotifier) Changed(uuid.UUID, string) {}

// Verdict is a moderation collaborator's judgement of submitted text.
type Verdict struct {
	Flagged bool
	Reason  string
}

type Moderator interface {
	Check(ctx context.Context, texts []string) (Verdict, error)
}

// AllowAll is the default when no moderation backend is configured.
type AllowAll struct{}

func (AllowAll) Check(context.Context, []string) (Verdict, error) {
	return Verdict{}, nil
}

// ChampionCatalog validates submitted champion identifiers; the core never
// mutates champion data.
type ChampionCatalog interface {
	Exists(ctx context.Context, id int) (bool, error)
	Get(ctx context.Context, id int) (*domain.Champion, error)
}

// DBCatalog reads the champions table kept in sync by an external process.
type DBCatalog struct {
	db *gorm.DB
}

func NewDBCatalog(db *gorm.DB) *DBCatalog {
	return &DBCatalog{db: db}
}

func (c *DBCatalog) Exists(ctx context.Context, id int) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).Model(&domain.Champion{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (c *DBCatalog) Get(ctx context.Context, id int) (*domain.Champion, error) {
	var champ domain.Champion
	err := c.db.WithContext(ctx).First(&champ, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("champion %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &champ, nil
}
