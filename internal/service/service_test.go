package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prodraft/draft-series-backend/internal/domain"
	"github.com/prodraft/draft-series-backend/internal/draft"
	"github.com/prodraft/draft-series-backend/internal/kvstore"
	"github.com/prodraft/draft-series-backend/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	// named shared-cache memory db so the pool's connections see one schema
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	st := store.New(db)
	require.NoError(t, st.Migrate())
	return st
}

// fakeCatalog accepts any positive id below 1000 so tests pick ids freely.
type fakeCatalog struct{}

func (fakeCatalog) Exists(_ context.Context, id int) (bool, error) {
	return id > 0 && id < 1000, nil
}

func (fakeCatalog) Get(_ context.Context, id int) (*domain.Champion, error) {
	return &domain.Champion{ID: id, Name: fmt.Sprintf("champ-%d", id)}, nil
}

// rejectWord flags any text containing the configured word.
type rejectWord string

func (m rejectWord) Check(_ context.Context, texts []string) (Verdict, error) {
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), string(m)) {
			return Verdict{Flagged: true, Reason: "contains blocked term"}, nil
		}
	}
	return Verdict{}, nil
}

type testEnv struct {
	store        *store.Store
	sessions     *SessionService
	games        *GameService
	ledger       *LedgerService
	participants *ParticipantService
	chat         *ChatService
	kv           kvstore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := testStore(t)
	log := zap.NewNop()
	kv := kvstore.NewMemory()
	notify := NopNotifier{}
	mod := AllowAll{}

	return &testEnv{
		store:        st,
		sessions:     NewSessionService(st, log, mod, notify),
		games:        NewGameService(st, log, fakeCatalog{}, notify),
		ledger:       NewLedgerService(st),
		participants: NewParticipantService(st, log, mod, kv, notify),
		chat:         NewChatService(st, log, mod, kv, notify),
		kv:           kv,
	}
}

func (e *testEnv) createSession(t *testing.T, mode domain.DraftMode, planned int) *domain.Session {
	t.Helper()
	sess, err := e.sessions.Create(context.Background(), CreateSessionInput{
		Name:         "scrim night",
		Mode:         mode,
		PlannedGames: planned,
		BanSeconds:   30,
		PickSeconds:  30,
		Team1Name:    "Cloud Nine",
		Team2Name:    "Team Liquid",
	})
	require.NoError(t, err)
	return sess
}

func (e *testEnv) joinCaptain(t *testing.T, sessionID uuid.UUID, name string) *domain.Participant {
	t.Helper()
	res, err := e.participants.Join(context.Background(), JoinInput{
		SessionID:   sessionID,
		Role:        domain.RoleCaptain,
		DisplayName: name,
	})
	require.NoError(t, err)
	return res.Participant
}

func (e *testEnv) joinSpectator(t *testing.T, sessionID uuid.UUID, name string) *domain.Participant {
	t.Helper()
	res, err := e.participants.Join(context.Background(), JoinInput{
		SessionID:   sessionID,
		Role:        domain.RoleSpectator,
		DisplayName: name,
	})
	require.NoError(t, err)
	return res.Participant
}

// seat claims a team slot and selects its side.
func (e *testEnv) seat(t *testing.T, sessionID uuid.UUID, team int, p *domain.Participant, side domain.Side) {
	t.Helper()
	ctx := context.Background()
	_, err := e.sessions.ClaimSlot(ctx, sessionID, team, p.ID)
	require.NoError(t, err)
	_, err = e.sessions.SelectSide(ctx, sessionID, team, side, p.ID)
	require.NoError(t, err)
}

func (e *testEnv) readyBoth(t *testing.T, sessionID uuid.UUID, p1, p2 *domain.Participant) {
	t.Helper()
	ctx := context.Background()
	_, err := e.sessions.SetReady(ctx, sessionID, 1, true, p1.ID)
	require.NoError(t, err)
	_, err = e.sessions.SetReady(ctx, sessionID, 2, true, p2.ID)
	require.NoError(t, err)
}

// startSession seats two captains (team 1 blue, team 2 red) and readies
// both, which starts game 1.
func (e *testEnv) startSession(t *testing.T, sessionID uuid.UUID) (*domain.Participant, *domain.Participant) {
	t.Helper()
	p1 := e.joinCaptain(t, sessionID, "alice")
	p2 := e.joinCaptain(t, sessionID, "bob")
	e.seat(t, sessionID, 1, p1, domain.SideBlue)
	e.seat(t, sessionID, 2, p2, domain.SideRed)
	e.readyBoth(t, sessionID, p1, p2)
	return p1, p2
}

// runDraft submits every remaining step of a drafting game, picking fresh
// champion ids starting at base. captains maps team number to its captain.
func (e *testEnv) runDraft(t *testing.T, sessionID uuid.UUID, number int, captains map[int]*domain.Participant, base int) {
	t.Helper()
	ctx := context.Background()
	for {
		g, err := e.games.Get(ctx, sessionID, number)
		require.NoError(t, err)
		if g.Status == domain.GameCompleted {
			return
		}
		step, ok := draft.StepAt(g.Cursor)
		require.True(t, ok)
		actor := captains[g.TeamOnSide(step.Side)]
		champ := base + g.Cursor
		_, err = e.games.SubmitAction(ctx, SubmitActionInput{
			SessionID:     sessionID,
			GameNumber:    number,
			ParticipantID: actor.ID,
			ActionIndex:   g.Cursor,
			ChampionID:    &champ,
		})
		require.NoError(t, err)
	}
}

func intPtr(n int) *int { return &n }
