package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prodraft/draft-series-backend/internal/domain"
)

func TestSideHandshakeStartsSeries(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess := e.createSession(t, domain.ModeNormal, 3)
	require.Equal(t, domain.SessionLobby, sess.Status)
	require.NotEmpty(t, sess.InviteToken)

	a := e.joinCaptain(t, sess.ID, "alice")
	b := e.joinCaptain(t, sess.ID, "bob")

	_, err := e.sessions.ClaimSlot(ctx, sess.ID, 1, a.ID)
	require.NoError(t, err)
	_, err = e.sessions.SelectSide(ctx, sess.ID, 1, domain.SideBlue, a.ID)
	require.NoError(t, err)

	_, err = e.sessions.ClaimSlot(ctx, sess.ID, 2, b.ID)
	require.NoError(t, err)

	// blue is taken, the second team must settle for red
	_, err = e.sessions.SelectSide(ctx, sess.ID, 2, domain.SideBlue, b.ID)
	require.ErrorIs(t, err, ErrConflict)
	_, err = e.sessions.SelectSide(ctx, sess.ID, 2, domain.SideRed, b.ID)
	require.NoError(t, err)

	got, err := e.sessions.SetReady(ctx, sess.ID, 1, true, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionLobby, got.Status, "one ready team is not enough")

	got, err = e.sessions.SetReady(ctx, sess.ID, 2, true, b.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionInProgress, got.Status)
	require.Equal(t, 1, got.CurrentGame)
	require.False(t, got.Team1Ready, "ready flags reset when a game starts")
	require.False(t, got.Team2Ready)

	g, err := e.games.Get(ctx, sess.ID, 1)
	require.NoError(t, err)
	require.Equal(t, domain.GameDrafting, g.Status)
	require.Equal(t, 1, g.BlueTeam)
	require.Equal(t, 0, g.Cursor)
	require.Equal(t, "ban1", g.Phase)
	require.NotNil(t, g.TimerAnchor)
}

func TestClaimSlotConflicts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess := e.createSession(t, domain.ModeNormal, 1)
	a := e.joinCaptain(t, sess.ID, "alice")
	b := e.joinCaptain(t, sess.ID, "bob")

	_, err := e.sessions.ClaimSlot(ctx, sess.ID, 1, a.ID)
	require.NoError(t, err)

	// occupied slot rejects another captain
	_, err = e.sessions.ClaimSlot(ctx, sess.ID, 1, b.ID)
	require.ErrorIs(t, err, ErrConflict)

	// re-claiming your own slot is a no-op
	got, err := e.sessions.ClaimSlot(ctx, sess.ID, 1, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Team1CaptainName)
	require.Equal(t, "alice", *got.Team1CaptainName)

	// only the holder can release
	_, err = e.sessions.ReleaseSlot(ctx, sess.ID, 1, b.ID)
	require.ErrorIs(t, err, ErrConflict)
	got, err = e.sessions.ReleaseSlot(ctx, sess.ID, 1, a.ID)
	require.NoError(t, err)
	require.Nil(t, got.Team1CaptainName)
}

func TestReadyRequiresSeatAndSide(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess := e.createSession(t, domain.ModeNormal, 1)
	a := e.joinCaptain(t, sess.ID, "alice")

	// not seated yet
	_, err := e.sessions.SetReady(ctx, sess.ID, 1, true, a.ID)
	require.ErrorIs(t, err, ErrPrecondition)

	_, err = e.sessions.ClaimSlot(ctx, sess.ID, 1, a.ID)
	require.NoError(t, err)

	// seated but no side chosen
	_, err = e.sessions.SetReady(ctx, sess.ID, 1, true, a.ID)
	require.ErrorIs(t, err, ErrPrecondition)

	_, err = e.sessions.SelectSide(ctx, sess.ID, 1, domain.SideBlue, a.ID)
	require.NoError(t, err)
	got, err := e.sessions.SetReady(ctx, sess.ID, 1, true, a.ID)
	require.NoError(t, err)
	require.True(t, got.Team1Ready)
	// opposing slot is empty, so nothing starts
	require.Equal(t, domain.SessionLobby, got.Status)
}

func TestUpdateOnlyInLobby(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess := e.createSession(t, domain.ModeNormal, 1)

	name := "finals rehearsal"
	got, err := e.sessions.Update(ctx, sess.ID, UpdateSessionInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, got.Name)

	e.startSession(t, sess.ID)
	other := "too late"
	_, err = e.sessions.Update(ctx, sess.ID, UpdateSessionInput{Name: &other})
	require.ErrorIs(t, err, ErrPrecondition)
}

func TestEndFreezesSeriesAtCompletedCount(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess := e.createSession(t, domain.ModeNormal, 5)
	p1, p2 := e.startSession(t, sess.ID)
	captains := map[int]*domain.Participant{1: p1, 2: p2}

	e.runDraft(t, sess.ID, 1, captains, 100)
	_, err := e.games.CreateNext(ctx, sess.ID)
	require.NoError(t, err)
	e.readyBoth(t, sess.ID, p1, p2)
	e.runDraft(t, sess.ID, 2, captains, 200)

	// a third game sits pending when the organizer calls it off
	_, err = e.games.CreateNext(ctx, sess.ID)
	require.NoError(t, err)

	// caller's expectation must match what actually finished
	_, err = e.sessions.End(ctx, sess.ID, intPtr(3))
	require.ErrorIs(t, err, ErrValidation)

	got, err := e.sessions.End(ctx, sess.ID, intPtr(2))
	require.NoError(t, err)
	require.Equal(t, domain.SessionCompleted, got.Status)
	require.Equal(t, 2, got.PlannedGames, "a bo5 stopped after two reads back as 2/2")
	require.Equal(t, 2, got.CurrentGame)

	games, err := e.games.List(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, games, 2, "the pending game is discarded")

	// a finished session rejects further transitions
	_, err = e.sessions.Cancel(ctx, sess.ID)
	require.ErrorIs(t, err, ErrPrecondition)
}

func TestFinishRefusesTerminalOverwrite(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess := e.createSession(t, domain.ModeNormal, 1)

	// flip the session terminal between End's status read and its final
	// update, the way a concurrent Cancel committing first would
	fired := false
	err := e.store.DB().Callback().Update().Before("gorm:update").Register("terminal_race", func(d *gorm.DB) {
		if fired {
			return
		}
		fired = true
		_, execErr := d.Statement.ConnPool.ExecContext(context.Background(),
			"UPDATE sessions SET status = ? WHERE id = ?",
			string(domain.SessionCancelled), sess.ID)
		require.NoError(t, execErr)
	})
	require.NoError(t, err)
	defer e.store.DB().Callback().Update().Remove("terminal_race")

	_, err = e.sessions.End(ctx, sess.ID, nil)
	require.ErrorIs(t, err, ErrPrecondition)

	got, err := e.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionCancelled, got.Status, "the first terminal state sticks")
}

func TestPauseBlocksDraftActions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess := e.createSession(t, domain.ModeNormal, 1)
	p1, _ := e.startSession(t, sess.ID)

	_, err := e.sessions.Pause(ctx, sess.ID)
	require.NoError(t, err)

	champ := 42
	_, err = e.games.SubmitAction(ctx, SubmitActionInput{
		SessionID:     sess.ID,
		GameNumber:    1,
		ParticipantID: p1.ID,
		ActionIndex:   0,
		ChampionID:    &champ,
	})
	require.ErrorIs(t, err, ErrPrecondition)

	// pausing twice is rejected, resuming restores play
	_, err = e.sessions.Pause(ctx, sess.ID)
	require.ErrorIs(t, err, ErrPrecondition)
	_, err = e.sessions.Resume(ctx, sess.ID)
	require.NoError(t, err)

	g, err := e.games.SubmitAction(ctx, SubmitActionInput{
		SessionID:     sess.ID,
		GameNumber:    1,
		ParticipantID: p1.ID,
		ActionIndex:   0,
		ChampionID:    &champ,
	})
	require.NoError(t, err)
	require.Equal(t, 1, g.Cursor)
}

func TestExtendSeries(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess := e.createSession(t, domain.ModeNormal, 1)

	// lobby sessions are configured via Update, not extended
	_, err := e.sessions.ExtendSeries(ctx, sess.ID, 3)
	require.ErrorIs(t, err, ErrPrecondition)

	e.startSession(t, sess.ID)
	got, err := e.sessions.ExtendSeries(ctx, sess.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 3, got.PlannedGames)

	_, err = e.sessions.ExtendSeries(ctx, sess.ID, 2)
	require.ErrorIs(t, err, ErrValidation)
	_, err = e.sessions.ExtendSeries(ctx, sess.ID, MaxPlannedGames+1)
	require.ErrorIs(t, err, ErrValidation)
}

func TestGetByInviteToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess := e.createSession(t, domain.ModeNormal, 1)

	got, err := e.sessions.GetByInviteToken(ctx, sess.InviteToken)
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)

	_, err = e.sessions.GetByInviteToken(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSessionCascades(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	sess := e.createSession(t, domain.ModeNormal, 1)
	p1, _ := e.startSession(t, sess.ID)

	_, err := e.chat.Send(ctx, SendMessageInput{
		SessionID: sess.ID, ParticipantID: p1.ID, Content: "glhf",
	})
	require.NoError(t, err)

	require.NoError(t, e.sessions.Delete(ctx, sess.ID))

	_, err = e.sessions.Get(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
	parts, err := e.participants.List(ctx, sess.ID)
	require.NoError(t, err)
	require.Empty(t, parts)
	msgs, err := e.chat.List(ctx, sess.ID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}
