package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/prodraft/draft-series-backend/internal/domain"
	"github.com/prodraft/draft-series-backend/internal/draft"
	"github.com/prodraft/draft-series-backend/internal/store"
)

// LedgerService reads the unavailable-champion ledger. Availability is
// computed from entries, never stored.
type LedgerService struct {
	store *store.Store
}

func NewLedgerService(st *store.Store) *LedgerService {
	return &LedgerService{store: st}
}

func (s *LedgerService) List(ctx context.Context, sessionID uuid.UUID) ([]domain.LedgerEntry, error) {
	return ledgerEntries(s.store.DB().WithContext(ctx), sessionID)
}

// UnavailableFor lists the champions a team cannot use in the given game
// under the session's draft mode.
func (s *LedgerService) UnavailableFor(ctx context.Context, sessionID uuid.UUID, team, gameNumber int) ([]int, error) {
	if err := validTeam(team); err != nil {
		return nil, err
	}
	sess, err := getSession(s.store.DB().WithContext(ctx), sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := ledgerEntries(s.store.DB().WithContext(ctx), sessionID)
	if err != nil {
		return nil, err
	}
	return draft.UnavailableTo(sess.Mode, entries, team, gameNumber), nil
}
