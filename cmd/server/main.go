package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prodraft/draft-series-backend/internal/config"
	"github.com/prodraft/draft-series-backend/internal/httpapi"
	"github.com/prodraft/draft-series-backend/internal/hub"
	"github.com/prodraft/draft-series-backend/internal/kvstore"
	"github.com/prodraft/draft-series-backend/internal/service"
	"github.com/prodraft/draft-series-backend/internal/store"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("store", zap.Error(err))
	}

	var kv kvstore.Store
	if b, err := kvstore.Open(cfg.DataDir); err != nil {
		log.Warn("kvstore unavailable, using in-memory fallback", zap.Error(err))
		kv = kvstore.NewMemory()
	} else {
		kv = b
	}
	defer kv.Close()

	ctx := context.Background()
	h := hub.New(ctx)
	notify := hub.Notifier{Hub: h}
	mod := service.AllowAll{}
	catalog := service.NewDBCatalog(st.DB())

	sessions := service.NewSessionService(st, log, mod, notify)
	games := service.NewGameService(st, log, catalog, notify)
	ledger := service.NewLedgerService(st)
	participants := service.NewParticipantService(st, log, mod, kv, notify)
	chat := service.NewChatService(st, log, mod, kv, notify)

	api := &httpapi.API{
		Log:                log,
		Sessions:           sessions,
		Games:              games,
		Ledger:             ledger,
		Participants:       participants,
		Chat:               chat,
		DefaultBanSeconds:  cfg.DefaultBanSeconds,
		DefaultPickSeconds: cfg.DefaultPickSeconds,
	}

	exists := func(ctx context.Context, id uuid.UUID) bool {
		_, err := sessions.Get(ctx, id)
		return err == nil
	}
	handler := httpapi.SetupRoutes(api, h, exists)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal("server", zap.Error(err))
	}
}
