package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prodraft/draft-series-backend/internal/hub"
	"github.com/prodraft/draft-series-backend/internal/ws"
)

func SetupRoutes(a *API, h *hub.Hub, exists ws.SessionChecker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, exists))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", a.createSession)
		r.Get("/by-invite", a.getSessionByInvite)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getSession)
			r.Patch("/", a.updateSession)
			r.Delete("/", a.deleteSession)
			r.Post("/end", a.endSession)
			r.Post("/cancel", a.cancelSession)
			r.Post("/pause", a.pauseSession)
			r.Post("/resume", a.resumeSession)
			r.Post("/extend", a.extendSeries)

			r.Route("/slots/{team}", func(r chi.Router) {
				r.Post("/claim", a.claimSlot)
				r.Post("/release", a.releaseSlot)
				r.Post("/side", a.selectSide)
				r.Delete("/side", a.clearSide)
				r.Post("/ready", a.setReady)
			})

			r.Route("/games", func(r chi.Router) {
				r.Post("/", a.createNextGame)
				r.Get("/", a.listGames)
				r.Route("/{number}", func(r chi.Router) {
					r.Get("/", a.getGame)
					r.Post("/actions", a.submitAction)
					r.Post("/picks", a.editPick)
					r.Post("/fill", a.fillTimedOutSlot)
					r.Post("/reset", a.resetGame)
					r.Post("/winner", a.setWinner)
				})
			})

			r.Post("/participants", a.joinSession)
			r.Get("/participants", a.listParticipants)
			r.Delete("/participants/{pid}", a.leaveSession)
			r.Post("/participants/{pid}/heartbeat", a.heartbeat)

			r.Post("/chat", a.sendMessage)
			r.Get("/chat", a.listMessages)
			r.Post("/chat/seen", a.markChatSeen)
			r.Get("/chat/seen", a.getChatSeen)

			r.Get("/ledger", a.listLedger)
		})
	})

	return r
}
