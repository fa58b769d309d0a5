// Package www is the HTTP surface: read-only status endpoints plus the
// authenticated command API.
package www

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"cellcore/config"
	"cellcore/engine"
)

type Handlers struct {
	engine   *engine.Engine
	cfg      *config.WebConfig
	sessions *sessions.CookieStore
}

func NewHandlers(eng *engine.Engine, cfg *config.WebConfig) *Handlers {
	key := cfg.SessionKey
	if key == "" {
		key = "cellcore-dev-session-key"
	}
	return &Handlers{
		engine:   eng,
		cfg:      cfg,
		sessions: sessions.NewCookieStore([]byte(key)),
	}
}

func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/health", h.apiHealth)
	r.Get("/api/conveyors", h.apiListConveyors)
	r.Get("/api/conveyors/{id}", h.apiGetConveyor)
	r.Get("/api/warehouses", h.apiListWarehouses)
	r.Get("/api/orders", h.apiListOrders)
	r.Get("/api/orders/{id}", h.apiGetOrder)
	r.Get("/api/transfers", h.apiListTransfers)
	r.Get("/api/alarms", h.apiListAlarms)
	r.Get("/api/events", h.apiListEvents)
	r.Get("/api/quality", h.apiListQuality)

	r.Post("/api/login", h.apiLogin)
	r.Post("/api/logout", h.apiLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/command", h.apiCommand)
		r.Post("/api/orders", h.apiCreateOrder)
	})

	return r
}

// ListenAddr builds host:port from the web config.
func ListenAddr(cfg *config.WebConfig) string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
