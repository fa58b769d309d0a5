package www

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const sessionName = "cellcore-session"

// requireAuth guards mutating routes. With auth_disabled set (dev and test
// rigs) every request passes.
func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.AuthDisabled {
			next.ServeHTTP(w, r)
			return
		}
		sess, _ := h.sessions.Get(r, sessionName)
		if auth, ok := sess.Values["authenticated"].(bool); !ok || !auth {
			h.jsonError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) apiLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid login payload", http.StatusBadRequest)
		return
	}
	if req.User != h.cfg.AdminUser || h.cfg.AdminPassHash == "" {
		h.jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminPassHash), []byte(req.Password)); err != nil {
		h.jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	sess, _ := h.sessions.Get(r, sessionName)
	sess.Values["authenticated"] = true
	sess.Options.HttpOnly = true
	if err := sess.Save(r, w); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(r, sessionName)
	sess.Values["authenticated"] = false
	sess.Options.MaxAge = -1
	sess.Save(r, w)
	h.jsonOK(w, map[string]string{"status": "ok"})
}
