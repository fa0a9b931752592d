package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/pribylovaa/techsite/internal/errors"
	"github.com/pribylovaa/techsite/internal/models"
	"github.com/pribylovaa/techsite/internal/tokens"
)

// SessionResponse — состояние сессии для фронта.
type SessionResponse struct {
	State           string              `json:"state"`
	User            *models.UserProfile `json:"user,omitempty"`
	AccessExpiresAt *time.Time          `json:"access_expires_at,omitempty"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if err := decodeStrict(w, r, &in); err != nil {
		debugDecode(r, err)
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := h.conn(r).ctl.Login(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if err := decodeStrict(w, r, &in); err != nil {
		debugDecode(r, err)
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := h.conn(r).ctl.AdminLogin(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(w, r, &in); err != nil {
		debugDecode(r, err)
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.conn(r).ctl.Register(r.Context(), in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Logout никогда не падает.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.conn(r).ctl.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Session выполняет проверку сессии и отдаёт её состояние.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	c := h.conn(r)

	c.ctl.CheckSession(r.Context())
	state, profile := c.ctl.State()

	out := SessionResponse{State: state.String(), User: profile}
	if access, ok := c.store.Get(r.Context(), tokens.KeyAccess); ok && profile != nil {
		if exp, ok := tokens.AccessExpiry(access); ok {
			out.AccessExpiresAt = &exp
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// Profile перечитывает профиль текущего пользователя у API.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	c := h.conn(r)

	c.ctl.CheckSession(r.Context())

	p, err := c.ctl.RefreshProfile(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
