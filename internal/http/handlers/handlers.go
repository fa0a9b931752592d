package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/techsite/internal/apiclient"
	apierrors "github.com/pribylovaa/techsite/internal/errors"
	"github.com/pribylovaa/techsite/internal/http/middleware"
	"github.com/pribylovaa/techsite/internal/session"
	"github.com/pribylovaa/techsite/internal/site"
	"github.com/pribylovaa/techsite/internal/tokens"
	"github.com/pribylovaa/techsite/pkg/log"
)

// maxBodyBytes — предел тела входящего JSON-запроса.
const maxBodyBytes = 1 << 20

// Handlers агрегирует зависимости: хранилище сессий и общие параметры клиентов API.
type Handlers struct {
	Sessions tokens.Provider
	API      apiclient.Options
}

func New(sessions tokens.Provider, api apiclient.Options) *Handlers {
	return &Handlers{Sessions: sessions, API: api}
}

// conn — контроллер сессии и ресурсы сайта для текущего запроса.
type conn struct {
	store tokens.Store
	ctl   *session.Controller
	site  *site.Service
}

func (h *Handlers) conn(r *http.Request) conn {
	ctx := r.Context()
	store := h.Sessions.Session(middleware.SessionID(ctx))

	opts := h.API
	opts.OnSessionExpired = func(ctx context.Context) {
		log.From(ctx).Info("session terminated, login required")
	}

	ctl := session.New(store, opts, log.From(ctx))

	return conn{
		store: store,
		ctl:   ctl,
		site:  site.New(ctl.API(), ctl.Public()),
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвост после объекта.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrInvalidArgument, err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", apierrors.ErrInvalidArgument)
	}

	return nil
}

func debugDecode(r *http.Request, err error) {
	log.From(r.Context()).Debug("bad request body", slog.String("err", err.Error()))
}
