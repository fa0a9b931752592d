package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/techsite/internal/apiclient"
	"github.com/pribylovaa/techsite/internal/http/handlers"
	"github.com/pribylovaa/techsite/internal/http/middleware"
	"github.com/pribylovaa/techsite/internal/tokens"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
	Cookie   middleware.SessionCookie
}

// NewRouter собирает http.Handler шлюза: сессии браузеров живут в sessions,
// запросы к REST API идут через клиентов с параметрами api.
func NewRouter(sessions tokens.Provider, api apiclient.Options, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования: id попадает в attrs
		middleware.Logging(opts.Logger),
		middleware.Session(opts.Cookie),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(sessions, api)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// auth
	r.Post("/auth/login", h.Login)
	r.Post("/auth/admin/login", h.AdminLogin)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/session", h.Session)
	r.Get("/auth/profile", h.Profile)

	// blogs & comments
	r.Get("/blogs", h.ListBlogs)
	r.Get("/blogs/{id}", h.GetBlog)
	r.Post("/blogs/{id}/comments", h.CreateComment)
	r.Patch("/comments/{id}", h.UpdateComment)
	r.Delete("/comments/{id}", h.DeleteComment)

	// company
	r.Get("/settings", h.Settings)
	r.Post("/contact", h.Contact)
}
