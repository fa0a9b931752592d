// session — единый источник правды о том, вошёл ли кто-то и под каким профилем.
//
// Машина состояний: Unknown (до первой проверки) -> Anonymous | Authenticated.
// Токены и профиль хранятся в tokens.Store, который передаётся снаружи;
// Controller лишь читает и пишет его и держит текущее состояние в памяти.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pribylovaa/techsite/internal/apiclient"
	"github.com/pribylovaa/techsite/internal/models"
	"github.com/pribylovaa/techsite/internal/tokens"
	"github.com/pribylovaa/techsite/pkg/log"
	"github.com/pribylovaa/techsite/pkg/redact"
)

// Эндпойнты аутентификации.
const (
	LoginPath        = "/api/core/login/"
	AdminLoginPath   = "/api/core/admin/login/"
	RegisterPath     = "/api/core/register/"
	ProfilePath      = "/api/core/profile/"
	AdminProfilePath = "/api/core/admin/profile/"
)

var (
	// ErrInvalidLoginResponse — login ответил 2xx без пары токенов.
	ErrInvalidLoginResponse = errors.New("login response without tokens")

	// ErrNotAuthenticated — операция требует активной сессии.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// State — состояние сессии.
type State int

const (
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Controller — контроллер одной сессии. Безопасен для конкурентного использования;
// параллельные Login не дедуплицируются (последний успешный побеждает).
type Controller struct {
	store  tokens.Store
	opts   apiclient.Options
	api    *apiclient.Client
	public *apiclient.Client
	log    *slog.Logger

	mu      sync.RWMutex
	state   State
	profile *models.UserProfile
}

// New собирает контроллер вокруг хранилища сессии. Сигнал истечения сессии
// от клиента переводит контроллер в Anonymous, после чего вызывается
// opts.OnSessionExpired (если задан).
func New(store tokens.Store, opts apiclient.Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{store: store, log: logger, opts: opts}

	next := opts.OnSessionExpired
	opts.OnSessionExpired = func(ctx context.Context) {
		c.setAnonymous()
		if next != nil {
			next(ctx)
		}
	}

	c.api = apiclient.New(opts, store)
	c.public = apiclient.NewPublic(opts)

	return c
}

// API — аутентифицированный клиент этой сессии.
func (c *Controller) API() *apiclient.Client { return c.api }

// Public — клиент публичных эндпойнтов.
func (c *Controller) Public() *apiclient.Client { return c.public }

// State возвращает текущее состояние и копию профиля (nil вне Authenticated).
func (c *Controller) State() (State, *models.UserProfile) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.profile == nil {
		return c.state, nil
	}

	p := *c.profile
	return c.state, &p
}

// CheckSession восстанавливает состояние из хранилища:
//   - access-токена нет — Anonymous;
//   - есть кэшированный профиль — Authenticated без похода в API;
//   - иначе профиль запрашивается у API; любой сбой очищает хранилище -> Anonymous.
func (c *Controller) CheckSession(ctx context.Context) State {
	const op = "session.CheckSession"

	if access, ok := c.store.Get(ctx, tokens.KeyAccess); !ok || access == "" {
		c.setAnonymous()
		return StateAnonymous
	}

	if p, ok := c.cachedProfile(ctx); ok {
		c.setAuthenticated(p)
		return StateAuthenticated
	}

	p, err := c.fetchProfile(ctx, ProfilePath)
	if err != nil {
		c.logger(ctx).Info("session check failed", slog.String("op", op), slog.String("err", err.Error()))
		c.store.Clear(ctx)
		c.setAnonymous()
		return StateAnonymous
	}

	c.cacheProfile(ctx, p)
	c.setAuthenticated(p)

	return StateAuthenticated
}

// Login — вход пользователя.
func (c *Controller) Login(ctx context.Context, cred models.Credentials) (*models.UserProfile, error) {
	return c.login(ctx, "session.Login", LoginPath, ProfilePath, cred)
}

// AdminLogin — вход администратора.
func (c *Controller) AdminLogin(ctx context.Context, cred models.Credentials) (*models.UserProfile, error) {
	return c.login(ctx, "session.AdminLogin", AdminLoginPath, AdminProfilePath, cred)
}

// login: при ошибке состояние и хранилище не меняются.
func (c *Controller) login(ctx context.Context, op, path, profilePath string, cred models.Credentials) (*models.UserProfile, error) {
	l := c.logger(ctx).With(slog.String("op", op), slog.String("email", redact.Email(cred.Email)))

	var out models.LoginResponse
	if err := c.public.Do(ctx, http.MethodPost, path, cred, &out); err != nil {
		l.Info("login rejected", slog.String("kind", apiclient.KindOf(err).String()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if out.Access == "" || out.Refresh == "" {
		l.Warn("login response without tokens")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidLoginResponse)
	}

	profile := out.User
	if profile == nil {
		// Бэкенд не вернул профиль — запрашиваем его новым access-токеном,
		// не трогая хранилище до полного успеха.
		p, err := c.profileWith(ctx, profilePath, out.Access)
		if err != nil {
			l.Warn("login profile fetch failed", slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		profile = p
	}

	c.store.Set(ctx, tokens.KeyAccess, out.Access)
	c.store.Set(ctx, tokens.KeyRefresh, out.Refresh)
	c.cacheProfile(ctx, profile)
	c.setAuthenticated(profile)

	l.Info("logged in", slog.String("user_id", profile.ID), slog.Bool("admin", profile.IsAdmin))

	p := *profile
	return &p, nil
}

// Register создаёт учётную запись; состояние сессии не меняется.
func (c *Controller) Register(ctx context.Context, req models.RegisterRequest) error {
	const op = "session.Register"

	if err := c.public.Do(ctx, http.MethodPost, RegisterPath, req, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.logger(ctx).Info("registered", slog.String("email", redact.Email(req.Email)))

	return nil
}

// Logout безусловно очищает хранилище и переводит сессию в Anonymous.
func (c *Controller) Logout(ctx context.Context) {
	c.store.Clear(ctx)
	c.setAnonymous()
}

// RefreshProfile перечитывает профиль у API (админский эндпойнт для
// администраторов) и обновляет кэш. При ошибке сессия не гасится,
// кроме случая истечения сессии, который обрабатывает клиент.
func (c *Controller) RefreshProfile(ctx context.Context) (*models.UserProfile, error) {
	const op = "session.RefreshProfile"

	state, cur := c.State()
	if state != StateAuthenticated {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	path := ProfilePath
	if cur.IsAdmin {
		path = AdminProfilePath
	}

	p, err := c.fetchProfile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.cacheProfile(ctx, p)
	c.setAuthenticated(p)

	out := *p
	return &out, nil
}

func (c *Controller) fetchProfile(ctx context.Context, path string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := c.api.Do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// profileWith запрашивает профиль свежим access-токеном через временное
// хранилище: без refresh-токена клиент не пытается обновлять сессию.
func (c *Controller) profileWith(ctx context.Context, path, access string) (*models.UserProfile, error) {
	tmp := tokens.NewMemory()
	tmp.Set(ctx, tokens.KeyAccess, access)

	opts := c.opts
	opts.OnSessionExpired = nil

	var p models.UserProfile
	if err := apiclient.New(opts, tmp).Do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

func (c *Controller) cachedProfile(ctx context.Context) (*models.UserProfile, bool) {
	raw, ok := c.store.Get(ctx, tokens.KeyUser)
	if !ok || raw == "" {
		return nil, false
	}

	var p models.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.ID == "" {
		c.logger(ctx).Warn("cached profile is unreadable, refetching")
		return nil, false
	}

	return &p, true
}

func (c *Controller) cacheProfile(ctx context.Context, p *models.UserProfile) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}

	c.store.Set(ctx, tokens.KeyUser, string(raw))
}

func (c *Controller) setAuthenticated(p *models.UserProfile) {
	cp := *p

	c.mu.Lock()
	c.state = StateAuthenticated
	c.profile = &cp
	c.mu.Unlock()
}

func (c *Controller) setAnonymous() {
	c.mu.Lock()
	c.state = StateAnonymous
	c.profile = nil
	c.mu.Unlock()
}

func (c *Controller) logger(ctx context.Context) *slog.Logger {
	return log.FromOr(ctx, c.log)
}
