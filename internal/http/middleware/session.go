package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/techsite/pkg/log"
)

type sessionKey struct{}

// SessionCookie — параметры cookie с идентификатором сессии браузера.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Session гарантирует, что у браузера есть непрозрачный id сессии:
// валидный UUID из cookie переиспользуется, иначе выдаётся новый.
// Сами токены в cookie не попадают, они живут в tokens.Provider под этим id.
func Session(c SessionCookie) Middleware {
	if c.Name == "" {
		c.Name = "sid"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if ck, err := r.Cookie(c.Name); err == nil {
				if _, err := uuid.Parse(ck.Value); err == nil {
					sid = ck.Value
				}
			}

			if sid == "" {
				sid = uuid.NewString()
			}

			// Продлеваем cookie на каждом запросе (скользящее окно).
			http.SetCookie(w, &http.Cookie{
				Name:     c.Name,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(c.TTL.Seconds()),
				HttpOnly: true,
				Secure:   c.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := context.WithValue(r.Context(), sessionKey{}, sid)
			ctx = log.With(ctx, slog.String("sid", sid[:8]))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID возвращает id сессии из контекста ("" вне мидлвара Session).
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionKey{}).(string)
	return sid
}
