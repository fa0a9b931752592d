package interceptors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/techsite/pkg/log"
)

// Logging — логирование исходящих запросов к API.
// Поведение:
//   - берёт X-Request-Id из заголовка (или генерирует UUID и добавляет на клоне);
//   - кладёт обогащённый логгер в контекст запроса (pkg/log);
//   - пишет одну финальную запись уровня Info: msg="api", status, dur.
//
// Безопасность: не логирует тело запроса/ответа и заголовок Authorization.
func Logging(base *slog.Logger) Interceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := req.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
			)

			out := req.Clone(log.Into(req.Context(), l))
			out.Header.Set(HeaderRequestID, rid)

			resp, err := next.RoundTrip(out)

			if err != nil {
				l.Warn("api",
					slog.Int("status", 0),
					slog.Duration("dur", time.Since(start)),
					slog.String("err", err.Error()),
				)
				return nil, err
			}

			l.Info("api",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}
