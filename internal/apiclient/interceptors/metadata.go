package interceptors

import (
	"net/http"
)

type CtxKey string

// CtxRequestID — ключ контекста, под которым gateway кладёт X-Request-Id входящего запроса.
const CtxRequestID CtxKey = "request_id"

// HeaderRequestID — заголовок сквозной трассировки.
const HeaderRequestID = "X-Request-Id"

// WithMetadata добавляет в исходящий запрос заголовки:
//   - X-Request-Id (если есть в контексте и ещё не задан явно),
//   - User-Agent (если передан параметром).
//
// Authorization здесь не выставляется: bearer-токен зависит от попытки
// (исходный запрос или повтор после refresh) и ставится самим клиентом.
func WithMetadata(userAgent string) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			var rid string
			if v := req.Context().Value(CtxRequestID); v != nil {
				rid, _ = v.(string)
			}

			needRID := rid != "" && req.Header.Get(HeaderRequestID) == ""
			if !needRID && userAgent == "" {
				return next.RoundTrip(req)
			}

			out := req.Clone(req.Context())
			if needRID {
				out.Header.Set(HeaderRequestID, rid)
			}
			if userAgent != "" {
				out.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(out)
		})
	}
}
