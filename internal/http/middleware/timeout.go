package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout ограничивает время обработки запроса шлюзом сверху.
//
// Исходящие вызовы API наследуют контекст запроса, поэтому d — общий бюджет
// на цепочку "запрос -> 401 -> refresh -> повтор". Более ранний дедлайн
// родителя сохраняется, более поздний сокращается до d. При d <= 0
// обработчик возвращается без обёртки.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
