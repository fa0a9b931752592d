package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/techsite/internal/apiclient/interceptors"
)

// maxRequestIDLen — входящие id длиннее считаются мусором и заменяются.
const maxRequestIDLen = 128

// RequestID обеспечивает наличие X-Request-Id:
//  1. берёт заголовок X-Request-Id, если он есть и выглядит разумно;
//  2. иначе генерирует UUID;
//  3. кладёт id в заголовки запроса и ответа и в контекст по ключу
//     interceptors.CtxRequestID — оттуда его берёт metadata-интерсептор
//     исходящих запросов к API.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(interceptors.HeaderRequestID))
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}

			r.Header.Set(interceptors.HeaderRequestID, id)
			w.Header().Set(interceptors.HeaderRequestID, id)

			ctx := context.WithValue(r.Context(), interceptors.CtxRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
