// errors стандартизирует ответы об ошибках HTTP-слоя site-gateway.
// На вход принимает ошибку (обычно из apiclient или site), на выход даёт:
//   - корректный HTTP-статус;
//   - стабильный машиночитаемый code;
//   - безопасное человекочитаемое message (для ошибок валидации — плоская
//     сводка ошибок полей от бэкенда) и сами ошибки полей.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/techsite/internal/apiclient"
	"github.com/pribylovaa/techsite/internal/session"
	"github.com/pribylovaa/techsite/internal/site"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// CodeSessionExpired — сессия погашена после неудачного refresh;
// фронт по этому коду уводит пользователя на страницу входа.
const CodeSessionExpired = "session_expired"

// ErrInvalidArgument — локальная ошибка разбора входа хендлером.
var ErrInvalidArgument = stderrors.New("invalid argument")

// APIError — единый формат для фронта.
type APIError struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Fields    map[string][]string `json:"fields,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// validation — локальные ошибки валидации, которые отдаются как 400 с их текстом.
var validation = []error{
	site.ErrEmptyID,
	site.ErrEmptyContent,
	site.ErrInvalidContact,
}

// ToHTTP конвертирует ошибку в HTTP-статус и ответ для фронта.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - истекшая сессия — 401/session_expired;
//   - *apiclient.APIError — маппинг по Kind, message и fields из ответа бэкенда;
//   - отмена/дедлайн контекста — 499/504;
//   - локальная ошибка разбора или валидации — 400/invalid_argument;
//   - операция без активной сессии — 401/unauthenticated;
//   - прочее — 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, internal()
	}

	if stderrors.Is(err, apiclient.ErrSessionExpired) {
		return http.StatusUnauthorized, ErrorResponse{Error: APIError{
			Code:    CodeSessionExpired,
			Message: apiclient.Message(err),
		}}
	}

	var apiErr *apiclient.APIError
	if stderrors.As(err, &apiErr) {
		// Сетевой сбой мог случиться из-за дедлайна запроса.
		if apiErr.Kind == apiclient.KindTransport {
			if st, code, msg, ok := fromContext(err); ok {
				return st, ErrorResponse{Error: APIError{Code: code, Message: msg}}
			}
		}

		st, code := fromKind(apiErr.Kind)
		return st, ErrorResponse{Error: APIError{
			Code:    code,
			Message: apiErr.Message,
			Fields:  apiErr.Fields,
		}}
	}

	if st, code, msg, ok := fromContext(err); ok {
		return st, ErrorResponse{Error: APIError{Code: code, Message: msg}}
	}

	if stderrors.Is(err, ErrInvalidArgument) {
		return http.StatusBadRequest, ErrorResponse{Error: APIError{
			Code:    "invalid_argument",
			Message: "invalid argument",
		}}
	}

	if stderrors.Is(err, session.ErrNotAuthenticated) {
		return http.StatusUnauthorized, ErrorResponse{Error: APIError{
			Code:    "unauthenticated",
			Message: "authentication required",
		}}
	}

	if stderrors.Is(err, session.ErrInvalidLoginResponse) {
		return http.StatusBadGateway, ErrorResponse{Error: APIError{
			Code:    "upstream_error",
			Message: "unexpected response from backend",
		}}
	}

	for _, v := range validation {
		if stderrors.Is(err, v) {
			return http.StatusBadRequest, ErrorResponse{Error: APIError{
				Code:    "invalid_argument",
				Message: v.Error(),
			}}
		}
	}

	return http.StatusInternalServerError, internal()
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// fromKind — маппинг класса сбоя API на HTTP/FE-код:
//   - Validation -> 400
//   - Unauthenticated -> 401 (на стороне бэкенда сессии нет, refresh не понадобился)
//   - Forbidden -> 403 (сессия жива, прав не хватает)
//   - NotFound -> 404
//   - Conflict -> 409
//   - RateLimited -> 429
//   - Transport -> 503 (бэкенд недоступен)
//   - Server -> 502 (бэкенд ответил 5xx)
//   - прочее -> 500
func fromKind(k apiclient.Kind) (int, string) {
	switch k {
	case apiclient.KindValidation:
		return http.StatusBadRequest, "invalid_argument"
	case apiclient.KindUnauthenticated:
		return http.StatusUnauthorized, "unauthenticated"
	case apiclient.KindForbidden:
		return http.StatusForbidden, "permission_denied"
	case apiclient.KindNotFound:
		return http.StatusNotFound, "not_found"
	case apiclient.KindConflict:
		return http.StatusConflict, "already_exists"
	case apiclient.KindRateLimited:
		return http.StatusTooManyRequests, "resource_exhausted"
	case apiclient.KindTransport:
		return http.StatusServiceUnavailable, "unavailable"
	case apiclient.KindServer:
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func fromContext(err error) (int, string, string, bool) {
	switch {
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled", true
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded", true
	default:
		return 0, "", "", false
	}
}

func internal() ErrorResponse {
	return ErrorResponse{Error: APIError{Code: "internal", Message: "internal error"}}
}
