package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrSessionExpired — refresh-токен отвергнут (или refresh не удался иначе):
	// хранилище сессии очищено, пользователь должен войти заново.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidRefreshResponse — refresh-эндпойнт ответил 2xx без access-токена.
	ErrInvalidRefreshResponse = errors.New("refresh response without access token")
)

// Kind — класс сбоя; по нему UI выбирает реакцию (сообщение, редирект на вход).
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindRateLimited
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError — неуспешный результат запроса к API.
//
// Message всегда непустой и пригоден для показа пользователю: либо текст
// из ответа бэкенда, либо плоская сводка ошибок полей, либо типовая фраза
// для класса сбоя. Fields — ошибки по полям формы (если бэкенд их прислал).
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api %s: %s", e.Kind, e.Message)
	}

	return fmt.Sprintf("api %s (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// KindOf возвращает класс сбоя из цепочки ошибок; KindUnknown, если APIError в ней нет.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	return KindUnknown
}

// Message — человекочитаемое сообщение для UI из произвольной ошибки клиента.
func Message(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrSessionExpired) {
		return "your session has expired, please log in again"
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	return genericMessage(KindUnknown)
}

func transportError(err error) *APIError {
	return &APIError{
		Kind:    KindTransport,
		Message: genericMessage(KindTransport),
		Err:     err,
	}
}

// nonFieldKey — ключ общих (не привязанных к полю) ошибок валидации.
const nonFieldKey = "non_field_errors"

// summaryKeys — ключи, чьё значение целиком является сообщением об ошибке.
var summaryKeys = []string{"detail", "message", "error"}

// ParseError разбирает тело неуспешного ответа в APIError.
//
// Поддерживаемые формы тела:
//   - {"detail": "..."} / {"message": "..."} / {"error": "..."} — строка или список строк;
//   - {"non_field_errors": [...], "<field>": ["...", ...] | "..."} — ошибки формы;
//   - ["...", ...] — список сообщений;
//   - всё прочее (HTML, пустое тело, невалидный JSON) — типовое сообщение по статусу.
//
// Плоское сообщение детерминировано: сначала non_field_errors, затем поля по алфавиту.
func ParseError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Kind: kindFromStatus(status)}

	var obj map[string]json.RawMessage
	var list []json.RawMessage

	switch {
	case json.Unmarshal(body, &obj) == nil && obj != nil:
		for _, k := range summaryKeys {
			raw, ok := obj[k]
			if !ok {
				continue
			}
			delete(obj, k)
			if e.Message == "" {
				e.Message = strings.Join(messages(raw), " ")
			}
		}

		// При наличии summary-сообщения прочие ключи — служебные (code, messages).
		if e.Message != "" {
			break
		}

		for k, raw := range obj {
			if msgs := messages(raw); len(msgs) > 0 {
				if e.Fields == nil {
					e.Fields = make(map[string][]string, len(obj))
				}
				e.Fields[k] = msgs
			}
		}

		if len(e.Fields) > 0 {
			e.Message = FlattenFields(e.Fields)
		}
	case json.Unmarshal(body, &list) == nil:
		var msgs []string
		for _, raw := range list {
			msgs = append(msgs, messages(raw)...)
		}
		e.Message = strings.Join(msgs, " ")
	}

	if len(e.Fields) > 0 && e.Kind == KindUnknown {
		e.Kind = KindValidation
	}

	if e.Message == "" {
		e.Message = genericMessage(e.Kind)
	}

	return e
}

// FlattenFields собирает ошибки полей в одно сообщение:
// "общая ошибка; email: This field is required.; password: Too short. Too common."
func FlattenFields(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != nonFieldKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(fields))
	if msgs := fields[nonFieldKey]; len(msgs) > 0 {
		parts = append(parts, strings.Join(msgs, " "))
	}
	for _, k := range keys {
		if len(fields[k]) == 0 {
			continue
		}
		parts = append(parts, k+": "+strings.Join(fields[k], " "))
	}

	return strings.Join(parts, "; ")
}

// messages достаёт строки из значения: строка, список строк,
// вложенный объект (ошибки вложенного сериализатора) — рекурсивно.
func messages(raw json.RawMessage) []string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if s = strings.TrimSpace(s); s != "" {
			return []string{s}
		}
		return nil
	}

	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		var out []string
		for _, it := range list {
			out = append(out, messages(it)...)
		}
		return out
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) == nil {
		nested := make(map[string][]string, len(obj))
		for k, v := range obj {
			if msgs := messages(v); len(msgs) > 0 {
				nested[k] = msgs
			}
		}
		if len(nested) > 0 {
			return []string{FlattenFields(nested)}
		}
	}

	return nil
}

func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthenticated
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

func genericMessage(k Kind) string {
	switch k {
	case KindTransport:
		return "network error, please check your connection and try again"
	case KindUnauthenticated:
		return "authentication required"
	case KindForbidden:
		return "you do not have permission to perform this action"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "invalid request"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "too many requests, please try again later"
	case KindServer:
		return "server error, please try again later"
	default:
		return "request failed"
	}
}
