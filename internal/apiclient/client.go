// apiclient — HTTP-клиент REST API бэкенда сайта.
//
// Два варианта клиента:
//   - аутентифицированный (New): ставит Authorization: Bearer <access_token>
//     из tokens.Store и прозрачно переживает истёкший access-токен —
//     на 401 делает ровно один refresh и ровно один повтор исходного запроса;
//   - публичный (NewPublic): для регистрации, входа и публичных настроек;
//     никогда не ставит bearer и не делает refresh.
//
// Состояние повтора живёт в локальных переменных одного вызова Request,
// поэтому параллельные запросы не влияют друг на друга.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/techsite/internal/apiclient/interceptors"
	"github.com/pribylovaa/techsite/internal/models"
	"github.com/pribylovaa/techsite/internal/tokens"
	"github.com/pribylovaa/techsite/pkg/log"
	"github.com/pribylovaa/techsite/pkg/redact"
)

// DefaultBaseURL — адрес API для локальной разработки.
const DefaultBaseURL = "http://localhost:8000"

// RefreshPath — эндпойнт обновления access-токена.
const RefreshPath = "/api/core/admin/refresh/"

// HeaderIdempotencyKey — клиентский идентификатор логического изменяющего запроса.
// Один и тот же ключ уходит и в исходном запросе, и в повторе после refresh,
// так что бэкенд может распознать дубль (например, двойной клик "отправить").
const HeaderIdempotencyKey = "Idempotency-Key"

// maxBodySize — предел читаемого тела ответа.
const maxBodySize = 4 << 20

// Options — общие параметры клиентов.
type Options struct {
	// BaseURL — адрес API без завершающего "/"; пусто — DefaultBaseURL.
	BaseURL string
	// HTTPClient — общий на процесс клиент (см. NewHTTPClient); nil — http.DefaultClient.
	HTTPClient *http.Client
	// Metrics — общие на процесс счётчики; nil — без метрик.
	Metrics *Metrics
	// OnSessionExpired вызывается после неудачного refresh, когда хранилище уже очищено.
	OnSessionExpired func(ctx context.Context)
}

// HTTPOptions — параметры транспорта исходящих запросов.
type HTTPOptions struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

// NewHTTPClient собирает *http.Client с цепочкой интерсепторов:
// metadata -> timeout -> logging.
func NewHTTPClient(o HTTPOptions) *http.Client {
	return &http.Client{
		Transport: interceptors.Chain(
			http.DefaultTransport,
			interceptors.WithMetadata(o.UserAgent),
			interceptors.WithTimeout(o.Timeout),
			interceptors.Logging(o.Logger),
		),
	}
}

// Client — клиент API. Безопасен для конкурентного использования.
type Client struct {
	baseURL   string
	hc        *http.Client
	store     tokens.Store // nil у публичного варианта
	metrics   *Metrics
	onExpired func(ctx context.Context)
}

// Response — успешный (2xx) ответ API с полностью прочитанным телом.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode разбирает JSON-тело ответа; пустое тело (204) — no-op.
func (r *Response) Decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}

	return json.Unmarshal(r.Body, out)
}

// New создаёт аутентифицированный клиент поверх хранилища сессии.
func New(opts Options, store tokens.Store) *Client {
	c := newClient(opts)
	c.store = store
	c.onExpired = opts.OnSessionExpired
	return c
}

// NewPublic создаёт клиент публичных эндпойнтов.
func NewPublic(opts Options) *Client {
	return newClient(opts)
}

func newClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	return &Client{baseURL: base, hc: hc, metrics: opts.Metrics}
}

// Authenticated сообщает, работает ли клиент с токенами.
func (c *Client) Authenticated() bool { return c.store != nil }

// Request выполняет один логический запрос к API.
//
// body (если не nil) сериализуется в JSON один раз — повтор после refresh
// отправляет те же байты. hdr — дополнительные заголовки (может быть nil).
//
// Результат:
//   - 2xx — (*Response, nil);
//   - иной статус — (nil, *APIError) с разобранным телом ошибки;
//   - сбой сети — (nil, *APIError{Kind: KindTransport});
//   - неудачный refresh — (nil, ошибка, удовлетворяющая errors.Is(err, ErrSessionExpired)).
func (c *Client) Request(ctx context.Context, method, path string, body any, hdr http.Header) (*Response, error) {
	const op = "apiclient.Request"

	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", op, err)
	}

	hdr = prepareHeaders(method, hdr)

	var access string
	if c.store != nil {
		access, _ = c.store.Get(ctx, tokens.KeyAccess)
	}

	resp, err := c.send(ctx, method, path, payload, hdr, access)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.Status != http.StatusUnauthorized || c.store == nil {
		return c.result(op, resp)
	}

	// 401: единственная попытка обновить access-токен.
	refresh, ok := c.store.Get(ctx, tokens.KeyRefresh)
	if !ok || refresh == "" {
		c.metrics.observeRefresh(refreshSkipped)
		return c.result(op, resp)
	}

	access, err = c.refresh(ctx, refresh)
	if err != nil {
		c.expire(ctx, err)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrSessionExpired, err)
	}

	// Единственный повтор; его результат — окончательный.
	resp, err = c.send(ctx, method, path, payload, hdr, access)
	if err != nil {
		return nil, fmt.Errorf("%s: retry: %w", op, err)
	}

	return c.result(op, resp)
}

// Do — JSON-обёртка над Request: in — тело запроса, out — приёмник ответа (оба могут быть nil).
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.Request(ctx, method, path, in, nil)
	if err != nil {
		return err
	}

	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("apiclient.Do: decode response: %w", err)
	}

	return nil
}

// refresh обменивает refresh-токен на новый access-токен запросом без bearer.
func (c *Client) refresh(ctx context.Context, refresh string) (string, error) {
	const op = "apiclient.refresh"

	payload, err := json.Marshal(models.RefreshRequest{Refresh: refresh})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.send(ctx, http.MethodPost, RefreshPath, payload, nil, "")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if resp.Status < 200 || resp.Status > 299 {
		return "", fmt.Errorf("%s: %w", op, ParseError(resp.Status, resp.Body))
	}

	var out models.RefreshResponse
	if err := resp.Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode: %w", op, err)
	}

	if out.Access == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidRefreshResponse)
	}

	c.store.Set(ctx, tokens.KeyAccess, out.Access)
	// Ротация refresh-токена на стороне бэкенда — сохраняем новый, если пришёл.
	if out.Refresh != "" {
		c.store.Set(ctx, tokens.KeyRefresh, out.Refresh)
	}

	c.metrics.observeRefresh(refreshOK)
	log.From(ctx).Debug("access_token_refreshed", slog.String("access", redact.Token(out.Access)))

	return out.Access, nil
}

// expire гасит сессию: очищает хранилище и сообщает подписчику.
func (c *Client) expire(ctx context.Context, cause error) {
	c.store.Clear(ctx)
	c.metrics.observeRefresh(refreshFailed)

	log.From(ctx).Info("session_expired", slog.String("err", cause.Error()))

	if c.onExpired != nil {
		c.onExpired(ctx)
	}
}

// send — одна сетевая попытка; тело ответа читается целиком.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, hdr http.Header, access string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, vs := range hdr {
		req.Header[k] = append([]string(nil), vs...)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.metrics.observeRequest(method, 0)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.metrics.observeRequest(method, 0)
		return nil, transportError(err)
	}

	c.metrics.observeRequest(method, resp.StatusCode)

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) result(op string, resp *Response) (*Response, error) {
	if resp.Status >= 200 && resp.Status <= 299 {
		return resp, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ParseError(resp.Status, resp.Body))
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// prepareHeaders копирует заголовки вызывающего и для изменяющих методов
// добавляет Idempotency-Key, если он не задан явно.
func prepareHeaders(method string, hdr http.Header) http.Header {
	out := hdr.Clone()
	if out == nil {
		out = http.Header{}
	}

	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		if out.Get(HeaderIdempotencyKey) == "" {
			out.Set(HeaderIdempotencyKey, uuid.NewString())
		}
	}

	return out
}
