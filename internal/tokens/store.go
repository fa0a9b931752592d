// tokens — клиентское хранилище сессии: access/refresh-токены и
// сериализованный профиль пользователя.
//
// Контракт Store — best-effort: операции не возвращают ошибок; если бэкенд
// хранилища недоступен, Get отвечает "нет значения", а Set/Clear становятся no-op
// (сбой только логируется). Clear удаляет все ключи одной операцией, поэтому
// последующие чтения никогда не видят частично очищенную сессию.
package tokens

import "context"

//go:generate mockgen -source=store.go -destination=../../mocks/store.go -package=mocks Store

// Ключи сессии; имена совпадают с ключами в браузерном хранилище фронтенда.
const (
	KeyAccess  = "access_token"
	KeyRefresh = "refresh_token"
	KeyUser    = "user"
)

// Store — хранилище одной сессии (одного браузера/устройства).
type Store interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) (string, bool)
	// Set сохраняет значение; пустая строка допустима и хранится как есть.
	Set(ctx context.Context, key, value string)
	// Clear атомарно удаляет access_token, refresh_token и user.
	Clear(ctx context.Context)
}

// Provider выдаёт Store, привязанный к идентификатору сессии
// (в gateway это значение cookie).
type Provider interface {
	Session(id string) Store
	Close() error
}
