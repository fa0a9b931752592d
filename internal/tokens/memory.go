package tokens

import (
	"context"
	"sync"
	"time"
)

// Memory — потокобезопасное in-process хранилище одной сессии.
// Подходит для тестов, CLI и локального запуска.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string, 3)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(_ context.Context, key, value string) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

// Clear подменяет карту целиком под эксклюзивной блокировкой.
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	m.data = make(map[string]string, 3)
	m.mu.Unlock()
}

// Len — число сохранённых ключей (для тестов и диагностики).
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}

// MemoryProvider держит по одному Memory на идентификатор сессии.
//
// Запись создаётся только при первом Set: чтение несуществующей сессии
// (анонимный посетитель без cookie) ничего не выделяет. Срок жизни, как и
// в RedisProvider, отсчитывается от последней записи; просроченные сессии
// удаляются при обращении и периодической чисткой внутри Set.
// Сессии не переживают перезапуск процесса; для нескольких реплик gateway
// используйте RedisProvider.
type MemoryProvider struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	sessions  map[string]*memoryEntry
	lastSweep time.Time
}

type memoryEntry struct {
	store   *Memory
	touched time.Time
}

var _ Provider = (*MemoryProvider)(nil)

// NewMemoryProvider создаёт провайдер; ttl <= 0 — сессии не истекают.
func NewMemoryProvider(ttl time.Duration) *MemoryProvider {
	return &MemoryProvider{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memoryEntry),
	}
}

func (p *MemoryProvider) Session(id string) Store {
	return memorySession{p: p, id: id}
}

func (p *MemoryProvider) Close() error { return nil }

// Len — число хранимых сессий, включая ещё не вычищенные просроченные.
func (p *MemoryProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.sessions)
}

func (p *MemoryProvider) expired(e *memoryEntry, now time.Time) bool {
	return p.ttl > 0 && now.Sub(e.touched) >= p.ttl
}

// lookup возвращает живую сессию или nil; просроченная удаляется.
func (p *MemoryProvider) lookup(id string) *Memory {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.sessions[id]
	if !ok {
		return nil
	}
	if p.expired(e, p.now()) {
		delete(p.sessions, id)
		return nil
	}

	return e.store
}

// acquire возвращает сессию для записи, создавая её при необходимости,
// и продлевает срок жизни.
func (p *MemoryProvider) acquire(id string) *Memory {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.sweepLocked(now)

	e, ok := p.sessions[id]
	if !ok || p.expired(e, now) {
		e = &memoryEntry{store: NewMemory()}
		p.sessions[id] = e
	}
	e.touched = now

	return e.store
}

// sweepLocked проходит по всем сессиям не чаще раза за ttl.
func (p *MemoryProvider) sweepLocked(now time.Time) {
	if p.ttl <= 0 || now.Sub(p.lastSweep) < p.ttl {
		return
	}
	p.lastSweep = now

	for id, e := range p.sessions {
		if p.expired(e, now) {
			delete(p.sessions, id)
		}
	}
}

func (p *MemoryProvider) drop(id string) {
	p.mu.Lock()
	delete(p.sessions, id)
	p.mu.Unlock()
}

// memorySession — Store одной сессии поверх MemoryProvider.
// Clear удаляет запись целиком, поэтому читатели видят либо всю сессию,
// либо её отсутствие.
type memorySession struct {
	p  *MemoryProvider
	id string
}

func (s memorySession) Get(ctx context.Context, key string) (string, bool) {
	m := s.p.lookup(s.id)
	if m == nil {
		return "", false
	}

	return m.Get(ctx, key)
}

func (s memorySession) Set(ctx context.Context, key, value string) {
	s.p.acquire(s.id).Set(ctx, key, value)
}

func (s memorySession) Clear(_ context.Context) {
	s.p.drop(s.id)
}
