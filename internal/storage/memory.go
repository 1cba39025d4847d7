package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	rec  Record
	busy sync.Mutex
}

// MemoryStorage реализует Storage в памяти процесса.
type MemoryStorage struct {
	entries map[string]*entry
	mu      sync.Mutex
	now     func() time.Time
}

// NewMemoryStorage создаёт новый MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Get возвращает копию записи по ключу key.
func (s *MemoryStorage) Get(_ context.Context, key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Record{}, nil
	}

	return copyRecord(e.rec), nil
}

// Save сохраняет запись rec по ключу key.
func (s *MemoryStorage) Save(_ context.Context, key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec = copyRecord(rec)
	rec.UpdatedAt = s.now()
	s.entryLocked(key).rec = rec

	return nil
}

// Delete удаляет запись по ключу key.
func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)

	return nil
}

// Acquire захватывает ключ key. Вызывающий обязан вызвать release.
func (s *MemoryStorage) Acquire(_ context.Context, key string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// захват под s.mu, иначе Sweep может удалить запись между поиском и захватом
	e := s.entryLocked(key)
	if !e.busy.TryLock() {
		return nil, ErrBusy
	}

	return e.busy.Unlock, nil
}

// Len возвращает количество хранимых записей.
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Sweep удаляет записи, не обновлявшиеся дольше ttl. Занятые записи не трогает.
// Возвращает количество удалённых записей.
func (s *MemoryStorage) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := s.now()

	for key, e := range s.entries {
		if now.Sub(e.rec.UpdatedAt) <= ttl {
			continue
		}

		if !e.busy.TryLock() {
			continue
		}

		delete(s.entries, key)
		e.busy.Unlock()
		removed++
	}

	return removed
}

// RunSweeper периодически вызывает Sweep, пока не отменён ctx.
func (s *MemoryStorage) RunSweeper(ctx context.Context, interval, ttl time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ttl); n > 0 {
				log.Debug("idle browser sessions swept", "removed", n, "left", s.Len())
			}
		}
	}
}

// entryLocked возвращает запись, создавая её при необходимости. s.mu должен быть захвачен.
func (s *MemoryStorage) entryLocked(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{rec: Record{UpdatedAt: s.now()}}
		s.entries[key] = e
	}

	return e
}

func copyRecord(rec Record) Record {
	if rec.Flashes != nil {
		rec.Flashes = append([]Flash(nil), rec.Flashes...)
	}

	return rec
}
