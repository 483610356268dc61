// Кэш свободных слотов на пару (врач, дата).
// Заменяет клиентский поллинг: мутации брони явно инвалидируют ключ,
// чтение при любой ошибке кэша падает обратно на пересчёт. Кэш никогда
// не участвует в корректности — только в скорости.
package cache

import (
	"context"
	"strings"
	"sync"
)

// Availability — кэш списков свободных слотов.
type Availability interface {
	// Get возвращает (слоты, true) при попадании. Пустой список —
	// валидное значение: "врач не работает" тоже кэшируется.
	Get(ctx context.Context, doctorID, date string) ([]string, bool)
	Set(ctx context.Context, doctorID, date string, slots []string)
	Invalidate(ctx context.Context, doctorID, date string)
	// InvalidateDoctor сбрасывает все даты врача. Нужен при правке
	// недельного шаблона: затронутые даты заранее не перечислить.
	InvalidateDoctor(ctx context.Context, doctorID string)
}

// MemoryAvailability — процессный кэш для тестов и запуска без Redis.
type MemoryAvailability struct {
	mu    sync.RWMutex
	slots map[string][]string
}

func NewMemoryAvailability() *MemoryAvailability {
	return &MemoryAvailability{slots: make(map[string][]string)}
}

func (c *MemoryAvailability) Get(_ context.Context, doctorID, date string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	slots, ok := c.slots[key(doctorID, date)]
	if !ok {
		return nil, false
	}
	out := make([]string, len(slots))
	copy(out, slots)
	return out, true
}

func (c *MemoryAvailability) Set(_ context.Context, doctorID, date string, slots []string) {
	stored := make([]string, len(slots))
	copy(stored, slots)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[key(doctorID, date)] = stored
}

func (c *MemoryAvailability) Invalidate(_ context.Context, doctorID, date string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.slots, key(doctorID, date))
}

func (c *MemoryAvailability) InvalidateDoctor(_ context.Context, doctorID string) {
	prefix := "slots:" + doctorID + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.slots {
		if strings.HasPrefix(k, prefix) {
			delete(c.slots, k)
		}
	}
}

func key(doctorID, date string) string {
	return "slots:" + doctorID + ":" + date
}
