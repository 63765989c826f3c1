package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"golang.org/x/sync/singleflight"
)

// MemoryCatalog caches catalogs in process with a TTL. It is used when no
// Redis address is configured.
type MemoryCatalog struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	questions []questionnaire.Question
	expiresAt time.Time
}

func NewMemoryCatalog(loader QuestionLoader, ttl time.Duration) *MemoryCatalog {
	return &MemoryCatalog{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		entries: map[string]memoryEntry{},
	}
}

func (m *MemoryCatalog) Questions(ctx context.Context, formID questionnaire.FormID) ([]questionnaire.Question, error) {
	k := key(formID)
	if qs, ok := m.get(k); ok {
		return qs, nil
	}
	result, err, _ := m.sf.Do(k, func() (any, error) {
		if qs, ok := m.get(k); ok {
			return qs, nil
		}
		lctx, cancel := loadContext(ctx)
		defer cancel()
		qs, err := m.loader.LoadQuestions(lctx, formID)
		if err != nil {
			return nil, err
		}
		if m.ttl > 0 {
			m.mu.Lock()
			m.entries[k] = memoryEntry{questions: qs, expiresAt: m.clock().Add(ttlWithJitter(m.ttl))}
			m.mu.Unlock()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]questionnaire.Question), nil
}

func (m *MemoryCatalog) get(k string) ([]questionnaire.Question, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[k]
	if !ok || m.clock().After(e.expiresAt) {
		return nil, false
	}
	return e.questions, true
}

func (m *MemoryCatalog) Invalidate(_ context.Context, formID questionnaire.FormID) error {
	m.mu.Lock()
	delete(m.entries, key(formID))
	delete(m.entries, key(questionnaire.AllForms))
	m.mu.Unlock()
	return nil
}
