package compliance

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a Store kept in process memory. It enforces the one-live-event-per-key rule
// the same way the SQL unique index does.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint
	events []CheckEvent
	live   map[Key]int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{live: map[Key]int{}}
}

func (m *MemoryStore) FindLive(ctx context.Context, key Key) (CheckEvent, error) {
	if err := ctx.Err(); err != nil {
		return CheckEvent{}, &StorageError{Op: "find", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.live[key]
	if !ok {
		return CheckEvent{}, ErrNotFound
	}
	return m.events[idx], nil
}

func (m *MemoryStore) Create(ctx context.Context, ev CheckEvent) (CheckEvent, error) {
	if err := ctx.Err(); err != nil {
		return CheckEvent{}, &StorageError{Op: "create", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key{SiteID: ev.SiteID, ItemName: ev.ItemName, Day: ev.OccurredOn}
	if _, ok := m.live[key]; ok {
		return CheckEvent{}, ErrDuplicateLive
	}
	m.nextID++
	ev.ID = m.nextID
	ev.State = StateLive
	ev.DeletedAt = nil
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	m.events = append(m.events, ev)
	m.live[key] = len(m.events) - 1
	return ev, nil
}

func (m *MemoryStore) Tombstone(ctx context.Context, id uint, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "tombstone", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, idx := range m.live {
		if m.events[idx].ID != id {
			continue
		}
		ts := at
		m.events[idx].State = StateTombstoned
		m.events[idx].DeletedAt = &ts
		delete(m.live, key)
		return nil
	}
	return ErrNotFound
}

func (m *MemoryStore) ListLive(ctx context.Context, filter Filter) ([]CheckEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	sites := make(map[uint]struct{}, len(filter.SiteIDs))
	for _, id := range filter.SiteIDs {
		sites[id] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CheckEvent
	for _, idx := range m.live {
		ev := m.events[idx]
		if _, ok := sites[ev.SiteID]; !ok {
			continue
		}
		if filter.From != nil && ev.OccurredOn < *filter.From {
			continue
		}
		if filter.To != nil && ev.OccurredOn > *filter.To {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// All returns every event ever stored, tombstoned ones included, in creation order.
func (m *MemoryStore) All() []CheckEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CheckEvent, len(m.events))
	copy(out, m.events)
	return out
}
