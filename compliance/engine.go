package compliance

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ToggleResult is the state of the key after a toggle.
type ToggleResult struct {
	Checked bool `json:"checked"`
}

// Engine implements toggle, aggregation and the completeness predicate on top of a Store.
type Engine struct {
	store Store
	now   func() time.Time
	loc   *time.Location
	locks *KeyedMutex
	log   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone "today" is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an Engine over store. Defaults: time.Now, time.Local, no-op logger.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		loc:   time.Local,
		locks: NewKeyedMutex(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today is the current calendar day in the engine's zone.
func (e *Engine) Today() Day {
	return DayOf(e.now().In(e.loc))
}

// Location returns the zone used for Today.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Toggle flips the checked state of item at site on day and reports the resulting state.
// When a concurrent writer wins a race on the same key the current state is re-read and returned.
func (e *Engine) Toggle(ctx context.Context, siteID, contractID uint, item string, day Day) (ToggleResult, error) {
	key := Key{SiteID: siteID, ItemName: item, Day: day}
	unlock := e.locks.Lock(key.String())
	defer unlock()

	ev, err := e.store.FindLive(ctx, key)
	switch {
	case err == nil:
		err = e.store.Tombstone(ctx, ev.ID, e.now())
		if err == nil {
			return ToggleResult{Checked: false}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return ToggleResult{}, err
		}
		e.log.Debug("tombstone lost race", zap.String("key", key.String()), zap.Uint("event_id", ev.ID))
	case errors.Is(err, ErrNotFound):
		_, err = e.store.Create(ctx, CheckEvent{
			SiteID:     siteID,
			ContractID: contractID,
			ItemName:   item,
			OccurredOn: day,
			State:      StateLive,
		})
		if err == nil {
			return ToggleResult{Checked: true}, nil
		}
		if !errors.Is(err, ErrDuplicateLive) {
			return ToggleResult{}, err
		}
		e.log.Debug("create lost race", zap.String("key", key.String()))
	default:
		return ToggleResult{}, err
	}

	return e.currentState(ctx, key)
}

// currentState re-reads key after a lost race.
func (e *Engine) currentState(ctx context.Context, key Key) (ToggleResult, error) {
	_, err := e.store.FindLive(ctx, key)
	switch {
	case err == nil:
		return ToggleResult{Checked: true}, nil
	case errors.Is(err, ErrNotFound):
		return ToggleResult{Checked: false}, nil
	default:
		return ToggleResult{}, err
	}
}

// ChecklistForSite returns the full live history of a site.
func (e *Engine) ChecklistForSite(ctx context.Context, siteID uint) (Checklist, error) {
	events, err := e.store.ListLive(ctx, Filter{SiteIDs: []uint{siteID}})
	if err != nil {
		return nil, err
	}
	return BuildChecklist(events), nil
}

// ChecklistsForSites returns one checklist per requested site using a single store query.
// Every requested id is present in the result, with an empty checklist when nothing was checked.
func (e *Engine) ChecklistsForSites(ctx context.Context, siteIDs []uint) (map[uint]Checklist, error) {
	out := make(map[uint]Checklist, len(siteIDs))
	if len(siteIDs) == 0 {
		return out, nil
	}
	for _, id := range siteIDs {
		out[id] = Checklist{}
	}
	events, err := e.store.ListLive(ctx, Filter{SiteIDs: siteIDs})
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		c, ok := out[ev.SiteID]
		if !ok || !ev.Live() {
			continue
		}
		c.Add(ev.ItemName, ev.OccurredOn)
	}
	return out, nil
}

// CheckedDatesInRange returns item -> ascending days checked within [from, to].
func (e *Engine) CheckedDatesInRange(ctx context.Context, siteID uint, from, to Day) (map[string][]Day, error) {
	out := map[string][]Day{}
	if to < from {
		return out, nil
	}
	events, err := e.store.ListLive(ctx, Filter{SiteIDs: []uint{siteID}, From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	c := Checklist{}
	for _, ev := range events {
		if !ev.Live() || ev.OccurredOn < from || ev.OccurredOn > to {
			continue
		}
		c.Add(ev.ItemName, ev.OccurredOn)
	}
	for item, set := range c {
		out[item] = set.Sorted()
	}
	return out, nil
}

// IsSiteFullyCompliant evaluates IsFullyCompliant as of the engine's today.
func (e *Engine) IsSiteFullyCompliant(site Site, checklist Checklist) bool {
	return IsFullyCompliant(site, checklist, e.Today())
}

// SiteStatus is the compliance verdict for one site.
type SiteStatus struct {
	SiteID       uint             `json:"siteId"`
	Compliant    bool             `json:"compliant"`
	RequiredDays int              `json:"requiredDays"`
	Missing      map[string][]Day `json:"missing,omitempty"`
}

// Evaluate loads checklists for sites in one query and returns their statuses ordered by site id.
func (e *Engine) Evaluate(ctx context.Context, sites []Site) ([]SiteStatus, error) {
	ids := make([]uint, len(sites))
	for i, s := range sites {
		ids[i] = s.ID
	}
	lists, err := e.ChecklistsForSites(ctx, ids)
	if err != nil {
		return nil, err
	}
	today := e.Today()
	out := make([]SiteStatus, 0, len(sites))
	for _, s := range sites {
		c := lists[s.ID]
		st := SiteStatus{
			SiteID:       s.ID,
			Compliant:    IsFullyCompliant(s, c, today),
			RequiredDays: RequiredDays(s, today),
		}
		if !st.Compliant {
			st.Missing = MissingDays(s, c, today)
		}
		if st.RequiredDays < 0 {
			st.RequiredDays = 0
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteID < out[j].SiteID })
	return out, nil
}
