package compliance

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventState tags a check event as live or tombstoned. The only transition is live -> tombstoned.
type EventState string

const (
	StateLive       EventState = "live"
	StateTombstoned EventState = "tombstoned"
)

var (
	// ErrNotFound is returned when no live event matches a lookup or tombstone request.
	ErrNotFound = errors.New("check event not found")
	// ErrDuplicateLive is returned by Store.Create when a live event already exists for the key.
	ErrDuplicateLive = errors.New("live check event already exists")
)

// StorageError wraps a failure of the underlying store. Callers treat it as transient.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("checklist store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CheckEvent records that an item was completed at a site on a day.
type CheckEvent struct {
	ID         uint       `json:"id"`
	SiteID     uint       `json:"siteId"`
	ContractID uint       `json:"contractId"`
	ItemName   string     `json:"name"`
	OccurredOn Day        `json:"date"`
	State      EventState `json:"state"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Live reports whether the event has not been tombstoned.
func (e CheckEvent) Live() bool {
	return e.State == StateLive
}

// Key identifies the at-most-one live event slot.
type Key struct {
	SiteID   uint
	ItemName string
	Day      Day
}

func (k Key) String() string {
	return fmt.Sprintf("%d|%s|%s", k.SiteID, k.ItemName, k.Day)
}

// Filter selects live events. Empty SiteIDs matches no site. From/To are inclusive when set.
type Filter struct {
	SiteIDs []uint
	From    *Day
	To      *Day
}

// Store is the persistence contract the engine needs.
type Store interface {
	FindLive(ctx context.Context, key Key) (CheckEvent, error)
	Create(ctx context.Context, ev CheckEvent) (CheckEvent, error)
	Tombstone(ctx context.Context, id uint, at time.Time) error
	ListLive(ctx context.Context, filter Filter) ([]CheckEvent, error)
}
