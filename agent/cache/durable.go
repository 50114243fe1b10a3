package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("cache record not found")
	ErrCorrupt  = errors.New("cache record is corrupt")
)

// Record is the persisted form of one cache entry.
type Record struct {
	WrittenAt float64         `json:"written_at"`
	Data      json.RawMessage `json:"data"`
}

func (r Record) Time() time.Time {
	sec := int64(r.WrittenAt)
	nsec := int64((r.WrittenAt - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

func stamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Durable is the persistent tier. Implementations must make Store atomic:
// a concurrent Load sees either the previous record or the new one.
type Durable interface {
	Load(ctx context.Context, id string) (Record, error)
	Store(ctx context.Context, id string, rec Record) error
	Delete(ctx context.Context, id string) error
	Purge(ctx context.Context) error
	Close() error
}
