// Package cache is the two-tier response cache shared by the gateway, the
// agents and the orchestrator. Reads hit the in-process tier first and fall
// back to a Durable backend; hits from the backend are promoted.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTTL = 24 * time.Hour

type entry struct {
	data      json.RawMessage
	writtenAt time.Time
}

// ServiceOption customizes Service.
type ServiceOption func(*Service)

func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithEnabled(enabled bool) ServiceOption {
	return func(s *Service) {
		s.enabled = enabled
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type Service struct {
	mu       sync.RWMutex
	volatile map[string]entry
	durable  Durable

	ttl     time.Duration
	enabled bool
	now     func() time.Time
}

// NewService builds a cache over durable. A nil durable keeps the cache
// in-process only.
func NewService(durable Durable, opts ...ServiceOption) *Service {
	s := &Service{
		volatile: make(map[string]entry),
		durable:  durable,
		ttl:      defaultTTL,
		enabled:  true,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) Enabled() bool {
	return s != nil && s.enabled
}

// Get decodes the value stored for (key, namespace) into dst and reports
// whether it was found. Expired, unreadable and undecodable entries are
// misses.
func (s *Service) Get(ctx context.Context, key, namespace string, dst any) bool {
	if !s.Enabled() {
		return false
	}
	id := LookupID(key, namespace)
	now := s.now()

	s.mu.RLock()
	e, ok := s.volatile[id]
	s.mu.RUnlock()
	if ok && s.fresh(e.writtenAt, now) {
		if err := json.Unmarshal(e.data, dst); err != nil {
			log.Warn().Err(err).Str("namespace", namespace).Msg("cache: undecodable volatile entry")
			return false
		}
		return true
	}

	if s.durable == nil {
		return false
	}
	rec, err := s.durable.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("namespace", namespace).Str("id", id).Msg("cache: durable read failed, treating as miss")
		}
		return false
	}
	writtenAt := rec.Time()
	if !s.fresh(writtenAt, now) {
		return false
	}
	if err := json.Unmarshal(rec.Data, dst); err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Str("id", id).Msg("cache: undecodable durable entry, treating as miss")
		return false
	}

	s.mu.Lock()
	s.volatile[id] = entry{data: rec.Data, writtenAt: writtenAt}
	s.mu.Unlock()
	return true
}

// Set stores value in both tiers. A durable failure is logged and dropped;
// the in-process tier still serves the value.
func (s *Service) Set(ctx context.Context, key, namespace string, value any) {
	if !s.Enabled() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("namespace", namespace).Msg("cache: value is not serialisable, skipping")
		return
	}
	id := LookupID(key, namespace)
	now := s.now()

	s.mu.Lock()
	s.volatile[id] = entry{data: data, writtenAt: now}
	s.mu.Unlock()

	if s.durable == nil {
		return
	}
	if err := s.durable.Store(ctx, id, Record{WrittenAt: stamp(now), Data: data}); err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Str("id", id).Msg("cache: durable write failed")
	}
}

// Clear removes the entry for (key, namespace) from both tiers. An empty key
// purges everything.
func (s *Service) Clear(ctx context.Context, key, namespace string) error {
	if s == nil {
		return nil
	}
	if strings.TrimSpace(key) == "" {
		s.mu.Lock()
		s.volatile = make(map[string]entry)
		s.mu.Unlock()
		if s.durable == nil {
			return nil
		}
		return s.durable.Purge(ctx)
	}

	id := LookupID(key, namespace)
	s.mu.Lock()
	delete(s.volatile, id)
	s.mu.Unlock()
	if s.durable == nil {
		return nil
	}
	return s.durable.Delete(ctx, id)
}

func (s *Service) Close() error {
	if s == nil || s.durable == nil {
		return nil
	}
	return s.durable.Close()
}

func (s *Service) fresh(writtenAt, now time.Time) bool {
	return now.Sub(writtenAt) < s.ttl
}

// LookupID is the stable storage id for (key, namespace).
func LookupID(key, namespace string) string {
	sum := sha256.Sum256([]byte(normalizeKey(key) + namespace))
	return hex.EncodeToString(sum[:])
}

func normalizeKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(key)), " ")
}
