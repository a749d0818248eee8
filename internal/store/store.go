// Package store keeps the listings found for each session in memory.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/Jasminestrone/MiataMaestro/pkg/models"
)

// ErrNotFound is returned when a listing id is unknown for a session.
var ErrNotFound = errors.New("listing not found")

// Config controls store behavior.
type Config struct {
	// DedupByURL makes Merge skip listings whose URL is already stored for
	// the session, in addition to skipping known ids.
	DedupByURL bool `mapstructure:"dedup_by_url"`
}

// MergeResult reports what a Merge inserted.
type MergeResult struct {
	Inserted   []models.Listing
	NewCount   int
	TotalCount int
}

// Store maps session → listing id → Listing. It is safe for concurrent use.
type Store struct {
	cfg      Config
	mu       sync.RWMutex
	sessions map[string]map[string]models.Listing
}

// New creates an empty Store.
func New(cfg Config) *Store {
	return &Store{cfg: cfg, sessions: make(map[string]map[string]models.Listing)}
}

// Put inserts or overwrites a single listing.
func (s *Store) Put(session string, l models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionLocked(session)[l.ID] = l
}

// Replace discards the session's listings and stores listings instead.
func (s *Store) Replace(session string, listings map[string]models.Listing) {
	m := make(map[string]models.Listing, len(listings))
	for id, l := range listings {
		m[id] = l
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session] = m
}

// Merge inserts the listings whose ids are not yet stored for session.
// Existing entries are never overwritten. Listings are considered in
// scrape order so the inserted subset is deterministic.
func (s *Store) Merge(session string, listings map[string]models.Listing) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.sessionLocked(session)
	urls := make(map[string]bool)
	if s.cfg.DedupByURL {
		for _, l := range existing {
			urls[l.URL] = true
		}
	}

	var res MergeResult
	for _, l := range sorted(listings) {
		if _, ok := existing[l.ID]; ok {
			continue
		}
		if s.cfg.DedupByURL && urls[l.URL] {
			continue
		}
		existing[l.ID] = l
		urls[l.URL] = true
		res.Inserted = append(res.Inserted, l)
	}
	res.NewCount = len(res.Inserted)
	res.TotalCount = len(existing)
	return res
}

// Get returns one listing.
func (s *Store) Get(session, id string) (models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.sessions[session][id]
	if !ok {
		return models.Listing{}, ErrNotFound
	}
	return l, nil
}

// List returns the session's listings ordered by scrape time, then id.
func (s *Store) List(session string) []models.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.sessions[session])
}

// SetLowball attaches an evaluated lowball price to a stored listing.
func (s *Store) SetLowball(session, id string, price int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sessions[session][id]
	if !ok {
		return ErrNotFound
	}
	l.LowballPrice = models.IntPtr(price)
	s.sessions[session][id] = l
	return nil
}

// Clear removes every listing of a session.
func (s *Store) Clear(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session)
}

func (s *Store) sessionLocked(session string) map[string]models.Listing {
	m, ok := s.sessions[session]
	if !ok {
		m = make(map[string]models.Listing)
		s.sessions[session] = m
	}
	return m
}

func sorted(m map[string]models.Listing) []models.Listing {
	out := make([]models.Listing, 0, len(m))
	for _, l := range m {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScrapedAt.Equal(out[j].ScrapedAt) {
			return out[i].ScrapedAt.Before(out[j].ScrapedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
