package sim

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dnldd/breakout/shared"
)

// scoredMember pairs a sorted set member with its score.
type scoredMember struct {
	score  float64
	member string
}

// expiringValue pairs a stored value with its expiry deadline.
type expiringValue struct {
	value     string
	expiresAt time.Time
}

// Store is an in-memory market store implementing the same list, sorted set
// and expiring key contract as the live store. Key expiry honors the
// simulation clock so replays age entries the way the live store would.
type Store struct {
	clock  shared.Clock
	mtx    sync.RWMutex
	lists  map[string][]string
	sets   map[string][]scoredMember
	values map[string]expiringValue
}

// Ensure the simulation store implements the MarketStore interface.
var _ shared.MarketStore = (*Store)(nil)

// NewStore initializes a new simulation store.
func NewStore(clock shared.Clock) *Store {
	return &Store{
		clock:  clock,
		lists:  make(map[string][]string),
		sets:   make(map[string][]scoredMember),
		values: make(map[string]expiringValue),
	}
}

// PushFront prepends the provided values to the list at the key.
func (s *Store) PushFront(ctx context.Context, key string, values ...string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for idx := range values {
		s.lists[key] = append([]string{values[idx]}, s.lists[key]...)
	}

	return nil
}

// Trim bounds the list at the key to the provided length.
func (s *Store) Trim(ctx context.Context, key string, length int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	list := s.lists[key]
	if int64(len(list)) > length {
		s.lists[key] = list[:length]
	}

	return nil
}

// Range reads list entries at the key between the provided indices.
func (s *Store) Range(ctx context.Context, key string, start int64, stop int64) ([]string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	list := s.lists[key]
	size := int64(len(list))
	if size == 0 {
		return nil, nil
	}

	if stop < 0 {
		stop = size + stop
	}
	if stop >= size {
		stop = size - 1
	}
	if start < 0 {
		start = 0
	}
	if start > stop {
		return nil, nil
	}

	entries := make([]string, stop-start+1)
	copy(entries, list[start:stop+1])

	return entries, nil
}

// AddToSet adds the provided member to the sorted set at the key, keeping
// members ordered by score.
func (s *Store) AddToSet(ctx context.Context, key string, score float64, member string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	set := s.sets[key]
	for idx := range set {
		if set[idx].member == member {
			set[idx].score = score
			sort.SliceStable(set, func(i, j int) bool { return set[i].score < set[j].score })
			return nil
		}
	}

	set = append(set, scoredMember{score: score, member: member})
	sort.SliceStable(set, func(i, j int) bool { return set[i].score < set[j].score })
	s.sets[key] = set

	return nil
}

// RangeByScore reads sorted set members at the key with scores between the
// provided bounds, inclusive.
func (s *Store) RangeByScore(ctx context.Context, key string, min float64, max float64) ([]string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var members []string
	for _, entry := range s.sets[key] {
		if entry.score >= min && entry.score <= max {
			members = append(members, entry.member)
		}
	}

	return members, nil
}

// RemoveByScoreRange removes sorted set members at the key with scores
// between the provided bounds, inclusive.
func (s *Store) RemoveByScoreRange(ctx context.Context, key string, min float64, max float64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	set := s.sets[key]
	kept := set[:0]
	for _, entry := range set {
		if entry.score < min || entry.score > max {
			kept = append(kept, entry)
		}
	}
	s.sets[key] = kept

	return nil
}

// Set stores the provided value at the key with an expiry.
func (s *Store) Set(ctx context.Context, key string, value string, expiry time.Duration) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	entry := expiringValue{value: value}
	if expiry > 0 {
		entry.expiresAt = s.clock.Now().Add(expiry)
	}
	s.values[key] = entry

	return nil
}

// Get reads the value at the key, honoring expiry against the simulation clock.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	entry, ok := s.values[key]
	if !ok {
		return "", shared.ErrKeyNotFound
	}

	if !entry.expiresAt.IsZero() && !s.clock.Now().Before(entry.expiresAt) {
		delete(s.values, key)
		return "", shared.ErrKeyNotFound
	}

	return entry.value, nil
}
