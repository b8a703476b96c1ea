package store

import (
	"slices"
	gosync "sync"

	"github.com/nhle/portal-notify/internal/model"
)

// Capacity is the maximum number of records kept per domain and shown in
// the merged view.
const Capacity = 5

// domainState is one domain's capped collection and its unread counter.
type domainState struct {
	records []model.Notification
	unread  int
}

// Store reconciles notifications from REST snapshots and push deltas.
// Every method is safe for concurrent use and each mutation is applied
// under a single lock, so readers never see a half-applied change.
type Store struct {
	mu      gosync.RWMutex
	domains map[model.Domain]*domainState

	subMu  gosync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		domains: make(map[model.Domain]*domainState),
		subs:    make(map[int]chan struct{}),
	}
}

// domain returns the state for d, creating it lazily. Callers hold mu.
func (s *Store) domain(d model.Domain) *domainState {
	st, ok := s.domains[d]
	if !ok {
		st = &domainState{}
		s.domains[d] = st
	}
	return st
}

// ReplaceDomain discards the domain's records and installs records,
// de-duplicated by id (last occurrence wins), sorted and capped. The
// unread counter is left alone.
func (s *Store) ReplaceDomain(d model.Domain, records []model.Notification) {
	s.mu.Lock()
	s.domain(d).records = normalize(records)
	s.mu.Unlock()
	s.notify()
}

// ApplySnapshot replaces the domain's records and its unread counter in
// one step.
func (s *Store) ApplySnapshot(d model.Domain, records []model.Notification, unread int) {
	s.mu.Lock()
	st := s.domain(d)
	st.records = normalize(records)
	st.unread = max(unread, 0)
	s.mu.Unlock()
	s.notify()
}

// Upsert inserts record into the domain derived from its id, replacing
// any record with the same id. It reports whether the id was present.
func (s *Store) Upsert(record model.Notification) bool {
	return s.UpsertFunc(record.ID, func(model.Notification, bool) model.Notification {
		return record
	})
}

// UpsertFunc atomically reads the record for id (if any), passes it to fn
// and stores the result. The returned record keeps id regardless of what
// fn sets. It reports whether the id was already present.
func (s *Store) UpsertFunc(
	id model.NotificationID,
	fn func(existing model.Notification, found bool) model.Notification,
) bool {
	s.mu.Lock()
	st := s.domain(id.Kind())

	idx := indexOf(st.records, id)
	var existing model.Notification
	if idx >= 0 {
		existing = cloneRecord(st.records[idx])
	}

	next := fn(existing, idx >= 0)
	next.ID = id

	if idx >= 0 {
		st.records[idx] = next
	} else {
		st.records = append([]model.Notification{next}, st.records...)
	}
	sortAndCap(&st.records)
	s.mu.Unlock()

	s.notify()
	return idx >= 0
}

// Update mutates the record for id in place and re-sorts its domain. It
// reports whether the record was found.
func (s *Store) Update(id model.NotificationID, fn func(*model.Notification)) bool {
	s.mu.Lock()
	st, ok := s.domains[id.Kind()]
	if !ok {
		s.mu.Unlock()
		return false
	}
	idx := indexOf(st.records, id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	rec := cloneRecord(st.records[idx])
	fn(&rec)
	rec.ID = id
	st.records[idx] = rec
	sortAndCap(&st.records)
	s.mu.Unlock()

	s.notify()
	return true
}

// Remove deletes the record for id. It reports whether it was present.
func (s *Store) Remove(id model.NotificationID) bool {
	s.mu.Lock()
	st, ok := s.domains[id.Kind()]
	if !ok {
		s.mu.Unlock()
		return false
	}
	idx := indexOf(st.records, id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	st.records = slices.Delete(st.records, idx, idx+1)
	s.mu.Unlock()

	s.notify()
	return true
}

// Get returns a copy of the record for id.
func (s *Store) Get(id model.NotificationID) (model.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.domains[id.Kind()]
	if !ok {
		return model.Notification{}, false
	}
	idx := indexOf(st.records, id)
	if idx < 0 {
		return model.Notification{}, false
	}
	return cloneRecord(st.records[idx]), true
}

// Records returns a copy of one domain's collection, newest first.
func (s *Store) Records(d model.Domain) []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.domains[d]
	if !ok {
		return nil
	}
	return cloneRecords(st.records)
}

// MergedView derives the combined dropdown list: both domains merged,
// sorted newest first and capped.
func (s *Store) MergedView() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mergedLocked()
}

func (s *Store) mergedLocked() []model.Notification {
	var merged []model.Notification
	for _, d := range model.Domains {
		if st, ok := s.domains[d]; ok {
			merged = append(merged, cloneRecords(st.records)...)
		}
	}
	sortAndCap(&merged)
	return merged
}

// UnreadCount returns the tracked unread count for d.
func (s *Store) UnreadCount(d model.Domain) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.domains[d]; ok {
		return st.unread
	}
	return 0
}

// SetUnreadCount adopts an authoritative unread count, floored at zero.
func (s *Store) SetUnreadCount(d model.Domain, n int) {
	s.mu.Lock()
	s.domain(d).unread = max(n, 0)
	s.mu.Unlock()
	s.notify()
}

// AddUnread adjusts the unread count by delta, floored at zero, and
// returns the new value.
func (s *Store) AddUnread(d model.Domain, delta int) int {
	s.mu.Lock()
	st := s.domain(d)
	st.unread = max(st.unread+delta, 0)
	n := st.unread
	s.mu.Unlock()
	s.notify()
	return n
}

// ClearDomain drops every record and the unread count of d.
func (s *Store) ClearDomain(d model.Domain) {
	s.mu.Lock()
	delete(s.domains, d)
	s.mu.Unlock()
	s.notify()
}

// Reset clears every domain.
func (s *Store) Reset() {
	s.mu.Lock()
	s.domains = make(map[model.Domain]*domainState)
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a consistent view of the merged list and both counts.
func (s *Store) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{Items: s.mergedLocked()}
	if st, ok := s.domains[model.DomainConnection]; ok {
		v.UnreadConnections = st.unread
	}
	if st, ok := s.domains[model.DomainMessage]; ok {
		v.UnreadMessages = st.unread
	}
	return v
}

// Changes returns a channel that receives a value after any mutation.
// Signals coalesce: a slow reader sees at most one pending value. The
// cancel func unsubscribes and must be called when done.
func (s *Store) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once gosync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// notify signals every subscriber without blocking.
func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// normalize de-duplicates by id keeping the last occurrence in its
// position, then sorts and caps.
func normalize(records []model.Notification) []model.Notification {
	out := make([]model.Notification, 0, len(records))
	seen := make(map[model.NotificationID]int, len(records))
	for _, r := range records {
		if i, ok := seen[r.ID]; ok {
			out[i] = cloneRecord(r)
			continue
		}
		seen[r.ID] = len(out)
		out = append(out, cloneRecord(r))
	}
	sortAndCap(&out)
	return out
}

// sortAndCap orders newest first, keeping relative order for equal
// timestamps, and truncates to Capacity.
func sortAndCap(records *[]model.Notification) {
	slices.SortStableFunc(*records, func(a, b model.Notification) int {
		return b.EffectiveTime().Compare(a.EffectiveTime())
	})
	if len(*records) > Capacity {
		*records = (*records)[:Capacity]
	}
}

func indexOf(records []model.Notification, id model.NotificationID) int {
	return slices.IndexFunc(records, func(r model.Notification) bool {
		return r.ID == id
	})
}

func cloneRecord(r model.Notification) model.Notification {
	if r.Actor != nil {
		actor := *r.Actor
		r.Actor = &actor
	}
	return r
}

func cloneRecords(records []model.Notification) []model.Notification {
	out := make([]model.Notification, len(records))
	for i, r := range records {
		out[i] = cloneRecord(r)
	}
	return out
}
