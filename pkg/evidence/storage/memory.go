package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mercator-hq/covenant/pkg/evidence"
)

// MemoryStorage implements evidence.Storage with an in-memory map. Records
// are lost on Close. Intended for tests and for evaluations where a durable
// trail is not required.
type MemoryStorage struct {
	records map[string]*evidence.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*evidence.Record),
	}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// Query retrieves records matching the query filters, ordered and paged the
// same way as the SQL backends.
func (s *MemoryStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.Record, error) {
	s.mu.RLock()
	matched := s.collect(query)
	s.mu.RUnlock()

	return page(matched, query), nil
}

// QueryStream streams records matching the query filters.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)

	s.mu.RLock()
	records := page(s.collect(query), query)
	s.mu.RUnlock()

	go func() {
		defer close(errCh)
		defer close(recordsCh)

		for _, record := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*evidence.Record)
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// GetByID returns a copy of the record with the given ID, or nil.
func (s *MemoryStorage) GetByID(id string) *evidence.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}
	recordCopy := *record
	return &recordCopy
}

// collect returns sorted copies of matching records. Callers hold s.mu.
func (s *MemoryStorage) collect(query *evidence.Query) []*evidence.Record {
	var results []*evidence.Record
	for _, record := range s.records {
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sortBy := defaultSortBy
	desc := true
	if query != nil {
		if _, ok := sortColumns[query.SortBy]; ok {
			sortBy = query.SortBy
		}
		desc = !strings.EqualFold(query.SortOrder, "asc")
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if desc {
			a, b = b, a
		}
		switch sortBy {
		case "consent_cost":
			ca, cb := costOf(a), costOf(b)
			if ca != cb {
				return ca < cb
			}
		case "decision":
			if a.Decision != b.Decision {
				return a.Decision < b.Decision
			}
		default:
			if !a.EvaluatedAt.Equal(b.EvaluatedAt) {
				return a.EvaluatedAt.Before(b.EvaluatedAt)
			}
		}
		return a.ID < b.ID
	})

	return results
}

// costOf orders records without a cost first, matching SQL NULL ordering in
// ascending sorts.
func costOf(r *evidence.Record) int {
	if r.ConsentCost == nil {
		return -1
	}
	return *r.ConsentCost
}

func page(records []*evidence.Record, query *evidence.Query) []*evidence.Record {
	limit := defaultLimit
	offset := 0
	if query != nil {
		if query.Limit > 0 {
			limit = query.Limit
		}
		offset = query.Offset
	}

	if offset >= len(records) {
		return []*evidence.Record{}
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end]
}

// matchesQuery checks if a record matches the query filters.
func matchesQuery(record *evidence.Record, query *evidence.Query) bool {
	if query == nil {
		return true
	}

	if query.StartTime != nil && record.EvaluatedAt.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.EvaluatedAt.After(*query.EndTime) {
		return false
	}

	if query.RequestID != "" && record.RequestID != query.RequestID {
		return false
	}
	if query.Source != "" && record.Source != query.Source {
		return false
	}
	if query.Decision != "" && record.Decision != query.Decision {
		return false
	}
	if query.Reason != "" && record.Reason != query.Reason {
		return false
	}
	if query.ConsentState != "" && record.ConsentState != query.ConsentState {
		return false
	}
	if query.IntendedUse != "" && record.IntendedUse != query.IntendedUse {
		return false
	}
	if query.AuditHash != "" && record.AuditHash != query.AuditHash {
		return false
	}
	if query.Terminal != nil && record.Terminal != *query.Terminal {
		return false
	}

	// Cost thresholds never match records without a cost, as in SQL.
	if query.MinCost != nil && (record.ConsentCost == nil || *record.ConsentCost < *query.MinCost) {
		return false
	}
	if query.MaxCost != nil && (record.ConsentCost == nil || *record.ConsentCost > *query.MaxCost) {
		return false
	}

	return true
}
