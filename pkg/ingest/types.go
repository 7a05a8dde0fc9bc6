// Package ingest loads per-store sales data into an in-memory snapshot that
// the clustering and rule steps consume.
package ingest

import (
	"sort"
)

// SalesRecord is one store/category observation for the reporting period.
// UnitsInStock is a pointer because source extracts can lack the stock
// column for a row; missing stays missing all the way to the validator
// rather than defaulting to zero.
type SalesRecord struct {
	StoreID      string
	CategoryKey  string
	UnitsSold    float64
	UnitsInStock *int
	Revenue      float64
}

// Stats counts how ingestion treated the source rows.
type Stats struct {
	Rows         int
	Accepted     int
	Clamped      int
	Malformed    int
	MissingStock int
}

// Snapshot holds all sales records for one pipeline run with lookup indexes
// built ahead of time. It is immutable once built.
type Snapshot struct {
	records []SalesRecord
	byStore map[string][]SalesRecord
	byPair  map[pairKey]SalesRecord
	stats   Stats
}

type pairKey struct {
	storeID     string
	categoryKey string
}

// NewSnapshot indexes a set of records.
func NewSnapshot(records []SalesRecord, stats Stats) *Snapshot {
	s := &Snapshot{
		records: records,
		byStore: make(map[string][]SalesRecord),
		byPair:  make(map[pairKey]SalesRecord, len(records)),
		stats:   stats,
	}

	for _, rec := range records {
		s.byStore[rec.StoreID] = append(s.byStore[rec.StoreID], rec)
		s.byPair[pairKey{rec.StoreID, rec.CategoryKey}] = rec
	}

	return s
}

// Records returns all records in source order.
func (s *Snapshot) Records() []SalesRecord {
	return s.records
}

// Stats returns the ingestion counters.
func (s *Snapshot) Stats() Stats {
	return s.stats
}

// Stores returns the distinct store IDs, sorted.
func (s *Snapshot) Stores() []string {
	stores := make([]string, 0, len(s.byStore))
	for id := range s.byStore {
		stores = append(stores, id)
	}
	sort.Strings(stores)

	return stores
}

// Categories returns the distinct category keys, sorted.
func (s *Snapshot) Categories() []string {
	seen := make(map[string]struct{})
	for _, rec := range s.records {
		seen[rec.CategoryKey] = struct{}{}
	}

	categories := make([]string, 0, len(seen))
	for key := range seen {
		categories = append(categories, key)
	}
	sort.Strings(categories)

	return categories
}

// StoreRecords returns all records for one store.
func (s *Snapshot) StoreRecords(storeID string) []SalesRecord {
	return s.byStore[storeID]
}

// Record returns the record for a store/category pair.
func (s *Snapshot) Record(storeID, categoryKey string) (SalesRecord, bool) {
	rec, ok := s.byPair[pairKey{storeID, categoryKey}]
	return rec, ok
}

// StoreRevenue returns the total revenue for a store.
func (s *Snapshot) StoreRevenue(storeID string) float64 {
	total := 0.0
	for _, rec := range s.byStore[storeID] {
		total += rec.Revenue
	}

	return total
}
