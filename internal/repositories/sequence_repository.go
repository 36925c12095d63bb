package repositories

import (
	"fmt"
)

// Sequence scopes.
const (
	SequenceOrder   = "order"   // per store, per calendar day
	SequenceReceipt = "receipt" // per store
)

// SequenceRepository hands out store-scoped sequential numbers. The counter
// row is upserted and incremented in a single statement, so two concurrent
// callers can never observe the same value. This replaces the count-rows-and-
// add-one scheme, which races under concurrency.
type SequenceRepository interface {
	// NextValue returns the next number for (storeID, scope, period).
	// Period is a calendar day (YYYYMMDD) for daily sequences and empty for
	// store-lifetime sequences.
	NextValue(executor SQLExecutor, storeID int64, scope, period string) (int64, error)
}

type sequenceRepository struct{}

// NewSequenceRepository creates a new instance of SequenceRepository.
func NewSequenceRepository() SequenceRepository {
	return &sequenceRepository{}
}

func (r *sequenceRepository) NextValue(executor SQLExecutor, storeID int64, scope, period string) (int64, error) {
	var value int64
	query := `INSERT INTO store_sequences (store_id, scope, period, value)
	          VALUES ($1, $2, $3, 1)
	          ON CONFLICT (store_id, scope, period)
	          DO UPDATE SET value = store_sequences.value + 1
	          RETURNING value`
	err := executor.QueryRow(query, storeID, scope, period).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("%w: advancing sequence %s/%s for store %d: %v", ErrDatabaseError, scope, period, storeID, err)
	}
	return value, nil
}
