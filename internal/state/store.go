package state

import (
	"github.com/tesserapt/marlin/internal/types"
)

// Store is the persistence surface the engine writes through. The engine
// treats store failures as non-fatal: in-memory state is authoritative and
// the audit trail is best effort.
type Store interface {
	RecordPriceUpdate(point types.PricePoint) error
	SaveConversionReceipt(receipt types.ConversionReceipt) error
	IncrementConversionCounter() (int, error)
	GetPriceHistory(limit int) ([]types.PricePoint, error)
	GetRecentConversions(limit int) ([]types.ConversionReceipt, error)
}

// PostgresStore backs Store with the package-level connection pool.
type PostgresStore struct{}

// NewPostgresStore returns a Store over the global pool. InitDB and
// EnsureSchema must have run first.
func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

func (s *PostgresStore) RecordPriceUpdate(point types.PricePoint) error {
	return RecordPriceUpdate(point)
}

func (s *PostgresStore) SaveConversionReceipt(receipt types.ConversionReceipt) error {
	return SaveConversionReceipt(receipt)
}

func (s *PostgresStore) IncrementConversionCounter() (int, error) {
	return IncrementConversionCounter()
}

func (s *PostgresStore) GetPriceHistory(limit int) ([]types.PricePoint, error) {
	return GetPriceHistory(limit)
}

func (s *PostgresStore) GetRecentConversions(limit int) ([]types.ConversionReceipt, error) {
	return GetRecentConversions(limit)
}

// NoopStore discards writes and returns empty reads. Used when the engine
// runs without a database.
type NoopStore struct{}

// NewNoopStore returns a Store that persists nothing.
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

func (s *NoopStore) RecordPriceUpdate(types.PricePoint) error { return nil }

func (s *NoopStore) SaveConversionReceipt(types.ConversionReceipt) error { return nil }

func (s *NoopStore) IncrementConversionCounter() (int, error) { return 0, nil }

func (s *NoopStore) GetPriceHistory(int) ([]types.PricePoint, error) { return nil, nil }

func (s *NoopStore) GetRecentConversions(int) ([]types.ConversionReceipt, error) { return nil, nil }
