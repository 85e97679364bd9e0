package main

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepository keeps both collections in process memory. Selectable with
// the -memory flag for development; contents are lost on restart.
type MemoryRepository struct {
	mu       sync.Mutex
	receipts []Receipt
	names    []string
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Receipts(_ context.Context) ([]Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.receipts), nil
}

func (m *MemoryRepository) AppendReceipt(_ context.Context, receipt Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, receipt)
	return nil
}

func (m *MemoryRepository) ReplaceReceipt(_ context.Context, receipt Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.receipts {
		if m.receipts[i].ID == receipt.ID {
			m.receipts[i] = receipt
			return nil
		}
	}
	return ErrReceiptNotFound
}

func (m *MemoryRepository) RemoveReceipt(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.receipts {
		if m.receipts[i].ID == id {
			m.receipts = slices.Delete(m.receipts, i, i+1)
			return nil
		}
	}
	return ErrReceiptNotFound
}

func (m *MemoryRepository) RemoveAllReceipts(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = nil
	return nil
}

func (m *MemoryRepository) StoreNames(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.names), nil
}

func (m *MemoryRepository) SaveStoreNames(_ context.Context, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = slices.Clone(names)
	return nil
}
