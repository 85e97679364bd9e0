package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Collection keys preserved from the app's original key-value storage layout.
const (
	receiptsKey   = "scannedReceipts"
	storeNamesKey = "storeNames"
)

// ReceiptRepository persists the receipt collection and the store-name
// registry. It is injected into the service, which serializes all
// read-modify-write cycles; implementations only need to be safe for the
// single-writer discipline.
type ReceiptRepository interface {
	Receipts(ctx context.Context) ([]Receipt, error)
	AppendReceipt(ctx context.Context, receipt Receipt) error
	ReplaceReceipt(ctx context.Context, receipt Receipt) error
	RemoveReceipt(ctx context.Context, id string) error
	RemoveAllReceipts(ctx context.Context) error
	StoreNames(ctx context.Context) ([]string, error)
	SaveStoreNames(ctx context.Context, names []string) error
}

// document is one named collection serialized as a JSON value, mirroring the
// original key-value storage shape.
type document struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// SQLiteRepository stores both collections as JSON documents in a SQLite
// database under the data directory.
type SQLiteRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewSQLiteRepository opens the receipts database in dataDir, creating the
// directory and running migrations as needed.
func NewSQLiteRepository(dataDir string, log *slog.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "receipts.sqlite")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open receipts database: %w", err)
	}
	if err := db.AutoMigrate(&document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate receipts database: %w", err)
	}

	log.Info("Receipt store ready", "db", dbPath)
	return &SQLiteRepository{db: db, logger: log}, nil
}

func (r *SQLiteRepository) load(ctx context.Context, key string, out any) error {
	var doc document
	err := r.db.WithContext(ctx).First(&doc, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Absent document reads as an empty collection.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(doc.Value), out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&document{Key: key, Value: string(data)}).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Receipts returns the stored receipt collection in append order.
func (r *SQLiteRepository) Receipts(ctx context.Context) ([]Receipt, error) {
	var receipts []Receipt
	if err := r.load(ctx, receiptsKey, &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// AppendReceipt adds a receipt to the end of the collection.
func (r *SQLiteRepository) AppendReceipt(ctx context.Context, receipt Receipt) error {
	receipts, err := r.Receipts(ctx)
	if err != nil {
		return err
	}
	return r.save(ctx, receiptsKey, append(receipts, receipt))
}

// ReplaceReceipt swaps the stored record with the same id for the given one.
func (r *SQLiteRepository) ReplaceReceipt(ctx context.Context, receipt Receipt) error {
	receipts, err := r.Receipts(ctx)
	if err != nil {
		return err
	}
	for i := range receipts {
		if receipts[i].ID == receipt.ID {
			receipts[i] = receipt
			return r.save(ctx, receiptsKey, receipts)
		}
	}
	return ErrReceiptNotFound
}

// RemoveReceipt deletes the record with the given id.
func (r *SQLiteRepository) RemoveReceipt(ctx context.Context, id string) error {
	receipts, err := r.Receipts(ctx)
	if err != nil {
		return err
	}
	kept := receipts[:0]
	for _, receipt := range receipts {
		if receipt.ID != id {
			kept = append(kept, receipt)
		}
	}
	if len(kept) == len(receipts) {
		return ErrReceiptNotFound
	}
	return r.save(ctx, receiptsKey, kept)
}

// RemoveAllReceipts empties the receipt collection.
func (r *SQLiteRepository) RemoveAllReceipts(ctx context.Context) error {
	return r.save(ctx, receiptsKey, []Receipt{})
}

// StoreNames returns the store-name registry.
func (r *SQLiteRepository) StoreNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.load(ctx, storeNamesKey, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// SaveStoreNames replaces the store-name registry.
func (r *SQLiteRepository) SaveStoreNames(ctx context.Context, names []string) error {
	if names == nil {
		names = []string{}
	}
	return r.save(ctx, storeNamesKey, names)
}
