package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RetrieveOutcome reports the result of one retrieval attempt. Receipt is
// always populated; when Decrypted is false the record was saved without a
// payload and FailureReason says why.
type RetrieveOutcome struct {
	Receipt       *Receipt `json:"receipt"`
	Decrypted     bool     `json:"decrypted"`
	FailureReason string   `json:"failureReason,omitempty"`
}

// ReceiptService orchestrates the retrieval pipeline and owns access to the
// receipt repository. One mutex serializes every read-modify-write cycle so
// near-simultaneous scans cannot race on the persisted collections.
type ReceiptService struct {
	mu      sync.Mutex
	locator TransactionLocator
	repo    ReceiptRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewReceiptService creates a ReceiptService wired to the given locator and
// repository.
func NewReceiptService(locator TransactionLocator, repo ReceiptRepository, logger *slog.Logger) *ReceiptService {
	return &ReceiptService{
		locator: locator,
		repo:    repo,
		logger:  logger,
		now:     time.Now,
	}
}

// Retrieve runs the pipeline for a scanned code: validate, duplicate check,
// locate the transaction, extract the ciphertext, decrypt, persist.
//
// A pipeline failure after validation still appends an incomplete receipt so
// the scan is not silently lost; the reason travels in the outcome, not as an
// error. An unconfirmed duplicate txid returns a *DuplicateError and saves
// nothing; callers re-invoke with allowDuplicate after user confirmation.
func (s *ReceiptService) Retrieve(ctx context.Context, code ScannedCode, allowDuplicate bool) (*RetrieveOutcome, error) {
	if err := code.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !allowDuplicate {
		existing, err := s.findByTxid(ctx, code.Txid)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, &DuplicateError{Existing: existing}
		}
	}

	receipt := Receipt{
		ID:        uuid.NewString(),
		Txid:      code.Txid,
		SymkeyHex: code.SymkeyHex,
		Timestamp: code.Timestamp,
		ScannedAt: s.now().UTC(),
	}

	doc, pipeErr := s.runPipeline(ctx, code.Txid, code.SymkeyHex)
	if pipeErr != nil {
		receipt.FailureReason = pipeErr.Error()
		s.logger.Warn("Retrieval failed, saving receipt without payload",
			"txid", code.Txid, "error", pipeErr)
	} else {
		receipt.Document = doc
		s.registerStoreName(ctx, doc.Store.Name)
		s.logger.Info("Receipt retrieved", "txid", code.Txid, "store", doc.Store.Name)
	}

	if err := s.repo.AppendReceipt(ctx, receipt); err != nil {
		// Local storage failure: logged, the scan still reports its outcome.
		s.logger.Error("Failed to persist receipt", "txid", code.Txid, "error", err)
	}

	outcome := &RetrieveOutcome{
		Receipt:   &receipt,
		Decrypted: receipt.Document != nil,
	}
	if pipeErr != nil {
		outcome.FailureReason = pipeErr.Error()
	}
	return outcome, nil
}

// RetryRetrieve re-runs locate/extract/decrypt for a stored receipt that has
// no decrypted payload, reusing its txid and key. It returns false, without
// an error, when the pipeline still fails or the document carries no store
// name; on success the record is replaced in place with the payload filled.
func (s *ReceiptService) RetryRetrieve(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipt, err := s.findByID(ctx, id)
	if err != nil {
		return false, err
	}
	if receipt.Document != nil {
		return true, nil
	}

	doc, err := s.runPipeline(ctx, receipt.Txid, receipt.SymkeyHex)
	if err != nil {
		s.logger.Warn("Receipt retry failed", "txid", receipt.Txid, "error", err)
		return false, nil
	}
	if doc.Store.Name == "" {
		s.logger.Warn("Decrypted receipt carries no store name", "txid", receipt.Txid)
		return false, nil
	}

	s.registerStoreName(ctx, doc.Store.Name)

	receipt.Document = doc
	receipt.FailureReason = ""
	if err := s.repo.ReplaceReceipt(ctx, *receipt); err != nil {
		return false, fmt.Errorf("failed to update receipt: %w", err)
	}
	s.logger.Info("Receipt retry succeeded", "txid", receipt.Txid, "store", doc.Store.Name)
	return true, nil
}

// runPipeline performs locate -> extract -> decrypt for one txid/key pair.
func (s *ReceiptService) runPipeline(ctx context.Context, txid, keyHex string) (*ReceiptDocument, error) {
	tx, err := s.locator.Locate(ctx, txid)
	if err != nil {
		return nil, err
	}
	ciphertext, err := extractCiphertext(tx)
	if err != nil {
		return nil, err
	}
	key, err := symmetricKeyFromHex(keyHex)
	if err != nil {
		return nil, err
	}
	return decryptReceiptJSON(ciphertext, key)
}

// registerStoreName adds a store name to the registry, deduplicated
// case-insensitively and kept in alphabetical order. Registry failures are
// logged only; they never fail the scan that triggered them.
func (s *ReceiptService) registerStoreName(ctx context.Context, name string) {
	if name == "" {
		return
	}
	names, err := s.repo.StoreNames(ctx)
	if err != nil {
		s.logger.Error("Failed to read store names", "error", err)
		return
	}
	for _, existing := range names {
		if strings.EqualFold(existing, name) {
			return
		}
	}
	names = append(names, name)
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	if err := s.repo.SaveStoreNames(ctx, names); err != nil {
		s.logger.Error("Failed to save store names", "error", err)
	}
}

// Receipts returns all saved receipts, newest scanned first.
func (s *ReceiptService) Receipts(ctx context.Context) ([]Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipts, err := s.repo.Receipts(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(receipts, func(a, b Receipt) int {
		return b.ScannedAt.Compare(a.ScannedAt)
	})
	return receipts, nil
}

// Receipt returns one receipt by id.
func (s *ReceiptService) Receipt(ctx context.Context, id string) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByID(ctx, id)
}

// DeleteReceipt removes one receipt by id.
func (s *ReceiptService) DeleteReceipt(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.RemoveReceipt(ctx, id)
}

// DeleteAllReceipts removes every receipt and clears the store-name registry.
func (s *ReceiptService) DeleteAllReceipts(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.RemoveAllReceipts(ctx); err != nil {
		return err
	}
	if err := s.repo.SaveStoreNames(ctx, nil); err != nil {
		s.logger.Error("Failed to clear store names", "error", err)
	}
	return nil
}

// StoreNames returns the registry of store names seen in decrypted receipts,
// alphabetically sorted.
func (s *ReceiptService) StoreNames(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.StoreNames(ctx)
}

// findByTxid returns the first stored receipt with the given txid, or nil.
func (s *ReceiptService) findByTxid(ctx context.Context, txid string) (*Receipt, error) {
	receipts, err := s.repo.Receipts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range receipts {
		if receipts[i].Txid == txid {
			return &receipts[i], nil
		}
	}
	return nil, nil
}

// findByID returns the stored receipt with the given id.
func (s *ReceiptService) findByID(ctx context.Context, id string) (*Receipt, error) {
	receipts, err := s.repo.Receipts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range receipts {
		if receipts[i].ID == id {
			return &receipts[i], nil
		}
	}
	return nil, ErrReceiptNotFound
}
