package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsv-blockchain/go-sdk/overlay/lookup"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// lookupService is the overlay service namespace that resolves arbitrary
// transactions by txid.
const lookupService = "ls_anytx"

// lookupTimeout bounds a single overlay query. There is no cancellation
// beyond it and no automatic retry at this layer.
const lookupTimeout = 10 * time.Second

// TransactionLocator resolves a blockchain transaction by its identifier.
type TransactionLocator interface {
	Locate(ctx context.Context, txid string) (*transaction.Transaction, error)
}

// OverlayLocator resolves transactions through an overlay lookup service.
type OverlayLocator struct {
	resolver *lookup.LookupResolver
	logger   *slog.Logger
}

// NewOverlayLocator creates a locator that queries the given overlay host.
func NewOverlayLocator(overlayURL string, logger *slog.Logger) *OverlayLocator {
	resolver := lookup.NewLookupResolver(&lookup.LookupResolver{
		SLAPTrackers: []string{overlayURL},
		AdditionalHosts: map[string][]string{
			lookupService: {overlayURL},
		},
	})
	return &OverlayLocator{
		resolver: resolver,
		logger:   logger,
	}
}

// Locate queries the overlay for the transaction and parses the answer.
func (l *OverlayLocator) Locate(ctx context.Context, txid string) (*transaction.Transaction, error) {
	query, err := json.Marshal(map[string]string{"txid": txid})
	if err != nil {
		return nil, fmt.Errorf("failed to encode lookup query: %w", err)
	}

	l.logger.Debug("Querying overlay", "service", lookupService, "txid", txid)

	qctx, cancel := withLookupTimeout(ctx)
	defer cancel()

	answer, err := l.resolver.Query(qctx, &lookup.LookupQuestion{
		Service: lookupService,
		Query:   query,
	})
	if err != nil {
		return nil, fmt.Errorf("overlay lookup failed: %w", err)
	}

	return transactionFromAnswer(answer)
}

// withLookupTimeout derives the bounded context for one overlay query.
func withLookupTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, lookupTimeout)
}

// transactionFromAnswer extracts the subject transaction from an output-list
// lookup answer.
func transactionFromAnswer(answer *lookup.LookupAnswer) (*transaction.Transaction, error) {
	if answer == nil || answer.Type != lookup.AnswerTypeOutputList {
		return nil, ErrTxNotFound
	}
	for _, item := range answer.Outputs {
		if item == nil || len(item.Beef) == 0 {
			continue
		}
		tx, err := transaction.NewTransactionFromBEEF(item.Beef)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction BEEF: %w", err)
		}
		return tx, nil
	}
	return nil, ErrTxNotFound
}
