package main

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Every failure is surfaced synchronously; the
// pipeline performs no automatic retries or backoff.
var (
	// ErrInvalidCode marks a scanned payload missing or malforming a
	// required field. Not retryable without rescanning.
	ErrInvalidCode = errors.New("scanned code is not a valid receipt code")

	// ErrBadKey marks symmetric key material that cannot be decoded into
	// a key. Validation rejects malformed key hex before the pipeline
	// runs, so this only surfaces for records stored by older builds.
	ErrBadKey = errors.New("symmetric key material is malformed")

	// ErrTxNotFound marks an overlay lookup that returned no matching
	// transaction.
	ErrTxNotFound = errors.New("transaction not found on overlay")

	// ErrNoReceiptData marks a transaction with no qualifying
	// ciphertext-bearing output.
	ErrNoReceiptData = errors.New("no receipt data output found in transaction")

	// ErrDecryption marks a wrong key or corrupt ciphertext.
	ErrDecryption = errors.New("receipt payload could not be decrypted")

	// ErrParse marks a plaintext that decrypted fine but is not a valid
	// receipt document.
	ErrParse = errors.New("decrypted payload is not a valid receipt document")

	// ErrReceiptNotFound marks a lookup for a receipt id not in the store.
	ErrReceiptNotFound = errors.New("receipt not found")
)

// DuplicateError is not a failure: a receipt with the same txid is already
// saved and the caller must explicitly confirm before a duplicate save
// proceeds.
type DuplicateError struct {
	Existing *Receipt
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("a receipt for transaction %s is already saved", e.Existing.Txid)
}
