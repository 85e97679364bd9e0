package main

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ScannedCode is the JSON payload decoded from a receipt QR code. Unknown
// fields are ignored.
type ScannedCode struct {
	Txid      string `json:"txid" validate:"required,hexadecimal"`
	SymkeyHex string `json:"symkeyString" validate:"required,hexadecimal"`
	Timestamp string `json:"timestamp" validate:"required"`
}

// Validate checks that all three fields are present and well-formed. A code
// failing validation is rejected before the pipeline runs.
func (c ScannedCode) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if len(c.SymkeyHex)%2 != 0 {
		return fmt.Errorf("%w: symmetric key hex has odd length", ErrInvalidCode)
	}
	if _, err := time.Parse(time.RFC3339, c.Timestamp); err != nil {
		return fmt.Errorf("%w: bad timestamp: %v", ErrInvalidCode, err)
	}
	return nil
}

// Receipt is the persisted record for one saved digital receipt. Document is
// nil when the retrieval attempt could not decrypt a payload; FailureReason
// then records why.
type Receipt struct {
	ID            string           `json:"id"`
	Txid          string           `json:"txid"`
	SymkeyHex     string           `json:"symkeyString"`
	Timestamp     string           `json:"timestamp"`
	ScannedAt     time.Time        `json:"scannedAt"`
	Document      *ReceiptDocument `json:"fullReceiptData,omitempty"`
	FailureReason string           `json:"failureReason,omitempty"`
}

// StoreInfo identifies the issuing store within a decrypted receipt.
type StoreInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// LineItem is one purchased item on a receipt.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
	TaxRate     float64 `json:"taxRate" validate:"gte=0"`
	LineTotal   float64 `json:"lineTotal" validate:"gte=0"`
}

// ReceiptDocument is the structured receipt carried in the encrypted payload.
// It is only ever populated from a successful decrypt-and-parse cycle.
type ReceiptDocument struct {
	Store         StoreInfo  `json:"store"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	Cashier       string     `json:"cashier"`
	Items         []LineItem `json:"items" validate:"dive"`
	PaymentMethod string     `json:"paymentMethod"`
	Subtotal      float64    `json:"subtotal" validate:"gte=0"`
	Tax           float64    `json:"tax" validate:"gte=0"`
	Total         float64    `json:"total" validate:"gte=0"`
	Footer        string     `json:"footer"`
}
