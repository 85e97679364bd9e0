package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testKey(t *testing.T) *ec.SymmetricKey {
	t.Helper()
	key, err := symmetricKeyFromHex(testKeyHex)
	if err != nil {
		t.Fatalf("symmetricKeyFromHex failed: %v", err)
	}
	return key
}

// fixtureDocument is a receipt document used across the test suite.
func fixtureDocument() ReceiptDocument {
	return ReceiptDocument{
		Store: StoreInfo{
			Name:    "Corner Grocer",
			Address: "12 High Street",
			Phone:   "555-0142",
		},
		Date:    "2024-01-01",
		Time:    "12:00",
		Cashier: "Sam",
		Items: []LineItem{
			{Description: "Milk", Quantity: 2, UnitPrice: 1.5, TaxRate: 0.1, LineTotal: 3.3},
			{Description: "Bread", Quantity: 1, UnitPrice: 2.0, TaxRate: 0.1, LineTotal: 2.2},
		},
		PaymentMethod: "card",
		Subtotal:      5.0,
		Tax:           0.5,
		Total:         5.5,
		Footer:        "Thank you for shopping with us",
	}
}

// encryptFixture produces wire-format ciphertext for the document: a 3-byte
// header followed by the encrypted JSON.
func encryptFixture(t *testing.T, key *ec.SymmetricKey, doc ReceiptDocument) []byte {
	t.Helper()
	plaintext, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}
	ciphertext, err := key.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("failed to encrypt fixture: %v", err)
	}
	return append([]byte{0, 0, 0}, ciphertext...)
}

func TestSymmetricKeyFromHexRoundTrip(t *testing.T) {
	key := testKey(t)
	if got := hex.EncodeToString(key.ToBytes()); got != testKeyHex {
		t.Fatalf("round-trip mismatch: got %s, want %s", got, testKeyHex)
	}
}

func TestSymmetricKeyFromHexOddLength(t *testing.T) {
	if _, err := symmetricKeyFromHex(testKeyHex[:len(testKeyHex)-1]); !errors.Is(err, ErrBadKey) {
		t.Fatalf("expected ErrBadKey for odd-length hex, got %v", err)
	}
}

func TestSymmetricKeyFromHexNonHex(t *testing.T) {
	if _, err := symmetricKeyFromHex("zz00"); !errors.Is(err, ErrBadKey) {
		t.Fatalf("expected ErrBadKey for non-hex input, got %v", err)
	}
}

func TestDecryptReceiptJSONShortPayload(t *testing.T) {
	key := testKey(t)
	for _, payload := range [][]byte{nil, {0}, {0, 0}} {
		if _, err := decryptReceiptJSON(payload, key); !errors.Is(err, ErrDecryption) {
			t.Fatalf("expected ErrDecryption for %d-byte payload, got %v", len(payload), err)
		}
	}
}

func TestDecryptReceiptJSONRoundTrip(t *testing.T) {
	key := testKey(t)
	want := fixtureDocument()

	got, err := decryptReceiptJSON(encryptFixture(t, key, want), key)
	if err != nil {
		t.Fatalf("decryptReceiptJSON failed: %v", err)
	}
	if !reflect.DeepEqual(*got, want) {
		t.Fatalf("decrypted document mismatch:\ngot  %+v\nwant %+v", *got, want)
	}
}

func TestDecryptReceiptJSONWrongKey(t *testing.T) {
	key := testKey(t)
	wrongKey, err := symmetricKeyFromHex(strings.Repeat("ff", 32))
	if err != nil {
		t.Fatalf("symmetricKeyFromHex failed: %v", err)
	}

	payload := encryptFixture(t, key, fixtureDocument())
	if _, err := decryptReceiptJSON(payload, wrongKey); !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected ErrDecryption with wrong key, got %v", err)
	}
}

func TestDecryptReceiptJSONNotJSON(t *testing.T) {
	key := testKey(t)
	ciphertext, err := key.Encrypt([]byte("not a json document"))
	if err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}
	payload := append([]byte{0, 0, 0}, ciphertext...)

	if _, err := decryptReceiptJSON(payload, key); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for non-JSON plaintext, got %v", err)
	}
}

func TestDecryptReceiptJSONRejectsNegativeAmounts(t *testing.T) {
	key := testKey(t)
	doc := fixtureDocument()
	doc.Total = -5.5

	if _, err := decryptReceiptJSON(encryptFixture(t, key, doc), key); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for negative total, got %v", err)
	}
}

func TestLineTotalsConsistentWithinTolerance(t *testing.T) {
	for _, item := range fixtureDocument().Items {
		want := item.UnitPrice * item.Quantity * (1 + item.TaxRate)
		if diff := item.LineTotal - want; diff > 0.01 || diff < -0.01 {
			t.Fatalf("line total for %q off by %v", item.Description, diff)
		}
	}
}

func TestEncryptFixtureHasHeader(t *testing.T) {
	payload := encryptFixture(t, testKey(t), fixtureDocument())
	if !bytes.Equal(payload[:3], []byte{0, 0, 0}) {
		t.Fatalf("fixture payload missing 3-byte header")
	}
}
