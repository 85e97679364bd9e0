package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

// receiptHeaderLen is the fixed prefix in front of the ciphertext on the
// wire. Its contents are not interpreted here.
const receiptHeaderLen = 3

// symmetricKeyFromHex decodes hex-encoded key material into a symmetric key.
// Odd-length or non-hex input is rejected outright rather than silently
// truncated into a wrong key.
func symmetricKeyFromHex(keyHex string) (*ec.SymmetricKey, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	return ec.NewSymmetricKey(raw), nil
}

// decryptReceiptJSON strips the wire header, decrypts the remainder with the
// symmetric key and decodes the plaintext into a validated receipt document.
func decryptReceiptJSON(ciphertext []byte, key *ec.SymmetricKey) (*ReceiptDocument, error) {
	if len(ciphertext) < receiptHeaderLen {
		return nil, fmt.Errorf("%w: payload too short (%d bytes)", ErrDecryption, len(ciphertext))
	}
	plaintext, err := key.Decrypt(ciphertext[receiptHeaderLen:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	var doc ReceiptDocument
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &doc, nil
}
