package main

import (
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// Receipts ride in economically negligible outputs. Anything above this
// value is a real payment output and is skipped.
const maxDataOutputSatoshis = 2

// extractCiphertext scans a transaction for the embedded encrypted receipt.
// Every output is inspected, so multi-output transactions resolve regardless
// of producer ordering conventions; within a low-value output the payload is
// the data push directly after the OP_RETURN opcode. Scripts are decoded with
// OP_RETURN parsing enabled so the pushed payload arrives as its own chunk
// rather than as the undecoded script tail.
func extractCiphertext(tx *transaction.Transaction) ([]byte, error) {
	for _, out := range tx.Outputs {
		if out == nil || out.Satoshis > maxDataOutputSatoshis || out.LockingScript == nil {
			continue
		}
		chunks, err := script.DecodeScript(*out.LockingScript, script.DecodeOptionsParseOpReturn)
		if err != nil {
			continue
		}
		for i, chunk := range chunks {
			if chunk.Op != script.OpRETURN {
				continue
			}
			if i+1 < len(chunks) && len(chunks[i+1].Data) > 0 {
				return chunks[i+1].Data, nil
			}
		}
	}
	return nil, ErrNoReceiptData
}
