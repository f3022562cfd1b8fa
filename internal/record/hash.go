package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// DomainBatch separates batch fingerprints from any other hash.
// The version suffix allows a future algorithm change.
const DomainBatch = "graphload/batch/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies a batch independently of record order.
//
// A saved upload state carries the fingerprint of the batch it was created
// from, so a resume against a different batch can be refused.
func Fingerprint(records []Record) (string, error) {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b Record) int { return compareUTF16(a.ID, b.ID) })

	items := make([]any, len(sorted))
	for i, r := range sorted {
		items[i] = canonicalForm(r)
	}
	data, err := MarshalCanonical(items)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainBatch, data), nil
}
