package document

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DomainDocument prefixes document hashes. The version suffix leaves room
// for changing the encoding.
const DomainDocument = "researchtree/document/v1"

// Hash returns the hex SHA-256 of doc's compact JSON encoding, computed as
// SHA256(domain + 0x00 + json). Documents with the same records in the same
// order hash the same.
func Hash(doc Document) (string, error) {
	data, err := json.Marshal(toWire(doc))
	if err != nil {
		return "", fmt.Errorf("hash document: %w", err)
	}
	return hashWithDomain(DomainDocument, data), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
