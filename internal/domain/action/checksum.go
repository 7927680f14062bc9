package action

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ComputeChecksum derives the content checksum used as the idempotency key
// when the client did not supply one.
func ComputeChecksum(actionType Type, payload json.RawMessage) string {
	h := sha256.New()
	h.Write([]byte(actionType))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
