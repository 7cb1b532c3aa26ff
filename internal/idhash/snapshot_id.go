package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSnapshotID computes a deterministic snapshot_id using SHA256.
// Formula: SHA256(address|slot|time|price)
// Returns hex-encoded hash (64 characters).
func ComputeSnapshotID(address string, slot, updateTime, price uint64) string {
	data := fmt.Sprintf("%s|%d|%d|%d", address, slot, updateTime, price)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
