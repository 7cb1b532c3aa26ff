package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestComputeSnapshotID(t *testing.T) {
	tests := []struct {
		name    string
		address string
		slot    uint64
		time    uint64
		price   uint64
	}{
		{
			name:    "feed answer",
			address: "7bZdZK1zqXTb1pCGp7oQ9dXW14SZmBgzpa9ooARbi4Hb",
			slot:    1200,
			time:    1700000000,
			price:   123456,
		},
		{
			name:    "fresh account",
			address: "7bZdZK1zqXTb1pCGp7oQ9dXW14SZmBgzpa9ooARbi4Hb",
		},
		{
			name:    "max values",
			address: "11111111111111111111111111111111",
			slot:    ^uint64(0),
			time:    ^uint64(0),
			price:   ^uint64(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ComputeSnapshotID(tt.address, tt.slot, tt.time, tt.price)
			if len(id) != 64 {
				t.Errorf("ComputeSnapshotID() length = %d, want 64", len(id))
			}
			if _, err := hex.DecodeString(id); err != nil {
				t.Errorf("ComputeSnapshotID() is not valid hex: %v", err)
			}
		})
	}
}

func TestComputeSnapshotID_Deterministic(t *testing.T) {
	a := ComputeSnapshotID("addr", 10, 20, 30)
	b := ComputeSnapshotID("addr", 10, 20, 30)
	if a != b {
		t.Errorf("same input produced different ids: %s vs %s", a, b)
	}
}

func TestComputeSnapshotID_Formula(t *testing.T) {
	sum := sha256.Sum256([]byte("addr|10|20|30"))
	want := hex.EncodeToString(sum[:])

	if got := ComputeSnapshotID("addr", 10, 20, 30); got != want {
		t.Errorf("ComputeSnapshotID() = %s, want %s", got, want)
	}
}

func TestComputeSnapshotID_FieldsMatter(t *testing.T) {
	base := ComputeSnapshotID("addr", 10, 20, 30)
	variants := map[string]string{
		"address": ComputeSnapshotID("addr2", 10, 20, 30),
		"slot":    ComputeSnapshotID("addr", 11, 20, 30),
		"time":    ComputeSnapshotID("addr", 10, 21, 30),
		"price":   ComputeSnapshotID("addr", 10, 20, 31),
	}
	for field, id := range variants {
		if id == base {
			t.Errorf("changing %s did not change the id", field)
		}
	}
}

func TestComputeSnapshotID_NoSeparatorCollision(t *testing.T) {
	// "a1",2 and "a",12 concatenate to the same text without separators.
	if ComputeSnapshotID("a1", 2, 0, 0) == ComputeSnapshotID("a", 12, 0, 0) {
		t.Error("separator does not disambiguate address and slot")
	}
}
