// Package address derives Solana account addresses deterministically from
// seeds, without any RPC round trip.
package address

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const (
	// MaxSeedLength is the longest seed the runtime accepts.
	MaxSeedLength = 32
	// MaxSeeds is the maximum number of seeds per derived address, bump included.
	MaxSeeds = 16

	pdaMarker = "ProgramDerivedAddress"
)

var (
	// ErrMaxSeedLengthExceeded is returned for a seed longer than MaxSeedLength.
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	// ErrTooManySeeds is returned when more than MaxSeeds seeds are supplied.
	ErrTooManySeeds = errors.New("too many seeds")

	// ErrIllegalOwner is returned when a seeded address would collide with the
	// program-derived address domain.
	ErrIllegalOwner = errors.New("illegal owner: provided owner is not allowed")

	// ErrOnCurve is returned when a candidate program address lies on the
	// ed25519 curve and therefore could have a private key.
	ErrOnCurve = errors.New("derived address is on the ed25519 curve")

	// ErrNoViableBump is returned when no bump seed yields an off-curve address.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

// CreateWithSeed derives sha256(base || seed || owner). This is the address
// the system program's CreateAccountWithSeed instruction creates.
func CreateWithSeed(base solanago.PublicKey, seed string, owner solanago.PublicKey) (solanago.PublicKey, error) {
	if len(seed) > MaxSeedLength {
		return solanago.PublicKey{}, fmt.Errorf("%w: %d > %d", ErrMaxSeedLengthExceeded, len(seed), MaxSeedLength)
	}
	if bytes.HasSuffix(owner[:], []byte(pdaMarker)) {
		return solanago.PublicKey{}, ErrIllegalOwner
	}

	pk, err := solanago.CreateWithSeed(base, seed, owner)
	if err != nil {
		return solanago.PublicKey{}, fmt.Errorf("create with seed: %w", err)
	}
	return pk, nil
}

// CreateProgramAddress derives the program address for seeds, failing with
// ErrOnCurve when the hash lands on the curve.
func CreateProgramAddress(seeds [][]byte, programID solanago.PublicKey) (solanago.PublicKey, error) {
	if err := checkSeeds(seeds, MaxSeeds); err != nil {
		return solanago.PublicKey{}, err
	}

	pk, err := solanago.CreateProgramAddress(seeds, programID)
	if err != nil {
		return solanago.PublicKey{}, fmt.Errorf("%w: %v", ErrOnCurve, err)
	}
	return pk, nil
}

// FindProgramAddress searches bump seeds from 255 down and returns the first
// off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, programID solanago.PublicKey) (solanago.PublicKey, uint8, error) {
	if err := checkSeeds(seeds, MaxSeeds-1); err != nil {
		return solanago.PublicKey{}, 0, err
	}

	// the library appends the bump to the slice it is given
	own := make([][]byte, len(seeds), len(seeds)+1)
	copy(own, seeds)

	pk, bump, err := solanago.FindProgramAddress(own, programID)
	if err != nil {
		return solanago.PublicKey{}, 0, fmt.Errorf("%w: %v", ErrNoViableBump, err)
	}
	if IsOnCurve(pk[:]) {
		return solanago.PublicKey{}, 0, ErrOnCurve
	}
	return pk, bump, nil
}

func checkSeeds(seeds [][]byte, max int) error {
	if len(seeds) > max {
		return fmt.Errorf("%w: %d > %d", ErrTooManySeeds, len(seeds), max)
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return fmt.Errorf("%w: %d > %d", ErrMaxSeedLengthExceeded, len(seed), MaxSeedLength)
		}
	}
	return nil
}

// IsOnCurve reports whether b decodes to a point on the ed25519 curve.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// DeriveReportAddress locates the cross-chain price report account published
// by oracleProgram for a token living on another chain. Seeds are
// [chainTag, remoteProgram, remoteToken].
func DeriveReportAddress(chainTag string, remoteProgram, remoteToken []byte, oracleProgram solanago.PublicKey) (solanago.PublicKey, uint8, error) {
	if chainTag == "" {
		return solanago.PublicKey{}, 0, fmt.Errorf("derive report address: empty chain tag")
	}
	seeds := [][]byte{[]byte(chainTag), remoteProgram, remoteToken}
	return FindProgramAddress(seeds, oracleProgram)
}

// DecodeRemoteID decodes an identifier from a foreign chain: 0x-prefixed
// hex (EVM style) or base58 (Solana style).
func DecodeRemoteID(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("decode remote id: empty")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		raw, err := hex.DecodeString(s[2:])
		if err != nil {
			return nil, fmt.Errorf("decode remote id %q: %w", s, err)
		}
		return raw, nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode remote id %q: %w", s, err)
	}
	return raw, nil
}
