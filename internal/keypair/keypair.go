// Package keypair loads Ed25519 signing keys in the formats the Solana CLI
// and wallets produce.
package keypair

import (
	"errors"
	"fmt"
	"os"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// secretKeyLength is seed(32) || public key(32).
const secretKeyLength = 64

var (
	// ErrKeypairFile is returned when a keypair file is missing or unreadable.
	ErrKeypairFile = errors.New("keypair file unreadable")

	// ErrInvalidKeypair is returned when key material has the wrong shape.
	ErrInvalidKeypair = errors.New("invalid keypair")
)

// LoadFile reads a JSON array of 64 bytes as written by solana-keygen.
func LoadFile(path string) (solanago.PrivateKey, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKeypairFile, path, err)
	}

	key, err := solanago.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrKeypairFile, path, err)
	}
	if err := validate(key); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return key, nil
}

// FromBase58 decodes a base58 encoded 64-byte secret key, the format wallets
// export.
func FromBase58(secret string) (solanago.PrivateKey, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base58: %v", ErrInvalidKeypair, err)
	}
	key := solanago.PrivateKey(raw)
	if err := validate(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Generate creates a fresh random keypair.
func Generate() (solanago.PrivateKey, error) {
	key, err := solanago.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return key, nil
}

// Source describes where a payer key may come from, in order of preference.
type Source struct {
	Path   string // keypair file
	Secret string // base58 secret key

	// PathOptional makes a missing Path fall through to Secret or a
	// generated key instead of failing. A file that exists but does not
	// parse is still an error. Used for the CLI config keypair.
	PathOptional bool
}

// Load resolves the payer key: the file when Path is set, otherwise Secret,
// otherwise a generated key. generated reports whether the last case applied.
func (s Source) Load() (key solanago.PrivateKey, generated bool, err error) {
	if s.Path != "" {
		key, err = LoadFile(s.Path)
		if err == nil || !s.PathOptional || !errors.Is(err, os.ErrNotExist) {
			return key, false, err
		}
	}

	switch {
	case s.Secret != "":
		key, err = FromBase58(s.Secret)
	default:
		key, err = Generate()
		generated = err == nil
	}
	return key, generated, err
}

func validate(key solanago.PrivateKey) error {
	if len(key) != secretKeyLength {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeypair, secretKeyLength, len(key))
	}
	return nil
}
