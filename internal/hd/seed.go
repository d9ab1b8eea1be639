package hd

import (
	"errors"
	"strings"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/tyler-smith/go-bip39"
)

var errNotSerializable = errors.New("master seed is not serializable")

// MasterSeed is the validated BIP-39 seed. It lives only in memory: it has no
// serialized form and prints as redacted.
type MasterSeed struct {
	seed []byte
}

// LoadSeed validates the configured mnemonic against the BIP-39 wordlist and
// checksum and derives the 64-byte seed. Any failure is a config error and
// must stop startup.
func LoadSeed(mnemonic, passphrase string) (*MasterSeed, error) {
	const op = "load seed"

	phrase := normalizeMnemonic(mnemonic)
	if phrase == "" {
		return nil, model.Errorf(model.KindConfig, op, "master seed phrase is not configured")
	}
	if !bip39.IsMnemonicValid(phrase) {
		return nil, model.Errorf(model.KindConfig, op, "master seed phrase failed wordlist or checksum validation")
	}

	seed, err := bip39.NewSeedWithErrorChecking(phrase, passphrase)
	if err != nil {
		return nil, model.Wrap(model.KindConfig, op, err)
	}
	return &MasterSeed{seed: seed}, nil
}

// normalizeMnemonic strips surrounding quotes left by .env files and
// collapses whitespace.
func normalizeMnemonic(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Wipe zeroes the seed. The MasterSeed is unusable afterwards.
func (s *MasterSeed) Wipe() {
	clear(s.seed)
	s.seed = nil
}

func (s *MasterSeed) bytes() ([]byte, error) {
	if s == nil || len(s.seed) == 0 {
		return nil, model.Errorf(model.KindDerivation, "master seed", "seed is not loaded")
	}
	return s.seed, nil
}

func (s *MasterSeed) String() string   { return "MasterSeed(redacted)" }
func (s *MasterSeed) GoString() string { return s.String() }

func (s *MasterSeed) MarshalJSON() ([]byte, error) { return nil, errNotSerializable }
func (s *MasterSeed) MarshalText() ([]byte, error) { return nil, errNotSerializable }
