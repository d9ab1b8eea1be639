package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2-HMAC-SHA512 parameters for per-blob key derivation.
	// Every Encrypt call draws a fresh salt, so each blob has its own key.
	kdfIterations = 100_000
	keyLen        = 32 // AES-256

	saltLen = 64
	ivLen   = 16
	tagLen  = 16

	// blob layout: salt | iv | tag | ciphertext
	ivOffset         = saltLen
	tagOffset        = ivOffset + ivLen
	ciphertextOffset = tagOffset + tagLen
)

// Vault is the symmetric envelope for private key material. It holds only
// the passphrase; keys are derived per blob and wiped after use.
type Vault struct {
	passphrase []byte
	rand       io.Reader
}

// NewVault copies passphrase; the caller may zero its own slice afterwards.
func NewVault(passphrase []byte) (*Vault, error) {
	if len(passphrase) == 0 {
		return nil, model.Errorf(model.KindConfig, "new vault", "encryption passphrase is empty")
	}
	p := make([]byte, len(passphrase))
	copy(p, passphrase)
	return &Vault{passphrase: p, rand: rand.Reader}, nil
}

// Close zeroes the passphrase held by the vault.
func (v *Vault) Close() {
	clear(v.passphrase)
}

// Encrypt returns base64(salt | iv | tag | ciphertext). Encrypting the same
// plaintext twice yields different blobs.
func (v *Vault) Encrypt(plaintext []byte) (string, error) {
	const op = "vault encrypt"

	header := make([]byte, ciphertextOffset)
	salt, iv := header[:saltLen], header[ivOffset:tagOffset]
	if _, err := io.ReadFull(v.rand, salt); err != nil {
		return "", model.Wrap(model.KindConfig, op, fmt.Errorf("failed to generate salt: %w", err))
	}
	if _, err := io.ReadFull(v.rand, iv); err != nil {
		return "", model.Wrap(model.KindConfig, op, fmt.Errorf("failed to generate iv: %w", err))
	}

	aead, err := v.newAEAD(salt)
	if err != nil {
		return "", model.Wrap(model.KindConfig, op, err)
	}

	// GCM appends the tag to the ciphertext; move it in front.
	sealed := aead.Seal(nil, iv, plaintext, nil)
	defer clear(sealed)
	split := len(sealed) - tagLen
	copy(header[tagOffset:], sealed[split:])

	blob := make([]byte, 0, len(header)+split)
	blob = append(blob, header...)
	blob = append(blob, sealed[:split]...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// newAEAD derives the blob key from the passphrase and salt.
func (v *Vault) newAEAD(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(v.passphrase, salt, kdfIterations, keyLen, sha512.New)
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
