package crypto

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/AlexZinkM/escrow-custody/internal/model"
)

// Decrypt parses salt, iv, tag and ciphertext by fixed offsets and verifies
// the tag. A wrong passphrase or any modified byte fails with a decryption
// error; ciphertext is never returned as plaintext.
// Caller must zero the returned slice after use.
func (v *Vault) Decrypt(blob string) ([]byte, error) {
	const op = "vault decrypt"

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return nil, model.Wrap(model.KindDecryption, op, errors.New("blob is not valid base64"))
	}
	if len(raw) < ciphertextOffset {
		return nil, model.Errorf(model.KindDecryption, op, "blob too short: %d bytes", len(raw))
	}

	salt := raw[:saltLen]
	iv := raw[ivOffset:tagOffset]
	tag := raw[tagOffset:ciphertextOffset]
	ciphertext := raw[ciphertextOffset:]

	aead, err := v.newAEAD(salt)
	if err != nil {
		return nil, model.Wrap(model.KindDecryption, op, err)
	}

	sealed := make([]byte, 0, len(ciphertext)+tagLen)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, model.Wrap(model.KindDecryption, op, errors.New("authentication failed: wrong passphrase or tampered blob"))
	}
	return plaintext, nil
}

// Rotate re-encrypts blob from one vault passphrase to another.
func Rotate(blob string, from, to *Vault) (string, error) {
	plaintext, err := from.Decrypt(blob)
	if err != nil {
		return "", err
	}
	defer clear(plaintext)
	return to.Encrypt(plaintext)
}
