package hd

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
)

const slip10Ed25519Key = "ed25519 seed"

// slip10Derive walks a SLIP-10 ed25519 path. Every index is hardened.
func slip10Derive(seed []byte, path []uint32) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, []byte(slip10Ed25519Key))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chainCode = sum[:32], sum[32:]

	data := make([]byte, 37)
	for _, index := range path {
		data[0] = 0x00
		copy(data[1:33], key)
		binary.BigEndian.PutUint32(data[33:], index|hardened)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write(data)
		next := mac.Sum(nil)
		clear(sum)
		sum = next
		key, chainCode = sum[:32], sum[32:]
	}
	clear(data)
	return key, chainCode
}

func deriveEd25519(seed []byte, coinType, index uint32) (pub, priv []byte, err error) {
	key, _ := slip10Derive(seed, []uint32{Purpose, coinType, index, 0})
	defer clear(key)

	pk := ed25519.NewKeyFromSeed(key)
	return pk.Public().(ed25519.PublicKey), pk, nil
}
