// Package cryptox seals small secrets (tokens, cached profiles) for the local
// credential store: argon2id key derivation plus AES-256-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/healthkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// KeySize is the length of derived keys (AES-256).
const KeySize = 32

var ErrEmptySecret = errors.New("empty device secret")

// DeriveKey stretches a device secret into an AES-256 key using argon2id.
// The same (secret, salt) pair always yields the same key.
func DeriveKey(secret []byte, salt []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeySize), nil
}

// Seal encrypts plaintext with AES-GCM under key. A fresh random nonce is
// generated per call and returned alongside the ciphertext.
func Seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = common.GenerateRandByteArray(aead.NonceSize())
	ciphertext = aead.Seal(nil, nonce, plaintext, nil)

	return ciphertext, nonce, nil
}

// Open decrypts a ciphertext produced by Seal. It fails if the key, nonce or
// ciphertext do not match (including tampering).
func Open(ciphertext, nonce, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
