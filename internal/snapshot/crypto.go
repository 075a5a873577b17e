package snapshot

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Sealed blob layout: salt (16 bytes) followed by the GCM nonce (12 bytes)
// followed by ciphertext.
const (
	saltLen  = 16
	nonceLen = 12
	keyLen   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrSealedOpen reports a sealed snapshot that cannot be opened, either
// because the passphrase is wrong or the blob is corrupt. The two cases are
// indistinguishable under authenticated encryption.
var ErrSealedOpen = errors.New("sealed snapshot cannot be opened")

// Seal encrypts a snapshot with a key derived from the passphrase via scrypt
// and AES-256-GCM.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	gcm, err := keyedGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, saltLen+nonceLen+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal.
func Open(sealed []byte, passphrase string) ([]byte, error) {
	if len(sealed) < saltLen+nonceLen {
		return nil, ErrSealedOpen
	}
	salt := sealed[:saltLen]
	nonce := sealed[saltLen : saltLen+nonceLen]
	ciphertext := sealed[saltLen+nonceLen:]

	gcm, err := keyedGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealedOpen
	}
	return plaintext, nil
}

func keyedGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
