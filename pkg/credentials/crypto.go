// Package credentials decrypts stored credentials into typed secret bundles
// for action dispatch.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Blob layout is hex(salt | iv | tag | ciphertext) with a pbkdf2-sha512
// derived key, so blobs written by earlier deployments stay readable.
const (
	saltLength = 64
	ivLength   = 16
	tagLength  = 16
	keyLength  = 32
	iterations = 100_000
)

var ErrMalformedBlob = errors.New("malformed credential blob")

func deriveKey(encryptionKey string, salt []byte) []byte {
	return pbkdf2.Key([]byte(encryptionKey), salt, iterations, keyLength, sha512.New)
}

// Encrypt seals plaintext under a key derived from encryptionKey and a fresh
// random salt.
func Encrypt(plaintext, encryptionKey string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	aead, err := newAEAD(encryptionKey, salt)
	if err != nil {
		return "", err
	}

	// Seal appends the tag to the ciphertext; the blob layout wants it in
	// between, so split it back out.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagLength]
	tag := sealed[len(sealed)-tagLength:]

	blob := make([]byte, 0, saltLength+ivLength+tagLength+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, iv...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)

	return hex.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt.
func Decrypt(encrypted, encryptionKey string) (string, error) {
	blob, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedBlob, err)
	}

	if len(blob) < saltLength+ivLength+tagLength {
		return "", ErrMalformedBlob
	}

	salt := blob[:saltLength]
	iv := blob[saltLength : saltLength+ivLength]
	tag := blob[saltLength+ivLength : saltLength+ivLength+tagLength]
	ciphertext := blob[saltLength+ivLength+tagLength:]

	aead, err := newAEAD(encryptionKey, salt)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ciphertext)+tagLength)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}

	return string(plaintext), nil
}

func newAEAD(encryptionKey string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(encryptionKey, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return aead, nil
}
