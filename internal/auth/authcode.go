package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
)

// CodeCipher issues and resolves opaque verification/reset codes. A code is
// the AES-256-CBC encryption of "<email> <random hex>", so the email can be
// recovered from the code alone without a server-side lookup table. The
// random suffix makes every issued code distinct for the same address.
type CodeCipher struct {
	key []byte
	iv  []byte
}

var ErrInvalidAuthCode = errors.New("invalid auth code")

func NewCodeCipher(key, iv []byte) (*CodeCipher, error) {
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes")
	}
	if len(iv) != aes.BlockSize {
		return nil, errors.New("encryption iv must be 16 bytes")
	}
	return &CodeCipher{key: key, iv: iv}, nil
}

// Encode produces a fresh opaque code binding the given email.
func (c *CodeCipher) Encode(email string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	plaintext := []byte(email + " " + hex.EncodeToString(nonce))
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv).CryptBlocks(ciphertext, padded)
	return hex.EncodeToString(ciphertext), nil
}

// Decode recovers the email bound by a code. Tampered or truncated codes
// fail deterministically with ErrInvalidAuthCode.
func (c *CodeCipher) Decode(code string) (string, error) {
	ciphertext, err := hex.DecodeString(strings.TrimSpace(code))
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrInvalidAuthCode
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, c.iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", ErrInvalidAuthCode
	}

	email, _, found := strings.Cut(string(plaintext), " ")
	if !found || email == "" {
		return "", ErrInvalidAuthCode
	}
	return email, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
