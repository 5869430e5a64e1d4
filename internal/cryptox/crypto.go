// Package cryptox implements the message security envelope: AES-CBC
// encryption with a fresh random IV per message, and HMAC-SHA256 integrity
// tags over the transmitted wire content.
//
// Encryption and tagging are independent: the tag is computed over the
// already-encrypted envelope, so integrity is checked before any decryption
// is attempted (and the relay can check it without holding the message key).
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrDecrypt is returned for any decryption failure: wrong key, truncated
// input, or invalid padding. The cause is deliberately not distinguished.
var ErrDecrypt = errors.New("decrypt failed")

// Encrypt encrypts plaintext with AES in CBC mode using a freshly generated
// random IV. The key must be 16, 24, or 32 bytes (AES-128/192/256).
// The IV and ciphertext are returned separately.
func Encrypt(key, plaintext []byte) (iv, ciphertext []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	iv = make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, err
	}

	padded := pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return iv, ciphertext, nil
}

// Decrypt reverses Encrypt. It returns ErrDecrypt on any malformed input or
// padding mismatch and never returns partial plaintext.
func Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	if len(iv) != aes.BlockSize {
		return nil, ErrDecrypt
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrDecrypt
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := unpad(padded, aes.BlockSize)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// Tag computes a base64-encoded HMAC-SHA256 of message under secret.
func Tag(secret []byte, message string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyTag recomputes the tag for message and compares it to the received
// one in constant time. It returns false on any mismatch and never errors.
func VerifyTag(secret []byte, message, tag string) bool {
	received, err := base64.StdEncoding.DecodeString(tag)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	return hmac.Equal(mac.Sum(nil), received)
}

// EncodeEnvelope renders an (iv, ciphertext) pair in the wire form
// "base64(iv):base64(ciphertext)". Each part is independently decodable.
func EncodeEnvelope(iv, ciphertext []byte) string {
	return base64.StdEncoding.EncodeToString(iv) + ":" + base64.StdEncoding.EncodeToString(ciphertext)
}

// DecodeEnvelope parses the wire form produced by EncodeEnvelope.
func DecodeEnvelope(envelope string) (iv, ciphertext []byte, err error) {
	ivPart, ctPart, ok := strings.Cut(envelope, ":")
	if !ok {
		return nil, nil, fmt.Errorf("invalid envelope format")
	}
	iv, err = base64.StdEncoding.DecodeString(ivPart)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid envelope iv: %w", err)
	}
	ciphertext, err = base64.StdEncoding.DecodeString(ctPart)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid envelope ciphertext: %w", err)
	}
	return iv, ciphertext, nil
}

// EncryptMessage encrypts a chat message and returns the envelope wire form.
func EncryptMessage(key []byte, plaintext string) (string, error) {
	iv, ct, err := Encrypt(key, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return EncodeEnvelope(iv, ct), nil
}

// DecryptMessage decodes an envelope wire form and decrypts it.
func DecryptMessage(key []byte, envelope string) (string, error) {
	iv, ct, err := DecodeEnvelope(envelope)
	if err != nil {
		return "", ErrDecrypt
	}
	plaintext, err := Decrypt(key, iv, ct)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// pad applies PKCS#7 padding up to blockSize.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding, validating every padding byte.
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
