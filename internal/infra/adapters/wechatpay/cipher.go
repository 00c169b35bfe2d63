package wechatpay

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
)

// decryptResource opens the AEAD block carried by a verified callback:
// AES-256-GCM keyed by the 32-byte merchant shared key, with the callback's
// nonce and associated data. Authentication failure rejects the callback.
func decryptResource(key []byte, nonce, associatedData, ciphertextB64 string) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("shared key must be exactly 32 bytes; got %d", len(key))
	}
	ct, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("nonce must be %d bytes; got %d", gcm.NonceSize(), len(nonce))
	}
	pt, err := gcm.Open(nil, []byte(nonce), ct, []byte(associatedData))
	if err != nil {
		return nil, fmt.Errorf("resource authentication failed: %w", err)
	}
	return pt, nil
}
