// Package cryptox holds the symmetric primitives used by courier: the
// attachment codec, at-rest sealing of local metadata and the hashing of
// contact identifiers into discovery tokens.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/courier/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// NonceSize is the AES-GCM nonce length.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag length.
	TagSize = 16
	// Overhead is the number of bytes EncryptAttachment adds to a plaintext.
	Overhead = NonceSize + TagSize
)

// DeriveMasterKey stretches a local passphrase into a 32-byte key with
// argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	x := argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
	return x
}

// NewAttachmentKey returns a fresh random attachment key. Keys are never
// reused across attachments.
func NewAttachmentKey() []byte {
	return common.GenerateRandByteArray(common.AttachmentKeySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != common.AttachmentKeySize {
		return nil, fmt.Errorf("%w: key size %d, want %d", common.ErrInvalidArgument, len(key), common.AttachmentKeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptAttachment encrypts plaintext with AES-256-GCM under key.
//
// A new random nonce is drawn for every call, so the output is
// nonce (12 bytes) || ciphertext || tag (16 bytes) and its length is always
// len(plaintext) + Overhead.
func EncryptAttachment(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptAttachment reverses EncryptAttachment. It fails closed: any
// truncation, tag mismatch or wrong key yields common.ErrIntegrity and no
// plaintext.
func DecryptAttachment(ciphertext, key []byte) ([]byte, error) {
	if len(ciphertext) < Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short (%d bytes)", common.ErrIntegrity, len(ciphertext))
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrity, err)
	}

	plaintext, err := aesgcm.Open(nil, ciphertext[:NonceSize], ciphertext[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", common.ErrIntegrity)
	}

	return plaintext, nil
}

// EncryptEntry serializes entry to JSON and encrypts it using AES-GCM.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). A new random
// 12-byte nonce is generated for each encryption; ciphertext and nonce are
// returned separately.
//
// Example:
//
//	ciphertext, nonce, err := EncryptEntry(record, masterKey)
//	if err != nil {
//	    return err
//	}
func EncryptEntry(entry any, key []byte) (ciphertext, nonce []byte, err error) {

	// serializing JSON
	plaintext, err := json.Marshal(entry)
	if err != nil {
		return nil, nil, err
	}

	// nonce
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)

	return ciphertext, nonce, nil
}

// DecryptEntry decrypts ciphertext produced by EncryptEntry and unmarshals
// the resulting JSON into v. Authentication failures are reported as
// common.ErrIntegrity.
func DecryptEntry(ciphertext, nonce, key []byte, v any) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return fmt.Errorf("%w: bad nonce size %d", common.ErrIntegrity, len(nonce))
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrIntegrity, err)
	}

	return json.Unmarshal(plaintext, v)
}
