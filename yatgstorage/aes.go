package yatgstorage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"net/http"

	"github.com/YaCodeDev/GoYaTgBot/yaerrors"
)

// AES seals stored records with AES-256-GCM. The nonce is prefixed to the ciphertext.
type AES struct {
	key []byte
}

// NewAES derives a 256-bit key from secret.
//
// Example usage:
//
//	sealer := yatgstorage.NewAES(os.Getenv("STORAGE_SECRET"))
func NewAES(secret string) *AES {
	return &AES{
		key: DeriveAESKey(secret),
	}
}

func (a *AES) aead() (cipher.AEAD, yaerrors.Error) {
	block, err := aes.NewCipher(a.key)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"could not create new cipher",
		)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"could not create gcm",
		)
	}

	return gcm, nil
}

// Encrypt seals text with a fresh random nonce.
func (a *AES) Encrypt(text []byte) ([]byte, yaerrors.Error) {
	gcm, yaErr := a.aead()
	if yaErr != nil {
		return nil, yaErr
	}

	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(text)+gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			err,
			"could not encrypt",
		)
	}

	return gcm.Seal(nonce, nonce, text, nil), nil
}

// Decrypt opens text sealed by Encrypt. Tampered or foreign ciphertexts fail
// with ErrCorruptedRecord.
func (a *AES) Decrypt(text []byte) ([]byte, yaerrors.Error) {
	gcm, yaErr := a.aead()
	if yaErr != nil {
		return nil, yaErr
	}

	if len(text) < gcm.NonceSize() {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			ErrCorruptedRecord,
			"invalid ciphertext size",
		)
	}

	plain, err := gcm.Open(nil, text[:gcm.NonceSize()], text[gcm.NonceSize():], nil)
	if err != nil {
		return nil, yaerrors.FromError(
			http.StatusInternalServerError,
			ErrCorruptedRecord,
			"could not decrypt: "+err.Error(),
		)
	}

	return plain, nil
}

// DeriveAESKey hashes data with SHA-256 into an AES-256 key.
//
// Example usage:
//
//	key := DeriveAESKey("my_secret_key")
func DeriveAESKey(data string) []byte {
	sum := sha256.Sum256([]byte(data))

	return sum[:]
}
