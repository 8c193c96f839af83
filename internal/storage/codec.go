package storage

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/socialhub/client/internal/models"
)

// ErrSealed is returned when a snapshot is encrypted and no matching
// passphrase is configured.
var ErrSealed = errors.New("storage: snapshot is sealed")

var sealedMagic = []byte("shs1")

const saltSize = 16

// Argon2id parameters for deriving snapshot keys.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Sealer encrypts snapshots with XChaCha20-Poly1305 under a key derived from a
// passphrase. A nil *Sealer stores plain JSON.
type Sealer struct {
	passphrase []byte
}

// NewSealer returns a Sealer for passphrase, or nil when passphrase is empty.
func NewSealer(passphrase string) *Sealer {
	if passphrase == "" {
		return nil
	}
	return &Sealer{passphrase: []byte(passphrase)}
}

func (s *Sealer) key(salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

// Seal returns magic || salt || nonce || ciphertext.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealedMagic)+saltSize+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, sealedMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plain, sealedMagic), nil
}

// Open reverses Seal.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, sealedMagic) {
		return nil, fmt.Errorf("open snapshot: missing header")
	}
	rest := data[len(sealedMagic):]
	if len(rest) < saltSize+chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("open snapshot: truncated")
	}
	salt, rest := rest[:saltSize], rest[saltSize:]
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, sealedMagic)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return plain, nil
}

func encodeSnapshot(snap models.Snapshot, sealer *Sealer) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if sealer == nil {
		return data, nil
	}
	return sealer.Seal(data)
}

func decodeSnapshot(data []byte, sealer *Sealer) (models.Snapshot, error) {
	if bytes.HasPrefix(data, sealedMagic) {
		if sealer == nil {
			return models.Snapshot{}, ErrSealed
		}
		plain, err := sealer.Open(data)
		if err != nil {
			return models.Snapshot{}, err
		}
		data = plain
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
