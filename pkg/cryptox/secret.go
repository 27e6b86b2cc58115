package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// CipherPrefix marks a secret stored encrypted at rest under the master key.
const CipherPrefix = "{cipher}"

// MasterKeyEnv is read when no master key file is configured.
const MasterKeyEnv = "TOLLGATE_MASTER_KEY"

var ErrMasterKeyMissing = errors.New("cryptox: no master key configured")

var (
	masterKeyMu        sync.Mutex
	masterKey          []byte
	masterKeyPath      string
	allowEphemeralKeys = true
)

// SetMasterKeyPath configures where to load the master key from. It must be
// called before the first encryption or decryption.
func SetMasterKeyPath(path string) {
	masterKeyMu.Lock()
	defer masterKeyMu.Unlock()
	masterKeyPath = path
}

// AllowEphemeralMasterKey controls whether a random per-process master key
// may be generated when none is configured. Production turns this off so
// stored {cipher} secrets never silently become undecryptable.
func AllowEphemeralMasterKey(allow bool) {
	masterKeyMu.Lock()
	defer masterKeyMu.Unlock()
	allowEphemeralKeys = allow
}

// loadMasterKey derives a 32-byte AES-256 key from, in order, the configured
// file, the TOLLGATE_MASTER_KEY environment variable, or a random ephemeral
// key when allowed.
func loadMasterKey() ([]byte, error) {
	var material []byte

	switch {
	case masterKeyPath != "":
		data, err := os.ReadFile(masterKeyPath)
		if err != nil {
			return nil, fmt.Errorf("cryptox: read master key file: %w", err)
		}
		material = []byte(strings.TrimSpace(string(data)))
	case os.Getenv(MasterKeyEnv) != "":
		material = []byte(os.Getenv(MasterKeyEnv))
	case allowEphemeralKeys:
		// Keys won't survive a restart, only good for development.
		material = make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("cryptox: generate ephemeral master key: %w", err)
		}
	default:
		return nil, ErrMasterKeyMissing
	}

	sum := sha256.Sum256(material)
	return sum[:], nil
}

func getMasterKey() ([]byte, error) {
	masterKeyMu.Lock()
	defer masterKeyMu.Unlock()

	if masterKey != nil {
		return masterKey, nil
	}
	key, err := loadMasterKey()
	if err != nil {
		return nil, err
	}
	masterKey = key
	return masterKey, nil
}

func masterAEAD() (cipher.AEAD, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create GCM: %w", err)
	}
	return gcm, nil
}

// EncryptSecret encrypts plaintext with AES-256-GCM under the master key.
// Output format: [12-byte nonce][ciphertext][16-byte tag].
func EncryptSecret(plaintext []byte) ([]byte, error) {
	gcm, err := masterAEAD()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptSecret reverses EncryptSecret.
func DecryptSecret(data []byte) ([]byte, error) {
	gcm, err := masterAEAD()
	if err != nil {
		return nil, err
	}

	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("cryptox: ciphertext too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: decryption failed: %w", err)
	}
	return plaintext, nil
}

// SealSecret returns the at-rest form of plaintext: CipherPrefix followed by
// the standard base64 of EncryptSecret's output.
func SealSecret(plaintext []byte) (string, error) {
	enc, err := EncryptSecret(plaintext)
	if err != nil {
		return "", err
	}
	return CipherPrefix + base64.StdEncoding.EncodeToString(enc), nil
}

// OpenSecret reverses SealSecret. raw must carry CipherPrefix.
func OpenSecret(raw string) ([]byte, error) {
	body, ok := strings.CutPrefix(raw, CipherPrefix)
	if !ok {
		return nil, fmt.Errorf("cryptox: secret is not %s prefixed", CipherPrefix)
	}
	enc, err := base64.StdEncoding.DecodeString(strings.TrimSpace(body))
	if err != nil {
		return nil, fmt.Errorf("cryptox: decode sealed secret: %w", err)
	}
	return DecryptSecret(enc)
}

// ResetMasterKeyForTesting forgets the loaded master key and configuration.
// This should ONLY be used in tests.
func ResetMasterKeyForTesting() {
	masterKeyMu.Lock()
	defer masterKeyMu.Unlock()
	masterKey = nil
	masterKeyPath = ""
	allowEphemeralKeys = true
}
