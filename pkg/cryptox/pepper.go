package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	pepperMu   sync.Mutex
	pepper     string
	pepperFile string
	pepperSet  bool
)

// SetPepperPath configures the file the pepper is loaded from, generating it
// on first use when missing. With no path configured no pepper is applied.
func SetPepperPath(file string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepperFile = file
	pepper, pepperSet = "", false
}

// LoadPepper eagerly loads or creates the pepper file so misconfiguration
// fails at startup rather than on the first login.
func LoadPepper() error {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	return loadPepperLocked()
}

// GetPepper returns the process pepper. A pepper file that cannot be read
// after startup yields an empty pepper, so hashes stop verifying instead of
// crashing the process.
func GetPepper() string {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	if !pepperSet {
		_ = loadPepperLocked()
	}
	return pepper
}

func loadPepperLocked() error {
	if pepperFile == "" {
		pepper, pepperSet = "", true
		return nil
	}

	path := filepath.Clean(pepperFile)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		pepper, pepperSet = strings.TrimSpace(string(data)), true
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	b := make([]byte, keyLength)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	value := base64.RawURLEncoding.EncodeToString(b)
	if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
		return err
	}

	pepper, pepperSet = value, true
	return nil
}
