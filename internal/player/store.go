package player

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/omnipushdigital/smartretail/internal/model"
)

// Store persists the device secret and the last-known manifest on local disk,
// keyed by device code. The secret is the device's only credential; the
// cached manifest is what keeps the screen alive through network loss.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) secretPath(deviceCode string) string {
	return filepath.Join(s.dir, sanitize(deviceCode)+".secret")
}

func (s *Store) manifestPath(deviceCode string) string {
	return filepath.Join(s.dir, sanitize(deviceCode)+".manifest.json")
}

// LoadSecret returns the stored secret, or empty string if none exists.
func (s *Store) LoadSecret(deviceCode string) (string, error) {
	data, err := os.ReadFile(s.secretPath(deviceCode))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Store) SaveSecret(deviceCode, secret string) error {
	return writeFileAtomic(s.secretPath(deviceCode), []byte(secret), 0o600)
}

// DropSecret removes the stored secret after a credential rejection.
func (s *Store) DropSecret(deviceCode string) error {
	err := os.Remove(s.secretPath(deviceCode))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// LoadManifest returns the cached manifest, or nil if none exists.
func (s *Store) LoadManifest(deviceCode string) (*model.Manifest, error) {
	data, err := os.ReadFile(s.manifestPath(deviceCode))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var manifest model.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("corrupt manifest cache: %w", err)
	}
	return &manifest, nil
}

func (s *Store) SaveManifest(deviceCode string, manifest *model.Manifest) error {
	data, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.manifestPath(deviceCode), data, 0o644)
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated state file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func sanitize(deviceCode string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, deviceCode)
}
