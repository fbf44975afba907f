package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// Backend persists one credential set between runs.
//
// Read returns [shared.ErrNoCredentials] when nothing is stored. Remove is idempotent.
type Backend interface {
	Read(ctx context.Context) (*models.CredentialSet, error)
	Write(ctx context.Context, creds models.CredentialSet) error
	Remove(ctx context.Context) error
}

// FileBackend stores credentials as a single JSON object on disk.
type FileBackend struct {
	path string
}

// NewFileBackend creates a [FileBackend] writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file location.
func (f *FileBackend) Path() string {
	return f.path
}

func (f *FileBackend) Read(ctx context.Context) (*models.CredentialSet, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, shared.ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds models.CredentialSet
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", f.path, err)
	}
	if creds.IsZero() {
		return nil, shared.ErrNoCredentials
	}
	return &creds, nil
}

// Write replaces the file through a temp file and rename, so a reader never sees a partial record.
func (f *FileBackend) Write(ctx context.Context, creds models.CredentialSet) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set credentials file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

func (f *FileBackend) Remove(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}
