// Package vault is the file collaborator: it reads and writes named plan
// documents inside a project directory and watches them for external edits.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"valet/internal/logging"
)

// ErrNotFound reports a document that does not exist. Absence is a
// reportable condition, not a crash.
var ErrNotFound = errors.New("document not found")

// Vault reads and writes documents under one project directory.
type Vault struct {
	root string
	log  *logging.Logger
}

// Open binds a vault to a project directory.
func Open(root string) (*Vault, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("vault directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path %s is not a directory", root)
	}
	return &Vault{root: root, log: logging.Get(logging.CategoryVault)}, nil
}

// Root returns the project directory.
func (v *Vault) Root() string { return v.root }

// Path resolves a document name to its absolute path.
func (v *Vault) Path(name string) string {
	return filepath.Join(v.root, name)
}

// ReadDocument returns the full text of a named document. A missing file
// yields ErrNotFound.
func (v *Vault) ReadDocument(name string) (string, error) {
	data, err := os.ReadFile(v.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// WriteDocument replaces the full text of a named document.
func (v *Vault) WriteDocument(name, content string) error {
	if err := os.WriteFile(v.Path(name), []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	v.log.Info("wrote %s (%d bytes)", name, len(content))
	return nil
}
