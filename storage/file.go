package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type FileRecipeState struct {
	FilePath string
}

func NewFileRecipeState(filePath string) *FileRecipeState {
	return &FileRecipeState{FilePath: filePath}
}

func (r *FileRecipeState) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(r.FilePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, r.FilePath)
	}
	return data, err
}

// Save writes data to a temporary sibling file and renames it over FilePath.
func (r *FileRecipeState) Save(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(r.FilePath), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.FilePath), filepath.Base(r.FilePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), r.FilePath)
}
