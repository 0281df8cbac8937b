package download

import (
	"context"
	"fmt"
	"os"

	"github.com/mosaic-data/mosaic/internal/ports"
)

var _ ports.Downloader = (*File)(nil)

// File reads a payload from the local filesystem. Intended for fixtures
// and offline catalogs.
type File struct {
	path string
}

// NewFile creates a file downloader for the given path.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	return &File{path: path}, nil
}

// Retrieve reads the file in full.
func (f *File) Retrieve(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return data, nil
}
