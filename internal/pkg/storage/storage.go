package storage

import (
	"context"
	"errors"
	"io"
)

var ErrFileNotFound = errors.New("file not found")

// FileStorage keeps uploaded photos. Paths are relative to the storage root.
type FileStorage interface {
	// Upload stores file under path and returns the cleaned path
	Upload(ctx context.Context, file io.Reader, path string, contentType string) (string, error)

	// Download opens a stored file, ErrFileNotFound when missing
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	Delete(ctx context.Context, path string) error

	// GetURL returns the public URL of path
	GetURL(ctx context.Context, path string) string

	Exists(ctx context.Context, path string) (bool, error)

	// Latest returns the most recently written file whose name has the given
	// prefix and extension, ErrFileNotFound when there is none
	Latest(ctx context.Context, prefix, ext string) (string, error)

	// Root returns an absolute description of where files live
	Root() string
}
