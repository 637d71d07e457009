// Package files stores uploaded files and serves them back by name.
package files

import (
	"bufio"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrNotFound is returned by Open when no file is stored under the name.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidName is returned for names that are empty or would leave the storage root.
	ErrInvalidName = errors.New("invalid file name")
)

// Storage saves and opens files by their flat name.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// CleanName reduces a client supplied file name to its base name.
// Names that still resolve to nothing usable are rejected.
func CleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(filepath.FromSlash(name))
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return "", ErrInvalidName
	}
	return name, nil
}

func checkName(name string) error {
	clean, err := CleanName(name)
	if err != nil {
		return err
	}
	if clean != name {
		return ErrInvalidName
	}
	return nil
}

// sniff detects the content type of r from its first bytes and returns a
// reader that still yields the whole stream.
func sniff(r io.Reader) (string, io.Reader) {
	br := bufio.NewReaderSize(r, 3072)
	head, _ := br.Peek(3072)
	return mimetype.Detect(head).String(), br
}
