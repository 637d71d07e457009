package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/nimburion/taskboard/pkg/observability/tracing"
)

// DefaultDir is the upload directory used when none is configured.
const DefaultDir = "uploads"

// LocalStorage keeps files in a directory on the local filesystem.
type LocalStorage struct {
	root afero.Fs
	dir  string
}

// NewLocalStorage stores files under dir. The directory is created on the first save.
func NewLocalStorage(dir string) *LocalStorage {
	if dir == "" {
		dir = DefaultDir
	}
	return newLocalStorage(afero.NewOsFs(), dir)
}

func newLocalStorage(fs afero.Fs, dir string) *LocalStorage {
	return &LocalStorage{root: fs, dir: dir}
}

func (s *LocalStorage) fs() afero.Fs {
	return afero.NewBasePathFs(s.root, s.dir)
}

// Save writes r to name, replacing any file already stored under it.
func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (err error) {
	_, span := tracing.StartFileSpan(ctx, "local", tracing.OpSave, name)
	defer func() { tracing.End(span, err) }()

	if err := checkName(name); err != nil {
		return err
	}
	if err := s.root.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	fs := s.fs()
	tmp := name + ".part"
	f, err := fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("close %s: %w", name, err)
	}
	return fs.Rename(tmp, name)
}

// Open returns a reader for name or ErrNotFound.
func (s *LocalStorage) Open(ctx context.Context, name string) (_ io.ReadCloser, err error) {
	_, span := tracing.StartFileSpan(ctx, "local", tracing.OpOpen, name)
	defer func() { tracing.End(span, err) }()

	if checkName(name) != nil {
		return nil, ErrNotFound
	}
	f, err := s.fs().Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}
