package files

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "report.pdf", want: "report.pdf"},
		{in: "nested/dir/report.pdf", want: "report.pdf"},
		{in: "..\\..\\evil.txt", want: "evil.txt"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: "my file.txt", want: "my file.txt"},
		{in: "", wantErr: true},
		{in: "..", wantErr: true},
		{in: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanName(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Fatalf("CleanName(%q) error = %v, want ErrInvalidName", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("CleanName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestLocalStorage_SaveAndOpen(t *testing.T) {
	// Given: an empty in-memory filesystem
	fs := afero.NewMemMapFs()
	s := newLocalStorage(fs, "uploads")
	ctx := context.Background()

	// When: a file is saved
	if err := s.Save(ctx, "notes.txt", strings.NewReader("hello board")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Then: the directory was created and the content reads back
	if ok, _ := afero.DirExists(fs, "uploads"); !ok {
		t.Fatal("upload dir was not created")
	}
	rc, err := s.Open(ctx, "notes.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "hello board" {
		t.Fatalf("content = %q", got)
	}
	if ok, _ := afero.Exists(fs, "uploads/notes.txt.part"); ok {
		t.Fatal("temporary file left behind")
	}
}

func TestLocalStorage_SaveOverwrites(t *testing.T) {
	s := newLocalStorage(afero.NewMemMapFs(), "uploads")
	ctx := context.Background()

	for _, body := range []string{"first version", "second"} {
		if err := s.Save(ctx, "a.txt", strings.NewReader(body)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	rc, err := s.Open(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	if got, _ := io.ReadAll(rc); string(got) != "second" {
		t.Fatalf("content = %q, want overwritten content", got)
	}
}

func TestLocalStorage_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newLocalStorage(fs, "uploads")
	ctx := context.Background()
	_ = afero.WriteFile(fs, "secret.txt", []byte("outside"), 0o644)
	_ = fs.MkdirAll("uploads/sub", 0o755)

	tests := []struct {
		name string
		file string
	}{
		{name: "missing", file: "missing.txt"},
		{name: "traversal", file: "../secret.txt"},
		{name: "directory", file: "sub"},
		{name: "empty", file: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Open(ctx, tt.file); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Open(%q) error = %v, want ErrNotFound", tt.file, err)
			}
		})
	}

	if err := s.Save(ctx, "../escape.txt", strings.NewReader("x")); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("Save() with traversal error = %v, want ErrInvalidName", err)
	}
	if ok, _ := afero.Exists(fs, "escape.txt"); ok {
		t.Fatal("file written outside the upload dir")
	}
}

func TestNewLocalStorage_DefaultDir(t *testing.T) {
	if s := NewLocalStorage(""); s.dir != DefaultDir {
		t.Fatalf("dir = %q, want %q", s.dir, DefaultDir)
	}
}
