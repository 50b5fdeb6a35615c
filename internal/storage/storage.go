// Package storage keeps uploaded source files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/court-opinions/engine/pkg/utils"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Stored describes a saved file.
type Stored struct {
	Name   string
	Path   string
	Size   int64
	SHA256 string
}

// FileStore saves, opens and removes project source files.
type FileStore interface {
	Save(ctx context.Context, projectID uuid.UUID, filename string, r io.Reader) (*Stored, error)
	Open(path string) (afero.File, error)
	Remove(path string) error
}

type fileStore struct {
	fs   afero.Fs
	root string
	max  int64
}

// NewFileStore stores files under root on fs. maxBytes <= 0 disables the size cap.
func NewFileStore(fs afero.Fs, root string, maxBytes int64) (FileStore, error) {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "failed to create upload dir")
	}
	return &fileStore{fs: fs, root: root, max: maxBytes}, nil
}

// ObjectName is the stored name for a project's source file.
func ObjectName(projectID uuid.UUID, filename string) string {
	return fmt.Sprintf("project_%s_%s", projectID, filename)
}

// CleanFilename strips any directory part from a client-supplied name.
func CleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return filepath.Base(filepath.Clean("/" + name))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func (s *fileStore) Save(ctx context.Context, projectID uuid.UUID, filename string, r io.Reader) (*Stored, error) {
	name := CleanFilename(filename)
	if name == "" || name == "/" || name == "." {
		return nil, appErr.Invalid("filename is required")
	}
	path := filepath.Join(s.root, ObjectName(projectID, name))

	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "failed to create file")
	}

	hr := utils.NewHashingReader(ctxReader{ctx: ctx, r: r})
	var src io.Reader = hr
	if s.max > 0 {
		src = io.LimitReader(hr, s.max+1)
	}
	_, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = s.fs.Remove(path)
		if errors.Is(copyErr, context.Canceled) || errors.Is(copyErr, context.DeadlineExceeded) {
			return nil, appErr.Wrap(copyErr, appErr.CodeDeadline, "upload cancelled")
		}
		return nil, appErr.Wrap(copyErr, appErr.CodeInternal, "failed to write file")
	case closeErr != nil:
		_ = s.fs.Remove(path)
		return nil, appErr.Wrap(closeErr, appErr.CodeInternal, "failed to write file")
	case s.max > 0 && hr.Size() > s.max:
		_ = s.fs.Remove(path)
		return nil, appErr.Invalid("file too large").WithMeta("max_bytes", s.max)
	}

	return &Stored{Name: name, Path: path, Size: hr.Size(), SHA256: hr.HexSum()}, nil
}

func (s *fileStore) Open(path string) (afero.File, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErr.Wrap(err, appErr.CodeNotFound, "source file not found")
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "failed to open file")
	}
	return f, nil
}

// Remove deletes path; a missing file is not an error.
func (s *fileStore) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return appErr.Wrap(err, appErr.CodeInternal, "failed to remove file")
	}
	return nil
}
