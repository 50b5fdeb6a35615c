package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"
	"testing"

	appErr "github.com/court-opinions/engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, max int64) (afero.Fs, FileStore) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewFileStore(fs, "/uploads", max)
	require.NoError(t, err)
	return fs, s
}

func TestSaveOpenRemove(t *testing.T) {
	fs, s := newStore(t, 0)
	id := uuid.New()
	data := []byte("PAR1 payload")

	st, err := s.Save(context.Background(), id, "cases.parquet", bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "cases.parquet", st.Name)
	require.Equal(t, filepath.Join("/uploads", "project_"+id.String()+"_cases.parquet"), st.Path)
	require.Equal(t, int64(len(data)), st.Size)
	sum := sha256.Sum256(data)
	require.Equal(t, hex.EncodeToString(sum[:]), st.SHA256)

	f, err := s.Open(st.Path)
	require.NoError(t, err)
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Equal(t, data, got)

	require.NoError(t, s.Remove(st.Path))
	require.NoError(t, s.Remove(st.Path))
	exists, err := afero.Exists(fs, st.Path)
	require.NoError(t, err)
	require.False(t, exists)

	_, err = s.Open(st.Path)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestSaveStripsDirectories(t *testing.T) {
	_, s := newStore(t, 0)
	id := uuid.New()
	st, err := s.Save(context.Background(), id, "../../etc/cases.parquet", strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, "cases.parquet", st.Name)
	require.Equal(t, "/uploads", filepath.Dir(st.Path))

	_, err = s.Save(context.Background(), id, "", strings.NewReader("x"))
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestSaveTooLarge(t *testing.T) {
	fs, s := newStore(t, 4)
	id := uuid.New()
	_, err := s.Save(context.Background(), id, "big.parquet", strings.NewReader("12345"))
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	exists, _ := afero.Exists(fs, filepath.Join("/uploads", ObjectName(id, "big.parquet")))
	require.False(t, exists)

	_, err = s.Save(context.Background(), id, "ok.parquet", strings.NewReader("1234"))
	require.NoError(t, err)
}

func TestSaveCancelled(t *testing.T) {
	fs, s := newStore(t, 0)
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, id, "a.parquet", strings.NewReader("data"))
	require.True(t, appErr.IsCode(err, appErr.CodeDeadline))
	exists, _ := afero.Exists(fs, filepath.Join("/uploads", ObjectName(id, "a.parquet")))
	require.False(t, exists)
}
