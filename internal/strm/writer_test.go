package strm_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prilive-com/strmbot/internal/strm"
)

func TestWriter_CreatesFolderAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "alist")
	w := strm.NewWriter(dir)

	path, err := w.Write("My Movie： Part 2？.strm", "abcDEF1234567890ghij")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "My Movie： Part 2？.strm"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcDEF1234567890ghij", string(data))
}

func TestWriter_OverwritesExisting(t *testing.T) {
	w := strm.NewWriter(t.TempDir())

	_, err := w.Write("same.strm", "first-content-longer")
	require.NoError(t, err)
	path, err := w.Write("same.strm", "second")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestWriter_RejectsMultiElementNames(t *testing.T) {
	w := strm.NewWriter(t.TempDir())

	for _, name := range []string{"", ".", "..", "../x.strm", "a/b.strm", "/abs.strm"} {
		t.Run(name, func(t *testing.T) {
			_, err := w.Write(name, "x")
			assert.ErrorIs(t, err, strm.ErrInvalidName)
		})
	}
}

func TestWriter_NameTooLong(t *testing.T) {
	w := strm.NewWriter(t.TempDir())

	_, err := w.Write(strings.Repeat("x", 300)+".strm", "x")
	require.Error(t, err)

	var werr *strm.WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, strm.ReasonNameTooLong, werr.Reason)
	assert.ErrorIs(t, err, strm.ErrNameTooLong)
	assert.NotErrorIs(t, err, strm.ErrPermission)
}

func TestWriter_Permission(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	parent := t.TempDir()
	require.NoError(t, os.Chmod(parent, 0o500))
	t.Cleanup(func() { _ = os.Chmod(parent, 0o755) })

	w := strm.NewWriter(filepath.Join(parent, "alist"))
	_, err := w.Write("a.strm", "x")

	assert.ErrorIs(t, err, strm.ErrPermission)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestWriter_DirIsAFile(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "alist")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

	_, err := strm.NewWriter(blocker).Write("a.strm", "x")

	var werr *strm.WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, strm.ReasonOther, werr.Reason)
	assert.Equal(t, blocker, werr.Path)
}

func TestWriter_ConcurrentFolderCreation(t *testing.T) {
	w := strm.NewWriter(filepath.Join(t.TempDir(), "nested", "alist"))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := range 16 {
		wg.Go(func() {
			_, err := w.Write(strm.Filename(strm.NewToken(8)+string(rune('a'+i))), "x")
			errs <- err
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	entries, err := os.ReadDir(w.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 16)
}

func TestReason_String(t *testing.T) {
	assert.Equal(t, "permission", strm.ReasonPermission.String())
	assert.Equal(t, "disk_full", strm.ReasonDiskFull.String())
	assert.Equal(t, "name_too_long", strm.ReasonNameTooLong.String())
	assert.Equal(t, "other", strm.ReasonOther.String())
}
