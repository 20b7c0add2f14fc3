package widetolong

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInputStripsByteOrderMark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.tsv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffname\ttaxonomy_id\n"), 0o644))

	in, err := OpenInput(context.Background(), path, nil)
	require.NoError(t, err)
	defer in.Close()

	got, err := io.ReadAll(in)
	require.NoError(t, err)
	assert.Equal(t, "name\ttaxonomy_id\n", string(got))
	assert.Equal(t, DataTypeNoCompression, in.DataType)
}

func TestOpenInputErrors(t *testing.T) {
	dir := t.TempDir()

	for _, path := range []string{
		filepath.Join(dir, "absent.tsv"),
		dir,
		"gs://bucket/wide.tsv",
	} {
		_, err := OpenInput(context.Background(), path, nil)

		var accessErr *InputAccessError
		require.True(t, errors.As(err, &accessErr), "%s: got %v", path, err)
		assert.Equal(t, path, accessErr.Path)
	}
}

func TestCreateOutputGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.tsv.gz")

	out, err := CreateOutput(context.Background(), path, nil)
	require.NoError(t, err)
	_, err = io.WriteString(out, "name\tsample\n")
	require.NoError(t, err)
	require.NoError(t, out.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, "name\tsample\n", string(got))
}

func TestCreateOutputAbortRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.tsv")

	out, err := CreateOutput(context.Background(), path, nil)
	require.NoError(t, err)
	_, err = io.WriteString(out, "partial")
	require.NoError(t, err)
	require.NoError(t, out.Abort())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCreateOutputErrors(t *testing.T) {
	dir := t.TempDir()

	for _, path := range []string{
		filepath.Join(dir, "no-such-dir", "long.tsv"),
		"gs://bucket/long.tsv",
	} {
		_, err := CreateOutput(context.Background(), path, nil)

		var accessErr *OutputAccessError
		require.True(t, errors.As(err, &accessErr), "%s: got %v", path, err)
	}
}

func TestIsBrokenPipe(t *testing.T) {
	assert.True(t, IsBrokenPipe(fmt.Errorf("writing row: %w", syscall.EPIPE)))
	assert.True(t, IsBrokenPipe(io.ErrClosedPipe))
	assert.False(t, IsBrokenPipe(io.EOF))
	assert.False(t, IsBrokenPipe(nil))
}
