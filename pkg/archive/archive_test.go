package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0755,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))

		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
}

func TestFormat(t *testing.T) {
	f, ok := Format("julia-1.11.0-linux-x86_64.tar.gz")
	require.True(t, ok)
	assert.Equal(t, "tar.gz", f)

	f, ok = Format("https://example.com/julia-1.11.0-linux-x86_64.tar.xz")
	require.True(t, ok)
	assert.Equal(t, "tar.xz", f)

	_, ok = Format("julia-1.11.0-mac64.dmg")
	assert.False(t, ok)
}

func TestGetter(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	src := filepath.Join(dir, "a.tar.gz")
	writeTarGz(t, src, map[string]string{
		"julia-1.11.0/bin/julia":       "#!/bin/sh\n",
		"julia-1.11.0/share/README.md": "readme",
	})

	var g Getter

	t.Run("unpacks into the destination", func(t *testing.T) {
		dest := filepath.Join(dir, "out")

		require.NoError(t, g.Extract(ctx, src, dest))

		data, err := os.ReadFile(filepath.Join(dest, "julia-1.11.0", "share", "README.md"))
		require.NoError(t, err)
		assert.Equal(t, "readme", string(data))
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		assert.False(t, g.Supports("a.dmg"))

		err := g.Extract(ctx, filepath.Join(dir, "a.dmg"), filepath.Join(dir, "x"))
		assert.True(t, errors.Is(err, ErrUnsupported))
	})

	t.Run("reports corrupt archives", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.tar.gz")
		require.NoError(t, os.WriteFile(bad, []byte("not gzip"), 0644))

		err := g.Extract(ctx, bad, filepath.Join(dir, "bad"))
		assert.Error(t, err)
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := g.Extract(cctx, src, filepath.Join(dir, "cancelled"))
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
