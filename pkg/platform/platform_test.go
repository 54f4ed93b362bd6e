package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/juliaman/pkg/release"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		os, arch string
		want     string
	}{
		{"linux", "x86_64", "linux-x86_64"},
		{"linux", "amd64", "linux-x86_64"},
		{"Linux", "i686", "linux-i686"},
		{"linux", "arm64", "linux-aarch64"},
		{"linux", "ppc64le", "linux-ppc64le"},
		{"freebsd", "amd64", "freebsd-x86_64"},
	}

	for _, c := range cases {
		p, err := Normalize(c.os, c.arch)
		require.NoError(t, err, c.os+"/"+c.arch)

		assert.Equal(t, c.want, p.String())
	}

	t.Run("never reports musl", func(t *testing.T) {
		p, err := Normalize("linux", "x86_64")
		require.NoError(t, err)

		assert.Equal(t, release.Linux, p.OS)
	})

	t.Run("rejects unknown systems", func(t *testing.T) {
		_, err := Normalize("darwin", "arm64")
		assert.True(t, errors.Is(err, ErrUnsupported))

		_, err = Normalize("linux", "riscv64")
		assert.True(t, errors.Is(err, ErrUnsupported))
	})
}

func TestPrivileged(t *testing.T) {
	dir := t.TempDir()

	assert.True(t, Privileged(dir, filepath.Join(dir, "not", "yet", "created")))

	if os.Geteuid() == 0 {
		t.Skip("root can write anywhere")
	}

	ro := filepath.Join(dir, "ro")
	require.NoError(t, os.Mkdir(ro, 0555))

	assert.False(t, Privileged(dir, filepath.Join(ro, "child")))
}
