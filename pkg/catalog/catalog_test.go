package catalog

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/juliaman/pkg/release"
)

const page = `<html><body>
<h2>Current stable release: v1.11.0 (October 8, 2024)</h2>
<table>
<tr><td><a href="https://julialang-s3.julialang.org/bin/linux/x64/1.11/julia-1.11.0-linux-x86_64.tar.gz">glibc</a>
(<a href="https://julialang-s3.julialang.org/bin/linux/x64/1.11/julia-1.11.0-linux-x86_64.tar.gz.asc">GPG</a>)</td>
<td><a href="https://julialang-s3.julialang.org/bin/musl/x64/1.11/julia-1.11.0-musl-x86_64.tar.gz">musl</a></td>
<td><a href="https://julialang-s3.julialang.org/bin/linux/aarch64/1.11/julia-1.11.0-linux-aarch64.tar.gz">aarch64</a></td>
<td><a href="/bin/freebsd/x64/1.11/julia-1.11.0-freebsd-x86_64.tar.gz">FreeBSD</a></td>
<td><a href="https://julialang-s3.julialang.org/bin/mac/x64/1.11/julia-1.11.0-mac64.dmg">mac</a></td>
</tr></table>
<h2>Long-term support (LTS) release: <b>v1.10.5</b></h2>
<a href="https://julialang-s3.julialang.org/bin/linux/x64/1.10/julia-1.10.5-linux-x86_64.tar.gz">glibc</a>
<a href="https://julialang-s3.julialang.org/bin/linux/x86/1.10/julia-1.10.5-linux-i686.tar.gz">i686</a>
<h2>Older releases</h2>
<a href="https://julialang-s3.julialang.org/bin/linux/x64/1.9/julia-1.9.4-linux-x86_64.tar.gz">old</a>
</body></html>`

type docFetcher struct {
	doc string
	err error
}

func (d *docFetcher) Document(ctx context.Context, url string) (string, error) {
	return d.doc, d.err
}

func (d *docFetcher) File(ctx context.Context, url, dest string) (int64, error) {
	return 0, errors.New("not supported")
}

func mustID(t *testing.T, s string) release.Identifier {
	t.Helper()

	id, err := release.ParseIdentifier("julia", s)
	require.NoError(t, err)

	return id
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	src := "https://julialang.org/downloads/"

	t.Run("binds roles from the labelled anchors", func(t *testing.T) {
		cat, err := Fetch(ctx, &docFetcher{doc: page}, src, "julia", nil)
		require.NoError(t, err)
		require.NoError(t, cat.Check())

		latest, ok := cat.Role(Latest)
		require.True(t, ok)
		assert.Equal(t, "julia-1.11.0", latest.String())

		lts, ok := cat.Role(LTS)
		require.True(t, ok)
		assert.Equal(t, "julia-1.10.5", lts.String())
	})

	t.Run("lists files for the selected versions only", func(t *testing.T) {
		cat, err := Fetch(ctx, &docFetcher{doc: page}, src, "julia", nil)
		require.NoError(t, err)

		var names []string
		for _, id := range cat.All() {
			names = append(names, id.String())
		}

		assert.Equal(t, []string{
			"julia-1.11.0-freebsd-x86_64",
			"julia-1.11.0-linux-aarch64",
			"julia-1.11.0-linux-x86_64",
			"julia-1.11.0-musl-x86_64",
			"julia-1.10.5-linux-i686",
			"julia-1.10.5-linux-x86_64",
		}, names)

		u, ok := cat.URL(mustID(t, "julia-1.11.0-freebsd-x86_64"))
		require.True(t, ok)
		assert.Equal(t, "https://julialang.org/bin/freebsd/x64/1.11/julia-1.11.0-freebsd-x86_64.tar.gz", u)

		_, ok = cat.URL(mustID(t, "julia-1.9.4-linux-x86_64"))
		assert.False(t, ok)
	})

	t.Run("filters identifiers by platform", func(t *testing.T) {
		cat, err := Fetch(ctx, &docFetcher{doc: page}, src, "julia", nil)
		require.NoError(t, err)

		ids := cat.For(release.Platform{OS: release.Linux, Arch: release.X86_64})
		require.Len(t, ids, 2)

		assert.Equal(t, "julia-1.11.0-linux-x86_64", ids[0].String())
		assert.Equal(t, "julia-1.10.5-linux-x86_64", ids[1].String())
	})

	t.Run("tolerates a page without anchors", func(t *testing.T) {
		cat, err := Fetch(ctx, &docFetcher{doc: "<html>maintenance</html>"}, src, "julia", nil)
		require.NoError(t, err)

		_, ok := cat.Role(Latest)
		assert.False(t, ok)
		assert.Empty(t, cat.All())

		var fe *FetchError
		require.True(t, errors.As(cat.Check(), &fe))
		assert.Equal(t, ParseEmpty, fe.Kind)
	})

	t.Run("wraps transport failures", func(t *testing.T) {
		_, err := Fetch(ctx, &docFetcher{err: errors.New("connection refused")}, src, "julia", nil)
		require.Error(t, err)

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, Network, fe.Kind)
		assert.Equal(t, 1, fe.ExitCode())
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("uses custom anchors", func(t *testing.T) {
		doc := `Stable: v2.0.0-rc1 <a href="julia-2.0.0-rc1-linux-x86_64.tar.gz">x</a>`

		ex := &Page{Anchors: map[Role]string{Latest: "Stable:"}}

		cat, err := Fetch(ctx, &docFetcher{doc: doc}, "https://example.com/dl/", "julia", ex)
		require.NoError(t, err)

		latest, ok := cat.Role(Latest)
		require.True(t, ok)
		assert.Equal(t, "julia-2.0.0-rc1", latest.String())

		u, ok := cat.URL(mustID(t, "julia-2.0.0-rc1-linux-x86_64"))
		require.True(t, ok)
		assert.Equal(t, "https://example.com/dl/julia-2.0.0-rc1-linux-x86_64.tar.gz", u)
	})
}
