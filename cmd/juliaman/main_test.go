package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/juliaman/pkg/config"
	"lab47.dev/juliaman/pkg/direnv"
	"lab47.dev/juliaman/pkg/release"
)

const downloadsPage = `<html><body>
<h2>Current stable release: v1.11.0 (October 8, 2024)</h2>
<a href="https://julialang-s3.julialang.org/bin/linux/x64/1.11/julia-1.11.0-linux-x86_64.tar.gz">glibc</a>
<a href="https://julialang-s3.julialang.org/bin/musl/x64/1.11/julia-1.11.0-musl-x86_64.tar.gz">musl</a>
<h2>Long-term support (LTS) release: v1.10.5</h2>
<a href="https://julialang-s3.julialang.org/bin/linux/x64/1.10/julia-1.10.5-linux-x86_64.tar.gz">glibc</a>
</body></html>`

type siteFetcher struct {
	page      string
	docErrs   int
	files     int
	documents int
}

func (s *siteFetcher) Document(ctx context.Context, url string) (string, error) {
	s.documents++

	if s.docErrs > 0 {
		s.docErrs--
		return "", errors.New("connection refused")
	}

	return s.page, nil
}

func (s *siteFetcher) File(ctx context.Context, url, dest string) (int64, error) {
	s.files++

	base := path.Base(url)
	top := strings.Join(strings.Split(base, "-")[:2], "-")

	var buf bytes.Buffer

	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	body := "#!/bin/sh\n"

	err := tw.WriteHeader(&tar.Header{
		Name:     top + "/bin/julia",
		Mode:     0755,
		Size:     int64(len(body)),
		Typeflag: tar.TypeReg,
	})
	if err != nil {
		return 0, err
	}

	tw.Write([]byte(body))
	tw.Close()
	gw.Close()

	return int64(buf.Len()), os.WriteFile(dest, buf.Bytes(), 0644)
}

func testApp(t *testing.T, page string) (*app, *siteFetcher, *bytes.Buffer) {
	t.Helper()

	top := t.TempDir()

	var out bytes.Buffer

	sf := &siteFetcher{page: page}

	a := &app{
		L: hclog.NewNullLogger(),
		cfg: &config.Config{
			Root:         filepath.Join(top, "opt"),
			BinDir:       filepath.Join(top, "bin"),
			DownloadsURL: "https://julialang.org/downloads/",
			Name:         "julia",
			LogLevel:     "info",
		},
		out:         &out,
		fetcher:     sf,
		interactive: func() bool { return false },
		detect: func(ctx context.Context) (release.Platform, error) {
			return release.Platform{OS: release.Linux, Arch: release.X86_64}, nil
		},
		privileged: func(paths ...string) bool { return true },
	}

	return a, sf, &out
}

func entries(t *testing.T, dir string) []string {
	t.Helper()

	ents, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}

	require.NoError(t, err)

	var names []string
	for _, e := range ents {
		names = append(names, e.Name())
	}

	return names
}

func TestParseGlobals(t *testing.T) {
	t.Run("stops at the command name", func(t *testing.T) {
		g, rest, err := parseGlobals([]string{"--root", "/srv", "install", "--default", "lts"})
		require.NoError(t, err)

		assert.Equal(t, "/srv", g.Root)
		assert.Equal(t, []string{"install", "--default", "lts"}, rest)
	})

	t.Run("turns help into the help flag", func(t *testing.T) {
		_, rest, err := parseGlobals([]string{"help", "install"})
		require.NoError(t, err)
		assert.Equal(t, []string{"--help", "install"}, rest)

		_, rest, err = parseGlobals([]string{"-h"})
		require.NoError(t, err)
		assert.Equal(t, []string{"--help"}, rest)
	})

	t.Run("rejects unknown global flags", func(t *testing.T) {
		_, _, err := parseGlobals([]string{"--nope"})
		assert.Error(t, err)
	})
}

func TestRun(t *testing.T) {
	t.Run("installs latest into an empty root", func(t *testing.T) {
		a, sf, out := testApp(t, downloadsPage)

		require.Equal(t, 0, a.run([]string{"install", "--default", "latest"}))

		assert.Contains(t, entries(t, a.cfg.Root), "julia-1.11.0")
		assert.ElementsMatch(t, []string{"julia", "julia-1.11.0"}, entries(t, a.cfg.BinDir))
		assert.Equal(t, 1, sf.files)

		tgt, err := os.Readlink(filepath.Join(a.cfg.BinDir, "julia"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(a.cfg.Root, "julia-1.11.0", "bin", "julia"), tgt)

		out.Reset()
		require.Equal(t, 0, a.run([]string{"list"}))
		assert.Equal(t, "julia-1.11.0\n", out.String())

		out.Reset()
		require.Equal(t, 0, a.run([]string{"current"}))
		assert.Equal(t, "julia-1.11.0\n", out.String())
	})

	t.Run("treats a repeated install as success", func(t *testing.T) {
		a, sf, _ := testApp(t, downloadsPage)

		require.Equal(t, 0, a.run([]string{"install", "lts", "--no-default"}))
		require.Equal(t, 0, a.run([]string{"install", "1.10.5"}))

		assert.Equal(t, 1, sf.files)
		assert.NotContains(t, entries(t, a.cfg.BinDir), "julia")
	})

	t.Run("succeeds on a repeat install while the listing is down", func(t *testing.T) {
		a, sf, out := testApp(t, downloadsPage)

		require.Equal(t, 0, a.run([]string{"install", "lts", "--no-default"}))

		sf.docErrs = 1
		docs := sf.documents
		out.Reset()

		assert.Equal(t, 0, a.run([]string{"install", "1.10.5"}))
		assert.Equal(t, docs, sf.documents)
		assert.Equal(t, 1, sf.files)
		assert.Contains(t, out.String(), "1.10.5")

		assert.Equal(t, 1, a.run([]string{"install", "lts"}))
	})

	t.Run("round trips install and uninstall", func(t *testing.T) {
		a, _, _ := testApp(t, downloadsPage)

		require.Equal(t, 0, a.run([]string{"install", "--default"}))
		require.Equal(t, 0, a.run([]string{"uninstall", "julia-1.11.0"}))

		assert.Equal(t, []string{".juliaman.lock"}, entries(t, a.cfg.Root))
		assert.Empty(t, entries(t, a.cfg.BinDir))

		assert.Equal(t, 1, a.run([]string{"current"}))
	})

	t.Run("exits 1 when uninstalling what is not installed", func(t *testing.T) {
		a, _, _ := testApp(t, downloadsPage)

		assert.Equal(t, 1, a.run([]string{"uninstall", "1.0.0"}))
	})

	t.Run("exits 1 without touching disk when latest is unknown", func(t *testing.T) {
		a, sf, _ := testApp(t, "<html>maintenance</html>")

		assert.Equal(t, 1, a.run([]string{"install", "latest"}))
		assert.Equal(t, 0, sf.files)

		_, err := os.Stat(a.cfg.Root)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("retries the listing fetch when asked", func(t *testing.T) {
		a, sf, _ := testApp(t, downloadsPage)
		sf.docErrs = 1

		assert.Equal(t, 1, a.run([]string{"available"}))

		sf.docErrs = 1
		assert.Equal(t, 0, a.run([]string{"available", "--retries", "1"}))
	})

	t.Run("lists local downloads, or all with --all", func(t *testing.T) {
		a, _, out := testApp(t, downloadsPage)

		require.Equal(t, 0, a.run([]string{"available"}))
		assert.Contains(t, out.String(), "latest: 1.11.0\n")
		assert.Contains(t, out.String(), "lts: 1.10.5\n")
		assert.Contains(t, out.String(), "platform: linux-x86_64 (glibc)\n")
		assert.NotContains(t, out.String(), "musl")

		out.Reset()

		require.Equal(t, 0, a.run([]string{"available", "--all"}))
		assert.Contains(t, out.String(), "julia-1.11.0-musl-x86_64\n")
	})

	t.Run("switches the default", func(t *testing.T) {
		a, _, out := testApp(t, downloadsPage)

		require.Equal(t, 0, a.run([]string{"install", "--default", "latest"}))
		require.Equal(t, 0, a.run([]string{"install", "lts"}))
		require.Equal(t, 0, a.run([]string{"default", "1.10.5"}))

		out.Reset()
		require.Equal(t, 0, a.run([]string{"current"}))
		assert.Equal(t, "julia-1.10.5\n", out.String())
	})

	t.Run("sweeps leftovers", func(t *testing.T) {
		a, _, _ := testApp(t, downloadsPage)

		require.NoError(t, os.MkdirAll(filepath.Join(a.cfg.Root, ".stage-abc"), 0755))

		require.Equal(t, 0, a.run([]string{"gc", "--dry-run"}))
		assert.Contains(t, entries(t, a.cfg.Root), ".stage-abc")

		require.Equal(t, 0, a.run([]string{"gc"}))
		assert.NotContains(t, entries(t, a.cfg.Root), ".stage-abc")
	})

	t.Run("dumps the PATH update for direnv", func(t *testing.T) {
		a, _, out := testApp(t, downloadsPage)
		t.Setenv("DIRENV_DUMP_FILE_PATH", "")
		t.Setenv("PATH", "/usr/bin")

		require.Equal(t, 0, a.run([]string{"env", "--dump-env"}))

		want, err := direnv.Dump(map[string]string{"PATH": a.cfg.BinDir + ":/usr/bin"})
		require.NoError(t, err)
		assert.Equal(t, want+"\n", out.String())
	})

	t.Run("maps unknown commands to 1", func(t *testing.T) {
		a, _, _ := testApp(t, downloadsPage)
		assert.Equal(t, 1, a.run([]string{"frobnicate"}))
	})

	t.Run("exits 0 for help", func(t *testing.T) {
		a, _, _ := testApp(t, downloadsPage)
		assert.Equal(t, 0, a.run([]string{"--help"}))
	})

	t.Run("needs a terminal for the menu", func(t *testing.T) {
		a, _, _ := testApp(t, downloadsPage)
		assert.Equal(t, 2, a.run(nil))
	})
}
