package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/downloads/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "juliaman-test", r.Header.Get("User-Agent"))
		w.Write([]byte("<html>release page</html>"))
	})
	mux.HandleFunc("/bin/julia.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archive bytes"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := &HTTP{Client: srv.Client(), UserAgent: "juliaman-test"}
	ctx := context.Background()

	t.Run("reads a document", func(t *testing.T) {
		doc, err := h.Document(ctx, srv.URL+"/downloads/")
		require.NoError(t, err)

		assert.Equal(t, "<html>release page</html>", doc)
	})

	t.Run("writes a file", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "a.tar.gz")

		n, err := h.File(ctx, srv.URL+"/bin/julia.tar.gz", dest)
		require.NoError(t, err)

		assert.Equal(t, int64(len("archive bytes")), n)

		data, err := os.ReadFile(dest)
		require.NoError(t, err)

		assert.Equal(t, "archive bytes", string(data))
	})

	t.Run("reports bad statuses", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "missing.tar.gz")

		_, err := h.File(ctx, srv.URL+"/nope", dest)
		require.Error(t, err)

		assert.True(t, errors.Is(err, ErrStatus))

		_, err = os.Stat(dest)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("honors cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := h.Document(cctx, srv.URL+"/downloads/")
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

type deadlineFetcher struct {
	HTTP
	deadline bool
}

func (d *deadlineFetcher) File(ctx context.Context, url, dest string) (int64, error) {
	_, d.deadline = ctx.Deadline()
	return 0, nil
}

func TestWithTimeout(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the fetcher unchanged for zero", func(t *testing.T) {
		f := &deadlineFetcher{}
		assert.Equal(t, Fetcher(f), WithTimeout(f, 0))
	})

	t.Run("sets a deadline on file downloads", func(t *testing.T) {
		f := &deadlineFetcher{}

		_, err := WithTimeout(f, time.Minute).File(ctx, "http://x/a.tar.gz", "/dev/null")
		require.NoError(t, err)
		assert.True(t, f.deadline)
	})
}
