package fetch

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/progress"
)

// Fetcher retrieves remote resources. Document is used for the release
// listing, File for archives.
type Fetcher interface {
	Document(ctx context.Context, url string) (string, error)
	File(ctx context.Context, url, dest string) (int64, error)
}

var ErrStatus = errors.New("unexpected http status")

const maxDocument = 16 << 20

type HTTP struct {
	Client    *http.Client
	UserAgent string

	L hclog.Logger
}

func (h *HTTP) logger() hclog.Logger {
	if h.L != nil {
		return h.L
	}

	return hclog.L()
}

func (h *HTTP) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	client := h.Client
	if client == nil {
		client = DefaultClient
	}

	h.logger().Debug("http get", "url", url)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Wrapf(ErrStatus, "%s: %s", url, resp.Status)
	}

	return resp, nil
}

func (h *HTTP) Document(ctx context.Context, url string) (string, error) {
	resp, err := h.get(ctx, url)
	if err != nil {
		return "", err
	}

	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocument))
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", url)
	}

	return string(data), nil
}

// File streams url into dest. On failure dest is removed.
func (h *HTTP) File(ctx context.Context, url, dest string) (int64, error) {
	resp, err := h.get(ctx, url)
	if err != nil {
		return 0, err
	}

	defer resp.Body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return 0, err
	}

	bar := progress.Bytes(ctx, resp.ContentLength, "Downloading "+path.Base(url))

	n, err := io.Copy(io.MultiWriter(f, bar), resp.Body)

	bar.Close()

	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		err = errors.Errorf("short download of %s: %d of %d bytes", url, n, resp.ContentLength)
	}

	if err != nil {
		os.Remove(dest)
		return n, err
	}

	h.logger().Debug("downloaded", "url", url, "path", dest, "bytes", n)

	return n, nil
}

type timeout struct {
	Fetcher
	d time.Duration
}

// WithTimeout bounds each File call of f by d. A zero d returns f.
func WithTimeout(f Fetcher, d time.Duration) Fetcher {
	if d <= 0 {
		return f
	}

	return &timeout{Fetcher: f, d: d}
}

func (t *timeout) File(ctx context.Context, url, dest string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	return t.Fetcher.File(ctx, url, dest)
}
