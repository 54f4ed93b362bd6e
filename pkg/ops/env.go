package ops

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/mr-tron/base58"
	"lab47.dev/juliaman/pkg/archive"
	"lab47.dev/juliaman/pkg/fetch"
	"lab47.dev/juliaman/pkg/launcher"
	"lab47.dev/juliaman/pkg/lockfile"
	"lab47.dev/juliaman/pkg/store"
)

const (
	LockName      = ".juliaman.lock"
	StagePrefix   = ".stage-"
	ArchivePrefix = ".download-"
)

type common struct {
	logger hclog.Logger
}

func (c *common) L() hclog.Logger {
	if c.logger == nil {
		c.logger = hclog.L().Named("ops")
	}

	return c.logger
}

func (c *common) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

// Env is everything the operations touch. It carries no state between
// calls: the install root is rescanned by every operation.
type Env struct {
	Store     *store.Store
	Bin       *launcher.Dir
	Fetcher   fetch.Fetcher
	Extractor archive.Extractor

	// Privileged reports whether the caller may modify the install root and
	// binaries directory.
	Privileged func() bool

	// Waiting is called while another process holds the lock.
	Waiting func()
}

func (e *Env) privileged() bool {
	if e.Privileged == nil {
		return true
	}

	return e.Privileged()
}

func (e *Env) LockPath() string {
	return filepath.Join(e.Store.Root, LockName)
}

// Lock takes the install root lock, creating the root if needed.
func (e *Env) Lock(ctx context.Context) (func(), error) {
	err := os.MkdirAll(e.Store.Root, 0755)
	if err != nil {
		return nil, err
	}

	return lockfile.Take(ctx, e.LockPath(), e.Waiting)
}

// Current scans the root and reports which installed version is default.
func (e *Env) Current() (store.Set, store.Installed, bool, error) {
	set, err := e.Store.Scan()
	if err != nil {
		return nil, store.Installed{}, false, err
	}

	cur, ok, err := e.Bin.Current(set)
	if err != nil {
		return set, store.Installed{}, false, err
	}

	return set, cur, ok, nil
}

func randomName(prefix string) (string, error) {
	buf := make([]byte, 8)

	_, err := rand.Read(buf)
	if err != nil {
		return "", err
	}

	return prefix + base58.Encode(buf), nil
}
