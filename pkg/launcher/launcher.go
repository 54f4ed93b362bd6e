// Package launcher manages the binaries directory: one versioned launcher
// symlink per installed version (julia-1.11.0) and the default pointer, the
// symlink under the bare runtime name (julia).
package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/release"
	"lab47.dev/juliaman/pkg/store"
)

var ErrNotLink = errors.New("refusing to replace a file that is not a symlink")

type Dir struct {
	path string
	name string
}

func Open(path, name string) (*Dir, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	return &Dir{path: path, name: name}, nil
}

func (d *Dir) Path() string {
	return d.path
}

func (d *Dir) LauncherPath(v release.Version) string {
	return filepath.Join(d.path, v.String())
}

func (d *Dir) DefaultPath() string {
	return filepath.Join(d.path, d.name)
}

func isLink(path string) (bool, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	if fi.Mode()&os.ModeSymlink == 0 {
		return false, errors.Wrapf(ErrNotLink, "%s", path)
	}

	return true, nil
}

// Link points the versioned launcher at the installation's binary.
func (d *Dir) Link(in store.Installed) (string, error) {
	target := in.Binary()

	fi, err := os.Stat(target)
	if err != nil {
		return "", errors.Wrapf(err, "installed binary missing")
	}

	if fi.IsDir() {
		return "", errors.Errorf("installed binary is a directory: %s", target)
	}

	err = os.MkdirAll(d.path, 0755)
	if err != nil {
		return "", err
	}

	tgt := d.LauncherPath(in.Version)

	if x, err := os.Readlink(tgt); err == nil {
		if x == target {
			return tgt, nil
		}
	}

	exists, err := isLink(tgt)
	if err != nil {
		return "", err
	}

	if exists {
		err = os.Remove(tgt)
		if err != nil {
			return "", err
		}
	}

	return tgt, os.Symlink(target, tgt)
}

// Unlink removes the versioned launcher. A missing launcher is not an error.
func (d *Dir) Unlink(v release.Version) error {
	tgt := d.LauncherPath(v)

	exists, err := isLink(tgt)
	if err != nil || !exists {
		return err
	}

	return os.Remove(tgt)
}

// SetDefault points the default launcher at in. The new link is created
// under a temporary name and renamed over the old one, so the pointer always
// has exactly one target.
func (d *Dir) SetDefault(in store.Installed) error {
	dp := d.DefaultPath()

	if _, err := isLink(dp); err != nil {
		return err
	}

	err := os.MkdirAll(d.path, 0755)
	if err != nil {
		return err
	}

	tmp := filepath.Join(d.path, fmt.Sprintf(".%s.%d", d.name, os.Getpid()))

	os.Remove(tmp)

	err = os.Symlink(in.Binary(), tmp)
	if err != nil {
		return err
	}

	err = os.Rename(tmp, dp)
	if err != nil {
		os.Remove(tmp)
		return err
	}

	return nil
}

// ClearDefault removes the default launcher if it exists.
func (d *Dir) ClearDefault() error {
	dp := d.DefaultPath()

	exists, err := isLink(dp)
	if err != nil || !exists {
		return err
	}

	return os.Remove(dp)
}

func (d *Dir) DefaultTarget() (string, bool, error) {
	x, err := os.Readlink(d.DefaultPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}

		return "", false, err
	}

	return x, true, nil
}

// maxHops bounds how many links Current follows from the default launcher.
const maxHops = 8

// Current returns the installed version the default launcher points into,
// following links through versioned launchers. A pointer that is dangling
// or aims outside set reports false.
func (d *Dir) Current(set store.Set) (store.Installed, bool, error) {
	x, ok, err := d.DefaultTarget()
	if err != nil || !ok {
		return store.Installed{}, false, err
	}

	dir := d.path

	for i := 0; i < maxHops; i++ {
		if !filepath.IsAbs(x) {
			x = filepath.Join(dir, x)
		}

		x = filepath.Clean(x)

		for _, in := range set {
			if x == in.Path || strings.HasPrefix(x, in.Path+string(filepath.Separator)) {
				return in, true, nil
			}
		}

		next, err := os.Readlink(x)
		if err != nil {
			break
		}

		dir = filepath.Dir(x)
		x = next
	}

	return store.Installed{}, false, nil
}

func (d *Dir) UpdateEnv(env []string) []string {
	var updates []string

	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			val := kv[5:]

			for _, p := range filepath.SplitList(val) {
				if p == d.path {
					return nil
				}
			}

			updates = append(updates, fmt.Sprintf("export PATH=%s:%s", d.path, val))
		}
	}

	return updates
}

// EnvMap returns the variables env needs changed for the binaries directory
// to be on PATH, for consumers like direnv that want values, not shell code.
func (d *Dir) EnvMap(env []string) map[string]string {
	out := map[string]string{}

	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			val := kv[5:]

			for _, p := range filepath.SplitList(val) {
				if p == d.path {
					return out
				}
			}

			out["PATH"] = d.path + string(filepath.ListSeparator) + val
		}
	}

	if _, ok := out["PATH"]; !ok {
		out["PATH"] = d.path
	}

	return out
}
