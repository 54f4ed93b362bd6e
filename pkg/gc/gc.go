package gc

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/ops"
	"lab47.dev/juliaman/pkg/progress"
)

// Collector finds what interrupted installs left in the install root:
// staging directories and partial downloads. Installed versions are never
// touched.
type Collector struct {
	L hclog.Logger

	root string
}

func NewCollector(root string) (*Collector, error) {
	root = filepath.Clean(root)
	return &Collector{L: hclog.L().Named("gc"), root: root}, nil
}

func leftover(name string) bool {
	return strings.HasPrefix(name, ops.StagePrefix) || strings.HasPrefix(name, ops.ArchivePrefix)
}

// Sweep returns the names of leftovers under the root, sorted. A missing
// root has none.
func (c *Collector) Sweep(ctx context.Context) ([]string, error) {
	f, err := os.Open(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	defer f.Close()

	var found []string

	for {
		names, err := f.Readdirnames(100)
		if err != nil {
			if err == io.EOF {
				break
			}

			return nil, err
		}

		for _, name := range names {
			if leftover(name) {
				found = append(found, name)
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	sort.Strings(found)

	return found, nil
}

func (c *Collector) DiskUsage(names []string) (int64, error) {
	var total int64

	for _, n := range names {
		err := filepath.WalkDir(
			filepath.Join(c.root, n),
			func(path string, d fs.DirEntry, err error,
			) error {
				if err != nil {
					return nil
				}

				fi, err := d.Info()
				if err == nil {
					total += fi.Size()
				}
				return nil
			})
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

type SweepResult struct {
	Removed        []string
	BytesRecovered int64
	EntriesRemoved int64
}

func (c *Collector) remove(name string, sr *SweepResult) error {
	root := filepath.Join(c.root, name)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() && info.Mode().Perm()&0200 == 0 {
			err = os.Chmod(path, info.Mode().Perm()|0200)
			if err != nil {
				return err
			}
		}

		sr.EntriesRemoved++
		sr.BytesRecovered += info.Size()
		return nil
	})

	// Gone already, likely removed by another sweep.
	if os.IsNotExist(errors.Cause(err)) {
		return nil
	}

	if err != nil {
		return errors.Wrapf(err, "preparing %s for removal", root)
	}

	return os.RemoveAll(root)
}

// SweepAndRemove removes the given leftovers. Names that are not leftovers
// are skipped.
func (c *Collector) SweepAndRemove(ctx context.Context, names []string) (*SweepResult, error) {
	var sr SweepResult

	pb := progress.Count(ctx, int64(len(names)), "Removing leftovers")
	defer pb.Close()

	for _, name := range names {
		if !leftover(name) || strings.ContainsRune(name, filepath.Separator) {
			c.L.Warn("skipping entry that is not a leftover", "name", name)
			continue
		}

		if err := ctx.Err(); err != nil {
			return &sr, err
		}

		c.L.Debug("removing leftover", "path", filepath.Join(c.root, name))

		err := c.remove(name, &sr)
		if err != nil {
			return &sr, err
		}

		sr.Removed = append(sr.Removed, name)

		pb.Tick()
	}

	return &sr, nil
}
