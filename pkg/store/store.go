package store

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/release"
)

// Store is the install root. Every directory directly under it named
// <name>-<version> is an installed version; nothing else is recorded.
type Store struct {
	Root string
	Name string
}

var ErrNoEntry = errors.New("version not installed")

type Installed struct {
	Version release.Version
	Path    string
}

// Binary is the runtime executable inside the installation.
func (i Installed) Binary() string {
	return filepath.Join(i.Path, "bin", i.Version.Name)
}

// Set is ordered by ascending version.
type Set []Installed

func (s Set) Lookup(v release.Version) (Installed, bool) {
	for _, i := range s {
		if i.Version.Equal(v) {
			return i, true
		}
	}

	return Installed{}, false
}

func (s Set) Names() []string {
	var out []string

	for _, i := range s {
		out = append(out, i.Version.String())
	}

	return out
}

func (s *Store) ExpectedPath(v release.Version) string {
	return filepath.Join(s.Root, v.String())
}

func (s *Store) Locate(v release.Version) (string, error) {
	path := s.ExpectedPath(v)

	fi, err := os.Stat(path)
	if err == nil && fi.IsDir() {
		return path, nil
	}

	return "", errors.Wrapf(ErrNoEntry, "%s in %s", v, s.Root)
}

// Scan reads the root. A missing root is an empty set.
func (s *Store) Scan() (Set, error) {
	f, err := os.Open(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "scanning %s", s.Root)
	}

	defer f.Close()

	var out Set

	for {
		ents, err := f.ReadDir(50)
		if err != nil {
			if err == io.EOF {
				break
			}

			return nil, errors.Wrapf(err, "scanning %s", s.Root)
		}

		for _, ent := range ents {
			if !ent.IsDir() {
				continue
			}

			v, err := release.ParseVersion(s.Name, ent.Name())
			if err != nil {
				continue
			}

			// Only the canonical spelling counts, so "julia-v1.0.0" or
			// "1.0.0" directories are ignored.
			if v.String() != ent.Name() {
				continue
			}

			out = append(out, Installed{
				Version: v,
				Path:    filepath.Join(s.Root, ent.Name()),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Version.Less(out[j].Version)
	})

	return out, nil
}
