package catalog

import (
	"context"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/fetch"
	"lab47.dev/juliaman/pkg/release"
)

type Role string

const (
	Latest Role = "latest"
	LTS    Role = "lts"
)

var Roles = []Role{Latest, LTS}

type Kind int

const (
	Network Kind = iota + 1
	ParseEmpty
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case ParseEmpty:
		return "parse-empty"
	default:
		return "unknown"
	}
}

type FetchError struct {
	Kind   Kind
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case ParseEmpty:
		return "no release information found at " + e.Source
	default:
		return "unable to fetch release list from " + e.Source + ": " + e.Err.Error()
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) ExitCode() int {
	return 1
}

// Archives are the formats release files are published in, longest suffix
// first.
var Archives = []string{"tar.gz", "tar.xz", "zip"}

type Catalog struct {
	Source string
	Name   string

	roles map[Role]release.Version
	urls  map[string]string
	ids   []release.Identifier
}

// New builds a catalog from an extracted listing. Role bindings and files
// that do not parse are dropped.
func New(source, name string, l Listing) *Catalog {
	c := &Catalog{
		Source: source,
		Name:   name,
		roles:  map[Role]release.Version{},
		urls:   map[string]string{},
	}

	for role, ver := range l.Roles {
		v, err := release.NewVersion(name, ver)
		if err != nil {
			continue
		}

		c.roles[role] = v
	}

	for _, u := range l.Files {
		id, ok := identify(name, u)
		if !ok {
			continue
		}

		key := id.String()
		if _, dup := c.urls[key]; dup {
			continue
		}

		c.urls[key] = u
		c.ids = append(c.ids, id)
	}

	sort.SliceStable(c.ids, func(i, j int) bool {
		a, b := c.ids[i], c.ids[j]
		if !a.Version.Equal(b.Version) {
			return b.Version.Less(a.Version)
		}

		return a.Platform.String() < b.Platform.String()
	})

	return c
}

func identify(name, u string) (release.Identifier, bool) {
	base := u
	if pu, err := url.Parse(u); err == nil {
		base = pu.Path
	}

	base = path.Base(base)

	for _, ext := range Archives {
		if strings.HasSuffix(base, "."+ext) {
			id, err := release.ParseIdentifier(name, strings.TrimSuffix(base, "."+ext))
			if err != nil {
				return release.Identifier{}, false
			}

			return id, true
		}
	}

	return release.Identifier{}, false
}

func (c *Catalog) Role(r Role) (release.Version, bool) {
	v, ok := c.roles[r]
	return v, ok
}

func (c *Catalog) URL(id release.Identifier) (string, bool) {
	u, ok := c.urls[id.String()]
	return u, ok
}

// All returns every downloadable identifier, newest first.
func (c *Catalog) All() []release.Identifier {
	return append([]release.Identifier(nil), c.ids...)
}

func (c *Catalog) For(p release.Platform) []release.Identifier {
	var out []release.Identifier

	for _, id := range c.ids {
		if id.Platform == p {
			out = append(out, id)
		}
	}

	return out
}

// Check reports a ParseEmpty FetchError when the listing bound no roles.
func (c *Catalog) Check() error {
	if len(c.roles) == 0 {
		return &FetchError{Kind: ParseEmpty, Source: c.Source}
	}

	return nil
}

// Fetch retrieves source and builds a catalog from it. Only transport
// failures are errors; an unrecognized page yields an empty catalog.
func Fetch(ctx context.Context, f fetch.Fetcher, source, name string, ex Extractor) (*Catalog, error) {
	base, err := url.Parse(source)
	if err != nil {
		return nil, &FetchError{Kind: Network, Source: source, Err: err}
	}

	doc, err := f.Document(ctx, source)
	if err != nil {
		return nil, &FetchError{Kind: Network, Source: source, Err: errors.WithStack(err)}
	}

	if ex == nil {
		ex = &Page{}
	}

	l := ex.Extract(base, name, doc)

	cat := New(source, name, l)

	hclog.L().Debug("catalog fetched",
		"source", source,
		"roles", len(cat.roles),
		"files", len(cat.ids),
	)

	return cat, nil
}
