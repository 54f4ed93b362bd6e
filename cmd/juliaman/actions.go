package main

import (
	"context"

	"lab47.dev/juliaman/pkg/catalog"
	"lab47.dev/juliaman/pkg/ops"
	"lab47.dev/juliaman/pkg/release"
	"lab47.dev/juliaman/pkg/resolve"
)

// actions backs the interactive menu with the same calls the commands make.
type actions struct {
	a   *app
	env *ops.Env
	cat *catalog.Catalog
	res *resolve.Resolver
}

func (x *actions) Roles() map[catalog.Role]release.Version {
	out := map[catalog.Role]release.Version{}

	for _, r := range catalog.Roles {
		if v, ok := x.cat.Role(r); ok {
			out[r] = v
		}
	}

	return out
}

func (x *actions) Available(all bool) []release.Identifier {
	if all || x.res.PlatformErr != nil {
		return x.cat.All()
	}

	return x.cat.For(x.res.Platform)
}

func (x *actions) Installed() ([]release.Version, error) {
	set, err := x.env.Store.Scan()
	if err != nil {
		return nil, err
	}

	var out []release.Version

	for _, in := range set {
		out = append(out, in.Version)
	}

	return out, nil
}

func (x *actions) Install(ctx context.Context, token string) error {
	_, err := x.a.install(ctx, x.env, x.cat, x.res, token, installOpts{})
	return err
}

func (x *actions) Uninstall(ctx context.Context, token string) error {
	return x.a.uninstall(ctx, x.env, x.res, token)
}
