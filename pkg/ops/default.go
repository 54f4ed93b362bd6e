package ops

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/resolve"
	"lab47.dev/juliaman/pkg/store"
)

// Defaults changes which installed version the default launcher runs.
type Defaults struct {
	common
	*Env

	Resolver *resolve.Resolver
}

func (d *Defaults) Use(ctx context.Context, token string) (store.Installed, error) {
	v, err := d.Resolver.Installed(token)
	if err != nil {
		return store.Installed{}, err
	}

	fail := func(kind Kind, err error) error {
		return &Error{Op: OpDefault, Kind: kind, Subject: v.String(), Err: err}
	}

	if !d.privileged() {
		return store.Installed{}, fail(PermissionDenied, errors.Errorf("%s must be writable", d.Bin.Path()))
	}

	unlock, err := d.Lock(ctx)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return store.Installed{}, fail(PermissionDenied, err)
		}

		return store.Installed{}, errors.Wrapf(err, "locking %s", d.Store.Root)
	}

	defer unlock()

	set, err := d.Store.Scan()
	if err != nil {
		return store.Installed{}, fail(permissionKind(err, NotInstalled), err)
	}

	in, ok := set.Lookup(v)
	if !ok {
		return store.Installed{}, fail(NotInstalled, errors.Errorf("installed: %v", set.Names()))
	}

	// Older installs may be missing their launcher; restore it first.
	if _, err := d.Bin.Link(in); err != nil {
		return store.Installed{}, fail(permissionKind(err, LinkFailed), err)
	}

	err = d.Bin.SetDefault(in)
	if err != nil {
		return store.Installed{}, fail(permissionKind(err, LinkFailed), err)
	}

	d.L().Info("default changed", "version", v, "path", d.Bin.DefaultPath())

	return in, nil
}

// Current reports the default version without taking the lock.
func (d *Defaults) Current() (store.Installed, bool, error) {
	_, cur, ok, err := d.Env.Current()
	return cur, ok, err
}
