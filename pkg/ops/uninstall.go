package ops

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/release"
	"lab47.dev/juliaman/pkg/resolve"
)

type UninstallResult struct {
	Version    release.Version
	Path       string
	WasDefault bool
}

type Uninstaller struct {
	common
	*Env

	Resolver *resolve.Resolver

	// removeAll defaults to os.RemoveAll.
	removeAll func(path string) error
}

func (u *Uninstaller) fail(subject string, kind Kind, err error) *Error {
	return &Error{
		Op:      OpUninstall,
		Kind:    kind,
		Subject: subject,
		Err:     err,
	}
}

// Uninstall removes an installed version given as "1.11.0", "v1.11.0" or
// "julia-1.11.0". Nothing is touched unless the version is installed.
func (u *Uninstaller) Uninstall(ctx context.Context, token string) (*UninstallResult, error) {
	v, err := u.Resolver.Installed(token)
	if err != nil {
		return nil, err
	}

	subject := v.String()

	if !u.privileged() {
		return nil, u.fail(subject, PermissionDenied,
			errors.Errorf("%s and %s must be writable", u.Store.Root, u.Bin.Path()))
	}

	// Without a root there is nothing to lock and nothing installed.
	if _, err := os.Stat(u.Store.Root); os.IsNotExist(err) {
		return nil, u.fail(subject, NotInstalled, errors.Wrapf(err, "no install root"))
	}

	unlock, err := u.Lock(ctx)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, u.fail(subject, PermissionDenied, err)
		}

		return nil, errors.Wrapf(err, "locking %s", u.Store.Root)
	}

	defer unlock()

	set, cur, hasDefault, err := u.Current()
	if err != nil {
		return nil, u.fail(subject, permissionKind(err, NotInstalled), err)
	}

	in, ok := set.Lookup(v)
	if !ok {
		return nil, u.fail(subject, NotInstalled, errors.Errorf("installed: %v", set.Names()))
	}

	res := &UninstallResult{
		Version: v,
		Path:    in.Path,
	}

	// From here on every failure is partial: the steps already taken stay.
	partial := func(err error, left string) error {
		oe := u.fail(subject, PartialFailure, err)
		oe.Path = left
		return oe
	}

	if hasDefault && cur.Version.Equal(v) {
		u.L().Debug("clearing default pointer", "path", u.Bin.DefaultPath())

		err = u.Bin.ClearDefault()
		if err != nil {
			if errors.Is(err, os.ErrPermission) {
				return nil, u.fail(subject, PermissionDenied, err)
			}

			return nil, partial(errors.Wrapf(err, "clearing default"), u.Bin.DefaultPath())
		}

		res.WasDefault = true
	}

	err = u.Bin.Unlink(v)
	if err != nil {
		if !res.WasDefault && errors.Is(err, os.ErrPermission) {
			return nil, u.fail(subject, PermissionDenied, err)
		}

		return nil, partial(errors.Wrapf(err, "removing launcher"), u.Bin.LauncherPath(v))
	}

	if err := ctx.Err(); err != nil {
		return nil, partial(err, in.Path)
	}

	u.L().Debug("removing installation", "path", in.Path)

	removeAll := u.removeAll
	if removeAll == nil {
		removeAll = os.RemoveAll
	}

	err = removeAll(in.Path)
	if err != nil {
		return nil, partial(errors.Wrapf(err, "removing %s", in.Path), in.Path)
	}

	return res, nil
}
