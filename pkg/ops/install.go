package ops

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"lab47.dev/juliaman/pkg/archive"
	"lab47.dev/juliaman/pkg/catalog"
	"lab47.dev/juliaman/pkg/release"
	"lab47.dev/juliaman/pkg/store"
)

type Status int

const (
	Installed Status = iota
	AlreadyInstalled
)

func (s Status) String() string {
	if s == AlreadyInstalled {
		return "already installed"
	}

	return "installed"
}

type InstallResult struct {
	Status     Status
	Version    release.Version
	Identifier release.Identifier
	Path       string
	Launcher   string
	Default    bool
}

type Installer struct {
	common
	*Env

	Catalog *catalog.Catalog

	// MakeDefault decides whether a fresh install becomes the default. Nil
	// means never.
	MakeDefault func(ctx context.Context, in store.Installed) (bool, error)
}

func (i *Installer) fail(id release.Identifier, kind Kind, err error) *Error {
	return &Error{
		Op:      OpInstall,
		Kind:    kind,
		Subject: id.String(),
		Err:     err,
	}
}

// ArchivePath is where the archive for url is downloaded to.
func (i *Installer) ArchivePath(url, format string) string {
	sum := blake2b.Sum256([]byte(url))
	return filepath.Join(i.Store.Root, ArchivePrefix+base58.Encode(sum[:])+"."+format)
}

// already returns an AlreadyInstalled result when id's version is in the
// root, and nil otherwise.
func (i *Installer) already(id release.Identifier) (*InstallResult, error) {
	set, err := i.Store.Scan()
	if err != nil {
		return nil, i.fail(id, permissionKind(err, NotFound), err)
	}

	in, ok := set.Lookup(id.Version)
	if !ok {
		return nil, nil
	}

	i.L().Debug("version already installed", "version", id.Version, "path", in.Path)

	return &InstallResult{
		Status:     AlreadyInstalled,
		Version:    id.Version,
		Identifier: id,
		Path:       in.Path,
		Launcher:   i.Bin.LauncherPath(id.Version),
	}, nil
}

func (i *Installer) Install(ctx context.Context, id release.Identifier) (*InstallResult, error) {
	if !i.privileged() {
		return nil, i.fail(id, PermissionDenied,
			errors.Errorf("%s and %s must be writable", i.Store.Root, i.Bin.Path()))
	}

	// Nothing below creates the root until the lock is taken.
	if res, err := i.already(id); res != nil || err != nil {
		return res, err
	}

	url, ok := i.Catalog.URL(id)
	if !ok {
		return nil, i.fail(id, NotFound, errors.Errorf("no download listed for %s", id))
	}

	format, ok := archive.Format(url)
	if !ok || !i.Extractor.Supports(url) {
		return nil, i.fail(id, MissingDependency, errors.Wrapf(archive.ErrUnsupported, "%s", url))
	}

	unlock, err := i.Lock(ctx)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, i.fail(id, PermissionDenied, err)
		}

		return nil, errors.Wrapf(err, "locking %s", i.Store.Root)
	}

	defer unlock()

	// Another process may have finished the same install while we waited.
	if res, err := i.already(id); res != nil || err != nil {
		return res, err
	}

	ui := GetUI(ctx)

	arPath := i.ArchivePath(url, format)

	ui.Downloading(id, url)
	i.L().Debug("downloading", "url", url, "path", arPath)

	sz, err := i.Fetcher.File(ctx, url, arPath)
	if err != nil {
		os.Remove(arPath)
		return nil, i.fail(id, DownloadFailed, err)
	}

	ui.Downloaded(id, sz)

	in := store.Installed{
		Version: id.Version,
		Path:    i.Store.ExpectedPath(id.Version),
	}

	ui.Extracting(id, in.Path)

	err = i.unpack(ctx, arPath, in.Path)
	if err != nil {
		os.Remove(arPath)
		return nil, i.fail(id, ExtractFailed, err)
	}

	if err := os.Remove(arPath); err != nil {
		i.L().Warn("unable to remove downloaded archive", "path", arPath, "error", err)
	}

	launcher, err := i.Bin.Link(in)
	if err != nil {
		i.Bin.Unlink(id.Version)

		oe := i.fail(id, LinkFailed, err)
		oe.Path = in.Path
		return nil, oe
	}

	res := &InstallResult{
		Status:     Installed,
		Version:    id.Version,
		Identifier: id,
		Path:       in.Path,
		Launcher:   launcher,
	}

	if i.MakeDefault == nil {
		return res, nil
	}

	yes, err := i.MakeDefault(ctx, in)
	if err != nil {
		i.L().Warn("unable to decide on default, leaving it unchanged", "error", err)
		return res, nil
	}

	if !yes {
		return res, nil
	}

	err = i.Bin.SetDefault(in)
	if err != nil {
		oe := i.fail(id, LinkFailed, errors.Wrapf(err, "setting default"))
		oe.Path = launcher
		return nil, oe
	}

	res.Default = true

	return res, nil
}

// unpack extracts into a fresh staging directory under the root, then
// renames the archive's single top-level directory to dest. Archives with
// more than one top-level entry have the staging directory itself renamed.
func (i *Installer) unpack(ctx context.Context, arPath, dest string) error {
	stage, err := randomName(StagePrefix)
	if err != nil {
		return err
	}

	stage = filepath.Join(i.Store.Root, stage)

	defer os.RemoveAll(stage)

	err = i.Extractor.Extract(ctx, arPath, stage)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	ents, err := os.ReadDir(stage)
	if err != nil {
		return errors.Wrapf(err, "reading staging directory")
	}

	if len(ents) == 0 {
		return errors.New("archive was empty")
	}

	src := stage
	if len(ents) == 1 && ents[0].IsDir() {
		src = filepath.Join(stage, ents[0].Name())
	}

	err = fixPerms(src)
	if err != nil {
		return errors.Wrapf(err, "fixing permissions")
	}

	i.L().Debug("moving staged install into place", "from", src, "to", dest)

	return errors.Wrapf(os.Rename(src, dest), "moving %s into place", filepath.Base(dest))
}
