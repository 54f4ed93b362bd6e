package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/catalog"
	"lab47.dev/juliaman/pkg/direnv"
	"lab47.dev/juliaman/pkg/gc"
	"lab47.dev/juliaman/pkg/humanize"
	"lab47.dev/juliaman/pkg/menu"
	"lab47.dev/juliaman/pkg/ops"
	"lab47.dev/juliaman/pkg/release"
	"lab47.dev/juliaman/pkg/resolve"
)

var ErrNoDefault = errors.New("no default version is set")

func (a *app) installF(ctx context.Context, opts struct {
	Default   bool          `short:"d" long:"default" description:"make the installed version the default"`
	NoDefault bool          `long:"no-default" description:"never change the default version"`
	Retries   int           `long:"retries" description:"retry a failed listing fetch or download this many times"`
	Timeout   time.Duration `long:"timeout" description:"limit each download to this long"`

	Pos struct {
		Version string `positional-arg-name:"version" description:"latest, lts, or a version such as 1.11.0"`
	} `positional-args:"yes"`
}) error {
	if opts.Default && opts.NoDefault {
		return errors.New("--default and --no-default are mutually exclusive")
	}

	token := opts.Pos.Version
	if token == "" {
		token = string(catalog.Latest)
	}

	ctx = a.withUI(ctx)

	env, err := a.env(ctx, opts.Timeout)
	if err != nil {
		return err
	}

	iopts := installOpts{
		Default:   opts.Default,
		NoDefault: opts.NoDefault,
		Retries:   opts.Retries,
	}

	res := a.resolver(ctx, nil)

	// An installed version needs no release listing.
	if a.installed(env, res, token) {
		_, err = a.install(ctx, env, nil, res, token, iopts)
		return err
	}

	cat, err := a.catalog(ctx, opts.Retries)
	if err != nil {
		return err
	}

	res.Catalog = cat

	_, err = a.install(ctx, env, cat, res, token, iopts)

	return err
}

func (a *app) listF(ctx context.Context, opts struct {
	Long bool `short:"l" long:"long" description:"show install paths and mark the default"`
}) error {
	env, err := a.env(ctx, 0)
	if err != nil {
		return err
	}

	set, cur, hasDefault, err := env.Current()
	if err != nil {
		return err
	}

	if !opts.Long {
		for _, in := range set {
			fmt.Fprintln(a.out, in.Version)
		}

		return nil
	}

	tw := tabwriter.NewWriter(a.out, 4, 2, 1, ' ', 0)
	defer tw.Flush()

	for _, in := range set {
		mark := ""
		if hasDefault && cur.Version.Equal(in.Version) {
			mark = "(default)"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\n", in.Version, in.Path, mark)
	}

	return nil
}

func (a *app) uninstallF(ctx context.Context, opts struct {
	Pos struct {
		Version string `positional-arg-name:"version" required:"yes"`
	} `positional-args:"yes"`
}) error {
	ctx = a.withUI(ctx)

	env, err := a.env(ctx, 0)
	if err != nil {
		return err
	}

	return a.uninstall(ctx, env, a.resolver(ctx, nil), opts.Pos.Version)
}

func (a *app) defaultF(ctx context.Context, opts struct {
	Pos struct {
		Version string `positional-arg-name:"version" required:"yes"`
	} `positional-args:"yes"`
}) error {
	ctx = a.withUI(ctx)

	env, err := a.env(ctx, 0)
	if err != nil {
		return err
	}

	d := &ops.Defaults{Env: env, Resolver: a.resolver(ctx, nil)}
	d.SetLogger(a.L.Named("default"))

	in, err := d.Use(ctx, opts.Pos.Version)
	if err != nil {
		return err
	}

	ops.GetUI(ctx).DefaultSet(in.Version, env.Bin.DefaultPath())

	return nil
}

func (a *app) currentF(ctx context.Context, opts struct{}) error {
	env, err := a.env(ctx, 0)
	if err != nil {
		return err
	}

	_, cur, ok, err := env.Current()
	if err != nil {
		return err
	}

	if !ok {
		return ErrNoDefault
	}

	fmt.Fprintln(a.out, cur.Version)

	return nil
}

func (a *app) availableF(ctx context.Context, opts struct {
	All     bool `short:"a" long:"all" description:"list downloads for every platform"`
	Retries int  `long:"retries" description:"retry a failed listing fetch this many times"`
}) error {
	cat, err := a.catalog(ctx, opts.Retries)
	if err != nil {
		return err
	}

	for _, r := range catalog.Roles {
		if v, ok := cat.Role(r); ok {
			fmt.Fprintf(a.out, "%s: %s\n", r, v.Number())
		} else {
			fmt.Fprintf(a.out, "%s: unknown\n", r)
		}
	}

	var ids []release.Identifier

	if opts.All {
		ids = cat.All()
	} else {
		res := a.resolver(ctx, cat)
		if res.PlatformErr != nil {
			return &resolve.ResolutionError{Kind: resolve.UnsupportedPlatform, Err: res.PlatformErr}
		}

		if libc := res.Platform.OS.Libc(); libc != "" {
			fmt.Fprintf(a.out, "platform: %s (%s)\n", res.Platform, libc)
		} else {
			fmt.Fprintf(a.out, "platform: %s\n", res.Platform)
		}

		ids = cat.For(res.Platform)
	}

	for _, id := range ids {
		fmt.Fprintln(a.out, id)
	}

	return nil
}

func (a *app) gcF(ctx context.Context, opts struct {
	DryRun bool `short:"T" long:"dry-run" description:"output leftovers that would be removed"`
}) error {
	ctx = a.withUI(ctx)

	env, err := a.env(ctx, 0)
	if err != nil {
		return err
	}

	col, err := gc.NewCollector(env.Store.Root)
	if err != nil {
		return err
	}

	col.L = a.L.Named("gc")

	if !opts.DryRun {
		if !env.Privileged() {
			return &ops.Error{
				Op:      ops.OpCollect,
				Kind:    ops.PermissionDenied,
				Subject: env.Store.Root,
				Err:     errors.Errorf("%s must be writable", env.Store.Root),
			}
		}

		if _, err := os.Stat(env.Store.Root); err == nil {
			unlock, err := env.Lock(ctx)
			if err != nil {
				return err
			}

			defer unlock()
		}
	}

	toRemove, err := col.Sweep(ctx)
	if err != nil {
		return err
	}

	total, err := col.DiskUsage(toRemove)
	if err != nil {
		return err
	}

	sz, unit := humanize.Size(total)

	if opts.DryRun {
		fmt.Fprintln(a.out, "## Leftovers")
		for _, p := range toRemove {
			fmt.Fprintln(a.out, p)
		}

		fmt.Fprintf(a.out, "=> Disk Usage: %.2f%s\n", sz, unit)

		return nil
	}

	res, err := col.SweepAndRemove(ctx, toRemove)
	if err != nil {
		return err
	}

	sz, unit = humanize.Size(res.BytesRecovered)

	fmt.Fprintf(a.out, "Space Recovered: %.2f%s\n", sz, unit)
	fmt.Fprintf(a.out, "  Files Removed: %d\n", res.EntriesRemoved)

	return nil
}

func (a *app) envF(ctx context.Context, opts struct {
	Path    bool `short:"p" long:"path" description:"only output the PATH update, if one is needed"`
	DumpEnv bool `short:"E" long:"dump-env" description:"dump the PATH update in direnv format"`
}) error {
	env, err := a.env(ctx, 0)
	if err != nil {
		return err
	}

	if opts.DumpEnv {
		return direnv.Write(a.out, env.Bin.EnvMap(os.Environ()))
	}

	updates := env.Bin.UpdateEnv(os.Environ())

	if !opts.Path {
		fmt.Fprintf(a.out, "Config: %s\n", a.cfg.Path())
		fmt.Fprintf(a.out, "Install Root: %s\n", env.Store.Root)
		fmt.Fprintf(a.out, "Binaries Dir: %s\n", env.Bin.Path())
		fmt.Fprintf(a.out, "Downloads: %s\n", a.cfg.DownloadsURL)
		fmt.Fprintf(a.out, "Lock: %s\n", env.LockPath())
	}

	for _, u := range updates {
		fmt.Fprintln(a.out, u)
	}

	return nil
}

func (a *app) debugF(ctx context.Context, opts struct {
	Catalog  bool `short:"c" long:"catalog" description:"dump the parsed release listing"`
	Platform bool `short:"p" long:"platform" description:"dump the detected platform"`
	Config   bool `long:"config" description:"dump the loaded configuration"`
}) error {
	if opts.Config {
		spew.Fdump(a.out, a.cfg)
	}

	if opts.Platform {
		p, err := a.detect(ctx)
		spew.Fdump(a.out, p, err)
	}

	if opts.Catalog {
		cat, err := a.catalog(ctx, 0)
		if err != nil {
			return err
		}

		roles := map[catalog.Role]string{}
		for _, r := range catalog.Roles {
			if v, ok := cat.Role(r); ok {
				roles[r] = v.String()
			}
		}

		spew.Fdump(a.out, roles)

		for _, id := range cat.All() {
			u, _ := cat.URL(id)
			fmt.Fprintf(a.out, "%s\t%s\n", id, u)
		}
	}

	return nil
}

// menuF runs the interactive mode.
func (a *app) menuF(ctx context.Context, opts struct{}) error {
	if !a.interactive() {
		return menu.ErrNoTerminal
	}

	ctx = a.withUI(ctx)

	env, err := a.env(ctx, 0)
	if err != nil {
		return err
	}

	cat, err := a.catalog(ctx, 0)
	if err != nil {
		a.L.Warn("release listing unavailable, only removal will work", "error", err)
		cat = catalog.New(a.cfg.DownloadsURL, a.cfg.Name, catalog.Listing{})
	}

	m := &menu.Machine{
		Prompter: a.prompt,
		Actions: &actions{
			a:   a,
			env: env,
			cat: cat,
			res: a.resolver(ctx, cat),
		},
		Out: a.out,
		L:   a.L.Named("menu"),
	}

	return m.Run(ctx)
}
