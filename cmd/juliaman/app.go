package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"golang.org/x/term"
	"lab47.dev/juliaman/pkg/archive"
	"lab47.dev/juliaman/pkg/catalog"
	"lab47.dev/juliaman/pkg/config"
	"lab47.dev/juliaman/pkg/fetch"
	"lab47.dev/juliaman/pkg/launcher"
	"lab47.dev/juliaman/pkg/menu"
	"lab47.dev/juliaman/pkg/ops"
	"lab47.dev/juliaman/pkg/platform"
	"lab47.dev/juliaman/pkg/release"
	"lab47.dev/juliaman/pkg/resolve"
	"lab47.dev/juliaman/pkg/store"
)

// app is what every command shares. Fields are swapped out in tests.
type app struct {
	L   hclog.Logger
	cfg *config.Config

	out     io.Writer
	fetcher fetch.Fetcher
	prompt  menu.Prompter

	interactive func() bool
	detect      func(ctx context.Context) (release.Platform, error)
	privileged  func(paths ...string) bool

	retryWait time.Duration
}

func newApp(cfg *config.Config, L hclog.Logger) *app {
	return &app{
		L:   L,
		cfg: cfg,
		out: os.Stdout,
		fetcher: &fetch.HTTP{
			UserAgent: "juliaman/" + Version,
			L:         L.Named("fetch"),
		},
		prompt:      menu.NewHuh(),
		interactive: menu.Interactive,
		detect:      platform.Detect,
		privileged:  platform.Privileged,
		retryWait:   time.Second,
	}
}

func (a *app) withUI(ctx context.Context) context.Context {
	plain := true
	if f, ok := a.out.(*os.File); ok {
		plain = !term.IsTerminal(int(f.Fd()))
	}

	return ops.WithUI(ctx, &ops.UI{Out: a.out, Plain: plain})
}

func (a *app) store() *store.Store {
	return a.cfg.Store()
}

func (a *app) env(ctx context.Context, timeout time.Duration) (*ops.Env, error) {
	bin, err := launcher.Open(a.cfg.BinDir, a.cfg.Name)
	if err != nil {
		return nil, err
	}

	if timeout == 0 {
		timeout, err = a.cfg.Timeout()
		if err != nil {
			return nil, err
		}
	}

	s := a.store()

	return &ops.Env{
		Store:     s,
		Bin:       bin,
		Fetcher:   fetch.WithTimeout(a.fetcher, timeout),
		Extractor: &archive.Getter{},
		Privileged: func() bool {
			return a.privileged(s.Root, bin.Path())
		},
		Waiting: ops.GetUI(ctx).Waiting,
	}, nil
}

// catalog fetches the release listing, retrying network failures up to
// retries more times.
func (a *app) catalog(ctx context.Context, retries int) (*catalog.Catalog, error) {
	for attempt := 0; ; attempt++ {
		cat, err := catalog.Fetch(ctx, a.fetcher, a.cfg.DownloadsURL, a.cfg.Name, a.cfg.Page())
		if err == nil {
			if cerr := cat.Check(); cerr != nil {
				a.L.Warn("release listing has no recognizable releases", "source", a.cfg.DownloadsURL)
			}

			return cat, nil
		}

		if attempt >= retries || ctx.Err() != nil {
			return nil, err
		}

		a.L.Warn("fetching release listing failed, retrying", "attempt", attempt+1, "error", err)

		if err := a.sleep(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (a *app) sleep(ctx context.Context, attempt int) error {
	t := time.NewTimer(a.retryWait * time.Duration(attempt+1))
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *app) resolver(ctx context.Context, cat *catalog.Catalog) *resolve.Resolver {
	p, err := a.detect(ctx)
	if err != nil {
		a.L.Debug("platform detection failed", "error", err)
	}

	return &resolve.Resolver{
		Name:        a.cfg.Name,
		Catalog:     cat,
		Platform:    p,
		PlatformErr: err,
	}
}

// installed reports whether token names a version, not an alias, that is
// already in the install root.
func (a *app) installed(env *ops.Env, res *resolve.Resolver, token string) bool {
	v, err := res.Installed(token)
	if err != nil {
		return false
	}

	_, err = env.Store.Locate(v)
	return err == nil
}

type installOpts struct {
	Default   bool
	NoDefault bool
	Retries   int
}

// makeDefault decides whether a fresh install becomes the default: the
// flags win, then a prompt when there is a terminal, otherwise no.
func (a *app) makeDefault(opts installOpts) func(ctx context.Context, in store.Installed) (bool, error) {
	return func(ctx context.Context, in store.Installed) (bool, error) {
		switch {
		case opts.Default:
			return true, nil
		case opts.NoDefault:
			return false, nil
		case !a.interactive():
			return false, nil
		}

		var yes bool

		err := a.prompt.Confirm(fmt.Sprintf("Make %s the default %s?", in.Version, a.cfg.Name), &yes)
		if errors.Is(err, menu.ErrAborted) {
			return false, nil
		}

		return yes, err
	}
}

func (a *app) install(ctx context.Context, env *ops.Env, cat *catalog.Catalog, res *resolve.Resolver, token string, opts installOpts) (*ops.InstallResult, error) {
	id, err := res.Resolve(token)
	if err != nil {
		return nil, err
	}

	in := &ops.Installer{
		Env:         env,
		Catalog:     cat,
		MakeDefault: a.makeDefault(opts),
	}

	in.SetLogger(a.L.Named("install"))

	for attempt := 0; ; attempt++ {
		r, err := in.Install(ctx, id)
		if err == nil {
			ops.GetUI(ctx).Installed(r)
			return r, nil
		}

		if ops.KindOf(err) != ops.DownloadFailed || attempt >= opts.Retries || ctx.Err() != nil {
			return nil, err
		}

		a.L.Warn("download failed, retrying", "attempt", attempt+1, "error", err)

		if err := a.sleep(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (a *app) uninstall(ctx context.Context, env *ops.Env, res *resolve.Resolver, token string) error {
	un := &ops.Uninstaller{Env: env, Resolver: res}
	un.SetLogger(a.L.Named("uninstall"))

	r, err := un.Uninstall(ctx, token)
	if err != nil {
		return err
	}

	ops.GetUI(ctx).Uninstalled(r)

	return nil
}
