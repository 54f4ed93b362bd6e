package ops

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/morikuni/aec"
	"lab47.dev/juliaman/pkg/humanize"
	"lab47.dev/juliaman/pkg/release"
)

// UI prints operation progress for humans. Plain disables ANSI styling.
type UI struct {
	Out   io.Writer
	Plain bool

	waitOnce sync.Once
}

func (u *UI) w() io.Writer {
	if u.Out == nil {
		return os.Stdout
	}

	return u.Out
}

func (u *UI) style(a aec.ANSI, s string) string {
	if u.Plain {
		return s
	}

	return a.Apply(s)
}

func (u *UI) Downloading(id release.Identifier, url string) {
	fmt.Fprintf(u.w(), "Downloading %s\n  from %s\n", u.style(aec.Bold, id.String()), url)
}

func (u *UI) Downloaded(id release.Identifier, size int64) {
	fmt.Fprintf(u.w(), "Downloaded %s (%s)\n", id, humanize.Bytes(size))
}

func (u *UI) Extracting(id release.Identifier, dest string) {
	fmt.Fprintf(u.w(), "Extracting into %s\n", dest)
}

func (u *UI) Installed(r *InstallResult) {
	switch r.Status {
	case AlreadyInstalled:
		fmt.Fprintf(u.w(), "%s is already installed at %s\n", u.style(aec.Bold, r.Version.String()), r.Path)
	default:
		fmt.Fprintf(u.w(), "%s %s\n", u.style(aec.GreenF, "Installed"), u.style(aec.Bold, r.Version.String()))
		fmt.Fprintf(u.w(), "  path:     %s\n", r.Path)
		fmt.Fprintf(u.w(), "  launcher: %s\n", r.Launcher)
	}

	if r.Default {
		fmt.Fprintf(u.w(), "  default:  yes\n")
	}
}

func (u *UI) DefaultSet(v release.Version, path string) {
	fmt.Fprintf(u.w(), "%s is now the default (%s)\n", u.style(aec.Bold, v.String()), path)
}

func (u *UI) Uninstalled(r *UninstallResult) {
	fmt.Fprintf(u.w(), "%s %s\n", u.style(aec.GreenF, "Removed"), u.style(aec.Bold, r.Version.String()))

	if r.WasDefault {
		fmt.Fprintf(u.w(), "  %s\n", u.style(aec.YellowF, "no default version is set now"))
	}
}

func (u *UI) Warn(msg string) {
	fmt.Fprintf(u.w(), "%s %s\n", u.style(aec.YellowF, "!"), msg)
}

// Waiting reports lock contention, once per UI.
func (u *UI) Waiting() {
	u.waitOnce.Do(func() {
		fmt.Fprintf(u.w(), "Lock detected, waiting...\n")
	})
}

type uiMarker struct{}

func WithUI(ctx context.Context, ui *UI) context.Context {
	return context.WithValue(ctx, uiMarker{}, ui)
}

func GetUI(ctx context.Context) *UI {
	v := ctx.Value(uiMarker{})
	if v == nil {
		return &UI{Plain: true}
	}

	return v.(*UI)
}
