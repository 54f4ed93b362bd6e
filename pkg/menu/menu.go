// Package menu drives the interactive mode: a small state machine over the
// main, install and uninstall menus. It knows nothing about how versions are
// installed; Actions does the work and Prompter talks to the terminal.
package menu

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/catalog"
	"lab47.dev/juliaman/pkg/release"
)

// ErrAborted is returned by a Prompter when the user backs out of a prompt.
var ErrAborted = errors.New("prompt aborted")

type Prompter interface {
	Select(title string, options []string, current *string) error
	Confirm(title string, value *bool) error
	Input(title string, value *string) error
}

type Actions interface {
	// Roles returns the catalog's role bindings.
	Roles() map[catalog.Role]release.Version

	// Available lists downloadable identifiers, for the local platform only
	// unless all is set.
	Available(all bool) []release.Identifier

	// Installed lists installed versions in the order they should be shown.
	Installed() ([]release.Version, error)

	Install(ctx context.Context, token string) error
	Uninstall(ctx context.Context, token string) error
}

type State int

const (
	MainMenu State = iota
	InstallMenu
	UninstallMenu
	Done
)

func (s State) String() string {
	switch s {
	case MainMenu:
		return "main"
	case InstallMenu:
		return "install"
	case UninstallMenu:
		return "uninstall"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Event int

const (
	PickInstall Event = iota
	PickUninstall
	Quit
	Back
	Finished
)

func (e Event) String() string {
	switch e {
	case PickInstall:
		return "pick-install"
	case PickUninstall:
		return "pick-uninstall"
	case Quit:
		return "quit"
	case Back:
		return "back"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var transitions = map[State]map[Event]State{
	MainMenu: {
		PickInstall:   InstallMenu,
		PickUninstall: UninstallMenu,
		Quit:          Done,
	},
	InstallMenu: {
		Back:     MainMenu,
		Finished: MainMenu,
		Quit:     Done,
	},
	UninstallMenu: {
		Back:     MainMenu,
		Finished: MainMenu,
		Quit:     Done,
	},
}

// Next returns the state after e in s, or false if the table has no such
// transition.
func Next(s State, e Event) (State, bool) {
	n, ok := transitions[s][e]
	return n, ok
}

const (
	optInstall   = "Install a version"
	optUninstall = "Uninstall a version"
	optQuit      = "Quit"

	optEnter = "Enter a version"
	optAll   = "Show all options"
	optBack  = "Back"
)

type Machine struct {
	Prompter Prompter
	Actions  Actions
	Out      io.Writer
	L        hclog.Logger

	state State
}

func (m *Machine) out() io.Writer {
	if m.Out == nil {
		return os.Stdout
	}

	return m.Out
}

func (m *Machine) logger() hclog.Logger {
	if m.L == nil {
		return hclog.L().Named("menu")
	}

	return m.L
}

func (m *Machine) State() State {
	return m.state
}

// Run loops until the user quits. Errors from actions are shown and the
// menu continues; only prompt failures and cancellation end the run early.
func (m *Machine) Run(ctx context.Context) error {
	m.state = MainMenu

	for m.state != Done {
		if err := ctx.Err(); err != nil {
			return err
		}

		var (
			ev  Event
			err error
		)

		switch m.state {
		case MainMenu:
			ev, err = m.main()
		case InstallMenu:
			ev, err = m.install(ctx)
		case UninstallMenu:
			ev, err = m.uninstall(ctx)
		}

		if err != nil {
			return err
		}

		next, ok := Next(m.state, ev)
		if !ok {
			return errors.Errorf("no transition from %s on %s", m.state, ev)
		}

		m.logger().Trace("menu transition", "from", m.state, "event", ev, "to", next)

		m.state = next
	}

	return nil
}

// ask runs a select and maps an abort to the back event.
func (m *Machine) ask(title string, options []string) (string, bool, error) {
	var choice string

	err := m.Prompter.Select(title, options, &choice)
	if err != nil {
		if errors.Is(err, ErrAborted) {
			return "", false, nil
		}

		return "", false, err
	}

	return choice, true, nil
}

func (m *Machine) main() (Event, error) {
	choice, ok, err := m.ask("What would you like to do?", []string{optInstall, optUninstall, optQuit})
	if err != nil {
		return 0, err
	}

	switch {
	case !ok:
		return Quit, nil
	case choice == optInstall:
		return PickInstall, nil
	case choice == optUninstall:
		return PickUninstall, nil
	default:
		return Quit, nil
	}
}

func (m *Machine) report(err error) {
	fmt.Fprintf(m.out(), "! Error: %v\n", err)
}

func (m *Machine) install(ctx context.Context) (Event, error) {
	roles := m.Actions.Roles()

	var (
		options []string
		tokens  = map[string]string{}
	)

	for _, r := range catalog.Roles {
		v, ok := roles[r]
		if !ok {
			continue
		}

		opt := fmt.Sprintf("%s (%s)", r, v.Number())
		options = append(options, opt)
		tokens[opt] = string(r)
	}

	options = append(options, optEnter, optAll, optBack)

	choice, ok, err := m.ask("Which version?", options)
	if err != nil {
		return 0, err
	}

	var token string

	switch {
	case !ok || choice == optBack:
		return Back, nil
	case choice == optEnter:
		err = m.Prompter.Input("Version (e.g. 1.11.0)", &token)
		if err != nil {
			if errors.Is(err, ErrAborted) {
				return Back, nil
			}

			return 0, err
		}
	case choice == optAll:
		var all []string

		for _, id := range m.Actions.Available(true) {
			all = append(all, id.String())
		}

		if len(all) == 0 {
			fmt.Fprintln(m.out(), "No downloads are listed.")
			return Back, nil
		}

		token, ok, err = m.ask("Which download?", append(all, optBack))
		if err != nil {
			return 0, err
		}

		if !ok || token == optBack {
			return Back, nil
		}
	default:
		token = tokens[choice]
	}

	if err := m.Actions.Install(ctx, token); err != nil {
		if ctx.Err() != nil {
			return 0, err
		}

		m.report(err)
	}

	return Finished, nil
}

func (m *Machine) uninstall(ctx context.Context) (Event, error) {
	installed, err := m.Actions.Installed()
	if err != nil {
		m.report(err)
		return Back, nil
	}

	if len(installed) == 0 {
		fmt.Fprintln(m.out(), "Nothing is installed.")
		return Back, nil
	}

	var options []string

	for _, v := range installed {
		options = append(options, v.String())
	}

	choice, ok, err := m.ask("Remove which version?", append(options, optBack))
	if err != nil {
		return 0, err
	}

	if !ok || choice == optBack {
		return Back, nil
	}

	var sure bool

	err = m.Prompter.Confirm(fmt.Sprintf("Remove %s?", choice), &sure)
	if err != nil && !errors.Is(err, ErrAborted) {
		return 0, err
	}

	if !sure {
		return Back, nil
	}

	if err := m.Actions.Uninstall(ctx, choice); err != nil {
		if ctx.Err() != nil {
			return 0, err
		}

		m.report(err)
	}

	return Finished, nil
}
