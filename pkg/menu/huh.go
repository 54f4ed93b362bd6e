package menu

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

type noTerminal struct{}

func (noTerminal) Error() string { return "interactive mode requires a terminal" }

// A missing terminal is a missing dependency, exit status 2.
func (noTerminal) ExitCode() int { return 2 }

// ErrNoTerminal is returned when a prompt is attempted without a terminal.
var ErrNoTerminal error = noTerminal{}

// Interactive reports whether stdin and stdout are both terminals.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Huh prompts with charmbracelet/huh forms on stderr.
type Huh struct {
	isTerminal func() bool
}

var runFormFunc = func(form *huh.Form) error { return form.Run() }

func NewHuh() *Huh {
	return &Huh{isTerminal: Interactive}
}

func (h *Huh) run(form *huh.Form) error {
	check := h.isTerminal
	if check == nil {
		check = Interactive
	}

	if !check() {
		return ErrNoTerminal
	}

	form.WithProgramOptions(tea.WithOutput(os.Stderr))

	err := runFormFunc(form)
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}

	return err
}

func (h *Huh) Select(title string, options []string, current *string) error {
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o)
	}

	return h.run(huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(opts...).
				Value(current),
		),
	))
}

func (h *Huh) Confirm(title string, value *bool) error {
	return h.run(huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(value),
		),
	))
}

func (h *Huh) Input(title string, value *string) error {
	return h.run(huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(value),
		),
	))
}
