package ops

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

func track(err error) error {
	return errors.WithStack(err)
}

type Op string

const (
	OpInstall   Op = "install"
	OpUninstall Op = "uninstall"
	OpDefault   Op = "default"
	OpCollect   Op = "gc"
)

type Kind int

const (
	PermissionDenied Kind = iota + 1
	NotFound
	MissingDependency
	DownloadFailed
	ExtractFailed
	LinkFailed
	NotInstalled
	PartialFailure
)

func (k Kind) String() string {
	switch k {
	case PermissionDenied:
		return "permission denied"
	case NotFound:
		return "release not found"
	case MissingDependency:
		return "missing dependency"
	case DownloadFailed:
		return "download failed"
	case ExtractFailed:
		return "extract failed"
	case LinkFailed:
		return "link failed"
	case NotInstalled:
		return "not installed"
	case PartialFailure:
		return "partially completed"
	default:
		return "unknown"
	}
}

// Error is returned by the mutating operations. Op install carries the
// InstallError kinds, Op uninstall the UninstallError kinds.
//
// Kinds NotFound, MissingDependency, NotInstalled and PermissionDenied are
// only produced before anything on disk changed. DownloadFailed and
// ExtractFailed are produced after their own step was cleaned up.
// LinkFailed and PartialFailure mean earlier steps took effect; Path then
// names what was left behind.
type Error struct {
	Op      Op
	Kind    Kind
	Subject string
	Path    string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Subject, e.Kind)

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if e.Path != "" {
		msg += fmt.Sprintf(" (left in place: %s)", e.Path)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) ExitCode() int {
	if e.Kind == MissingDependency {
		return 2
	}

	return 1
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}

	return 0
}

func permissionKind(err error, fallback Kind) Kind {
	if errors.Is(err, os.ErrPermission) {
		return PermissionDenied
	}

	return fallback
}
