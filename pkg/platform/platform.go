package platform

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sys/unix"
	"lab47.dev/juliaman/pkg/release"
)

var ErrUnsupported = errors.New("unsupported platform")

// Detect returns the release platform for the running host. Linux hosts are
// always reported as glibc builds, musl hosts included.
func Detect(ctx context.Context) (release.Platform, error) {
	osName, arch := runtime.GOOS, ""

	info, err := host.InfoWithContext(ctx)
	if info != nil {
		if info.OS != "" {
			osName = info.OS
		}

		arch = info.KernelArch
	}

	if arch == "" {
		arch, err = host.KernelArch()
		if err != nil {
			return release.Platform{}, errors.Wrapf(ErrUnsupported, "detecting architecture: %s", err)
		}
	}

	return Normalize(osName, arch)
}

// Normalize maps kernel and Go names onto release tokens.
func Normalize(osName, arch string) (release.Platform, error) {
	var p release.Platform

	switch strings.ToLower(osName) {
	case "linux":
		p.OS = release.Linux
	case "freebsd":
		p.OS = release.FreeBSD
	default:
		return p, errors.Wrapf(ErrUnsupported, "operating system %q", osName)
	}

	switch strings.ToLower(arch) {
	case "x86_64", "amd64":
		p.Arch = release.X86_64
	case "i386", "i486", "i586", "i686", "386":
		p.Arch = release.I686
	case "aarch64", "arm64":
		p.Arch = release.AArch64
	case "ppc64le":
		p.Arch = release.PPC64LE
	default:
		return release.Platform{}, errors.Wrapf(ErrUnsupported, "architecture %q", arch)
	}

	return p, nil
}

// Privileged reports whether this process may modify paths: either it runs
// as root or every path (or its nearest existing parent) is writable.
func Privileged(paths ...string) bool {
	if unix.Geteuid() == 0 {
		return true
	}

	for _, p := range paths {
		if !writable(p) {
			return false
		}
	}

	return true
}

func writable(path string) bool {
	path = filepath.Clean(path)

	for {
		_, err := os.Stat(path)
		if err == nil {
			return unix.Access(path, unix.W_OK) == nil
		}

		if !os.IsNotExist(err) {
			return false
		}

		parent := filepath.Dir(path)
		if parent == path {
			return false
		}

		path = parent
	}
}
