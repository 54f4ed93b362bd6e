// Package release models runtime release names: a semantic version for a
// named runtime, optionally qualified with the platform it was built for.
//
// The string forms are the ones used in release filenames and install
// directories:
//
//	julia-1.11.0                  Version
//	julia-1.12.0-rc1              Version with a prerelease
//	julia-1.11.0-linux-x86_64     Identifier
package release

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

var ErrMalformed = errors.New("malformed release token")

type OS string

const (
	Linux   OS = "linux"
	Musl    OS = "musl"
	FreeBSD OS = "freebsd"
)

func (o OS) Valid() bool {
	switch o {
	case Linux, Musl, FreeBSD:
		return true
	}

	return false
}

// Libc reports the C library variant a build for o links against.
func (o OS) Libc() string {
	switch o {
	case Linux:
		return "glibc"
	case Musl:
		return "musl"
	default:
		return ""
	}
}

type Arch string

const (
	X86_64  Arch = "x86_64"
	I686    Arch = "i686"
	AArch64 Arch = "aarch64"
	PPC64LE Arch = "ppc64le"
)

func (a Arch) Valid() bool {
	switch a {
	case X86_64, I686, AArch64, PPC64LE:
		return true
	}

	return false
}

type Platform struct {
	OS   OS
	Arch Arch
}

func (p Platform) Valid() bool {
	return p.OS.Valid() && p.Arch.Valid()
}

func (p Platform) String() string {
	return string(p.OS) + "-" + string(p.Arch)
}

func ParsePlatform(s string) (Platform, error) {
	idx := strings.IndexByte(s, '-')
	if idx == -1 {
		return Platform{}, errors.Wrapf(ErrMalformed, "platform %q", s)
	}

	p := Platform{OS: OS(s[:idx]), Arch: Arch(s[idx+1:])}
	if !p.Valid() {
		return Platform{}, errors.Wrapf(ErrMalformed, "platform %q", s)
	}

	return p, nil
}

type Version struct {
	Name string
	sv   *semver.Version
}

func NewVersion(name, ver string) (Version, error) {
	if name == "" {
		return Version{}, errors.Wrapf(ErrMalformed, "missing runtime name for %q", ver)
	}

	sv, err := semver.StrictNewVersion(ver)
	if err != nil {
		return Version{}, errors.Wrapf(ErrMalformed, "version %q: %s", ver, err)
	}

	if sv.Metadata() != "" {
		return Version{}, errors.Wrapf(ErrMalformed, "version %q carries build metadata", ver)
	}

	return Version{Name: name, sv: sv}, nil
}

func (v Version) IsZero() bool {
	return v.sv == nil
}

// Number is the bare version, e.g. 1.12.0-rc1.
func (v Version) Number() string {
	if v.sv == nil {
		return ""
	}

	return v.sv.String()
}

func (v Version) String() string {
	if v.sv == nil {
		return ""
	}

	return v.Name + "-" + v.sv.String()
}

func (v Version) Equal(o Version) bool {
	return v.String() == o.String()
}

// Less orders by semantic version, prereleases before their release, then
// by name.
func (v Version) Less(o Version) bool {
	switch {
	case v.sv == nil:
		return o.sv != nil
	case o.sv == nil:
		return false
	}

	if c := v.sv.Compare(o.sv); c != 0 {
		return c < 0
	}

	return v.Name < o.Name
}

func (v Version) Qualify(p Platform) Identifier {
	return Identifier{Version: v, Platform: p}
}

type Identifier struct {
	Version  Version
	Platform Platform
}

func (i Identifier) IsZero() bool {
	return i.Version.IsZero()
}

func (i Identifier) String() string {
	if i.Version.IsZero() {
		return ""
	}

	return i.Version.String() + "-" + i.Platform.String()
}

func (i Identifier) Equal(o Identifier) bool {
	return i.String() == o.String()
}

// Split parses token as a version that may carry a platform suffix. The
// token may be prefixed with "<name>-" or "v". The returned platform is nil
// when the token is unqualified.
func Split(name, token string) (Version, *Platform, error) {
	s := strings.TrimSpace(token)
	s = strings.TrimPrefix(s, name+"-")
	s = strings.TrimPrefix(s, "v")

	if s == "" {
		return Version{}, nil, errors.Wrapf(ErrMalformed, "empty token %q", token)
	}

	var plat *Platform

	parts := strings.Split(s, "-")
	if n := len(parts); n >= 3 {
		p := Platform{OS: OS(parts[n-2]), Arch: Arch(parts[n-1])}
		if p.Valid() {
			plat = &p
			s = strings.Join(parts[:n-2], "-")
		}
	}

	v, err := NewVersion(name, s)
	if err != nil {
		return Version{}, nil, errors.Wrapf(err, "token %q", token)
	}

	// A half platform suffix would otherwise parse as a prerelease.
	for _, f := range strings.FieldsFunc(v.sv.Prerelease(), func(r rune) bool { return r == '-' || r == '.' }) {
		if OS(f).Valid() || Arch(f).Valid() {
			return Version{}, nil, errors.Wrapf(ErrMalformed, "incomplete platform suffix in %q", token)
		}
	}

	return v, plat, nil
}

func ParseVersion(name, token string) (Version, error) {
	v, p, err := Split(name, token)
	if err != nil {
		return Version{}, err
	}

	if p != nil {
		return Version{}, errors.Wrapf(ErrMalformed, "%q is platform qualified", token)
	}

	return v, nil
}

func ParseIdentifier(name, token string) (Identifier, error) {
	v, p, err := Split(name, token)
	if err != nil {
		return Identifier{}, err
	}

	if p == nil {
		return Identifier{}, errors.Wrapf(ErrMalformed, "%q has no platform suffix", token)
	}

	return v.Qualify(*p), nil
}
