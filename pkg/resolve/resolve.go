package resolve

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/catalog"
	"lab47.dev/juliaman/pkg/release"
)

type Kind int

const (
	UnknownAlias Kind = iota + 1
	UnsupportedPlatform
	MalformedToken
)

func (k Kind) String() string {
	switch k {
	case UnknownAlias:
		return "unknown-alias"
	case UnsupportedPlatform:
		return "unsupported-platform"
	case MalformedToken:
		return "malformed-token"
	default:
		return "unknown"
	}
}

type ResolutionError struct {
	Kind  Kind
	Token string
	Err   error
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case UnknownAlias:
		return fmt.Sprintf("%q is not bound to a release in the release list", e.Token)
	case UnsupportedPlatform:
		return fmt.Sprintf("cannot resolve %q for this platform: %s", e.Token, e.Err)
	default:
		return fmt.Sprintf("%q is not a valid version: expected latest, lts, 1.2.3, v1.2.3 or a full release name", e.Token)
	}
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func (e *ResolutionError) ExitCode() int {
	return 1
}

// Resolver maps user tokens to release identifiers. Catalog may be nil when
// only installed versions are resolved. Platform is the detected local
// platform; PlatformErr records why detection failed, if it did.
type Resolver struct {
	Name        string
	Catalog     *catalog.Catalog
	Platform    release.Platform
	PlatformErr error
}

func (r *Resolver) local(token string) (release.Platform, error) {
	if r.PlatformErr != nil {
		return release.Platform{}, &ResolutionError{Kind: UnsupportedPlatform, Token: token, Err: r.PlatformErr}
	}

	if !r.Platform.Valid() {
		return release.Platform{}, &ResolutionError{
			Kind:  UnsupportedPlatform,
			Token: token,
			Err:   errors.Errorf("unknown platform %q", r.Platform),
		}
	}

	return r.Platform, nil
}

// Resolve returns the fully qualified identifier token refers to. Aliases
// and unqualified versions are qualified with the local platform, which is
// never musl; fully qualified tokens pass through unchanged.
func (r *Resolver) Resolve(token string) (release.Identifier, error) {
	tok := strings.TrimSpace(token)

	switch catalog.Role(strings.ToLower(tok)) {
	case catalog.Latest, catalog.LTS:
		role := catalog.Role(strings.ToLower(tok))

		var (
			v  release.Version
			ok bool
		)

		if r.Catalog != nil {
			v, ok = r.Catalog.Role(role)
		}

		if !ok {
			return release.Identifier{}, &ResolutionError{Kind: UnknownAlias, Token: tok}
		}

		p, err := r.local(tok)
		if err != nil {
			return release.Identifier{}, err
		}

		return v.Qualify(p), nil
	}

	v, plat, err := release.Split(r.Name, tok)
	if err != nil {
		return release.Identifier{}, &ResolutionError{Kind: MalformedToken, Token: tok, Err: err}
	}

	if plat != nil {
		return v.Qualify(*plat), nil
	}

	p, err := r.local(tok)
	if err != nil {
		return release.Identifier{}, err
	}

	return v.Qualify(p), nil
}

// Installed normalizes token to an unqualified version for lookups in the
// install root. Platform suffixes are accepted and dropped.
func (r *Resolver) Installed(token string) (release.Version, error) {
	tok := strings.TrimSpace(token)

	v, _, err := release.Split(r.Name, tok)
	if err != nil {
		return release.Version{}, &ResolutionError{Kind: MalformedToken, Token: tok, Err: err}
	}

	return v, nil
}
