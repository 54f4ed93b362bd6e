package catalog

import (
	"net/url"
	"regexp"
	"strings"
)

// Listing is what an Extractor pulls out of a release page: a bare version
// per role and the URLs of downloadable archives.
type Listing struct {
	Roles map[Role]string
	Files []string
}

// Extractor is the boundary between the release page format and the rest of
// the system.
type Extractor interface {
	Extract(base *url.URL, name, doc string) Listing
}

var DefaultAnchors = map[Role]string{
	Latest: "Current stable release",
	LTS:    "Long-term support (LTS) release",
}

// anchorWindow bounds how far after a label the version token may appear.
const anchorWindow = 512

var versionToken = regexp.MustCompile(`v(\d+\.\d+\.\d+(?:-[0-9A-Za-z.]+)?)`)

// Page extracts from the HTML downloads page. Each anchor label is followed
// by a v<major>.<minor>.<patch> token; archive links are recognized by their
// filename alone.
type Page struct {
	Anchors map[Role]string
}

func filePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(
		`([^"'\s<>()]*` + regexp.QuoteMeta(name) +
			`-(\d+\.\d+\.\d+(?:-[0-9A-Za-z.]+)?)` +
			`-(?:linux|musl|freebsd)-(?:x86_64|i686|aarch64|ppc64le)` +
			`\.(?:tar\.gz|tar\.xz|zip))(?:["'\s<>)]|$)`,
	)
}

func (p *Page) Extract(base *url.URL, name, doc string) Listing {
	anchors := p.Anchors
	if anchors == nil {
		anchors = DefaultAnchors
	}

	l := Listing{Roles: map[Role]string{}}

	selected := map[string]struct{}{}

	for role, label := range anchors {
		idx := strings.Index(doc, label)
		if idx == -1 {
			continue
		}

		rest := doc[idx+len(label):]
		if len(rest) > anchorWindow {
			rest = rest[:anchorWindow]
		}

		m := versionToken.FindStringSubmatch(rest)
		if m == nil {
			continue
		}

		l.Roles[role] = m[1]
		selected[m[1]] = struct{}{}
	}

	seen := map[string]struct{}{}

	for _, m := range filePattern(name).FindAllStringSubmatch(doc, -1) {
		if _, ok := selected[m[2]]; !ok {
			continue
		}

		ref := m[1]

		if base != nil {
			if u, err := url.Parse(ref); err == nil {
				ref = base.ResolveReference(u).String()
			}
		}

		if _, ok := seen[ref]; ok {
			continue
		}

		seen[ref] = struct{}{}
		l.Files = append(l.Files, ref)
	}

	return l
}
