package archive

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/go-getter"
	"github.com/pkg/errors"
)

var ErrUnsupported = errors.New("no decompressor for archive")

type Extractor interface {
	Supports(path string) bool
	Extract(ctx context.Context, archive, dest string) error
}

// Format returns the longest go-getter decompressor suffix path ends in.
func Format(path string) (string, bool) {
	var archive string

	matchingLen := 0
	for k := range getter.Decompressors {
		if strings.HasSuffix(path, "."+k) && len(k) > matchingLen {
			archive = k
			matchingLen = len(k)
		}
	}

	return archive, matchingLen > 0
}

// Getter unpacks with go-getter's decompressors. Decompression itself is not
// interruptible; ctx is checked before and after.
type Getter struct {
	Umask os.FileMode
}

func (g *Getter) Supports(path string) bool {
	_, ok := Format(path)
	return ok
}

func (g *Getter) Extract(ctx context.Context, archive, dest string) error {
	format, ok := Format(archive)
	if !ok {
		return errors.Wrapf(ErrUnsupported, "%s", archive)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	dec := getter.Decompressors[format]

	err := dec.Decompress(dest, archive, true, g.Umask)
	if err != nil {
		return errors.Wrapf(err, "unable to decompress %s", archive)
	}

	return ctx.Err()
}
