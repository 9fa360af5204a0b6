package catalog

import (
	"context"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Source supplies the complete catalog listing.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

// FileSource loads the catalog from a local snapshot file: plain JSON, or
// the gzip-compressed form written by WriteSnapshot when the path ends in
// ".gz".
type FileSource struct {
	Path string
}

// Load reads and decodes the snapshot file.
func (s FileSource) Load(_ context.Context) ([]Entry, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.Path)
	}
	defer func() { _ = f.Close() }()

	if strings.HasSuffix(s.Path, ".gz") {
		return ReadSnapshot(f)
	}

	return decodeEntries(jx.Decode(f, 4096))
}
