package catalog

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
)

// decodeEntries reads a JSON array of {"id","name"} objects.
func decodeEntries(d *jx.Decoder) ([]Entry, error) {
	var entries []Entry

	if err := d.Arr(func(d *jx.Decoder) error {
		var e Entry
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "id":
				id, err := d.Int64()
				if err != nil {
					return errors.Wrap(err, "id")
				}
				e.ID = id
				return nil
			case "name":
				name, err := d.Str()
				if err != nil {
					return errors.Wrap(err, "name")
				}
				e.Name = name
				return nil
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode entries")
	}

	return entries, nil
}

func encodeEntries(e *jx.Encoder, entries []Entry) {
	e.ArrStart()
	for _, entry := range entries {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(entry.ID)
		e.FieldStart("name")
		e.Str(entry.Name)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// WriteSnapshot writes entries as a gzip-compressed JSON array. The same
// format backs local snapshot files and the shared payload cache.
func WriteSnapshot(w io.Writer, entries []Entry) error {
	gz := pgzip.NewWriter(w)

	enc := jx.NewStreamingEncoder(gz, -1)
	encodeEntries(enc, entries)
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "flush encoder")
	}

	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "close gzip writer")
	}

	return nil
}

// ReadSnapshot reads a gzip-compressed JSON array written by WriteSnapshot.
func ReadSnapshot(r io.Reader) ([]Entry, error) {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	return decodeEntries(jx.Decode(gz, 4096))
}
