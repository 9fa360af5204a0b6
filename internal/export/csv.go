package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/go-faster/errors"

	"github.com/dealscout/dealscout/internal/check"
)

// WriteCSV renders the snapshot as CSV with every field quoted. Output
// is a pure function of the snapshot, so exporting the same snapshot
// twice yields byte-identical files.
//
// encoding/csv quotes only when a field forces it; this format quotes
// unconditionally, so rows are written directly.
func WriteCSV(w io.Writer, snap check.Snapshot) error {
	cols := columns(snap)
	bw := bufio.NewWriter(w)

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.header
	}
	if err := writeRow(bw, header); err != nil {
		return errors.Wrap(err, "write header")
	}

	row := make([]string, len(cols))
	for _, rec := range snap.Records {
		for i, col := range cols {
			row[i] = col.cell(rec)
		}
		if err := writeRow(bw, row); err != nil {
			return errors.Wrap(err, "write record")
		}
	}

	return bw.Flush()
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := w.WriteString(strings.ReplaceAll(f, `"`, `""`)); err != nil {
			return err
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
