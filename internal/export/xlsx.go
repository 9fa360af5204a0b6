package export

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/dealscout/dealscout/internal/check"
)

const sheetName = "Results"

// WriteXLSX renders the snapshot as a single-sheet workbook with the
// same columns the CSV export uses.
func WriteXLSX(w io.Writer, snap check.Snapshot) error {
	cols := columns(snap)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	f.SetSheetName("Sheet1", sheetName)

	for i, col := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return errors.Wrap(err, "header cell")
		}
		if err := f.SetCellValue(sheetName, cell, col.header); err != nil {
			return errors.Wrap(err, "write header")
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	if err := f.SetRowStyle(sheetName, 1, 1, headerStyle); err != nil {
		return errors.Wrap(err, "style header")
	}

	for r, rec := range snap.Records {
		for i, col := range cols {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return errors.Wrap(err, "record cell")
			}
			if err := f.SetCellValue(sheetName, cell, col.cell(rec)); err != nil {
				return errors.Wrap(err, "write record")
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 40); err != nil {
		return errors.Wrap(err, "column width")
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
