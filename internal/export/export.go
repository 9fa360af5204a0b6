// Package export renders finished check snapshots for download.
package export

import (
	"strconv"

	"github.com/dealscout/dealscout/internal/check"
)

// absent marks a value a record does not carry, e.g. the price of a
// title that was never found.
const absent = "N/A"

// column is one export column: a header plus the cell for a record. CSV
// and workbook output share the same column set so the two formats
// cannot drift apart.
type column struct {
	header string
	cell   func(rec check.GameRecord) string
}

func columns(snap check.Snapshot) []column {
	cols := []column{
		{"Game Name", func(rec check.GameRecord) string { return rec.Name }},
		{"Price", priceCell},
		{"Currency", currencyCell},
		{"Status", func(rec check.GameRecord) string { return string(rec.Status) }},
	}

	switch {
	case snap.Mode == check.ModeWishlist:
		cols = append(cols,
			column{"Date Added", dateAddedCell},
			column{"Priority", priorityCell},
		)
	case snap.HasCards:
		cols = append(cols, column{"Trading Cards", cardsCell})
	}

	return cols
}

func priceCell(rec check.GameRecord) string {
	if !rec.Price.Valid {
		return absent
	}
	// Stored prices are unrounded; rounding happens only here.
	return rec.Price.Decimal.StringFixed(2)
}

func currencyCell(rec check.GameRecord) string {
	if rec.Currency == "" {
		return absent
	}
	return rec.Currency
}

func cardsCell(rec check.GameRecord) string {
	if rec.TradingCards == nil {
		return absent
	}
	if *rec.TradingCards {
		return "Yes"
	}
	return "No"
}

func dateAddedCell(rec check.GameRecord) string {
	if rec.DateAdded.IsZero() {
		return absent
	}
	return rec.DateAdded.Format("2006-01-02")
}

func priorityCell(rec check.GameRecord) string {
	if rec.Status != check.StatusFound {
		return absent
	}
	return strconv.Itoa(rec.Priority)
}
