package check

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/dealscout/internal/pipeline"
	"github.com/dealscout/dealscout/internal/resolve"
)

// --- Helpers ---

func newTestRun(mode Mode, names ...string) *Run {
	runner := pipeline.NewRunner(100, pipeline.NewPacer(0))
	return newRun(uuid.New().String(), mode, names, false, runner)
}

func listing(retail, keyshops, currency string) *PriceInfo {
	info := &PriceInfo{Currency: currency}
	if retail != "" {
		info.Retail = decimal.NewNullDecimal(decimal.RequireFromString(retail))
	}
	if keyshops != "" {
		info.Keyshops = decimal.NewNullDecimal(decimal.RequireFromString(keyshops))
	}
	return info
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// --- Tests ---

func TestPriceInfoBest(t *testing.T) {
	tests := []struct {
		name     string
		info     *PriceInfo
		want     string
		wantNone bool
	}{
		{name: "keyshops cheaper", info: listing("9.99", "7.49", "USD"), want: "7.49"},
		{name: "retail cheaper", info: listing("4.99", "7.49", "USD"), want: "4.99"},
		{name: "retail null", info: listing("", "5.00", "USD"), want: "5.00"},
		{name: "keyshops null", info: listing("5.00", "", "USD"), want: "5.00"},
		{name: "both null", info: listing("", "", "USD"), wantNone: true},
		{name: "unrounded comparison", info: listing("7.491", "7.489", "USD"), want: "7.489"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, ok := tt.info.Best()
			if tt.wantNone {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.True(t, d(tt.want).Equal(best), "got %s", best)
		})
	}
}

func TestApplyResolution(t *testing.T) {
	run := newTestRun(ModeDeals, "Half-Life 2", "Unknown", "Half-Life 2")

	ids := run.applyResolution([]resolve.Match{{ID: 10}, {ID: 0}, {ID: 10}})

	// Duplicates enqueue independently; the unresolved title never does.
	assert.Equal(t, []int64{10, 10}, ids)

	snap := run.Snapshot()
	assert.Equal(t, StatusPending, snap.Records[0].Status)
	assert.Equal(t, StatusNotFound, snap.Records[1].Status)
	assert.Zero(t, snap.Records[1].ID)
	assert.Equal(t, StatusPending, snap.Records[2].Status)
}

func TestApplyPrices(t *testing.T) {
	run := newTestRun(ModeDeals, "A", "B", "C", "A again")
	run.applyResolution([]resolve.Match{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 1}})

	run.applyPrices([]int64{1, 2, 3, 1}, PriceMap{
		1: listing("9.99", "7.49", "USD"),
		2: nil, // explicitly unlisted
		// 3 missing from the response entirely
	})

	snap := run.Snapshot()

	first := snap.Records[0]
	assert.Equal(t, StatusFound, first.Status)
	require.True(t, first.Price.Valid)
	assert.True(t, d("7.49").Equal(first.Price.Decimal))
	assert.Equal(t, "USD", first.Currency)

	assert.Equal(t, StatusNotFound, snap.Records[1].Status)
	assert.False(t, snap.Records[1].Price.Valid)

	assert.Equal(t, StatusNotFound, snap.Records[2].Status)

	// The duplicate settles from the same listing.
	dup := snap.Records[3]
	assert.Equal(t, StatusFound, dup.Status)
	assert.True(t, d("7.49").Equal(dup.Price.Decimal))
}

func TestApplyPrices_ListedWithoutNumbers(t *testing.T) {
	run := newTestRun(ModeDeals, "A")
	run.applyResolution([]resolve.Match{{ID: 1}})

	run.applyPrices([]int64{1}, PriceMap{1: listing("", "", "EUR")})

	rec := run.Snapshot().Records[0]
	assert.Equal(t, StatusFound, rec.Status)
	assert.False(t, rec.Price.Valid)
	assert.Equal(t, "EUR", rec.Currency)
}

func TestApplyPrices_ForwardOnly(t *testing.T) {
	run := newTestRun(ModeDeals, "A")
	run.applyResolution([]resolve.Match{{ID: 1}})
	run.markError([]int64{1})

	// A late result for a settled record is dropped.
	run.applyPrices([]int64{1}, PriceMap{1: listing("9.99", "", "USD")})

	rec := run.Snapshot().Records[0]
	assert.Equal(t, StatusError, rec.Status)
	assert.False(t, rec.Price.Valid)
}

func TestMarkError(t *testing.T) {
	run := newTestRun(ModeDeals, "A", "B")
	run.applyResolution([]resolve.Match{{ID: 1}, {ID: 2}})

	run.markError([]int64{1})

	snap := run.Snapshot()
	assert.Equal(t, StatusError, snap.Records[0].Status)
	assert.Equal(t, StatusPending, snap.Records[1].Status)
}

func TestFail_SettlesPendingOnly(t *testing.T) {
	run := newTestRun(ModeDeals, "A", "B")
	run.applyResolution([]resolve.Match{{ID: 0}, {ID: 2}})

	run.fail("upstream exploded")

	snap := run.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "upstream exploded", snap.Failure)
	assert.Equal(t, StatusNotFound, snap.Records[0].Status)
	assert.Equal(t, StatusError, snap.Records[1].Status)
}

func TestApplyWishlist(t *testing.T) {
	run := newTestRun(ModeWishlist, "On List", "Off List", "Unresolved")
	added := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	run.applyWishlist(
		[]resolve.Match{{ID: 10}, {ID: 20}, {ID: 0}},
		map[int64]WishlistItem{10: {Priority: 3, DateAdded: added}},
	)

	snap := run.Snapshot()

	hit := snap.Records[0]
	assert.Equal(t, StatusFound, hit.Status)
	assert.Equal(t, 3, hit.Priority)
	assert.Equal(t, added, hit.DateAdded)

	assert.Equal(t, StatusNotFound, snap.Records[1].Status)
	assert.Equal(t, StatusNotFound, snap.Records[2].Status)
}

func TestRunStates_TerminalIsSticky(t *testing.T) {
	run := newTestRun(ModeDeals, "A")
	run.setCancelled()
	run.finish()

	assert.Equal(t, StateCancelled, run.Snapshot().State)
}

func TestSnapshot_IsACopy(t *testing.T) {
	run := newTestRun(ModeDeals, "A")
	run.applyResolution([]resolve.Match{{ID: 1}})

	snap := run.Snapshot()
	run.markError([]int64{1})

	assert.Equal(t, StatusPending, snap.Records[0].Status)
	assert.Equal(t, StatusError, run.Snapshot().Records[0].Status)
}
