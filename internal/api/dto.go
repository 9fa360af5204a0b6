package api

import (
	"time"

	"github.com/dealscout/dealscout/internal/check"
)

type createCheckRequest struct {
	Mode         string   `json:"mode"`
	Names        []string `json:"names"`
	WishlistUser string   `json:"wishlistUser,omitempty"`
	Country      string   `json:"country,omitempty"`
}

type createCheckResponse struct {
	ID string `json:"id"`
}

type checkResponse struct {
	ID        string      `json:"id"`
	Mode      string      `json:"mode"`
	State     string      `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
	Failure   string      `json:"failure,omitempty"`
	Progress  progressDTO `json:"progress"`
	Records   []recordDTO `json:"records"`
}

type progressDTO struct {
	ChunksDone    int        `json:"chunks_done"`
	ChunksTotal   int        `json:"chunks_total"`
	NextRequestAt *time.Time `json:"next_request_at,omitempty"`
}

type recordDTO struct {
	Name         string     `json:"name"`
	ID           int64      `json:"id"`
	Price        string     `json:"price,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	Status       string     `json:"status"`
	TradingCards *bool      `json:"trading_cards,omitempty"`
	DateAdded    *time.Time `json:"date_added,omitempty"`
	Priority     *int       `json:"priority,omitempty"`
}

func toCheckResponse(snap check.Snapshot) checkResponse {
	records := make([]recordDTO, len(snap.Records))
	for i, rec := range snap.Records {
		records[i] = toRecordDTO(snap, rec)
	}

	resp := checkResponse{
		ID:        snap.ID,
		Mode:      string(snap.Mode),
		State:     string(snap.State),
		CreatedAt: snap.CreatedAt,
		Failure:   snap.Failure,
		Progress: progressDTO{
			ChunksDone:  snap.Progress.ChunksDone,
			ChunksTotal: snap.Progress.ChunksTotal,
		},
		Records: records,
	}
	if !snap.Progress.NextRequestAt.IsZero() {
		t := snap.Progress.NextRequestAt
		resp.Progress.NextRequestAt = &t
	}

	return resp
}

func toRecordDTO(snap check.Snapshot, rec check.GameRecord) recordDTO {
	dto := recordDTO{
		Name:     rec.Name,
		ID:       rec.ID,
		Currency: rec.Currency,
		Status:   string(rec.Status),
	}

	if rec.Price.Valid {
		// Stored prices stay unrounded; the API renders two decimals.
		dto.Price = rec.Price.Decimal.StringFixed(2)
	}
	if snap.HasCards && rec.TradingCards != nil {
		dto.TradingCards = rec.TradingCards
	}
	if snap.Mode == check.ModeWishlist {
		if !rec.DateAdded.IsZero() {
			t := rec.DateAdded
			dto.DateAdded = &t
		}
		if rec.Status == check.StatusFound {
			p := rec.Priority
			dto.Priority = &p
		}
	}

	return dto
}
