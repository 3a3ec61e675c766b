package models

import "time"

// Record represents one tracked TV series
type Record struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`

	Rating *float64 `json:"rating"` // nil means unrated, which is not the same as 0

	// Progress markers
	Seasons        *int `json:"seasons"`
	Episodes       *int `json:"episodes"`
	CurrentSeason  *int `json:"current_season"`
	CurrentEpisode *int `json:"current_episode"`

	RewatchCount  int        `json:"rewatch_count"` // only ever grows
	LastWatchedAt *time.Time `json:"last_watched_date"`
	Note          *string    `json:"note"`

	// Metadata
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can't mutate shared pointer fields
func (r *Record) Clone() *Record {
	c := *r
	c.Rating = clonePtr(r.Rating)
	c.Seasons = clonePtr(r.Seasons)
	c.Episodes = clonePtr(r.Episodes)
	c.CurrentSeason = clonePtr(r.CurrentSeason)
	c.CurrentEpisode = clonePtr(r.CurrentEpisode)
	c.LastWatchedAt = clonePtr(r.LastWatchedAt)
	c.Note = clonePtr(r.Note)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
