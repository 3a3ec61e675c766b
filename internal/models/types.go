package models

import "strings"

// Status represents where a record stands in the user's watch queue
type Status string

const (
	StatusWatched     Status = "Watched"
	StatusHalfWatched Status = "Half-watched"
	StatusUpcoming    Status = "Upcoming"
)

// Statuses lists every valid status in display order
var Statuses = []Status{StatusWatched, StatusHalfWatched, StatusUpcoming}

var statusAliases = map[string]Status{
	"watched":      StatusWatched,
	"half-watched": StatusHalfWatched,
	"watching":     StatusHalfWatched,
	"upcoming":     StatusUpcoming,
	"planned":      StatusUpcoming,
	"pending":      StatusUpcoming,
}

// ParseStatus maps a user supplied value onto the closed status set.
// Matching is case-insensitive and accepts a few aliases ("Watching", "Planned").
func ParseStatus(s string) (Status, bool) {
	status, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return status, ok
}

// SortField names a column records can be ordered by
type SortField string

const (
	SortByID             SortField = "id"
	SortByTitle          SortField = "title"
	SortByStatus         SortField = "status"
	SortByRating         SortField = "rating"
	SortBySeasons        SortField = "seasons"
	SortByEpisodes       SortField = "episodes"
	SortByCurrentSeason  SortField = "current_season"
	SortByCurrentEpisode SortField = "current_episode"
	SortByRewatchCount   SortField = "rewatch_count"
	SortByLastWatched    SortField = "last_watched_date"
	SortByCreatedAt      SortField = "created_at"
	SortByUpdatedAt      SortField = "updated_at"
)

// SortFields lists the allowed sort columns
var SortFields = []SortField{
	SortByID,
	SortByTitle,
	SortByStatus,
	SortByRating,
	SortBySeasons,
	SortByEpisodes,
	SortByCurrentSeason,
	SortByCurrentEpisode,
	SortByRewatchCount,
	SortByLastWatched,
	SortByCreatedAt,
	SortByUpdatedAt,
}

// ParseSortField validates a sort column name
func ParseSortField(s string) (SortField, bool) {
	for _, f := range SortFields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Sort describes a full ordering. Ties are always broken by id ascending.
type Sort struct {
	Field      SortField
	Descending bool
}
