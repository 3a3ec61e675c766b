package handlers

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/amaumene/watchtrack/internal/models"
)

// recordBody is the JSON shape accepted by create and replace
type recordBody struct {
	Title          string     `json:"title"`
	Status         string     `json:"status"`
	Rating         *float64   `json:"rating"`
	Seasons        *int       `json:"seasons"`
	Episodes       *int       `json:"episodes"`
	CurrentSeason  *int       `json:"current_season"`
	CurrentEpisode *int       `json:"current_episode"`
	RewatchCount   *int       `json:"rewatch_count"`
	LastWatchedAt  *time.Time `json:"last_watched_date"`
	Note           *string    `json:"note"`
}

func decodeStrict(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("invalid JSON body: trailing data")
	}
	return nil
}

func decodeRecord(body []byte) (*models.Record, error) {
	var in recordBody
	if err := decodeStrict(body, &in); err != nil {
		return nil, err
	}

	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	status, err := validStatus(in.Status)
	if err != nil {
		return nil, err
	}
	if err := checkRating(in.Rating); err != nil {
		return nil, err
	}
	counts := []struct {
		name  string
		value *int
	}{
		{"seasons", in.Seasons},
		{"episodes", in.Episodes},
		{"current_season", in.CurrentSeason},
		{"current_episode", in.CurrentEpisode},
		{"rewatch_count", in.RewatchCount},
	}
	for _, f := range counts {
		if err := checkCount(f.name, f.value); err != nil {
			return nil, err
		}
	}

	r := &models.Record{
		Title:          title,
		Status:         status,
		Rating:         in.Rating,
		Seasons:        in.Seasons,
		Episodes:       in.Episodes,
		CurrentSeason:  in.CurrentSeason,
		CurrentEpisode: in.CurrentEpisode,
		LastWatchedAt:  utcPtr(in.LastWatchedAt),
		Note:           in.Note,
	}
	if in.RewatchCount != nil {
		r.RewatchCount = *in.RewatchCount
	}
	return r, nil
}

// decodePatch builds a patch from the keys present in the body. A key set
// to null clears an optional field; required fields may not be null.
func decodePatch(body []byte) (models.Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.Patch{}, badRequest("invalid JSON body: %v", err)
	}

	var p models.Patch
	for key, value := range raw {
		isNull := bytes.Equal(bytes.TrimSpace(value), []byte("null"))

		switch key {
		case "title":
			var s string
			if isNull || json.Unmarshal(value, &s) != nil {
				return models.Patch{}, badRequest("title must be a string")
			}
			title, err := validTitle(s)
			if err != nil {
				return models.Patch{}, err
			}
			p.Title = models.Some(title)

		case "status":
			var s string
			if isNull || json.Unmarshal(value, &s) != nil {
				return models.Patch{}, badRequest("status must be a string")
			}
			status, err := validStatus(s)
			if err != nil {
				return models.Patch{}, err
			}
			p.Status = models.Some(status)

		case "rating":
			var v *float64
			if err := json.Unmarshal(value, &v); err != nil {
				return models.Patch{}, badRequest("rating must be a number")
			}
			if err := checkRating(v); err != nil {
				return models.Patch{}, err
			}
			p.Rating = models.Some(v)

		case "seasons", "episodes", "current_season", "current_episode":
			var v *int
			if err := json.Unmarshal(value, &v); err != nil {
				return models.Patch{}, badRequest("%s must be an integer", key)
			}
			if err := checkCount(key, v); err != nil {
				return models.Patch{}, err
			}
			opt := models.Some(v)
			switch key {
			case "seasons":
				p.Seasons = opt
			case "episodes":
				p.Episodes = opt
			case "current_season":
				p.CurrentSeason = opt
			default:
				p.CurrentEpisode = opt
			}

		case "rewatch_count":
			var v int
			if isNull || json.Unmarshal(value, &v) != nil {
				return models.Patch{}, badRequest("rewatch_count must be an integer")
			}
			if err := checkCount(key, &v); err != nil {
				return models.Patch{}, err
			}
			p.RewatchCount = models.Some(v)

		case "last_watched_date":
			var v *time.Time
			if err := json.Unmarshal(value, &v); err != nil {
				return models.Patch{}, badRequest("last_watched_date must be an RFC 3339 timestamp")
			}
			p.LastWatchedAt = models.Some(utcPtr(v))

		case "note":
			var v *string
			if err := json.Unmarshal(value, &v); err != nil {
				return models.Patch{}, badRequest("note must be a string")
			}
			p.Note = models.Some(v)

		default:
			return models.Patch{}, badRequest("unknown field %q", key)
		}
	}

	if p.IsEmpty() {
		return models.Patch{}, badRequest("patch must set at least one field")
	}
	return p, nil
}

func validTitle(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", badRequest("title must not be blank")
	}
	return s, nil
}

func validStatus(s string) (models.Status, error) {
	status, ok := models.ParseStatus(s)
	if !ok {
		return "", badRequest("status must be one of %s", statusList())
	}
	return status, nil
}

func checkRating(v *float64) error {
	if v != nil && !validRating(*v) {
		return badRequest("rating must be between 0 and 10")
	}
	return nil
}

func checkCount(name string, v *int) error {
	if v != nil && *v < 0 {
		return badRequest("%s must not be negative", name)
	}
	return nil
}

func statusList() string {
	names := make([]string, len(models.Statuses))
	for i, s := range models.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC().Truncate(time.Microsecond)
	return &u
}

func requireBody(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("request body is required")
	}
	return nil
}
