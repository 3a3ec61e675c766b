package controllers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/amaumene/watchtrack/internal/models"
	"github.com/amaumene/watchtrack/internal/store"
)

// Suggestion is a title close to a search term that may not contain it
type Suggestion struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Distance int    `json:"distance"`
}

// Suggest returns up to limit titles within edit distance of term, allowing
// one edit per three characters of the term.
// A title containing term scores zero; otherwise the closest of the whole
// title or any single word counts.
func (c *RecordsController) Suggest(ctx context.Context, term string, limit int) (out []Suggestion, err error) {
	ctx, done := c.begin(ctx, "suggest")
	defer func() { done(err) }()

	key := store.FoldTitle(strings.TrimSpace(term))
	if key == "" {
		return nil, fmt.Errorf("%w: query must not be empty", models.ErrInvalidRequest)
	}

	recs, err := c.store.Scan(ctx, store.Query{})
	if err != nil {
		return nil, err
	}

	maxDistance := (utf8.RuneCountInString(key) + 2) / 3

	out = make([]Suggestion, 0)
	for _, r := range recs {
		d := titleDistance(key, store.FoldTitle(r.Title))
		if d <= maxDistance {
			out = append(out, Suggestion{ID: r.ID, Title: r.Title, Distance: d})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func titleDistance(key, title string) int {
	if strings.Contains(title, key) {
		return 0
	}
	best := levenshtein.ComputeDistance(key, title)
	for _, word := range strings.Fields(title) {
		if d := levenshtein.ComputeDistance(key, word); d < best {
			best = d
		}
	}
	return best
}
