package models

import "time"

// Opt is a field that may or may not be part of an update.
// Set distinguishes "leave unchanged" from "set to the zero value / null".
type Opt[T any] struct {
	Set   bool
	Value T
}

// Some returns an Opt carrying v
func Some[T any](v T) Opt[T] {
	return Opt[T]{Set: true, Value: v}
}

// Patch is an explicit partial update: only fields with Set=true change
type Patch struct {
	Title          Opt[string]
	Status         Opt[Status]
	Rating         Opt[*float64]
	Seasons        Opt[*int]
	Episodes       Opt[*int]
	CurrentSeason  Opt[*int]
	CurrentEpisode Opt[*int]
	RewatchCount   Opt[int]
	LastWatchedAt  Opt[*time.Time]
	Note           Opt[*string]
}

// ReplaceWith builds a patch that overwrites every mutable field with r's values
func ReplaceWith(r *Record) Patch {
	c := r.Clone()
	return Patch{
		Title:          Some(c.Title),
		Status:         Some(c.Status),
		Rating:         Some(c.Rating),
		Seasons:        Some(c.Seasons),
		Episodes:       Some(c.Episodes),
		CurrentSeason:  Some(c.CurrentSeason),
		CurrentEpisode: Some(c.CurrentEpisode),
		RewatchCount:   Some(c.RewatchCount),
		LastWatchedAt:  Some(c.LastWatchedAt),
		Note:           Some(c.Note),
	}
}

// IsEmpty reports whether the patch changes nothing
func (p Patch) IsEmpty() bool {
	return !p.Title.Set && !p.Status.Set && !p.Rating.Set &&
		!p.Seasons.Set && !p.Episodes.Set && !p.CurrentSeason.Set && !p.CurrentEpisode.Set &&
		!p.RewatchCount.Set && !p.LastWatchedAt.Set && !p.Note.Set
}

// Apply merges the patch into r. The rewatch count never decreases:
// a smaller value than the stored one is ignored.
func (p Patch) Apply(r *Record) {
	if p.Title.Set {
		r.Title = p.Title.Value
	}
	if p.Status.Set {
		r.Status = p.Status.Value
	}
	if p.Rating.Set {
		r.Rating = clonePtr(p.Rating.Value)
	}
	if p.Seasons.Set {
		r.Seasons = clonePtr(p.Seasons.Value)
	}
	if p.Episodes.Set {
		r.Episodes = clonePtr(p.Episodes.Value)
	}
	if p.CurrentSeason.Set {
		r.CurrentSeason = clonePtr(p.CurrentSeason.Value)
	}
	if p.CurrentEpisode.Set {
		r.CurrentEpisode = clonePtr(p.CurrentEpisode.Value)
	}
	if p.RewatchCount.Set && p.RewatchCount.Value > r.RewatchCount {
		r.RewatchCount = p.RewatchCount.Value
	}
	if p.LastWatchedAt.Set {
		r.LastWatchedAt = clonePtr(p.LastWatchedAt.Value)
	}
	if p.Note.Set {
		r.Note = clonePtr(p.Note.Value)
	}
}
