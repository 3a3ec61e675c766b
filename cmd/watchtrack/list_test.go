package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/watchtrack/internal/models"
)

func TestPrintRecords(t *testing.T) {
	watched := time.Now().Add(-3 * time.Hour)
	recs := []*models.Record{
		{ID: 1, Title: "Dark", Status: models.StatusWatched, Rating: models.Ptr(8.7), CurrentSeason: models.Ptr(3), CurrentEpisode: models.Ptr(8), RewatchCount: 1, LastWatchedAt: &watched},
		{ID: 2, Title: "Ozark", Status: models.StatusUpcoming},
	}

	var buf bytes.Buffer
	require.NoError(t, printRecords(&buf, recs))

	out := buf.String()
	assert.Contains(t, out, "LAST WATCHED")
	assert.Contains(t, out, "S03E08")
	assert.Contains(t, out, "8.7")
	assert.Contains(t, out, "3 hours ago")
	assert.Contains(t, out, "never")
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "-", formatProgress(&models.Record{}))
	assert.Equal(t, "S02E00", formatProgress(&models.Record{CurrentSeason: models.Ptr(2)}))
}
