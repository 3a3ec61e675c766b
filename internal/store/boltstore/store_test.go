package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/watchtrack/internal/models"
	"github.com/amaumene/watchtrack/internal/store"
	"github.com/amaumene/watchtrack/internal/store/storetest"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	s, err := Open(path, logger)
	require.NoError(t, err)
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t, filepath.Join(t.TempDir(), "test.db"))
	})
}

func TestRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s := newTestStore(t, path)
	created, err := s.Insert(ctx, &models.Record{Title: "Twin Peaks", Status: models.StatusWatched, Rating: models.Ptr(0.0)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = newTestStore(t, path)
	defer s.Close()

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	storetest.AssertSameRecord(t, created, got)

	next, err := s.Insert(ctx, &models.Record{Title: "Fire Walk", Status: models.StatusUpcoming})
	require.NoError(t, err)
	assert.Greater(t, next.ID, created.ID)
}

func TestNonPositiveIDsAreAbsent(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "ids.db"))
	defer s.Close()
	ctx := context.Background()

	got, err := s.Get(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err := s.Delete(ctx, -1)
	require.NoError(t, err)
	assert.False(t, ok)
}
