//go:build unit

package queries_test

import (
	"context"
	"testing"
	"time"

	"possync/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConflictStore struct {
	firstPage    []*queries.ActionView
	keysetPage   []*queries.ActionView
	keysetCalls  int
	lastSeenTime time.Time
	lastSeenID   uuid.UUID
}

func (s *fakeConflictStore) ListFirstPage(_ context.Context, _, _ uuid.UUID, limit int32) ([]*queries.ActionView, error) {
	if int(limit) < len(s.firstPage) {
		return s.firstPage[:limit], nil
	}
	return s.firstPage, nil
}

func (s *fakeConflictStore) ListKeyset(_ context.Context, _, _ uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.ActionView, error) {
	s.keysetCalls++
	s.lastSeenTime = lastCreatedAt
	s.lastSeenID = lastID
	if int(limit) < len(s.keysetPage) {
		return s.keysetPage[:limit], nil
	}
	return s.keysetPage, nil
}

func conflictViews(n int, start time.Time) []*queries.ActionView {
	views := make([]*queries.ActionView, n)
	for i := range views {
		views[i] = &queries.ActionView{
			ID:         uuid.New(),
			DeviceID:   uuid.New(),
			ActionType: "SALE_COMPLETE",
			Status:     "CONFLICT",
			CreatedAt:  start.Add(-time.Duration(i) * time.Minute),
		}
	}
	return views
}

func TestListConflicts(t *testing.T) {
	businessID := uuid.New()
	deviceID := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("full page carries a cursor to the last item", func(t *testing.T) {
		store := &fakeConflictStore{firstPage: conflictViews(3, base)}
		q := queries.NewConflictQueries(store)

		page, err := q.ListConflicts(context.Background(), businessID, deviceID, "", 3)

		require.NoError(t, err)
		require.Len(t, page.Items, 3)
		require.NotEmpty(t, page.NextCursor)

		gotTime, gotID, err := queries.DecodeAfterCursor(page.NextCursor)
		require.NoError(t, err)
		last := page.Items[2]
		assert.Equal(t, last.CreatedAt.UnixMicro(), gotTime.UnixMicro())
		assert.Equal(t, last.ID, gotID)
	})

	t.Run("short page means no next cursor", func(t *testing.T) {
		store := &fakeConflictStore{firstPage: conflictViews(2, base)}
		q := queries.NewConflictQueries(store)

		page, err := q.ListConflicts(context.Background(), businessID, deviceID, "", 10)

		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("cursor resumes from the keyset position", func(t *testing.T) {
		store := &fakeConflictStore{keysetPage: conflictViews(1, base)}
		q := queries.NewConflictQueries(store)
		lastID := uuid.New()
		after := queries.EncodeAfterCursor(base, lastID)

		page, err := q.ListConflicts(context.Background(), businessID, deviceID, after, 10)

		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, 1, store.keysetCalls)
		assert.Equal(t, base.UnixMicro(), store.lastSeenTime.UnixMicro())
		assert.Equal(t, lastID, store.lastSeenID)
	})

	t.Run("garbage cursor", func(t *testing.T) {
		q := queries.NewConflictQueries(&fakeConflictStore{})

		_, err := q.ListConflicts(context.Background(), businessID, deviceID, "not-a-cursor", 10)

		require.ErrorIs(t, err, queries.ErrInvalidCursor)
	})
}
