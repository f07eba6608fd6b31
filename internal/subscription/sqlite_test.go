package subscription

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return NewSQLiteStore(db).WithClock(func() time.Time { return fixed })
}

func sample(userID string) *Subscription {
	return &Subscription{
		UserID:      userID,
		NovenaID:    "aparecida",
		NovenaTitle: "Novena a Nossa Senhora Aparecida",
		CurrentDay:  1,
		Active:      true,
		Token:       "token-" + userID,
		Platform:    PlatformAndroid,
	}
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, sample("u1")))

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "aparecida", got.NovenaID)
	assert.Equal(t, 1, got.CurrentDay)
	assert.True(t, got.Active)
	assert.Equal(t, "", got.LastCompleted)
	assert.Equal(t, PlatformAndroid, got.Platform)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), got.UpdatedAt)

	t.Run("upsert replaces the record", func(t *testing.T) {
		s := sample("u1")
		s.NovenaID = "sao-jose"
		s.NovenaTitle = "Novena a São José"
		s.CurrentDay = 4
		s.Platform = PlatformIOS
		require.NoError(t, store.Upsert(ctx, s))

		got, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "sao-jose", got.NovenaID)
		assert.Equal(t, 4, got.CurrentDay)
		assert.Equal(t, PlatformIOS, got.Platform)
	})
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	_, err := newTestStore(t).Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Upsert_Invalid(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name   string
		mutate func(*Subscription)
	}{
		{"missing user", func(s *Subscription) { s.UserID = "" }},
		{"missing novena", func(s *Subscription) { s.NovenaID = "" }},
		{"day zero", func(s *Subscription) { s.CurrentDay = 0 }},
		{"missing token", func(s *Subscription) { s.Token = "" }},
		{"unknown platform", func(s *Subscription) { s.Platform = "symbian" }},
		{"bad date", func(s *Subscription) { s.LastCompleted = "10/03/2026" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sample("u1")
			tt.mutate(s)
			assert.ErrorIs(t, store.Upsert(context.Background(), s), ErrInvalid)
		})
	}
}

func TestSQLiteStore_Progress(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, sample("u1")))

	require.NoError(t, store.MarkCompleted(ctx, "u1", "2026-03-10"))
	require.NoError(t, store.Advance(ctx, "u1"))

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", got.LastCompleted)
	assert.True(t, got.CompletedOn("2026-03-10"))
	assert.False(t, got.CompletedOn("2026-03-11"))
	assert.Equal(t, 2, got.CurrentDay)

	t.Run("rejects malformed date", func(t *testing.T) {
		assert.ErrorIs(t, store.MarkCompleted(ctx, "u1", "2026-3-10"), ErrInvalid)
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.ErrorIs(t, store.MarkCompleted(ctx, "ghost", "2026-03-10"), ErrNotFound)
		assert.ErrorIs(t, store.Advance(ctx, "ghost"), ErrNotFound)
		assert.ErrorIs(t, store.SetActive(ctx, "ghost", false), ErrNotFound)
	})
}

func TestSQLiteStore_ListActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Upsert(ctx, sample(id)))
	}
	require.NoError(t, store.SetActive(ctx, "b", false))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].UserID)
	assert.Equal(t, "c", active[1].UserID)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.False(t, all[1].Active)
}

func TestOpenDB_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "novenad.db")

	db, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteStore(db).Upsert(context.Background(), sample("u1")))
	require.NoError(t, db.Close())

	// Reopening re-runs the migrations against the existing schema.
	db, err = OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	got, err := NewSQLiteStore(db).Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
}
