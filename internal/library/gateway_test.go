package library_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/anitrack/internal/catalog"
	"github.com/vmunix/anitrack/internal/library"
	"github.com/vmunix/anitrack/internal/library/mocks"
)

func frieren() catalog.Anime {
	return catalog.Anime{
		MalID:    52991,
		Title:    "Sousou no Frieren",
		Episodes: ptr(28),
		Images: catalog.Images{JPG: catalog.ImageSet{
			ImageURL:      "https://cdn.myanimelist.net/images/anime/1015/138006.jpg",
			LargeImageURL: "https://cdn.myanimelist.net/images/anime/1015/138006l.jpg",
		}},
	}
}

func newGateway(t *testing.T, titles ...library.TrackedTitle) (*library.Gateway, *mocks.MockStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	m := signedIn(t, ctrl, store, titles...)
	return library.NewGateway(store, m, discardLogger()), store
}

func signedOutGateway(t *testing.T) *library.Gateway {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	m := library.NewMaterializer(store, discardLogger())
	t.Cleanup(func() { _ = m.Close() })
	return library.NewGateway(store, m, discardLogger())
}

func TestGateway_Add(t *testing.T) {
	g, store := newGateway(t)

	var batch *library.Batch
	store.EXPECT().
		Commit(gomock.Any(), testUserID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, b *library.Batch) error {
			batch = b
			return nil
		})

	got, err := g.Add(context.Background(), frieren(), library.StatusPlanToWatch)
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, int64(52991), got.CatalogID)
	assert.Equal(t, "Sousou no Frieren", got.Title)
	assert.Equal(t, library.StatusPlanToWatch, got.Status)
	assert.Equal(t, 0, got.Progress)
	assert.Equal(t, library.KnownEpisodes(28), got.TotalEpisodes)
	assert.Equal(t, "https://cdn.myanimelist.net/images/anime/1015/138006.jpg", got.ImageURL)

	require.NotNil(t, batch)
	ops := batch.Ops()
	require.Len(t, ops, 2, "create plus profile touch in one batch")
	assert.Equal(t, library.OpCreate, ops[0].Kind)
	assert.Equal(t, got, ops[0].Title)
	assert.Equal(t, library.OpTouchProfile, ops[1].Kind)
}

func TestGateway_Add_DoesNotEditLocalList(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	m := signedIn(t, ctrl, store)
	g := library.NewGateway(store, m, discardLogger())

	store.EXPECT().Commit(gomock.Any(), testUserID, gomock.Any()).Return(nil)

	_, err := g.Add(context.Background(), frieren(), library.StatusWatching)
	require.NoError(t, err)
	assert.Empty(t, m.Titles(), "the list changes only when the store pushes")
}

func TestGateway_Add_Defaults(t *testing.T) {
	g, store := newGateway(t)
	store.EXPECT().Commit(gomock.Any(), testUserID, gomock.Any()).Return(nil)

	entry := frieren()
	entry.Episodes = nil

	got, err := g.Add(context.Background(), entry, "")
	require.NoError(t, err)
	assert.Equal(t, library.StatusPlanToWatch, got.Status)
	assert.False(t, got.TotalEpisodes.Known())
}

func TestGateway_Add_ZeroEpisodesIsUnknown(t *testing.T) {
	g, store := newGateway(t)
	store.EXPECT().Commit(gomock.Any(), testUserID, gomock.Any()).Return(nil)

	entry := frieren()
	entry.Episodes = ptr(0)

	got, err := g.Add(context.Background(), entry, library.StatusWatching)
	require.NoError(t, err)
	assert.False(t, got.TotalEpisodes.Known())

	// An unknown total puts no ceiling on progress and completing leaves it alone.
	assert.NoError(t, library.ValidateProgress(got, 7))
	assert.Nil(t, library.DeriveStatusUpdate(got, library.StatusCompleted).Progress)
}

func TestGateway_Add_Duplicate(t *testing.T) {
	// No Commit expectation: any write fails the test.
	g, _ := newGateway(t, library.TrackedTitle{
		ID: "existing", CatalogID: 52991, Title: "Sousou no Frieren", Status: library.StatusWatching,
	})

	_, err := g.Add(context.Background(), frieren(), library.StatusPlanToWatch)
	require.ErrorIs(t, err, library.ErrDuplicate)
	assert.Equal(t, library.KindDuplicate, library.KindOf(err))
	assert.Contains(t, err.Error(), "Watching")
}

func TestGateway_Add_Validation(t *testing.T) {
	g, _ := newGateway(t)

	_, err := g.Add(context.Background(), frieren(), library.Status("rewatching"))
	assert.ErrorIs(t, err, library.ErrValidation)

	_, err = g.Add(context.Background(), catalog.Anime{Title: "No ID"}, library.StatusWatching)
	assert.ErrorIs(t, err, library.ErrValidation)

	_, err = g.Add(context.Background(), catalog.Anime{MalID: 7}, library.StatusWatching)
	assert.ErrorIs(t, err, library.ErrValidation)
}

func TestGateway_Add_StoreFailure(t *testing.T) {
	g, store := newGateway(t)
	store.EXPECT().Commit(gomock.Any(), testUserID, gomock.Any()).Return(errors.New("connection reset"))

	_, err := g.Add(context.Background(), frieren(), library.StatusPlanToWatch)
	require.ErrorIs(t, err, library.ErrRemoteUnavailable)
	assert.True(t, library.KindOf(err).Transient())
}

func TestGateway_Add_StoreRejectsDuplicate(t *testing.T) {
	g, store := newGateway(t)
	store.EXPECT().Commit(gomock.Any(), testUserID, gomock.Any()).Return(library.ErrDuplicate)

	_, err := g.Add(context.Background(), frieren(), library.StatusPlanToWatch)
	require.ErrorIs(t, err, library.ErrDuplicate)
	assert.NotErrorIs(t, err, library.ErrRemoteUnavailable)
}

// The duplicate check reads the materialized list, which only changes on the
// next push. Two adds issued before that push both reach the store; only a
// uniqueness constraint in the store can reject the second.
func TestGateway_Add_ConcurrentAddsReachStore(t *testing.T) {
	g, store := newGateway(t)
	store.EXPECT().Commit(gomock.Any(), testUserID, gomock.Any()).Return(nil).Times(2)

	first, err := g.Add(context.Background(), frieren(), library.StatusPlanToWatch)
	require.NoError(t, err)
	second, err := g.Add(context.Background(), frieren(), library.StatusWatching)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestGateway_UpdateProgress(t *testing.T) {
	titles := []library.TrackedTitle{
		{ID: "a", Title: "Frieren", Status: library.StatusWatching, Progress: 3, TotalEpisodes: library.KnownEpisodes(12)},
		{ID: "b", Title: "One Piece", Status: library.StatusWatching, Progress: 1000},
	}

	t.Run("within total", func(t *testing.T) {
		g, store := newGateway(t, titles...)
		store.EXPECT().Update(gomock.Any(), testUserID, "a", library.Update{Progress: ptr(12)}).Return(nil)
		require.NoError(t, g.UpdateProgress(context.Background(), "a", 12))
	})

	t.Run("zero", func(t *testing.T) {
		g, store := newGateway(t, titles...)
		store.EXPECT().Update(gomock.Any(), testUserID, "a", library.Update{Progress: ptr(0)}).Return(nil)
		require.NoError(t, g.UpdateProgress(context.Background(), "a", 0))
	})

	t.Run("past total", func(t *testing.T) {
		g, _ := newGateway(t, titles...)
		err := g.UpdateProgress(context.Background(), "a", 13)
		require.ErrorIs(t, err, library.ErrValidation)
	})

	t.Run("negative", func(t *testing.T) {
		g, _ := newGateway(t, titles...)
		err := g.UpdateProgress(context.Background(), "a", -1)
		require.ErrorIs(t, err, library.ErrValidation)
	})

	t.Run("unknown total", func(t *testing.T) {
		g, store := newGateway(t, titles...)
		store.EXPECT().Update(gomock.Any(), testUserID, "b", library.Update{Progress: ptr(1100)}).Return(nil)
		require.NoError(t, g.UpdateProgress(context.Background(), "b", 1100))
	})

	t.Run("missing title", func(t *testing.T) {
		g, _ := newGateway(t, titles...)
		err := g.UpdateProgress(context.Background(), "zzz", 1)
		require.ErrorIs(t, err, library.ErrNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		g, store := newGateway(t, titles...)
		store.EXPECT().Update(gomock.Any(), testUserID, "a", gomock.Any()).Return(errors.New("timeout"))
		err := g.UpdateProgress(context.Background(), "a", 4)
		require.ErrorIs(t, err, library.ErrRemoteUnavailable)
	})
}

func TestGateway_StepProgress(t *testing.T) {
	titles := []library.TrackedTitle{
		{ID: "a", Title: "Frieren", Status: library.StatusWatching, Progress: 3, TotalEpisodes: library.KnownEpisodes(12)},
		{ID: "full", Title: "Bebop", Status: library.StatusOnHold, Progress: 26, TotalEpisodes: library.KnownEpisodes(26)},
		{ID: "zero", Title: "Mushishi", Status: library.StatusWatching, Progress: 0},
		{ID: "ptw", Title: "Monster", Status: library.StatusPlanToWatch},
	}

	t.Run("increment", func(t *testing.T) {
		g, store := newGateway(t, titles...)
		store.EXPECT().Update(gomock.Any(), testUserID, "a", library.Update{Progress: ptr(4)}).Return(nil)
		n, err := g.StepProgress(context.Background(), "a", 1)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("decrement", func(t *testing.T) {
		g, store := newGateway(t, titles...)
		store.EXPECT().Update(gomock.Any(), testUserID, "a", library.Update{Progress: ptr(2)}).Return(nil)
		n, err := g.StepProgress(context.Background(), "a", -1)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("already complete", func(t *testing.T) {
		g, _ := newGateway(t, titles...)
		n, err := g.StepProgress(context.Background(), "full", 1)
		require.ErrorIs(t, err, library.ErrValidation)
		assert.Equal(t, 26, n)
	})

	t.Run("below zero", func(t *testing.T) {
		g, _ := newGateway(t, titles...)
		_, err := g.StepProgress(context.Background(), "zero", -1)
		require.ErrorIs(t, err, library.ErrValidation)
	})

	t.Run("status without progress", func(t *testing.T) {
		g, _ := newGateway(t, titles...)
		_, err := g.StepProgress(context.Background(), "ptw", 1)
		require.ErrorIs(t, err, library.ErrValidation)
	})
}

func TestGateway_UpdateStatus(t *testing.T) {
	titles := []library.TrackedTitle{
		{ID: "a", Title: "Frieren", Status: library.StatusWatching, Progress: 3, TotalEpisodes: library.KnownEpisodes(12)},
		{ID: "done", Title: "Bebop", Status: library.StatusCompleted, Progress: 26, TotalEpisodes: library.KnownEpisodes(26)},
		{ID: "open", Title: "One Piece", Status: library.StatusWatching, Progress: 1000},
	}

	tests := []struct {
		name string
		id   string
		to   library.Status
		want library.Update
	}{
		{"completed sets progress to total", "a", library.StatusCompleted,
			library.Update{Status: ptr(library.StatusCompleted), Progress: ptr(12)}},
		{"watching again restarts", "done", library.StatusWatching,
			library.Update{Status: ptr(library.StatusWatching), Progress: ptr(0)}},
		{"completed with unknown total", "open", library.StatusCompleted,
			library.Update{Status: ptr(library.StatusCompleted)}},
		{"on-hold keeps progress", "a", library.StatusOnHold,
			library.Update{Status: ptr(library.StatusOnHold)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, store := newGateway(t, titles...)
			store.EXPECT().Update(gomock.Any(), testUserID, tt.id, tt.want).Return(nil).Times(1)
			require.NoError(t, g.UpdateStatus(context.Background(), tt.id, tt.to))
		})
	}

	t.Run("invalid status", func(t *testing.T) {
		g, _ := newGateway(t, titles...)
		err := g.UpdateStatus(context.Background(), "a", library.Status("paused"))
		require.ErrorIs(t, err, library.ErrValidation)
	})

	t.Run("missing title", func(t *testing.T) {
		g, _ := newGateway(t, titles...)
		err := g.UpdateStatus(context.Background(), "zzz", library.StatusDropped)
		require.ErrorIs(t, err, library.ErrNotFound)
	})
}

func TestGateway_Delete(t *testing.T) {
	titles := []library.TrackedTitle{{ID: "a", Title: "Frieren", Status: library.StatusDropped}}

	t.Run("deletes", func(t *testing.T) {
		g, store := newGateway(t, titles...)
		store.EXPECT().Delete(gomock.Any(), testUserID, "a").Return(nil)
		require.NoError(t, g.Delete(context.Background(), "a"))
	})

	t.Run("missing title", func(t *testing.T) {
		g, _ := newGateway(t, titles...)
		err := g.Delete(context.Background(), "zzz")
		require.ErrorIs(t, err, library.ErrNotFound)
		assert.Equal(t, library.KindNotFound, library.KindOf(err))
	})

	t.Run("deleted remotely", func(t *testing.T) {
		g, store := newGateway(t, titles...)
		store.EXPECT().Delete(gomock.Any(), testUserID, "a").Return(library.ErrNotFound)
		err := g.Delete(context.Background(), "a")
		require.ErrorIs(t, err, library.ErrNotFound)
		assert.NotErrorIs(t, err, library.ErrRemoteUnavailable)
	})
}

func TestGateway_NotAuthenticated(t *testing.T) {
	g := signedOutGateway(t)
	ctx := context.Background()

	_, err := g.Add(ctx, frieren(), library.StatusWatching)
	assert.ErrorIs(t, err, library.ErrNotAuthenticated)
	assert.ErrorIs(t, g.UpdateProgress(ctx, "a", 1), library.ErrNotAuthenticated)
	assert.ErrorIs(t, g.UpdateStatus(ctx, "a", library.StatusCompleted), library.ErrNotAuthenticated)
	assert.ErrorIs(t, g.Delete(ctx, "a"), library.ErrNotAuthenticated)
	_, err = g.StepProgress(ctx, "a", 1)
	assert.ErrorIs(t, err, library.ErrNotAuthenticated)
}
