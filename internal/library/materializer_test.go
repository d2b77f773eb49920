package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/anitrack/internal/library"
	"github.com/vmunix/anitrack/internal/library/mocks"
)

func TestMaterializer_SignedOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()

	st := m.State()
	assert.Nil(t, st.User)
	assert.Empty(t, st.Titles)
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)

	assert.ErrorIs(t, m.Ready(context.Background()), library.ErrNotAuthenticated)
	assert.NoError(t, m.OnSessionChange(context.Background(), nil))
}

func TestMaterializer_LoadingUntilFirstPush(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil)

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub)

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()

	require.NoError(t, m.OnSessionChange(context.Background(), testUser))
	st := m.State()
	assert.True(t, st.Loading)
	assert.Equal(t, testUserID, st.User.ID)
	assert.Empty(t, st.Titles)

	obs.last(t, testUserID).Next([]library.TrackedTitle{{ID: "a", Status: library.StatusWatching}})

	st = m.State()
	assert.False(t, st.Loading)
	assert.Len(t, st.Titles, 1)
	assert.NoError(t, m.Ready(context.Background()))
}

func TestMaterializer_SameUserSubscribesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil)

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub).Times(1)

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()

	ctx := context.Background()
	require.NoError(t, m.OnSessionChange(ctx, testUser))
	require.NoError(t, m.OnSessionChange(ctx, &library.User{ID: testUserID}))
	require.NoError(t, m.OnSessionChange(ctx, testUser))
	assert.Equal(t, 1, obs.count(testUserID))
}

func TestMaterializer_PushReplacesList(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil)

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub)

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()
	require.NoError(t, m.OnSessionChange(context.Background(), testUser))
	o := obs.last(t, testUserID)

	first := []library.TrackedTitle{{ID: "a"}, {ID: "b"}}
	o.Next(first)
	v1 := m.State().Version

	// The store's slice is not aliased.
	first[0].ID = "mutated"
	assert.Equal(t, "a", m.Titles()[0].ID)

	o.Next([]library.TrackedTitle{{ID: "c"}})
	st := m.State()
	assert.Equal(t, []string{"c"}, titleIDs(st.Titles))
	assert.Greater(t, st.Version, v1)

	o.Next(nil)
	assert.Empty(t, m.Titles())
}

// A failure between two snapshots keeps the first list visible, then the
// second push replaces it and clears the error. The list is never emptied.
func TestMaterializer_ErrorKeepsLastList(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil)

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub)

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()
	require.NoError(t, m.OnSessionChange(context.Background(), testUser))
	o := obs.last(t, testUserID)

	a := []library.TrackedTitle{{ID: "a"}, {ID: "b"}}
	b := []library.TrackedTitle{{ID: "b"}, {ID: "c"}, {ID: "d"}}

	o.Next(a)
	assert.Equal(t, []string{"a", "b"}, titleIDs(m.Titles()))

	o.Error(errors.New("network lost"))
	st := m.State()
	assert.Equal(t, []string{"a", "b"}, titleIDs(st.Titles))
	assert.False(t, st.Loading)
	require.Error(t, st.Err)
	assert.ErrorIs(t, st.Err, library.ErrRemoteUnavailable)
	assert.Equal(t, library.KindRemoteUnavailable, library.KindOf(st.Err))

	o.Next(b)
	st = m.State()
	assert.Equal(t, []string{"b", "c", "d"}, titleIDs(st.Titles))
	assert.NoError(t, st.Err)
}

func TestMaterializer_ErrorBeforeFirstPush(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil)

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub)

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()
	require.NoError(t, m.OnSessionChange(context.Background(), testUser))

	obs.last(t, testUserID).Error(errors.New("permission denied"))

	st := m.State()
	assert.False(t, st.Loading)
	assert.Empty(t, st.Titles)
	assert.ErrorIs(t, m.Ready(context.Background()), library.ErrRemoteUnavailable)
}

func TestMaterializer_SubscribeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Subscribe(gomock.Any(), testUserID, gomock.Any()).Return(nil, errors.New("dial tcp: refused"))

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()

	err := m.OnSessionChange(context.Background(), testUser)
	require.ErrorIs(t, err, library.ErrRemoteUnavailable)

	st := m.State()
	assert.False(t, st.Loading)
	assert.ErrorIs(t, st.Err, library.ErrRemoteUnavailable)
	assert.Equal(t, testUserID, st.User.ID)
}

func TestMaterializer_RetriesFailedSubscribe(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil)

	var obs observers
	gomock.InOrder(
		store.EXPECT().Subscribe(gomock.Any(), testUserID, gomock.Any()).Return(nil, errors.New("dial tcp: refused")),
		expectSubscribe(store, &obs, testUserID, sub),
	)

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()

	ctx := context.Background()
	require.ErrorIs(t, m.OnSessionChange(ctx, testUser), library.ErrRemoteUnavailable)

	// The same user again reopens the subscription instead of being ignored.
	require.NoError(t, m.OnSessionChange(ctx, testUser))
	assert.Equal(t, 1, obs.count(testUserID))
	assert.True(t, m.State().Loading)

	obs.last(t, testUserID).Next([]library.TrackedTitle{{ID: "a", Status: library.StatusWatching}})
	st := m.State()
	assert.NoError(t, st.Err)
	assert.Len(t, st.Titles, 1)

	// Once open, repeating the user is a no-op again.
	require.NoError(t, m.OnSessionChange(ctx, testUser))
	assert.Equal(t, 1, obs.count(testUserID))
}

func TestMaterializer_SignOutClosesSubscription(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil).Times(1)

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub)

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()
	ctx := context.Background()
	require.NoError(t, m.OnSessionChange(ctx, testUser))
	o := obs.last(t, testUserID)
	o.Next([]library.TrackedTitle{{ID: "a"}})

	require.NoError(t, m.OnSessionChange(ctx, nil))
	st := m.State()
	assert.Nil(t, st.User)
	assert.Empty(t, st.Titles)
	assert.False(t, st.Loading)

	// Late callbacks from the torn-down subscription are ignored.
	o.Next([]library.TrackedTitle{{ID: "late"}})
	o.Error(errors.New("late"))
	st = m.State()
	assert.Empty(t, st.Titles)
	assert.NoError(t, st.Err)
}

func TestMaterializer_SwitchUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	subA := mocks.NewMockSubscription(ctrl)
	subB := mocks.NewMockSubscription(ctrl)

	var obs observers
	gomock.InOrder(
		expectSubscribe(store, &obs, "user-a", subA),
		subA.EXPECT().Close().Return(nil),
		expectSubscribe(store, &obs, "user-b", subB),
		subB.EXPECT().Close().Return(nil),
	)

	m := library.NewMaterializer(store, discardLogger())
	ctx := context.Background()

	require.NoError(t, m.OnSessionChange(ctx, &library.User{ID: "user-a"}))
	oa := obs.last(t, "user-a")
	oa.Next([]library.TrackedTitle{{ID: "a1"}})

	require.NoError(t, m.OnSessionChange(ctx, &library.User{ID: "user-b"}))
	st := m.State()
	assert.Equal(t, "user-b", st.User.ID)
	assert.Empty(t, st.Titles, "previous user's list is not shown")
	assert.True(t, st.Loading)

	oa.Next([]library.TrackedTitle{{ID: "a2"}})
	assert.Empty(t, m.Titles())

	obs.last(t, "user-b").Next([]library.TrackedTitle{{ID: "b1"}})
	assert.Equal(t, []string{"b1"}, titleIDs(m.Titles()))

	require.NoError(t, m.Close())
}

// Some stores deliver the first snapshot from inside Subscribe.
func TestMaterializer_SynchronousFirstPush(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil)

	store.EXPECT().
		Subscribe(gomock.Any(), testUserID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, o library.Observer) (library.Subscription, error) {
			o.Next([]library.TrackedTitle{{ID: "a"}})
			return sub, nil
		})

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()

	require.NoError(t, m.OnSessionChange(context.Background(), testUser))
	st := m.State()
	assert.False(t, st.Loading)
	assert.Equal(t, []string{"a"}, titleIDs(st.Titles))
}

func TestMaterializer_Lookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	m := signedIn(t, ctrl, store,
		library.TrackedTitle{ID: "a", CatalogID: 5114, Title: "Fullmetal Alchemist: Brotherhood"},
		library.TrackedTitle{ID: "b", CatalogID: 1, Title: "Cowboy Bebop"},
	)

	got, ok := m.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "Cowboy Bebop", got.Title)

	got, ok = m.FindByCatalogID(5114)
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	_, ok = m.Lookup("zzz")
	assert.False(t, ok)
	_, ok = m.FindByCatalogID(99)
	assert.False(t, ok)
}

func TestMaterializer_PartitionsMemoized(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil)

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub)

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()
	require.NoError(t, m.OnSessionChange(context.Background(), testUser))
	o := obs.last(t, testUserID)

	o.Next([]library.TrackedTitle{
		{ID: "a", Status: library.StatusWatching},
		{ID: "b", Status: library.StatusCompleted},
		{ID: "c", Status: library.StatusWatching},
	})

	p1 := m.Partitions()
	p2 := m.Partitions()
	w1, w2 := p1.Of(library.StatusWatching), p2.Of(library.StatusWatching)
	require.Len(t, w1, 2)
	assert.Same(t, &w1[0], &w2[0], "partitions reused until the list changes")

	o.Next([]library.TrackedTitle{{ID: "b", Status: library.StatusCompleted}})
	p3 := m.Partitions()
	assert.Empty(t, p3.Of(library.StatusWatching))
	assert.Equal(t, []string{"b"}, titleIDs(p3.Of(library.StatusCompleted)))
}

func TestMaterializer_Watch(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil)

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub)

	m := library.NewMaterializer(store, discardLogger())
	changes, stop := m.Watch()

	require.NoError(t, m.OnSessionChange(context.Background(), testUser))
	waitSignal(t, changes)

	obs.last(t, testUserID).Next([]library.TrackedTitle{{ID: "a"}})
	waitSignal(t, changes)

	stop()
	stop()
	_, open := <-changes
	assert.False(t, open)

	require.NoError(t, m.Close())
}

func TestMaterializer_Close(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil).Times(1)

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub)

	m := library.NewMaterializer(store, discardLogger())
	changes, _ := m.Watch()
	require.NoError(t, m.OnSessionChange(context.Background(), testUser))
	o := obs.last(t, testUserID)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	for range changes {
	}

	o.Next([]library.TrackedTitle{{ID: "late"}})
	assert.Empty(t, m.Titles())
	assert.Nil(t, m.User())
	assert.Error(t, m.OnSessionChange(context.Background(), testUser))

	late, _ := m.Watch()
	_, open := <-late
	assert.False(t, open)
}

func TestMaterializer_ReadyHonorsContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil)

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub)

	m := library.NewMaterializer(store, discardLogger())
	defer m.Close()
	require.NoError(t, m.OnSessionChange(context.Background(), testUser))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Ready(ctx), context.DeadlineExceeded)
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for change signal")
	}
}

func titleIDs(list []library.TrackedTitle) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}
