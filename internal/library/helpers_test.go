package library_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/anitrack/internal/library"
	"github.com/vmunix/anitrack/internal/library/mocks"
)

const testUserID = "user-1"

var testUser = &library.User{ID: testUserID, Email: "viewer@example.com"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

// observers records the Observer handed to each Subscribe call so tests
// can push snapshots and errors as the store would.
type observers struct {
	mu   sync.Mutex
	byID map[string][]library.Observer
}

func (o *observers) add(userID string, obs library.Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.byID == nil {
		o.byID = make(map[string][]library.Observer)
	}
	o.byID[userID] = append(o.byID[userID], obs)
}

func (o *observers) last(t *testing.T, userID string) library.Observer {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	list := o.byID[userID]
	require.NotEmpty(t, list, "no subscription for %s", userID)
	return list[len(list)-1]
}

func (o *observers) count(userID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.byID[userID])
}

// expectSubscribe allows one Subscribe for userID that captures the
// observer and returns sub.
func expectSubscribe(store *mocks.MockStore, obs *observers, userID string, sub library.Subscription) *gomock.Call {
	return store.EXPECT().
		Subscribe(gomock.Any(), userID, gomock.Any()).
		DoAndReturn(func(_ context.Context, userID string, o library.Observer) (library.Subscription, error) {
			obs.add(userID, o)
			return sub, nil
		})
}

// signedIn returns a Materializer for testUser whose first push was titles.
func signedIn(t *testing.T, ctrl *gomock.Controller, store *mocks.MockStore, titles ...library.TrackedTitle) *library.Materializer {
	t.Helper()

	sub := mocks.NewMockSubscription(ctrl)
	sub.EXPECT().Close().Return(nil).AnyTimes()

	var obs observers
	expectSubscribe(store, &obs, testUserID, sub)

	m := library.NewMaterializer(store, discardLogger())
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.OnSessionChange(context.Background(), testUser))
	obs.last(t, testUserID).Next(titles)
	return m
}
