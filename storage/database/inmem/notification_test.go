package inmemdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/notification"
	inmemdb "github.com/shankerdev/campus/storage/database/inmem"
	"github.com/shankerdev/campus/testutil"
)

// slowMailer counts deliveries, taking long enough for concurrent senders to overlap.
type slowMailer struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (m *slowMailer) SendMessage(context.Context, *core.EmailMessage) error {
	time.Sleep(20 * time.Millisecond)
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return nil
}

func TestTrackerRepository_ClaimRelease(t *testing.T) {
	ctx := context.Background()
	tracker := inmemdb.NewTrackerRepository(inmemdb.Open())
	yesterday, today := testutil.Date(2026, time.October, 14), testutil.Date(2026, time.October, 15)

	claimed, prev, err := tracker.Claim(ctx, "asha", notification.KindAssignment, yesterday)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.True(t, prev.IsZero())

	claimed, prev, err = tracker.Claim(ctx, "asha", notification.KindAssignment, today)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, yesterday, prev)

	claimed, _, err = tracker.Claim(ctx, "asha", notification.KindAssignment, today)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, tracker.Release(ctx, "asha", notification.KindAssignment, today, yesterday))
	ok, err := tracker.ShouldSend(ctx, "asha", notification.KindAssignment, today)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = tracker.ShouldSend(ctx, "asha", notification.KindAssignment, yesterday)
	require.NoError(t, err)
	assert.False(t, ok)

	// releasing a day the row no longer holds changes nothing
	require.NoError(t, tracker.Release(ctx, "asha", notification.KindAssignment, today, core.Date{}))
	ok, err = tracker.ShouldSend(ctx, "asha", notification.KindAssignment, yesterday)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDispatcher_ConcurrentSendOnce(t *testing.T) {
	ctx := context.Background()
	today := testutil.Date(2026, time.October, 15)
	tracker := inmemdb.NewTrackerRepository(inmemdb.Open())
	mailer := &slowMailer{}
	d := notification.NewDispatcher(tracker, mailer, nil)

	send := func() {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = d.SendOnce(ctx, "asha", notification.KindAttendance, today, &core.EmailMessage{})
			}()
		}
		wg.Wait()
	}

	t.Run("failed sends leave the day unclaimed", func(t *testing.T) {
		mailer.err = errors.New("smtp down")
		send()
		ok, err := tracker.ShouldSend(ctx, "asha", notification.KindAttendance, today)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("one email per day", func(t *testing.T) {
		mailer.err = nil
		send()
		send()
		assert.Equal(t, 1, mailer.sent)
	})
}
