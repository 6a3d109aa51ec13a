package notification

import (
	"context"
	"errors"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankerdev/campus/core"
)

type trackerKey struct {
	userID string
	kind   Kind
}

type fakeTracker struct {
	mu   sync.Mutex
	last map[trackerKey]core.Date
	err  error
}

func (tr *fakeTracker) ShouldSend(_ context.Context, userID string, kind Kind, day core.Date) (bool, error) {
	if tr.err != nil {
		return false, tr.err
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return !tr.last[trackerKey{userID, kind}].Equal(day), nil
}

func (tr *fakeTracker) RecordSent(_ context.Context, userID string, kind Kind, day core.Date) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.last == nil {
		tr.last = make(map[trackerKey]core.Date)
	}
	tr.last[trackerKey{userID, kind}] = day
	return nil
}

func (tr *fakeTracker) Claim(_ context.Context, userID string, kind Kind, day core.Date) (bool, core.Date, error) {
	if tr.err != nil {
		return false, core.Date{}, tr.err
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.last == nil {
		tr.last = make(map[trackerKey]core.Date)
	}
	key := trackerKey{userID, kind}
	prev := tr.last[key]
	if prev.Equal(day) {
		return false, prev, nil
	}
	tr.last[key] = day
	return true, prev, nil
}

func (tr *fakeTracker) Release(_ context.Context, userID string, kind Kind, day, prev core.Date) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	key := trackerKey{userID, kind}
	if !tr.last[key].Equal(day) {
		return nil
	}
	if prev.IsZero() {
		delete(tr.last, key)
	} else {
		tr.last[key] = prev
	}
	return nil
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []*core.EmailMessage
	err   error
	delay time.Duration
}

func (m *fakeMailer) SendMessage(_ context.Context, msg *core.EmailMessage) error {
	time.Sleep(m.delay)
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (m *countingMetrics) EmailDispatched(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string]int)
	}
	m.outcomes[kind+"/"+outcome]++
}
func (m *countingMetrics) AttendanceMarked(string) {}
func (m *countingMetrics) HookFailed(string)       {}

func TestDispatcher_SendOnce(t *testing.T) {
	ctx := context.Background()
	today := core.NewDate(2026, time.October, 15)
	msg := &core.EmailMessage{To: []mail.Address{{Address: "asha@campus.np"}}, Subject: "Low Attendance Alert"}

	tracker := &fakeTracker{}
	mailer := &fakeMailer{}
	metrics := &countingMetrics{}
	d := NewDispatcher(tracker, mailer, metrics)

	// delivery fails: nothing is recorded so a later call retries
	mailer.err = errors.New("smtp down")
	sent, err := d.SendOnce(ctx, "asha", KindAttendance, today, msg)
	require.Error(t, err)
	assert.False(t, sent)
	assert.Empty(t, tracker.last)

	mailer.err = nil
	sent, err = d.SendOnce(ctx, "asha", KindAttendance, today, msg)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = d.SendOnce(ctx, "asha", KindAttendance, today, msg)
	require.NoError(t, err)
	assert.False(t, sent)

	// another kind or another day is not suppressed
	sent, err = d.SendOnce(ctx, "asha", KindFeeReminder, today, msg)
	require.NoError(t, err)
	assert.True(t, sent)
	sent, err = d.SendOnce(ctx, "asha", KindAttendance, today.AddDays(1), msg)
	require.NoError(t, err)
	assert.True(t, sent)

	assert.Len(t, mailer.sent, 3)
	assert.Equal(t, map[string]int{
		"attendance/" + core.OutcomeFailed:     1,
		"attendance/" + core.OutcomeSent:       2,
		"attendance/" + core.OutcomeSuppressed: 1,
		"fee_reminder/" + core.OutcomeSent:     1,
	}, metrics.outcomes)
}

func TestDispatcher_SendOnceConcurrent(t *testing.T) {
	ctx := context.Background()
	day := core.NewDate(2026, time.October, 15)
	mailer := &fakeMailer{delay: 20 * time.Millisecond}
	metrics := &countingMetrics{}
	d := NewDispatcher(&fakeTracker{}, mailer, metrics)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.SendOnce(ctx, "asha", KindAttendance, day, &core.EmailMessage{Subject: "Low Attendance Alert"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, 7, metrics.outcomes["attendance/"+core.OutcomeSuppressed])
}

func TestDispatcher_ReleaseAfterFailure(t *testing.T) {
	ctx := context.Background()
	yesterday, today := core.NewDate(2026, time.October, 14), core.NewDate(2026, time.October, 15)
	tracker := &fakeTracker{last: map[trackerKey]core.Date{{"asha", KindFeeReminder}: yesterday}}
	mailer := &fakeMailer{err: errors.New("smtp down")}
	d := NewDispatcher(tracker, mailer, nil)

	_, err := d.SendOnce(ctx, "asha", KindFeeReminder, today, &core.EmailMessage{})
	require.Error(t, err)
	assert.Equal(t, yesterday, tracker.last[trackerKey{"asha", KindFeeReminder}], "the previous day is restored")

	mailer.err = nil
	sent, err := d.SendOnce(ctx, "asha", KindFeeReminder, today, &core.EmailMessage{})
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestDispatcher_TrackerError(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(&fakeTracker{err: errors.New("db gone")}, mailer, nil)

	sent, err := d.SendOnce(context.Background(), "asha", KindAssignment, core.NewDate(2026, time.October, 15), &core.EmailMessage{})
	assert.Error(t, err)
	assert.False(t, sent)
	assert.Empty(t, mailer.sent)
}

func TestDispatcher_Send(t *testing.T) {
	mailer := &fakeMailer{}
	metrics := &countingMetrics{}
	d := NewDispatcher(&fakeTracker{}, mailer, metrics)

	require.NoError(t, d.Send(context.Background(), "announcement", &core.EmailMessage{}))
	require.NoError(t, d.Send(context.Background(), "announcement", &core.EmailMessage{}))
	assert.Len(t, mailer.sent, 2)
	assert.Equal(t, 2, metrics.outcomes["announcement/"+core.OutcomeSent])
}
