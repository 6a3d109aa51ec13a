package notification

import (
	"context"

	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
)

// Kind is a category of email limited to one per user per day.
type Kind string

const (
	KindAttendance  Kind = "attendance"
	KindAssignment  Kind = "assignment"
	KindFeeReminder Kind = "fee_reminder"
)

var Kinds = []Kind{KindAttendance, KindAssignment, KindFeeReminder}

// Tracker remembers the last day an email of each kind was sent to a user.
type Tracker interface {
	// ShouldSend is true unless an email of kind was already recorded for userID on day.
	ShouldSend(ctx context.Context, userID string, kind Kind, day core.Date) (bool, error)
	// RecordSent upserts the (userID, kind) row to day. Concurrent calls converge to one row.
	RecordSent(ctx context.Context, userID string, kind Kind, day core.Date) error
	// Claim atomically moves the (userID, kind) row to day unless it is already there.
	// Of concurrent callers for the same day exactly one gets claimed. prev is the day
	// the row held before, zero when there was no row.
	Claim(ctx context.Context, userID string, kind Kind, day core.Date) (claimed bool, prev core.Date, err error)
	// Release undoes a Claim of day by restoring prev, or removing the row when prev is zero.
	// A row that no longer holds day is left alone.
	Release(ctx context.Context, userID string, kind Kind, day, prev core.Date) error
}

// Dispatcher sends emails gated by a Tracker.
type Dispatcher struct {
	tracker Tracker
	mailSvc core.EmailService
	metrics core.Metrics
}

func NewDispatcher(tracker Tracker, mailSvc core.EmailService, metrics core.Metrics) *Dispatcher {
	if metrics == nil {
		metrics = core.NopMetrics
	}
	return &Dispatcher{tracker: tracker, mailSvc: mailSvc, metrics: metrics}
}

// SendOnce sends msg to userID unless an email of kind already went out on day.
// The day is claimed before sending so concurrent callers send at most once; a failed
// send releases the claim and may be retried the same day.
func (d *Dispatcher) SendOnce(ctx context.Context, userID string, kind Kind, day core.Date, msg *core.EmailMessage) (bool, error) {
	claimed, prev, err := d.tracker.Claim(ctx, userID, kind, day)
	if err != nil {
		d.metrics.EmailDispatched(string(kind), core.OutcomeFailed)
		return false, errors.Wrap(err, "claiming notification tracker")
	}
	if !claimed {
		d.metrics.EmailDispatched(string(kind), core.OutcomeSuppressed)
		return false, nil
	}

	if err = d.mailSvc.SendMessage(ctx, msg); err != nil {
		d.metrics.EmailDispatched(string(kind), core.OutcomeFailed)
		if rerr := d.tracker.Release(ctx, userID, kind, day, prev); rerr != nil {
			return false, errors.Wrapf(rerr, "releasing notification tracker after failed %s email: %v", kind, err)
		}
		return false, errors.Wrapf(err, "sending %s email", kind)
	}
	d.metrics.EmailDispatched(string(kind), core.OutcomeSent)
	return true, nil
}

// Send delivers msg without dedup, counting it under kind.
func (d *Dispatcher) Send(ctx context.Context, kind string, msg *core.EmailMessage) error {
	if err := d.mailSvc.SendMessage(ctx, msg); err != nil {
		d.metrics.EmailDispatched(kind, core.OutcomeFailed)
		return err
	}
	d.metrics.EmailDispatched(kind, core.OutcomeSent)
	return nil
}
