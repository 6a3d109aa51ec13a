package fee

import (
	"context"
	"fmt"
	"net/mail"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/notification"
)

type (
	Repository interface {
		CreateDue(ctx context.Context, d Due) (Due, error)
		// QueryDues returns dues by due date.
		QueryDues(ctx context.Context, filter Filter) ([]Due, error)
	}

	Accounts interface {
		Lookup(ctx context.Context, id string) (account.Account, error)
	}

	Notifier interface {
		PostHook(nn notification.NewNotification) func(context.Context) error
	}

	Service struct {
		repo       Repository
		accounts   Accounts
		notifier   Notifier
		dispatcher *notification.Dispatcher
		validate   *validator.Validate
		conf       *core.Config
	}
)

func NewService(repo Repository, accounts Accounts, notifier Notifier, dispatcher *notification.Dispatcher, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:       repo,
		accounts:   accounts,
		notifier:   notifier,
		dispatcher: dispatcher,
		validate:   validate,
		conf:       conf,
	}
}

func (svc *Service) today() core.Date {
	return core.DateFrom(core.Today(svc.conf.Location()))
}

// Create records a fee due. The fee alert notification and the reminder email are returned as hooks.
func (svc *Service) Create(ctx context.Context, capa account.Capability, nd NewDue) (Due, core.AfterCommit, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return Due{}, nil, err
	}
	if err := svc.validate.Struct(nd); err != nil {
		return Due{}, nil, err
	}
	student, err := svc.accounts.Lookup(ctx, nd.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Due{}, nil, core.NewFieldError("student_id", "student does not exist")
		}
		return Due{}, nil, errors.Wrap(err, "finding student")
	}
	if !student.IsStudent() {
		return Due{}, nil, core.NewFieldError("student_id", "account is not a student")
	}

	d, err := svc.repo.CreateDue(ctx, Due{
		StudentID:   student.ID,
		AmountCents: nd.AmountCents,
		DueDate:     nd.DueDate,
		CreatedAt:   core.NowFunc().UTC(),
	})
	if err != nil {
		return Due{}, nil, errors.Wrap(err, "creating fee due")
	}

	var hooks core.AfterCommit
	hooks.Add("fee notification", svc.notifier.PostHook(notification.NewNotification{
		Message:     fmt.Sprintf("Fee Alert: You have a fee due of %s by %s", d.Amount(), d.DueDate),
		CreatedBy:   capa.AccountID,
		RecipientID: student.ID,
	}))
	today := svc.today()
	hooks.Add("fee reminder email", func(ctx context.Context) error {
		_, err := svc.dispatcher.SendOnce(ctx, student.ID, notification.KindFeeReminder, today, reminderMessage(student, d))
		return err
	})
	return d, hooks, nil
}

// Mine lists every due of the calling student by due date.
func (svc *Service) Mine(ctx context.Context, capa account.Capability) ([]Due, error) {
	if err := capa.Require(account.RoleStudent); err != nil {
		return nil, err
	}
	ds, err := svc.repo.QueryDues(ctx, Filter{StudentID: capa.AccountID})
	return ds, errors.Wrap(err, "querying dues")
}

// Upcoming lists the calling student's dues from today on.
func (svc *Service) Upcoming(ctx context.Context, capa account.Capability) ([]Due, error) {
	if err := capa.Require(account.RoleStudent); err != nil {
		return nil, err
	}
	ds, err := svc.repo.QueryDues(ctx, Filter{StudentID: capa.AccountID, DueFrom: svc.today()})
	return ds, errors.Wrap(err, "querying dues")
}

// RemindUpcoming emails every student with a due in [today, today+windowDays], at most once
// per student per day. It is meant for the scheduler, not for request handlers.
func (svc *Service) RemindUpcoming(ctx context.Context, today core.Date, windowDays int) (ReminderSummary, error) {
	if today.IsZero() {
		today = svc.today()
	}
	if windowDays < 0 {
		return ReminderSummary{}, errors.Errorf("invalid reminder window %d", windowDays)
	}
	dues, err := svc.repo.QueryDues(ctx, Filter{DueFrom: today, DueTo: today.AddDays(windowDays)})
	if err != nil {
		return ReminderSummary{}, errors.Wrap(err, "querying upcoming dues")
	}

	// the earliest due of each student is the one worth reminding
	earliest := make(map[string]Due)
	for _, d := range dues {
		if cur, ok := earliest[d.StudentID]; !ok || d.DueDate.Before(cur.DueDate) {
			earliest[d.StudentID] = d
		}
	}
	ids := make([]string, 0, len(earliest))
	for id := range earliest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	summary := ReminderSummary{Students: len(ids)}
	var lastErr error
	for _, id := range ids {
		if err = ctx.Err(); err != nil {
			return summary, err
		}
		student, err := svc.accounts.Lookup(ctx, id)
		if err != nil {
			summary.Failed++
			lastErr = err
			continue
		}
		sent, err := svc.dispatcher.SendOnce(ctx, id, notification.KindFeeReminder, today, reminderMessage(student, earliest[id]))
		switch {
		case err != nil && !sent:
			summary.Failed++
			lastErr = err
		case sent:
			summary.Sent++
		default:
			summary.Suppressed++
		}
	}
	if summary.Failed > 0 {
		return summary, errors.Wrapf(lastErr, "%d fee reminders failed", summary.Failed)
	}
	return summary, nil
}

func reminderMessage(student account.Account, d Due) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{student.Address()},
		Subject:      "Fee Payment Reminder - ShankerDev Campus",
		TemplateName: "fee_reminder",
		TemplateData: struct{ Name, Amount, DueDate string }{
			Name:    student.DisplayName(),
			Amount:  d.Amount(),
			DueDate: d.DueDate.Long(),
		},
	}
}
