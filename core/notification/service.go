package notification

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
)

type (
	Repository interface {
		CreateNotifications(ctx context.Context, ns []Notification) ([]Notification, error)
		GetNotification(ctx context.Context, id int64) (Notification, error)
		// QueryVisible returns notifications matching filter, newest first.
		QueryVisible(ctx context.Context, filter VisibleFilter) ([]Notification, error)
		QueryByAuthor(ctx context.Context, authorID string) ([]Notification, error)
		DeleteNotification(ctx context.Context, id int64) error
	}

	// Accounts is the part of account.Service notifications rely on.
	Accounts interface {
		Lookup(ctx context.Context, id string) (account.Account, error)
		ListByRole(ctx context.Context, roles ...account.Role) ([]account.Account, error)
	}

	// SemesterResolver gives the profile semester of a viewer.
	SemesterResolver interface {
		SemesterOf(ctx context.Context, accountID string) (null.Int, error)
	}

	Service struct {
		repo       Repository
		accounts   Accounts
		semesters  SemesterResolver
		dispatcher *Dispatcher
		validate   *validator.Validate
	}
)

func NewService(repo Repository, accounts Accounts, semesters SemesterResolver, dispatcher *Dispatcher, validate *validator.Validate) *Service {
	return &Service{
		repo:       repo,
		accounts:   accounts,
		semesters:  semesters,
		dispatcher: dispatcher,
		validate:   validate,
	}
}

// Create inserts a single notification. It sends nothing.
func (svc *Service) Create(ctx context.Context, nn NewNotification) (Notification, error) {
	ns, err := svc.repo.CreateNotifications(ctx, []Notification{nn.model(core.NowFunc().UTC())})
	if err != nil {
		return Notification{}, errors.Wrap(err, "creating notification")
	}
	return ns[0], nil
}

// PostHook returns a post-commit hook that creates nn.
func (svc *Service) PostHook(nn NewNotification) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := svc.Create(ctx, nn)
		return err
	}
}

// Announce writes the in-app rows for a and returns the email fan-out as hooks.
func (svc *Service) Announce(ctx context.Context, capa account.Capability, a Announcement) (*AnnouncementResult, core.AfterCommit, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return nil, nil, err
	}
	a.Clean()
	if err := svc.validate.Struct(a); err != nil {
		return nil, nil, err
	}

	now := core.NowFunc().UTC()
	var (
		rows       []Notification
		recipients []account.Account
		err        error
	)
	switch a.Target {
	case TargetSemester:
		if a.Semester == nil {
			return nil, nil, core.NewFieldError("semester", "please specify a semester")
		}
		msg := fmt.Sprintf("Announcement (Sem %d): %s\n\n%s", *a.Semester, a.Subject, a.Message)
		rows = append(rows, NewNotification{Message: msg, CreatedBy: capa.AccountID, Semester: a.Semester}.model(now))

	case TargetAllStudentsTeachers:
		if recipients, err = svc.accounts.ListByRole(ctx, account.RoleStudent, account.RoleTeacher); err != nil {
			return nil, nil, errors.Wrap(err, "listing recipients")
		}
		msg := fmt.Sprintf("Admin Announcement: %s\n\n%s", a.Subject, a.Message)
		rows = append(rows, NewNotification{Message: msg, CreatedBy: capa.AccountID}.model(now))

	case TargetAllStudents, TargetSpecific:
		if a.Target == TargetAllStudents {
			if recipients, err = svc.accounts.ListByRole(ctx, account.RoleStudent); err != nil {
				return nil, nil, errors.Wrap(err, "listing recipients")
			}
		} else {
			if len(a.RecipientIDs) == 0 {
				return nil, nil, core.NewFieldError("recipient_ids", "please select at least one recipient")
			}
			if recipients, err = svc.lookupAll(ctx, a.RecipientIDs); err != nil {
				return nil, nil, err
			}
		}
		msg := fmt.Sprintf("Admin Message: %s\n\n%s", a.Subject, a.Message)
		for _, r := range recipients {
			rows = append(rows, NewNotification{Message: msg, CreatedBy: capa.AccountID, RecipientID: r.ID}.model(now))
		}
	}

	result := &AnnouncementResult{}
	if len(rows) > 0 {
		if result.Notifications, err = svc.repo.CreateNotifications(ctx, rows); err != nil {
			return nil, nil, errors.Wrap(err, "creating notifications")
		}
	}

	var hooks core.AfterCommit
	for _, r := range recipients {
		msg := announcementMessage(r, a.Subject, a.Message)
		hooks.Add("announcement email "+r.ID, func(ctx context.Context) error {
			if err := svc.dispatcher.Send(ctx, "announcement", msg); err != nil {
				result.EmailFailed++
				return err
			}
			result.Emailed++
			return nil
		})
	}
	return result, hooks, nil
}

func (svc *Service) lookupAll(ctx context.Context, ids []string) ([]account.Account, error) {
	accs := make([]account.Account, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		acc, err := svc.accounts.Lookup(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				return nil, core.NewFieldError("recipient_ids", fmt.Sprintf("account %s does not exist", id))
			}
			return nil, errors.Wrap(err, "finding recipient")
		}
		accs = append(accs, acc)
	}
	return accs, nil
}

// ForViewer returns every notification visible to capa, newest first.
func (svc *Service) ForViewer(ctx context.Context, capa account.Capability) ([]Notification, error) {
	if err := capa.Require(); err != nil {
		return nil, err
	}
	sem, err := svc.viewerSemester(ctx, capa)
	if err != nil {
		return nil, err
	}
	return svc.query(ctx, VisibleFilter{ViewerID: capa.AccountID, Semester: sem})
}

// StudentFeed is the student dashboard feed: last 7 days, without seat updates.
func (svc *Service) StudentFeed(ctx context.Context, capa account.Capability) ([]Notification, error) {
	if err := capa.Require(account.RoleStudent); err != nil {
		return nil, err
	}
	sem, err := svc.viewerSemester(ctx, capa)
	if err != nil {
		return nil, err
	}
	return svc.query(ctx, VisibleFilter{
		ViewerID:      capa.AccountID,
		Semester:      sem,
		Since:         core.NowFunc().UTC().Add(-7 * 24 * time.Hour),
		ExcludePrefix: seatsUpdatedPrefix,
	})
}

// TeacherFeed is the teacher dashboard feed: the 5 latest untargeted or targeted
// notifications not written by the teacher. Untargeted includes every semester.
func (svc *Service) TeacherFeed(ctx context.Context, capa account.Capability) ([]Notification, error) {
	if err := capa.Require(account.RoleTeacher); err != nil {
		return nil, err
	}
	return svc.query(ctx, VisibleFilter{
		ViewerID:      capa.AccountID,
		AnySemester:   true,
		ExcludeAuthor: capa.AccountID,
		ExcludePrefix: seatsUpdatedPrefix,
		Limit:         5,
	})
}

func (svc *Service) query(ctx context.Context, filter VisibleFilter) ([]Notification, error) {
	ns, err := svc.repo.QueryVisible(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return ns, nil
}

func (svc *Service) viewerSemester(ctx context.Context, capa account.Capability) (null.Int, error) {
	if capa.Role != account.RoleStudent || svc.semesters == nil {
		return null.Int{}, nil
	}
	sem, err := svc.semesters.SemesterOf(ctx, capa.AccountID)
	if err != nil {
		return null.Int{}, errors.Wrap(err, "resolving viewer semester")
	}
	return sem, nil
}

// Sent lists the notifications authored by capa.
func (svc *Service) Sent(ctx context.Context, capa account.Capability) ([]Notification, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return nil, err
	}
	ns, err := svc.repo.QueryByAuthor(ctx, capa.AccountID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sent notifications")
	}
	return ns, nil
}

// Delete removes a notification authored by capa.
func (svc *Service) Delete(ctx context.Context, capa account.Capability, id int64) error {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return err
	}
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return errors.Wrap(err, "finding notification")
	}
	if !n.CreatedBy.Valid || n.CreatedBy.String != capa.AccountID {
		return core.ErrForbidden
	}
	if err = svc.repo.DeleteNotification(ctx, id); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return nil
}

func announcementMessage(acc account.Account, subject, message string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{acc.Address()},
		Subject:      subject,
		TemplateName: "announcement",
		TemplateData: struct{ Name, Message string }{Name: acc.DisplayName(), Message: message},
	}
}
