package calendar

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/course"
	"github.com/shankerdev/campus/core/notification"
	"github.com/shankerdev/campus/core/profile"
)

type (
	Repository interface {
		CreateExamRoutine(ctx context.Context, r ExamRoutine) (ExamRoutine, error)
		// QueryExamRoutines returns routines by date, undated last.
		QueryExamRoutines(ctx context.Context, filter RoutineFilter) ([]ExamRoutine, error)

		CreateEvent(ctx context.Context, e Event) (Event, error)
		// QueryEvents returns events on or after from, by date.
		QueryEvents(ctx context.Context, from core.Date) ([]Event, error)
	}

	Subjects interface {
		GetSubject(ctx context.Context, id int64) (course.Subject, error)
		ListSubjects(ctx context.Context, filter course.SubjectFilter) ([]course.Subject, error)
	}

	Profiles interface {
		ForStudent(ctx context.Context, studentID string) (profile.StudentProfile, error)
	}

	Notifier interface {
		PostHook(nn notification.NewNotification) func(context.Context) error
	}

	Service struct {
		repo     Repository
		subjects Subjects
		profiles Profiles
		notifier Notifier
		validate *validator.Validate
		conf     *core.Config
	}
)

func NewService(repo Repository, subjects Subjects, profiles Profiles, notifier Notifier, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		subjects: subjects,
		profiles: profiles,
		notifier: notifier,
		validate: validate,
		conf:     conf,
	}
}

func (svc *Service) today() core.Date {
	return core.DateFrom(core.Today(svc.conf.Location()))
}

// CreateExamRoutine publishes a routine. The semester notification is returned as a hook.
func (svc *Service) CreateExamRoutine(ctx context.Context, capa account.Capability, nr NewExamRoutine) (ExamRoutine, core.AfterCommit, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return ExamRoutine{}, nil, err
	}
	nr.Clean()
	if err := svc.validate.Struct(nr); err != nil {
		return ExamRoutine{}, nil, err
	}
	if !nr.StartDate.IsZero() && !nr.EndDate.IsZero() && nr.EndDate.Before(nr.StartDate) {
		return ExamRoutine{}, nil, core.NewFieldError("end_date", "end date cannot be before start date")
	}

	r := ExamRoutine{
		Title:     nr.Title,
		Details:   nr.Details,
		Date:      nr.Date,
		Semester:  null.IntFromPtr(nr.Semester),
		File:      null.NewString(nr.File, nr.File != ""),
		StartDate: nr.StartDate,
		EndDate:   nr.EndDate,
		CreatedAt: core.NowFunc().UTC(),
	}
	if nr.SubjectID != nil {
		subj, err := svc.subjects.GetSubject(ctx, *nr.SubjectID)
		if err != nil {
			if core.IsNotFound(err) {
				return ExamRoutine{}, nil, core.NewFieldError("subject_id", "subject does not exist")
			}
			return ExamRoutine{}, nil, errors.Wrap(err, "finding subject")
		}
		r.SubjectID = null.Int64From(subj.ID)
		if !r.Semester.Valid {
			r.Semester = null.IntFrom(subj.Semester)
		}
	}

	r, err := svc.repo.CreateExamRoutine(ctx, r)
	if err != nil {
		return ExamRoutine{}, nil, errors.Wrap(err, "creating exam routine")
	}

	var hooks core.AfterCommit
	nn := notification.NewNotification{
		Message:   "Exam Routine Uploaded: " + r.Label(),
		CreatedBy: capa.AccountID,
	}
	if r.Semester.Valid {
		sem := r.Semester.Int
		nn.Semester = &sem
	}
	hooks.Add("exam routine notification", svc.notifier.PostHook(nn))
	return r, hooks, nil
}

// StudentExams are the upcoming exams of the subjects of the calling student's semester,
// and the routines of that semester that have a file, newest first.
func (svc *Service) StudentExams(ctx context.Context, capa account.Capability) ([]ExamRoutine, []ExamRoutine, error) {
	if err := capa.Require(account.RoleStudent); err != nil {
		return nil, nil, err
	}
	p, err := svc.profiles.ForStudent(ctx, capa.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if !p.Semester.Valid {
		return []ExamRoutine{}, []ExamRoutine{}, nil
	}

	subjects, err := svc.subjects.ListSubjects(ctx, course.SubjectFilter{Semester: p.Semester.Int})
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing subjects")
	}
	exams := []ExamRoutine{}
	if len(subjects) > 0 {
		ids := make([]int64, 0, len(subjects))
		for _, s := range subjects {
			ids = append(ids, s.ID)
		}
		if exams, err = svc.repo.QueryExamRoutines(ctx, RoutineFilter{SubjectIDs: ids, DateFrom: svc.today()}); err != nil {
			return nil, nil, errors.Wrap(err, "querying exams")
		}
	}

	routines, err := svc.repo.QueryExamRoutines(ctx, RoutineFilter{Semester: p.Semester.Int, HasFile: true})
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying routines")
	}
	sort.SliceStable(routines, func(i, j int) bool { return routines[i].ID > routines[j].ID })
	return exams, routines, nil
}

// ListExamRoutines lists every routine, for admins.
func (svc *Service) ListExamRoutines(ctx context.Context, capa account.Capability) ([]ExamRoutine, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return nil, err
	}
	rs, err := svc.repo.QueryExamRoutines(ctx, RoutineFilter{})
	return rs, errors.Wrap(err, "querying routines")
}

// CreateEvent posts an event. The global notification is returned as a hook.
func (svc *Service) CreateEvent(ctx context.Context, capa account.Capability, ne NewEvent) (Event, core.AfterCommit, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return Event{}, nil, err
	}
	ne.Clean()
	if err := svc.validate.Struct(ne); err != nil {
		return Event{}, nil, err
	}
	e, err := svc.repo.CreateEvent(ctx, Event{
		Title:       ne.Title,
		Description: ne.Description,
		Date:        ne.Date,
		Type:        ne.Type,
		CreatedAt:   core.NowFunc().UTC(),
	})
	if err != nil {
		return Event{}, nil, errors.Wrap(err, "creating event")
	}

	var hooks core.AfterCommit
	hooks.Add("event notification", svc.notifier.PostHook(notification.NewNotification{
		Message:   fmt.Sprintf("New Event: %s on %s\n\n%s", e.Title, e.Date, e.Description),
		CreatedBy: capa.AccountID,
	}))
	return e, hooks, nil
}

// UpcomingEvents lists the events from today on.
func (svc *Service) UpcomingEvents(ctx context.Context) ([]Event, error) {
	es, err := svc.repo.QueryEvents(ctx, svc.today())
	return es, errors.Wrap(err, "querying events")
}
