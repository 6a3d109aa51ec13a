package course

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/notification"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id int64) (Course, error)
		ListCourses(ctx context.Context) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)

		CreateFaculty(ctx context.Context, f Faculty) (Faculty, error)
		GetFaculty(ctx context.Context, id int64) (Faculty, error)
		ListFaculties(ctx context.Context) ([]Faculty, error)

		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, id int64) (Subject, error)
		// ListSubjects returns subjects ordered by semester then name.
		ListSubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error)
	}

	Notifier interface {
		PostHook(nn notification.NewNotification) func(context.Context) error
	}

	Service struct {
		repo     Repository
		notifier Notifier
		validate *validator.Validate
	}
)

func NewService(repo Repository, notifier Notifier, validate *validator.Validate) *Service {
	return &Service{repo: repo, notifier: notifier, validate: validate}
}

func (svc *Service) CreateCourse(ctx context.Context, capa account.Capability, nc NewCourse) (Course, core.AfterCommit, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return Course{}, nil, err
	}
	nc.Clean()
	if err := svc.validate.Struct(nc); err != nil {
		return Course{}, nil, err
	}
	c, err := svc.repo.CreateCourse(ctx, Course{
		Name:           nc.Name,
		Description:    nc.Description,
		Duration:       nc.Duration,
		Location:       nc.Location,
		AvailableSeats: nc.AvailableSeats,
	})
	if err != nil {
		return Course{}, nil, errors.Wrap(err, "creating course")
	}

	var hooks core.AfterCommit
	hooks.Add("course notification", svc.notifier.PostHook(notification.NewNotification{
		Message:   fmt.Sprintf("New course added: %s\n\n%s\nDuration: %s", c.Name, c.Description, c.Duration),
		CreatedBy: capa.AccountID,
	}))
	return c, hooks, nil
}

// UpdateSeats sets the available seats of a course. It posts no notification.
func (svc *Service) UpdateSeats(ctx context.Context, capa account.Capability, id int64, us UpdateSeats) (Course, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return Course{}, err
	}
	if err := svc.validate.Struct(us); err != nil {
		return Course{}, err
	}
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, errors.Wrap(err, "finding course")
	}
	c.AvailableSeats = *us.AvailableSeats
	if c, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return Course{}, errors.Wrap(err, "updating seats")
	}
	return c, nil
}

func (svc *Service) ListCourses(ctx context.Context) ([]Course, error) {
	cs, err := svc.repo.ListCourses(ctx)
	return cs, errors.Wrap(err, "listing courses")
}

func (svc *Service) CreateFaculty(ctx context.Context, capa account.Capability, nf NewFaculty) (Faculty, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return Faculty{}, err
	}
	nf.Name = core.CleanString(nf.Name)
	if err := svc.validate.Struct(nf); err != nil {
		return Faculty{}, err
	}
	f, err := svc.repo.CreateFaculty(ctx, Faculty{Name: nf.Name})
	return f, errors.Wrap(err, "creating faculty")
}

func (svc *Service) ListFaculties(ctx context.Context) ([]Faculty, error) {
	fs, err := svc.repo.ListFaculties(ctx)
	return fs, errors.Wrap(err, "listing faculties")
}

func (svc *Service) CreateSubject(ctx context.Context, capa account.Capability, ns NewSubject) (Subject, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return Subject{}, err
	}
	ns.Name = core.CleanString(ns.Name)
	if err := svc.validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	if _, err := svc.repo.GetFaculty(ctx, ns.FacultyID); err != nil {
		if core.IsNotFound(err) {
			return Subject{}, core.NewFieldError("faculty_id", "faculty does not exist")
		}
		return Subject{}, errors.Wrap(err, "finding faculty")
	}
	s, err := svc.repo.CreateSubject(ctx, Subject{Name: ns.Name, FacultyID: ns.FacultyID, Semester: ns.Semester})
	return s, errors.Wrap(err, "creating subject")
}

func (svc *Service) GetSubject(ctx context.Context, id int64) (Subject, error) {
	s, err := svc.repo.GetSubject(ctx, id)
	return s, errors.Wrap(err, "finding subject")
}

func (svc *Service) ListSubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error) {
	ss, err := svc.repo.ListSubjects(ctx, filter)
	return ss, errors.Wrap(err, "listing subjects")
}

func (svc *Service) GetFaculty(ctx context.Context, id int64) (Faculty, error) {
	f, err := svc.repo.GetFaculty(ctx, id)
	return f, errors.Wrap(err, "finding faculty")
}
