package coursework

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/course"
	"github.com/shankerdev/campus/core/notification"
	"github.com/shankerdev/campus/core/profile"
)

// ErrAlreadySubmitted is returned by repositories on a second (assignment, student) submission.
var ErrAlreadySubmitted = errors.New("you have already submitted this assignment")

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id int64) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id int64) error
		// QueryAssignments returns assignments by due date, with their submission counts.
		QueryAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)

		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		// QuerySubmissions returns the submissions of an assignment, newest first.
		QuerySubmissions(ctx context.Context, assignmentID int64) ([]Submission, error)
	}

	Accounts interface {
		Lookup(ctx context.Context, id string) (account.Account, error)
	}

	Profiles interface {
		ForStudent(ctx context.Context, studentID string) (profile.StudentProfile, error)
		StudentsInSemester(ctx context.Context, semester int) ([]profile.StudentProfile, error)
	}

	Subjects interface {
		GetSubject(ctx context.Context, id int64) (course.Subject, error)
	}

	Notifier interface {
		PostHook(nn notification.NewNotification) func(context.Context) error
	}

	Service struct {
		repo       Repository
		accounts   Accounts
		profiles   Profiles
		subjects   Subjects
		notifier   Notifier
		dispatcher *notification.Dispatcher
		validate   *validator.Validate
		conf       *core.Config
	}
)

func NewService(
	repo Repository,
	accounts Accounts,
	profiles Profiles,
	subjects Subjects,
	notifier Notifier,
	dispatcher *notification.Dispatcher,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		accounts:   accounts,
		profiles:   profiles,
		subjects:   subjects,
		notifier:   notifier,
		dispatcher: dispatcher,
		validate:   validate,
		conf:       conf,
	}
}

func subjectLabel(s course.Subject) string {
	return fmt.Sprintf("%s (Sem %d)", s.Name, s.Semester)
}

func (svc *Service) checkAssignment(ctx context.Context, na *NewAssignment) (course.Subject, error) {
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return course.Subject{}, err
	}
	subj, err := svc.subjects.GetSubject(ctx, na.SubjectID)
	if err != nil {
		if core.IsNotFound(err) {
			return course.Subject{}, core.NewFieldError("subject_id", "subject does not exist")
		}
		return course.Subject{}, errors.Wrap(err, "finding subject")
	}
	return subj, nil
}

// Create posts an assignment. The semester notification and the deduplicated
// emails to the semester's students are returned as hooks.
func (svc *Service) Create(ctx context.Context, capa account.Capability, na NewAssignment) (Assignment, core.AfterCommit, error) {
	if err := capa.Require(account.RoleTeacher); err != nil {
		return Assignment{}, nil, err
	}
	subj, err := svc.checkAssignment(ctx, &na)
	if err != nil {
		return Assignment{}, nil, err
	}

	now := core.NowFunc().UTC()
	a, err := svc.repo.CreateAssignment(ctx, Assignment{
		Title:       na.Title,
		Description: na.Description,
		SubjectID:   na.SubjectID,
		TeacherID:   capa.AccountID,
		DueDate:     na.DueDate,
		Semester:    na.Semester,
		File:        null.NewString(na.File, na.File != ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Assignment{}, nil, errors.Wrap(err, "creating assignment")
	}

	var hooks core.AfterCommit
	sem := a.Semester
	hooks.Add("assignment notification", svc.notifier.PostHook(notification.NewNotification{
		Message: fmt.Sprintf("New Assignment: %s (Sem %d)\nSubject: %s\nDue Date: %s\n\nDescription: %s",
			a.Title, a.Semester, subjectLabel(subj), a.DueDate, a.Description),
		CreatedBy: capa.AccountID,
		Semester:  &sem,
	}))
	hooks.Add("assignment emails", svc.emailSemester(a, subj, capa.AccountID))
	return a, hooks, nil
}

// emailSemester emails every student of a's semester, at most once per student per day.
func (svc *Service) emailSemester(a Assignment, subj course.Subject, teacherID string) func(context.Context) error {
	return func(ctx context.Context) error {
		teacher, err := svc.accounts.Lookup(ctx, teacherID)
		if err != nil {
			return errors.Wrap(err, "finding teacher")
		}
		students, err := svc.profiles.StudentsInSemester(ctx, a.Semester)
		if err != nil {
			return err
		}
		today := core.DateFrom(core.Today(svc.conf.Location()))
		var failed int
		var lastErr error
		for _, p := range students {
			st, err := svc.accounts.Lookup(ctx, p.AccountID)
			if err != nil {
				failed++
				lastErr = err
				continue
			}
			if _, err = svc.dispatcher.SendOnce(ctx, st.ID, notification.KindAssignment, today, assignmentMessage(st, teacher, a, subj)); err != nil {
				failed++
				lastErr = err
			}
		}
		if failed > 0 {
			return errors.Wrapf(lastErr, "%d of %d assignment emails failed", failed, len(students))
		}
		return nil
	}
}

// owned returns the assignment id when it belongs to teacherID, and a not-found error otherwise.
func (svc *Service) owned(ctx context.Context, id int64, teacherID string) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "finding assignment")
	}
	if a.TeacherID != teacherID {
		return Assignment{}, core.NewNotFoundError("assignment")
	}
	return a, nil
}

func (svc *Service) Update(ctx context.Context, capa account.Capability, id int64, ua UpdateAssignment) (Assignment, core.AfterCommit, error) {
	if err := capa.Require(account.RoleTeacher); err != nil {
		return Assignment{}, nil, err
	}
	a, err := svc.owned(ctx, id, capa.AccountID)
	if err != nil {
		return Assignment{}, nil, err
	}
	na := NewAssignment(ua)
	subj, err := svc.checkAssignment(ctx, &na)
	if err != nil {
		return Assignment{}, nil, err
	}

	a.Title = na.Title
	a.Description = na.Description
	a.SubjectID = na.SubjectID
	a.DueDate = na.DueDate
	a.Semester = na.Semester
	a.File = null.NewString(na.File, na.File != "")
	a.UpdatedAt = core.NowFunc().UTC()
	if a, err = svc.repo.UpdateAssignment(ctx, a); err != nil {
		return Assignment{}, nil, errors.Wrap(err, "updating assignment")
	}

	var hooks core.AfterCommit
	sem := a.Semester
	hooks.Add("assignment notification", svc.notifier.PostHook(notification.NewNotification{
		Message: fmt.Sprintf("Assignment Updated: %s (Sem %d)\nSubject: %s\nNew Due Date: %s\n\nDescription: %s",
			a.Title, a.Semester, subjectLabel(subj), a.DueDate, a.Description),
		CreatedBy: capa.AccountID,
		Semester:  &sem,
	}))
	return a, hooks, nil
}

func (svc *Service) Delete(ctx context.Context, capa account.Capability, id int64) (core.AfterCommit, error) {
	if err := capa.Require(account.RoleTeacher); err != nil {
		return nil, err
	}
	a, err := svc.owned(ctx, id, capa.AccountID)
	if err != nil {
		return nil, err
	}
	if err = svc.repo.DeleteAssignment(ctx, a.ID); err != nil {
		return nil, errors.Wrap(err, "deleting assignment")
	}

	var hooks core.AfterCommit
	sem := a.Semester
	hooks.Add("assignment notification", svc.notifier.PostHook(notification.NewNotification{
		Message:   fmt.Sprintf("Assignment Deleted: %s (Sem %d)\nThis assignment has been removed by the teacher.", a.Title, a.Semester),
		CreatedBy: capa.AccountID,
		Semester:  &sem,
	}))
	return hooks, nil
}

// Get returns an assignment to its teacher or to a student of its semester.
func (svc *Service) Get(ctx context.Context, capa account.Capability, id int64) (Assignment, error) {
	if err := capa.Require(account.RoleTeacher, account.RoleStudent); err != nil {
		return Assignment{}, err
	}
	if capa.Role == account.RoleTeacher {
		return svc.owned(ctx, id, capa.AccountID)
	}
	return svc.forStudent(ctx, id, capa.AccountID)
}

func (svc *Service) forStudent(ctx context.Context, id int64, studentID string) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "finding assignment")
	}
	p, err := svc.profiles.ForStudent(ctx, studentID)
	if err != nil {
		return Assignment{}, err
	}
	if !p.Semester.Valid || p.Semester.Int != a.Semester {
		return Assignment{}, core.NewNotFoundError("assignment")
	}
	return a, nil
}

// List returns the calling teacher's assignments, or the open assignments of the calling student's semester.
func (svc *Service) List(ctx context.Context, capa account.Capability) ([]Assignment, error) {
	if err := capa.Require(account.RoleTeacher, account.RoleStudent); err != nil {
		return nil, err
	}
	var filter AssignmentFilter
	if capa.Role == account.RoleTeacher {
		filter.TeacherID = capa.AccountID
	} else {
		p, err := svc.profiles.ForStudent(ctx, capa.AccountID)
		if err != nil {
			return nil, err
		}
		if !p.Semester.Valid {
			return []Assignment{}, nil
		}
		filter.Semester = p.Semester.Int
		filter.DueFrom = core.DateFrom(core.Today(svc.conf.Location()))
	}
	as, err := svc.repo.QueryAssignments(ctx, filter)
	return as, errors.Wrap(err, "querying assignments")
}

// Submit hands in the calling student's work. The teacher is notified through a hook.
func (svc *Service) Submit(ctx context.Context, capa account.Capability, assignmentID int64, ns NewSubmission) (Submission, core.AfterCommit, error) {
	if err := capa.Require(account.RoleStudent); err != nil {
		return Submission{}, nil, err
	}
	ns.File = core.CleanString(ns.File)
	if err := svc.validate.Struct(ns); err != nil {
		return Submission{}, nil, err
	}
	a, err := svc.forStudent(ctx, assignmentID, capa.AccountID)
	if err != nil {
		return Submission{}, nil, err
	}
	student, err := svc.accounts.Lookup(ctx, capa.AccountID)
	if err != nil {
		return Submission{}, nil, errors.Wrap(err, "finding student")
	}

	s, err := svc.repo.CreateSubmission(ctx, Submission{
		AssignmentID: a.ID,
		StudentID:    capa.AccountID,
		File:         ns.File,
		SubmittedAt:  core.NowFunc().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadySubmitted {
			return Submission{}, nil, core.NewValidationError(ErrAlreadySubmitted)
		}
		return Submission{}, nil, errors.Wrap(err, "creating submission")
	}

	var hooks core.AfterCommit
	hooks.Add("submission notification", svc.notifier.PostHook(notification.NewNotification{
		Message:     fmt.Sprintf("New Submission: %s submitted %s", student.DisplayName(), a.Title),
		CreatedBy:   capa.AccountID,
		RecipientID: a.TeacherID,
	}))
	return s, hooks, nil
}

// Submissions lists the submissions of an assignment to its teacher, newest first.
func (svc *Service) Submissions(ctx context.Context, capa account.Capability, assignmentID int64) ([]Submission, error) {
	if err := capa.Require(account.RoleTeacher); err != nil {
		return nil, err
	}
	if _, err := svc.owned(ctx, assignmentID, capa.AccountID); err != nil {
		return nil, err
	}
	ss, err := svc.repo.QuerySubmissions(ctx, assignmentID)
	return ss, errors.Wrap(err, "querying submissions")
}

func assignmentMessage(student, teacher account.Account, a Assignment, subj course.Subject) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{student.Address()},
		Subject:      "New Assignment: " + a.Title,
		TemplateName: "assignment_created",
		TemplateData: struct {
			Name, Teacher, Title, Subject, DueDate, Description string
			Semester                                            int
		}{
			Name:        student.DisplayName(),
			Teacher:     teacher.DisplayName(),
			Title:       a.Title,
			Subject:     subj.Name,
			DueDate:     a.DueDate.Long(),
			Description: a.Description,
			Semester:    a.Semester,
		},
	}
}
