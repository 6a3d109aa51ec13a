package profile

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/course"
)

type (
	Repository interface {
		// GetOrCreateProfile returns the profile of accountID, creating an empty one if needed.
		GetOrCreateProfile(ctx context.Context, accountID string) (StudentProfile, error)
		UpdateProfile(ctx context.Context, p StudentProfile) (StudentProfile, error)
		ListProfiles(ctx context.Context, filter Filter) ([]StudentProfile, error)

		// SetTeacherSubjects replaces the subjects taught by teacherID.
		SetTeacherSubjects(ctx context.Context, teacherID string, subjectIDs []int64) error
		TeacherSubjectIDs(ctx context.Context, teacherID string) ([]int64, error)
	}

	Accounts interface {
		Lookup(ctx context.Context, id string) (account.Account, error)
	}

	Subjects interface {
		GetSubject(ctx context.Context, id int64) (course.Subject, error)
		GetFaculty(ctx context.Context, id int64) (course.Faculty, error)
		ListSubjects(ctx context.Context, filter course.SubjectFilter) ([]course.Subject, error)
	}

	Service struct {
		repo     Repository
		accounts Accounts
		subjects Subjects
		validate *validator.Validate
	}
)

func NewService(repo Repository, accounts Accounts, subjects Subjects, validate *validator.Validate) *Service {
	return &Service{repo: repo, accounts: accounts, subjects: subjects, validate: validate}
}

// Provision creates the student profile of a fresh student account.
func (svc *Service) Provision(ctx context.Context, acc account.Account) error {
	if !acc.IsStudent() {
		return nil
	}
	_, err := svc.repo.GetOrCreateProfile(ctx, acc.ID)
	return errors.Wrap(err, "provisioning student profile")
}

// Get returns the profile of the calling student.
func (svc *Service) Get(ctx context.Context, capa account.Capability) (StudentProfile, error) {
	if err := capa.Require(account.RoleStudent); err != nil {
		return StudentProfile{}, err
	}
	return svc.ForStudent(ctx, capa.AccountID)
}

// ForStudent is Get without the capability check, for in-process collaborators.
func (svc *Service) ForStudent(ctx context.Context, studentID string) (StudentProfile, error) {
	p, err := svc.repo.GetOrCreateProfile(ctx, studentID)
	if err != nil {
		return StudentProfile{}, errors.Wrap(err, "getting student profile")
	}
	return p, nil
}

// SemesterOf implements notification.SemesterResolver.
func (svc *Service) SemesterOf(ctx context.Context, accountID string) (null.Int, error) {
	p, err := svc.ForStudent(ctx, accountID)
	if err != nil {
		return null.Int{}, err
	}
	return p.Semester, nil
}

func (svc *Service) SelectSemester(ctx context.Context, capa account.Capability, ss SelectSemester) (StudentProfile, error) {
	if err := capa.Require(account.RoleStudent); err != nil {
		return StudentProfile{}, err
	}
	ss.Clean()
	if err := svc.validate.Struct(ss); err != nil {
		return StudentProfile{}, err
	}
	if ss.FacultyID != nil {
		if _, err := svc.subjects.GetFaculty(ctx, *ss.FacultyID); err != nil {
			if core.IsNotFound(err) {
				return StudentProfile{}, core.NewFieldError("faculty_id", "faculty does not exist")
			}
			return StudentProfile{}, errors.Wrap(err, "finding faculty")
		}
	}

	p, err := svc.ForStudent(ctx, capa.AccountID)
	if err != nil {
		return StudentProfile{}, err
	}
	p.Semester = null.IntFrom(ss.Semester)
	p.Section = null.NewString(ss.Section, ss.Section != "")
	if ss.FacultyID != nil {
		p.FacultyID = null.Int64From(*ss.FacultyID)
	}
	if p, err = svc.repo.UpdateProfile(ctx, p); err != nil {
		return StudentProfile{}, errors.Wrap(err, "updating profile")
	}
	return p, nil
}

// StudentsInSemester lists the profiles of every student in semester.
func (svc *Service) StudentsInSemester(ctx context.Context, semester int) ([]StudentProfile, error) {
	ps, err := svc.repo.ListProfiles(ctx, Filter{Semester: semester})
	return ps, errors.Wrap(err, "listing profiles")
}

// AssignSubjects replaces the subjects a teacher teaches.
func (svc *Service) AssignSubjects(ctx context.Context, capa account.Capability, teacherID string, as AssignSubjects) ([]course.Subject, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return nil, err
	}
	if err := svc.validate.Struct(as); err != nil {
		return nil, err
	}
	teacher, err := svc.accounts.Lookup(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "finding teacher")
	}
	if !teacher.IsTeacher() {
		return nil, core.NewFieldError("teacher_id", "account is not a teacher")
	}
	for _, id := range as.SubjectIDs {
		if _, err = svc.subjects.GetSubject(ctx, id); err != nil {
			if core.IsNotFound(err) {
				return nil, core.NewFieldError("subject_ids", "subject does not exist")
			}
			return nil, errors.Wrap(err, "finding subject")
		}
	}
	if err = svc.repo.SetTeacherSubjects(ctx, teacherID, as.SubjectIDs); err != nil {
		return nil, errors.Wrap(err, "setting teacher subjects")
	}
	return svc.teacherSubjects(ctx, teacherID)
}

// TeacherSubjects lists the subjects of the calling teacher.
func (svc *Service) TeacherSubjects(ctx context.Context, capa account.Capability) ([]course.Subject, error) {
	if err := capa.Require(account.RoleTeacher); err != nil {
		return nil, err
	}
	return svc.teacherSubjects(ctx, capa.AccountID)
}

func (svc *Service) teacherSubjects(ctx context.Context, teacherID string) ([]course.Subject, error) {
	ids, err := svc.repo.TeacherSubjectIDs(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "listing teacher subjects")
	}
	if len(ids) == 0 {
		return []course.Subject{}, nil
	}
	ss, err := svc.subjects.ListSubjects(ctx, course.SubjectFilter{IDs: ids})
	return ss, errors.Wrap(err, "listing subjects")
}
