package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/profile"
)

var profileColumns = []string{"account_id", "faculty_id", "semester", "section", "attended_days", "total_days"}

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) GetOrCreateProfile(ctx context.Context, accountID string) (profile.StudentProfile, error) {
	ins := psql.Insert("student_profiles").Columns("account_id").Values(accountID).
		Suffix("ON CONFLICT (account_id) DO NOTHING")
	if _, err := exec(ctx, repo.db, ins); err != nil {
		if violates(err, foreignKeyViolation, "") {
			return profile.StudentProfile{}, core.NewNotFoundError("account")
		}
		return profile.StudentProfile{}, errors.Wrap(err, "creating profile")
	}

	var p profile.StudentProfile
	err := get(ctx, repo.db, &p, psql.Select(profileColumns...).From("student_profiles").Where(sq.Eq{"account_id": accountID}))
	if err != nil {
		return profile.StudentProfile{}, trapNoRowsErr(err, "profile", "finding profile")
	}
	return p, nil
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, p profile.StudentProfile) (profile.StudentProfile, error) {
	b := psql.Update("student_profiles").SetMap(map[string]interface{}{
		"faculty_id":    p.FacultyID,
		"semester":      p.Semester,
		"section":       p.Section,
		"attended_days": p.AttendedDays,
		"total_days":    p.TotalDays,
	}).Where(sq.Eq{"account_id": p.AccountID})

	res, err := exec(ctx, repo.db, b)
	if err != nil {
		return profile.StudentProfile{}, errors.Wrap(err, "updating profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return profile.StudentProfile{}, core.NewNotFoundError("profile")
	}
	return p, nil
}

func (repo *profileRepository) ListProfiles(ctx context.Context, filter profile.Filter) ([]profile.StudentProfile, error) {
	b := psql.Select(profileColumns...).From("student_profiles").OrderBy("account_id")
	if filter.Semester != 0 {
		b = b.Where(sq.Eq{"semester": filter.Semester})
	}
	ps := make([]profile.StudentProfile, 0)
	if err := selectAll(ctx, repo.db, &ps, b); err != nil {
		return nil, errors.Wrap(err, "listing profiles")
	}
	return ps, nil
}

func (repo *profileRepository) SetTeacherSubjects(ctx context.Context, teacherID string, subjectIDs []int64) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, psql.Delete("teacher_subjects").Where(sq.Eq{"teacher_id": teacherID})); err != nil {
			return errors.Wrap(err, "clearing teacher subjects")
		}
		if len(subjectIDs) == 0 {
			return nil
		}
		ins := psql.Insert("teacher_subjects").Columns("teacher_id", "subject_id")
		for _, id := range subjectIDs {
			ins = ins.Values(teacherID, id)
		}
		if _, err := exec(ctx, tx, ins.Suffix("ON CONFLICT DO NOTHING")); err != nil {
			return errors.Wrap(err, "setting teacher subjects")
		}
		return nil
	})
}

func (repo *profileRepository) TeacherSubjectIDs(ctx context.Context, teacherID string) ([]int64, error) {
	ids := make([]int64, 0)
	b := psql.Select("subject_id").From("teacher_subjects").Where(sq.Eq{"teacher_id": teacherID}).OrderBy("subject_id")
	if err := selectAll(ctx, repo.db, &ids, b); err != nil {
		return nil, errors.Wrap(err, "querying teacher subjects")
	}
	return ids, nil
}
