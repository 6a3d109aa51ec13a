package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/coursework"
)

var submissionColumns = []string{"id", "assignment_id", "student_id", "file", "submitted_at"}

// assignments are always read with their submission count.
var selectAssignments = psql.Select(
	"a.id", "a.title", "a.description", "a.subject_id", "a.teacher_id", "a.due_date",
	"a.semester", "a.file", "a.created_at", "a.updated_at",
	"(SELECT COUNT(*) FROM submissions s WHERE s.assignment_id = a.id) AS submission_count",
).From("assignments a")

type courseworkRepository struct {
	db *sqlx.DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *sqlx.DB) *courseworkRepository {
	return &courseworkRepository{db: db}
}

func (repo *courseworkRepository) CreateAssignment(ctx context.Context, a coursework.Assignment) (coursework.Assignment, error) {
	b := psql.Insert("assignments").
		Columns("title", "description", "subject_id", "teacher_id", "due_date", "semester", "file", "created_at", "updated_at").
		Values(a.Title, a.Description, a.SubjectID, a.TeacherID, a.DueDate, a.Semester, a.File, a.CreatedAt.UTC(), a.UpdatedAt.UTC()).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &a.ID, b); err != nil {
		if violates(err, foreignKeyViolation, "assignments_subject_id_fkey") {
			return coursework.Assignment{}, core.NewNotFoundError("subject")
		}
		return coursework.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	a.SubmissionCount = 0
	return a, nil
}

func (repo *courseworkRepository) GetAssignment(ctx context.Context, id int64) (coursework.Assignment, error) {
	var a coursework.Assignment
	if err := get(ctx, repo.db, &a, selectAssignments.Where(sq.Eq{"a.id": id})); err != nil {
		return coursework.Assignment{}, trapNoRowsErr(err, "assignment", "finding assignment")
	}
	return a, nil
}

func (repo *courseworkRepository) UpdateAssignment(ctx context.Context, a coursework.Assignment) (coursework.Assignment, error) {
	b := psql.Update("assignments").SetMap(map[string]interface{}{
		"title":       a.Title,
		"description": a.Description,
		"subject_id":  a.SubjectID,
		"due_date":    a.DueDate,
		"semester":    a.Semester,
		"file":        a.File,
		"updated_at":  a.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": a.ID})
	res, err := exec(ctx, repo.db, b)
	if err != nil {
		return coursework.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coursework.Assignment{}, core.NewNotFoundError("assignment")
	}
	return repo.GetAssignment(ctx, a.ID)
}

func (repo *courseworkRepository) DeleteAssignment(ctx context.Context, id int64) error {
	res, err := exec(ctx, repo.db, psql.Delete("assignments").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError("assignment")
	}
	return nil
}

func (repo *courseworkRepository) QueryAssignments(ctx context.Context, filter coursework.AssignmentFilter) ([]coursework.Assignment, error) {
	b := selectAssignments.OrderBy("a.due_date", "a.id")
	if filter.TeacherID != "" {
		b = b.Where(sq.Eq{"a.teacher_id": filter.TeacherID})
	}
	if filter.Semester != 0 {
		b = b.Where(sq.Eq{"a.semester": filter.Semester})
	}
	if !filter.DueFrom.IsZero() {
		b = b.Where(sq.GtOrEq{"a.due_date": filter.DueFrom})
	}
	as := make([]coursework.Assignment, 0)
	if err := selectAll(ctx, repo.db, &as, b); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return as, nil
}

func (repo *courseworkRepository) CreateSubmission(ctx context.Context, s coursework.Submission) (coursework.Submission, error) {
	b := psql.Insert("submissions").
		Columns("assignment_id", "student_id", "file", "submitted_at").
		Values(s.AssignmentID, s.StudentID, s.File, s.SubmittedAt.UTC()).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &s.ID, b); err != nil {
		switch {
		case violates(err, uniqueViolation, ""):
			return coursework.Submission{}, coursework.ErrAlreadySubmitted
		case violates(err, foreignKeyViolation, "submissions_assignment_id_fkey"):
			return coursework.Submission{}, core.NewNotFoundError("assignment")
		}
		return coursework.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo *courseworkRepository) QuerySubmissions(ctx context.Context, assignmentID int64) ([]coursework.Submission, error) {
	b := psql.Select(submissionColumns...).From("submissions").
		Where(sq.Eq{"assignment_id": assignmentID}).
		OrderBy("submitted_at DESC", "id DESC")
	ss := make([]coursework.Submission, 0)
	if err := selectAll(ctx, repo.db, &ss, b); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return ss, nil
}
