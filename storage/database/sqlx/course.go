package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/course"
)

var (
	courseColumns  = []string{"id", "name", "description", "duration", "location", "available_seats"}
	subjectColumns = []string{"id", "name", "faculty_id", "semester"}
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	b := psql.Insert("courses").
		Columns("name", "description", "duration", "location", "available_seats").
		Values(c.Name, c.Description, c.Duration, c.Location, c.AvailableSeats).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &c.ID, b); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int64) (course.Course, error) {
	var c course.Course
	if err := get(ctx, repo.db, &c, psql.Select(courseColumns...).From("courses").Where(sq.Eq{"id": id})); err != nil {
		return course.Course{}, trapNoRowsErr(err, "course", "finding course")
	}
	return c, nil
}

func (repo *courseRepository) ListCourses(ctx context.Context) ([]course.Course, error) {
	cs := make([]course.Course, 0)
	if err := selectAll(ctx, repo.db, &cs, psql.Select(courseColumns...).From("courses").OrderBy("name", "id")); err != nil {
		return nil, errors.Wrap(err, "listing courses")
	}
	return cs, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	b := psql.Update("courses").SetMap(map[string]interface{}{
		"name":            c.Name,
		"description":     c.Description,
		"duration":        c.Duration,
		"location":        c.Location,
		"available_seats": c.AvailableSeats,
	}).Where(sq.Eq{"id": c.ID})
	res, err := exec(ctx, repo.db, b)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, core.NewNotFoundError("course")
	}
	return c, nil
}

func (repo *courseRepository) CreateFaculty(ctx context.Context, f course.Faculty) (course.Faculty, error) {
	b := psql.Insert("faculties").Columns("name").Values(f.Name).Suffix("RETURNING id")
	if err := get(ctx, repo.db, &f.ID, b); err != nil {
		if violates(err, uniqueViolation, "faculties_name_key") {
			return course.Faculty{}, core.NewFieldError("name", "a faculty with this name already exists")
		}
		return course.Faculty{}, errors.Wrap(err, "inserting faculty")
	}
	return f, nil
}

func (repo *courseRepository) GetFaculty(ctx context.Context, id int64) (course.Faculty, error) {
	var f course.Faculty
	if err := get(ctx, repo.db, &f, psql.Select("id", "name").From("faculties").Where(sq.Eq{"id": id})); err != nil {
		return course.Faculty{}, trapNoRowsErr(err, "faculty", "finding faculty")
	}
	return f, nil
}

func (repo *courseRepository) ListFaculties(ctx context.Context) ([]course.Faculty, error) {
	fs := make([]course.Faculty, 0)
	if err := selectAll(ctx, repo.db, &fs, psql.Select("id", "name").From("faculties").OrderBy("name")); err != nil {
		return nil, errors.Wrap(err, "listing faculties")
	}
	return fs, nil
}

func (repo *courseRepository) CreateSubject(ctx context.Context, s course.Subject) (course.Subject, error) {
	b := psql.Insert("subjects").
		Columns("name", "faculty_id", "semester").
		Values(s.Name, s.FacultyID, s.Semester).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &s.ID, b); err != nil {
		if violates(err, foreignKeyViolation, "") {
			return course.Subject{}, core.NewNotFoundError("faculty")
		}
		return course.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo *courseRepository) GetSubject(ctx context.Context, id int64) (course.Subject, error) {
	var s course.Subject
	if err := get(ctx, repo.db, &s, psql.Select(subjectColumns...).From("subjects").Where(sq.Eq{"id": id})); err != nil {
		return course.Subject{}, trapNoRowsErr(err, "subject", "finding subject")
	}
	return s, nil
}

func (repo *courseRepository) ListSubjects(ctx context.Context, filter course.SubjectFilter) ([]course.Subject, error) {
	b := psql.Select(subjectColumns...).From("subjects").OrderBy("semester", "name", "id")
	if filter.Semester != 0 {
		b = b.Where(sq.Eq{"semester": filter.Semester})
	}
	if filter.FacultyID != 0 {
		b = b.Where(sq.Eq{"faculty_id": filter.FacultyID})
	}
	if len(filter.IDs) > 0 {
		b = b.Where(sq.Eq{"id": filter.IDs})
	}
	ss := make([]course.Subject, 0)
	if err := selectAll(ctx, repo.db, &ss, b); err != nil {
		return nil, errors.Wrap(err, "listing subjects")
	}
	return ss, nil
}
