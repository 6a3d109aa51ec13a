package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/calendar"
)

var (
	routineColumns = []string{
		"id", "title", "details", "subject_id", "date", "semester",
		"file", "start_date", "end_date", "created_at",
	}
	eventColumns = []string{"id", "title", "description", "date", "type", "created_at"}
)

type calendarRepository struct {
	db *sqlx.DB
}

var _ calendar.Repository = (*calendarRepository)(nil) // interface compliance check

func NewCalendarRepository(db *sqlx.DB) *calendarRepository {
	return &calendarRepository{db: db}
}

func (repo *calendarRepository) CreateExamRoutine(ctx context.Context, r calendar.ExamRoutine) (calendar.ExamRoutine, error) {
	b := psql.Insert("exam_routines").
		Columns(routineColumns[1:]...).
		Values(r.Title, r.Details, r.SubjectID, r.Date, r.Semester, r.File, r.StartDate, r.EndDate, r.CreatedAt.UTC()).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &r.ID, b); err != nil {
		return calendar.ExamRoutine{}, errors.Wrap(err, "inserting exam routine")
	}
	return r, nil
}

func (repo *calendarRepository) QueryExamRoutines(ctx context.Context, filter calendar.RoutineFilter) ([]calendar.ExamRoutine, error) {
	b := psql.Select(routineColumns...).From("exam_routines").OrderBy("date ASC NULLS LAST", "id")
	if filter.Semester != 0 {
		b = b.Where(sq.Eq{"semester": filter.Semester})
	}
	if len(filter.SubjectIDs) > 0 {
		b = b.Where(sq.Eq{"subject_id": filter.SubjectIDs})
	}
	if !filter.DateFrom.IsZero() {
		b = b.Where(sq.GtOrEq{"date": filter.DateFrom})
	}
	if filter.HasFile {
		b = b.Where(sq.And{sq.NotEq{"file": nil}, sq.NotEq{"file": ""}})
	}
	rs := make([]calendar.ExamRoutine, 0)
	if err := selectAll(ctx, repo.db, &rs, b); err != nil {
		return nil, errors.Wrap(err, "querying exam routines")
	}
	return rs, nil
}

func (repo *calendarRepository) CreateEvent(ctx context.Context, e calendar.Event) (calendar.Event, error) {
	b := psql.Insert("events").
		Columns(eventColumns[1:]...).
		Values(e.Title, e.Description, e.Date, e.Type, e.CreatedAt.UTC()).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &e.ID, b); err != nil {
		return calendar.Event{}, errors.Wrap(err, "inserting event")
	}
	return e, nil
}

func (repo *calendarRepository) QueryEvents(ctx context.Context, from core.Date) ([]calendar.Event, error) {
	b := psql.Select(eventColumns...).From("events").OrderBy("date", "id")
	if !from.IsZero() {
		b = b.Where(sq.GtOrEq{"date": from})
	}
	es := make([]calendar.Event, 0)
	if err := selectAll(ctx, repo.db, &es, b); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	return es, nil
}
