package inmemdb

import (
	"context"
	"sort"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/calendar"
)

type calendarRepository struct {
	db *DB
}

var _ calendar.Repository = (*calendarRepository)(nil) // interface compliance check

func NewCalendarRepository(db *DB) *calendarRepository {
	return &calendarRepository{db: db}
}

func (repo *calendarRepository) CreateExamRoutine(_ context.Context, r calendar.ExamRoutine) (calendar.ExamRoutine, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	r.ID = repo.db.nextID()
	repo.db.routines[r.ID] = &r
	return r, nil
}

func (repo *calendarRepository) QueryExamRoutines(_ context.Context, filter calendar.RoutineFilter) ([]calendar.ExamRoutine, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var subjects map[int64]bool
	if len(filter.SubjectIDs) > 0 {
		subjects = make(map[int64]bool, len(filter.SubjectIDs))
		for _, id := range filter.SubjectIDs {
			subjects[id] = true
		}
	}
	rs := make([]calendar.ExamRoutine, 0)
	for _, r := range repo.db.routines {
		if filter.Semester != 0 && (!r.Semester.Valid || r.Semester.Int != filter.Semester) {
			continue
		}
		if subjects != nil && (!r.SubjectID.Valid || !subjects[r.SubjectID.Int64]) {
			continue
		}
		if !filter.DateFrom.IsZero() && (r.Date.IsZero() || r.Date.Before(filter.DateFrom)) {
			continue
		}
		if filter.HasFile && (!r.File.Valid || r.File.String == "") {
			continue
		}
		rs = append(rs, *r)
	}
	sort.Slice(rs, func(i, j int) bool {
		di, dj := rs[i].Date, rs[j].Date
		switch {
		case di.IsZero() != dj.IsZero():
			return dj.IsZero()
		case !di.Equal(dj):
			return di.Before(dj)
		}
		return rs[i].ID < rs[j].ID
	})
	return rs, nil
}

func (repo *calendarRepository) CreateEvent(_ context.Context, e calendar.Event) (calendar.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = repo.db.nextID()
	repo.db.events[e.ID] = &e
	return e, nil
}

func (repo *calendarRepository) QueryEvents(_ context.Context, from core.Date) ([]calendar.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	es := make([]calendar.Event, 0)
	for _, e := range repo.db.events {
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		es = append(es, *e)
	}
	sort.Slice(es, func(i, j int) bool {
		if !es[i].Date.Equal(es[j].Date) {
			return es[i].Date.Before(es[j].Date)
		}
		return es[i].ID < es[j].ID
	})
	return es, nil
}
