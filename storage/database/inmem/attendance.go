package inmemdb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/attendance"
	"github.com/shankerdev/campus/core/profile"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// MarkAttendance validates every mark before writing any, so a failing batch leaves no trace.
func (repo *attendanceRepository) MarkAttendance(_ context.Context, marks []attendance.Mark) ([]attendance.MarkResult, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	profiles := make(map[string]profile.StudentProfile, len(marks))
	for _, m := range marks {
		if _, ok := profiles[m.StudentID]; ok {
			continue
		}
		p, ok := repo.db.profiles[m.StudentID]
		if !ok {
			if _, ok = repo.db.accounts[m.StudentID]; !ok {
				return nil, core.NewNotFoundError("student")
			}
			p = &profile.StudentProfile{AccountID: m.StudentID}
		}
		profiles[m.StudentID] = *p
	}

	records := make(map[recordKey]attendance.Record, len(marks))
	results := make([]attendance.MarkResult, 0, len(marks))
	for _, m := range marks {
		key := recordKey{accountID: m.StudentID, date: m.Date.String()}
		var prev *attendance.Record
		if rec, ok := records[key]; ok {
			prev = &rec
		} else if rec, ok := repo.db.records[key]; ok {
			cp := *rec
			prev = &cp
		}

		p := profiles[m.StudentID]
		transition := attendance.ApplyMark(&p, prev, m.Present)
		profiles[m.StudentID] = p

		rec := attendance.Record{
			StudentID: m.StudentID,
			TeacherID: null.NewString(m.TeacherID, m.TeacherID != ""),
			Date:      m.Date,
			Present:   m.Present,
			MarkedAt:  m.MarkedAt,
		}
		if prev != nil {
			rec.ID = prev.ID
		} else {
			rec.ID = repo.db.nextID()
		}
		records[key] = rec
		results = append(results, attendance.MarkResult{Record: rec, Transition: transition})
	}

	for key, rec := range records {
		rec := rec
		repo.db.records[key] = &rec
	}
	for id, p := range profiles {
		p := p
		repo.db.profiles[id] = &p
	}
	for i := range results {
		results[i].Profile = profiles[results[i].Record.StudentID]
	}
	return results, nil
}

func (repo *attendanceRepository) MarkTeacherAttendance(_ context.Context, rec attendance.TeacherRecord) (attendance.TeacherRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := recordKey{accountID: rec.TeacherID, date: rec.Date.String()}
	if cur, ok := repo.db.teacherRecords[key]; ok {
		rec.ID = cur.ID
	} else {
		rec.ID = repo.db.nextID()
	}
	repo.db.teacherRecords[key] = &rec
	return rec, nil
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, filter attendance.RecordFilter) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.records {
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if !inRange(rec.Date, filter.From, filter.To) {
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.After(recs[j].Date)
		}
		return recs[i].ID > recs[j].ID
	})
	return recs, nil
}

func (repo *attendanceRepository) QueryTeacherRecords(_ context.Context, filter attendance.TeacherRecordFilter) ([]attendance.TeacherRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]attendance.TeacherRecord, 0)
	for _, rec := range repo.db.teacherRecords {
		if filter.TeacherID != "" && rec.TeacherID != filter.TeacherID {
			continue
		}
		if filter.PresentOnly && !rec.Present {
			continue
		}
		if !inRange(rec.Date, filter.From, filter.To) {
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.After(recs[j].Date)
		}
		return recs[i].ID > recs[j].ID
	})
	return recs, nil
}
