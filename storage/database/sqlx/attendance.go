package sqlxrepos

import (
	"context"
	"database/sql"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/attendance"
	"github.com/shankerdev/campus/core/profile"
)

var (
	recordColumns        = []string{"id", "student_id", "teacher_id", "date", "present", "marked_at"}
	teacherRecordColumns = []string{"id", "teacher_id", "date", "present", "marked_at"}
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// lockProfiles creates the missing profiles then locks all of them, in account order so
// concurrent batches never wait on each other in a cycle.
func lockProfiles(ctx context.Context, tx *sqlx.Tx, ids []string) (map[string]profile.StudentProfile, error) {
	ins := psql.Insert("student_profiles").Columns("account_id")
	for _, id := range ids {
		ins = ins.Values(id)
	}
	if _, err := exec(ctx, tx, ins.Suffix("ON CONFLICT (account_id) DO NOTHING")); err != nil {
		if violates(err, foreignKeyViolation, "") {
			return nil, core.NewNotFoundError("student")
		}
		return nil, errors.Wrap(err, "creating profiles")
	}

	var ps []profile.StudentProfile
	b := psql.Select(profileColumns...).From("student_profiles").
		Where(sq.Eq{"account_id": ids}).
		OrderBy("account_id").
		Suffix("FOR UPDATE")
	if err := selectAll(ctx, tx, &ps, b); err != nil {
		return nil, errors.Wrap(err, "locking profiles")
	}
	profiles := make(map[string]profile.StudentProfile, len(ps))
	for _, p := range ps {
		profiles[p.AccountID] = p
	}
	return profiles, nil
}

func (repo *attendanceRepository) MarkAttendance(ctx context.Context, marks []attendance.Mark) ([]attendance.MarkResult, error) {
	if len(marks) == 0 {
		return []attendance.MarkResult{}, nil
	}
	seen := make(map[string]bool, len(marks))
	ids := make([]string, 0, len(marks))
	for _, m := range marks {
		if !seen[m.StudentID] {
			seen[m.StudentID] = true
			ids = append(ids, m.StudentID)
		}
	}
	sort.Strings(ids)

	results := make([]attendance.MarkResult, 0, len(marks))
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		profiles, err := lockProfiles(ctx, tx, ids)
		if err != nil {
			return err
		}

		for _, m := range marks {
			var prev *attendance.Record
			var cur attendance.Record
			err = get(ctx, tx, &cur, psql.Select(recordColumns...).From("attendance_records").
				Where(sq.Eq{"student_id": m.StudentID, "date": m.Date}))
			switch {
			case err == nil:
				prev = &cur
			case errors.Cause(err) == sql.ErrNoRows:
			default:
				return errors.Wrap(err, "finding attendance record")
			}

			p, ok := profiles[m.StudentID]
			if !ok {
				return core.NewNotFoundError("student")
			}
			transition := attendance.ApplyMark(&p, prev, m.Present)
			profiles[m.StudentID] = p

			var rec attendance.Record
			upsert := psql.Insert("attendance_records").
				Columns("student_id", "teacher_id", "date", "present", "marked_at").
				Values(m.StudentID, nullString(m.TeacherID), m.Date, m.Present, m.MarkedAt.UTC()).
				Suffix("ON CONFLICT (student_id, date) DO UPDATE SET " +
					"teacher_id = EXCLUDED.teacher_id, present = EXCLUDED.present, marked_at = EXCLUDED.marked_at " +
					"RETURNING id, student_id, teacher_id, date, present, marked_at")
			if err = get(ctx, tx, &rec, upsert); err != nil {
				return errors.Wrap(err, "upserting attendance record")
			}

			if transition != attendance.TransitionUnchanged {
				upd := psql.Update("student_profiles").
					Set("attended_days", p.AttendedDays).
					Set("total_days", p.TotalDays).
					Where(sq.Eq{"account_id": p.AccountID})
				if _, err = exec(ctx, tx, upd); err != nil {
					return errors.Wrap(err, "updating attendance counters")
				}
			}
			results = append(results, attendance.MarkResult{Record: rec, Profile: p, Transition: transition})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (repo *attendanceRepository) MarkTeacherAttendance(ctx context.Context, rec attendance.TeacherRecord) (attendance.TeacherRecord, error) {
	upsert := psql.Insert("teacher_attendance").
		Columns("teacher_id", "date", "present", "marked_at").
		Values(rec.TeacherID, rec.Date, rec.Present, rec.MarkedAt.UTC()).
		Suffix("ON CONFLICT (teacher_id, date) DO UPDATE SET " +
			"present = EXCLUDED.present, marked_at = EXCLUDED.marked_at " +
			"RETURNING id, teacher_id, date, present, marked_at")
	var out attendance.TeacherRecord
	if err := get(ctx, repo.db, &out, upsert); err != nil {
		return attendance.TeacherRecord{}, errors.Wrap(err, "upserting teacher attendance")
	}
	return out, nil
}

func dateRange(b sq.SelectBuilder, from, to core.Date) sq.SelectBuilder {
	if !from.IsZero() {
		b = b.Where(sq.GtOrEq{"date": from})
	}
	if !to.IsZero() {
		b = b.Where(sq.Lt{"date": to})
	}
	return b
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, error) {
	b := psql.Select(recordColumns...).From("attendance_records").OrderBy("date DESC", "id DESC")
	if filter.StudentID != "" {
		b = b.Where(sq.Eq{"student_id": filter.StudentID})
	}
	b = dateRange(b, filter.From, filter.To)

	recs := make([]attendance.Record, 0)
	if err := selectAll(ctx, repo.db, &recs, b); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	return recs, nil
}

func (repo *attendanceRepository) QueryTeacherRecords(ctx context.Context, filter attendance.TeacherRecordFilter) ([]attendance.TeacherRecord, error) {
	b := psql.Select(teacherRecordColumns...).From("teacher_attendance").OrderBy("date DESC", "id DESC")
	if filter.TeacherID != "" {
		b = b.Where(sq.Eq{"teacher_id": filter.TeacherID})
	}
	if filter.PresentOnly {
		b = b.Where(sq.Eq{"present": true})
	}
	b = dateRange(b, filter.From, filter.To)

	recs := make([]attendance.TeacherRecord, 0)
	if err := selectAll(ctx, repo.db, &recs, b); err != nil {
		return nil, errors.Wrap(err, "querying teacher attendance")
	}
	return recs, nil
}
