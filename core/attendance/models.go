package attendance

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/profile"
)

// Record is the attendance of a student on a day. There is at most one per (student, date).
type Record struct {
	ID        int64       `json:"id" db:"id"`
	StudentID string      `json:"student_id" db:"student_id"`
	TeacherID null.String `json:"teacher_id" db:"teacher_id"` // last teacher who marked it
	Date      core.Date   `json:"date" db:"date"`
	Present   bool        `json:"present" db:"present"`
	MarkedAt  time.Time   `json:"marked_at" db:"marked_at"` // UTC
}

// TeacherRecord is a teacher's own attendance on a day, one per (teacher, date).
type TeacherRecord struct {
	ID        int64     `json:"id" db:"id"`
	TeacherID string    `json:"teacher_id" db:"teacher_id"`
	Date      core.Date `json:"date" db:"date"`
	Present   bool      `json:"present" db:"present"`
	MarkedAt  time.Time `json:"marked_at" db:"marked_at"` // UTC
}

// Transition tells what a mark did to the record of its day.
type Transition string

const (
	TransitionCreated   Transition = "created"
	TransitionChanged   Transition = "changed"
	TransitionUnchanged Transition = "unchanged"
)

// ApplyMark updates the counters of p for a mark on a day whose current record is prev,
// nil if the day was never marked. TotalDays grows once per day; later marks of the
// same day only move AttendedDays by the change of present.
func ApplyMark(p *profile.StudentProfile, prev *Record, present bool) Transition {
	if prev == nil {
		p.TotalDays++
		if present {
			p.AttendedDays++
		}
		return TransitionCreated
	}
	if prev.Present == present {
		return TransitionUnchanged
	}
	if present {
		p.AttendedDays++
	} else if p.AttendedDays > 0 {
		p.AttendedDays--
	}
	return TransitionChanged
}

// Mark is one student's attendance to write.
type Mark struct {
	StudentID string
	TeacherID string
	Date      core.Date
	Present   bool
	MarkedAt  time.Time
}

type MarkResult struct {
	Record     Record                 `json:"record"`
	Profile    profile.StudentProfile `json:"profile"`
	Transition Transition             `json:"transition"`
}

type Entry struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	Present   *bool  `json:"present" validate:"required"`
}

// MarkBatch marks several students for one day. Date defaults to today.
type MarkBatch struct {
	Date    core.Date `json:"date"`
	Entries []Entry   `json:"entries" validate:"required,min=1,dive"`
}

type SelfMark struct {
	Date    core.Date `json:"date"`
	Present *bool     `json:"present" validate:"required"`
}

// RecordFilter applies AND operation on its non-zero fields. To is exclusive.
type RecordFilter struct {
	StudentID string
	From      core.Date
	To        core.Date
}

// TeacherRecordFilter applies AND operation on its non-zero fields. To is exclusive.
type TeacherRecordFilter struct {
	TeacherID   string
	From        core.Date
	To          core.Date
	PresentOnly bool
}

// ListFilter selects the records an admin lists. Month is any day of the month, defaulting to today.
type ListFilter struct {
	Role  account.Role `query:"role"`
	Month core.Date    `query:"month"`
}

// ListedRecord is a record joined with its account.
type ListedRecord struct {
	AccountID string       `json:"account_id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Role      account.Role `json:"role"`
	Date      core.Date    `json:"date"`
	Present   bool         `json:"present"`
}

// Summary is a student's attendance standing.
type Summary struct {
	AttendedDays  int     `json:"attended_days"`
	TotalDays     int     `json:"total_days"`
	Percentage    float64 `json:"percentage"`
	LowAttendance bool    `json:"low_attendance"`
}

// ReportRow is one student line of a monthly report.
type ReportRow struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Semester    null.Int `json:"semester"`
	PresentDays int      `json:"present_days"`
	MarkedDays  int      `json:"marked_days"`
}

func (r ReportRow) Percentage() float64 {
	if r.MarkedDays == 0 {
		return 0
	}
	return float64(r.PresentDays) / float64(r.MarkedDays) * 100
}
