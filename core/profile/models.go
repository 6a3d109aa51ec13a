package profile

import (
	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
)

// StudentProfile holds the semester and attendance counters of a student.
// 0 <= AttendedDays <= TotalDays always holds.
type StudentProfile struct {
	AccountID    string      `json:"account_id" db:"account_id"`
	FacultyID    null.Int64  `json:"faculty_id" db:"faculty_id"`
	Semester     null.Int    `json:"semester" db:"semester"`
	Section      null.String `json:"section" db:"section"`
	AttendedDays int         `json:"attended_days" db:"attended_days"`
	TotalDays    int         `json:"total_days" db:"total_days"`
}

// Percentage is AttendedDays/TotalDays*100, or 0 when nothing was marked yet.
func (p StudentProfile) Percentage() float64 {
	if p.TotalDays == 0 {
		return 0
	}
	return float64(p.AttendedDays) / float64(p.TotalDays) * 100
}

// BelowThreshold is false for a student never marked.
func (p StudentProfile) BelowThreshold(threshold float64) bool {
	return p.TotalDays > 0 && p.Percentage() < threshold
}

type SelectSemester struct {
	Semester  int    `json:"semester" validate:"required,min=1,max=8"`
	Section   string `json:"section" validate:"max=10"`
	FacultyID *int64 `json:"faculty_id"`
}

func (ss *SelectSemester) Clean() {
	ss.Section = core.CleanString(ss.Section)
}

type AssignSubjects struct {
	SubjectIDs []int64 `json:"subject_ids" validate:"required,min=1,dive,min=1"`
}

// Filter applies AND operation on its non-zero fields.
type Filter struct {
	Semester int
}
