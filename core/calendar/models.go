package calendar

import (
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
)

type ExamRoutine struct {
	ID        int64       `json:"id" db:"id"`
	Title     string      `json:"title" db:"title"`
	Details   string      `json:"details" db:"details"`
	SubjectID null.Int64  `json:"subject_id" db:"subject_id"`
	Date      core.Date   `json:"date" db:"date"`
	Semester  null.Int    `json:"semester" db:"semester"`
	File      null.String `json:"file" db:"file"`
	StartDate core.Date   `json:"start_date" db:"start_date"`
	EndDate   core.Date   `json:"end_date" db:"end_date"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// Label is the title, or a generic name built from the semester.
func (r ExamRoutine) Label() string {
	if r.Title != "" {
		return r.Title
	}
	if r.Semester.Valid {
		return "Routine for Semester " + strconv.Itoa(r.Semester.Int)
	}
	return "Exam Routine"
}

type NewExamRoutine struct {
	Title     string    `json:"title" validate:"max=200"`
	Details   string    `json:"details"`
	SubjectID *int64    `json:"subject_id"`
	Date      core.Date `json:"date"`
	Semester  *int      `json:"semester" validate:"omitempty,min=1,max=8"`
	File      string    `json:"file" validate:"max=500"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

func (nr *NewExamRoutine) Clean() {
	nr.Title = core.CleanString(nr.Title)
	nr.Details = core.CleanString(nr.Details)
	nr.File = core.CleanString(nr.File)
}

// RoutineFilter applies AND operation on its non-zero fields.
type RoutineFilter struct {
	Semester   int
	SubjectIDs []int64
	DateFrom   core.Date
	HasFile    bool
}

type Event struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Date        core.Date `json:"date" db:"date"`
	Type        string    `json:"type" db:"type"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type NewEvent struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"required"`
	Date        core.Date `json:"date" validate:"required,notpast"`
	Type        string    `json:"type" validate:"required,max=50"`
}

func (ne *NewEvent) Clean() {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Type = core.CleanString(ne.Type, true /* lower */)
}
