package coursework

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
)

type Assignment struct {
	ID          int64       `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	SubjectID   int64       `json:"subject_id" db:"subject_id"`
	TeacherID   string      `json:"teacher_id" db:"teacher_id"`
	DueDate     core.Date   `json:"due_date" db:"due_date"`
	Semester    int         `json:"semester" db:"semester"`
	File        null.String `json:"file" db:"file"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`

	SubmissionCount int `json:"submission_count" db:"submission_count"`
}

// Submission is unique per (assignment, student). File is an opaque storage reference.
type Submission struct {
	ID           int64     `json:"id" db:"id"`
	AssignmentID int64     `json:"assignment_id" db:"assignment_id"`
	StudentID    string    `json:"student_id" db:"student_id"`
	File         string    `json:"file" db:"file"`
	SubmittedAt  time.Time `json:"submitted_at" db:"submitted_at"`
}

type NewAssignment struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"required"`
	SubjectID   int64     `json:"subject_id" validate:"required"`
	DueDate     core.Date `json:"due_date" validate:"required,notpast"`
	Semester    int       `json:"semester" validate:"required,min=1,max=8"`
	File        string    `json:"file" validate:"max=500"`
}

func (na *NewAssignment) Clean() {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.File = core.CleanString(na.File)
}

// UpdateAssignment replaces the editable fields of an assignment.
type UpdateAssignment NewAssignment

type NewSubmission struct {
	File string `json:"file" validate:"required,max=500"`
}

// AssignmentFilter applies AND operation on its non-zero fields.
type AssignmentFilter struct {
	TeacherID string
	Semester  int
	DueFrom   core.Date
}
