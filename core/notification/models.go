package notification

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
)

// Notification is an in-app message. Its targeting mode is one of:
//   - targeted: RecipientID set
//   - global: RecipientID and Semester null
//   - semester: RecipientID null, Semester set
type Notification struct {
	ID          int64       `json:"id" db:"id"`
	Message     string      `json:"message" db:"message"`
	CreatedBy   null.String `json:"created_by" db:"created_by"`
	RecipientID null.String `json:"recipient_id" db:"recipient_id"`
	Semester    null.Int    `json:"semester" db:"semester"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
}

func (n Notification) IsGlobal() bool {
	return !n.RecipientID.Valid && !n.Semester.Valid
}

// VisibleTo reports whether viewer, whose profile semester is semester, may see n.
// A semester-scoped notification is invisible to viewers without a semester.
func (n Notification) VisibleTo(viewerID string, semester null.Int) bool {
	if n.RecipientID.Valid {
		return n.RecipientID.String == viewerID
	}
	if !n.Semester.Valid {
		return true
	}
	return semester.Valid && n.Semester.Int == semester.Int
}

// NewNotification is a notification to insert. Empty CreatedBy or RecipientID and nil Semester map to null.
type NewNotification struct {
	Message     string
	CreatedBy   string
	RecipientID string
	Semester    *int
}

func (nn NewNotification) model(now time.Time) Notification {
	return Notification{
		Message:     nn.Message,
		CreatedBy:   null.NewString(nn.CreatedBy, nn.CreatedBy != ""),
		RecipientID: null.NewString(nn.RecipientID, nn.RecipientID != ""),
		Semester:    null.IntFromPtr(nn.Semester),
		CreatedAt:   now,
	}
}

// VisibleFilter narrows the notifications a viewer sees. Zero values disable a criterion.
type VisibleFilter struct {
	ViewerID string
	Semester null.Int

	// AnySemester shows untargeted notifications of every semester.
	AnySemester   bool
	Since         time.Time
	ExcludeAuthor string
	ExcludePrefix string
	Limit         int
}

// Match applies f in memory, in the same way repositories do in SQL.
func (f VisibleFilter) Match(n Notification) bool {
	if f.AnySemester {
		if n.RecipientID.Valid && n.RecipientID.String != f.ViewerID {
			return false
		}
	} else if !n.VisibleTo(f.ViewerID, f.Semester) {
		return false
	}
	if !f.Since.IsZero() && n.CreatedAt.Before(f.Since) {
		return false
	}
	if f.ExcludeAuthor != "" && n.CreatedBy.Valid && n.CreatedBy.String == f.ExcludeAuthor {
		return false
	}
	if f.ExcludePrefix != "" && strings.HasPrefix(n.Message, f.ExcludePrefix) {
		return false
	}
	return true
}

// Target is the audience of an announcement.
type Target string

const (
	TargetSpecific            Target = "specific"
	TargetAllStudents         Target = "all_students"
	TargetAllStudentsTeachers Target = "all_students_teachers"
	TargetSemester            Target = "semester"
)

type Announcement struct {
	Subject      string   `json:"subject" validate:"required,max=200"`
	Message      string   `json:"message" validate:"required"`
	Target       Target   `json:"target" validate:"required,oneof=specific all_students all_students_teachers semester"`
	RecipientIDs []string `json:"recipient_ids" validate:"omitempty,dive,uuid"`
	Semester     *int     `json:"semester" validate:"omitempty,min=1,max=8"`
}

func (a *Announcement) Clean() {
	a.Subject = core.CleanString(a.Subject)
	a.Message = core.CleanString(a.Message)
}

// AnnouncementResult tells how an announcement was delivered. Email counts are
// filled in by the post-commit hooks once they ran.
type AnnouncementResult struct {
	Notifications []Notification `json:"notifications"`
	Emailed       int            `json:"emailed"`
	EmailFailed   int            `json:"email_failed"`
}

const seatsUpdatedPrefix = "Seats updated"
