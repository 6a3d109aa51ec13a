package fee

import (
	"fmt"
	"strings"
	"time"

	"github.com/shankerdev/campus/core"
)

type Due struct {
	ID          int64     `json:"id" db:"id"`
	StudentID   string    `json:"student_id" db:"student_id"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	DueDate     core.Date `json:"due_date" db:"due_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Amount formats the amount like 12,500.00.
func (d Due) Amount() string {
	return FormatAmount(d.AmountCents)
}

func FormatAmount(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	s := fmt.Sprintf("%s.%02d", b.String(), cents%100)
	if neg {
		return "-" + s
	}
	return s
}

type NewDue struct {
	StudentID   string    `json:"student_id" validate:"required,uuid"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
	DueDate     core.Date `json:"due_date" validate:"required,notpast"`
}

// Filter applies AND operation on its non-zero fields. DueTo is inclusive.
type Filter struct {
	StudentID string
	DueFrom   core.Date
	DueTo     core.Date
}

// ReminderSummary tells what a reminder run did.
type ReminderSummary struct {
	Students   int `json:"students"`
	Sent       int `json:"sent"`
	Suppressed int `json:"suppressed"`
	Failed     int `json:"failed"`
}
