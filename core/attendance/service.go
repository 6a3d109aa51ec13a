package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/notification"
	"github.com/shankerdev/campus/core/profile"
)

type (
	Repository interface {
		// MarkAttendance writes marks in a single transaction. For every mark it locks the
		// student profile, upserts the (student, date) record and applies ApplyMark.
		MarkAttendance(ctx context.Context, marks []Mark) ([]MarkResult, error)
		// MarkTeacherAttendance upserts the (teacher, date) record.
		MarkTeacherAttendance(ctx context.Context, rec TeacherRecord) (TeacherRecord, error)
		// QueryRecords returns records newest first.
		QueryRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
		// QueryTeacherRecords returns records newest first.
		QueryTeacherRecords(ctx context.Context, filter TeacherRecordFilter) ([]TeacherRecord, error)
	}

	Accounts interface {
		Lookup(ctx context.Context, id string) (account.Account, error)
		ListByRole(ctx context.Context, roles ...account.Role) ([]account.Account, error)
	}

	Profiles interface {
		ForStudent(ctx context.Context, studentID string) (profile.StudentProfile, error)
	}

	Service struct {
		repo       Repository
		accounts   Accounts
		profiles   Profiles
		dispatcher *notification.Dispatcher
		metrics    core.Metrics
		validate   *validator.Validate
		conf       *core.Config
	}
)

func NewService(repo Repository, accounts Accounts, profiles Profiles, dispatcher *notification.Dispatcher, metrics core.Metrics, validate *validator.Validate, conf *core.Config) *Service {
	if metrics == nil {
		metrics = core.NopMetrics
	}
	return &Service{
		repo:       repo,
		accounts:   accounts,
		profiles:   profiles,
		dispatcher: dispatcher,
		metrics:    metrics,
		validate:   validate,
		conf:       conf,
	}
}

func (svc *Service) today() core.Date {
	return core.DateFrom(core.Today(svc.conf.Location()))
}

// markDate defaults d to today and rejects future days.
func (svc *Service) markDate(d core.Date) (core.Date, error) {
	today := svc.today()
	if d.IsZero() {
		return today, nil
	}
	if d.After(today) {
		return core.Date{}, core.NewFieldError("date", "date cannot be in the future")
	}
	return d, nil
}

// Mark records the attendance of a batch of students. Every student must exist and be a
// student, otherwise nothing is written. Low-attendance alerts are returned as hooks.
func (svc *Service) Mark(ctx context.Context, capa account.Capability, mb MarkBatch) ([]MarkResult, core.AfterCommit, error) {
	if err := capa.Require(account.RoleTeacher); err != nil {
		return nil, nil, err
	}
	if err := svc.validate.Struct(mb); err != nil {
		return nil, nil, err
	}
	day, err := svc.markDate(mb.Date)
	if err != nil {
		return nil, nil, err
	}

	now := core.NowFunc().UTC()
	students := make(map[string]account.Account, len(mb.Entries))
	marks := make([]Mark, 0, len(mb.Entries))
	for i, e := range mb.Entries {
		field := fmt.Sprintf("entries[%d].student_id", i)
		if _, dup := students[e.StudentID]; dup {
			return nil, nil, core.NewFieldError(field, "student is listed more than once")
		}
		acc, err := svc.accounts.Lookup(ctx, e.StudentID)
		if err != nil {
			if core.IsNotFound(err) {
				return nil, nil, core.NewFieldError(field, "student does not exist")
			}
			return nil, nil, errors.Wrap(err, "finding student")
		}
		if !acc.IsStudent() {
			return nil, nil, core.NewFieldError(field, "account is not a student")
		}
		students[acc.ID] = acc
		marks = append(marks, Mark{
			StudentID: acc.ID,
			TeacherID: capa.AccountID,
			Date:      day,
			Present:   *e.Present,
			MarkedAt:  now,
		})
	}

	results, err := svc.repo.MarkAttendance(ctx, marks)
	if err != nil {
		return nil, nil, errors.Wrap(err, "marking attendance")
	}

	var hooks core.AfterCommit
	threshold := svc.conf.Attendance.AlertThreshold
	today := svc.today()
	for _, res := range results {
		svc.metrics.AttendanceMarked(string(res.Transition))
		if !res.Profile.BelowThreshold(threshold) {
			continue
		}
		msg := alertMessage(students[res.Record.StudentID], res.Profile.Percentage(), threshold)
		studentID := res.Record.StudentID
		hooks.Add("attendance alert "+studentID, func(ctx context.Context) error {
			_, err := svc.dispatcher.SendOnce(ctx, studentID, notification.KindAttendance, today, msg)
			return err
		})
	}
	return results, hooks, nil
}

// MarkSelf records the calling teacher's own attendance.
func (svc *Service) MarkSelf(ctx context.Context, capa account.Capability, sm SelfMark) (TeacherRecord, error) {
	if err := capa.Require(account.RoleTeacher); err != nil {
		return TeacherRecord{}, err
	}
	if err := svc.validate.Struct(sm); err != nil {
		return TeacherRecord{}, err
	}
	day, err := svc.markDate(sm.Date)
	if err != nil {
		return TeacherRecord{}, err
	}
	rec, err := svc.repo.MarkTeacherAttendance(ctx, TeacherRecord{
		TeacherID: capa.AccountID,
		Date:      day,
		Present:   *sm.Present,
		MarkedAt:  core.NowFunc().UTC(),
	})
	return rec, errors.Wrap(err, "marking teacher attendance")
}

// MyRecords lists the calling student's records, newest first.
func (svc *Service) MyRecords(ctx context.Context, capa account.Capability) ([]Record, error) {
	if err := capa.Require(account.RoleStudent); err != nil {
		return nil, err
	}
	recs, err := svc.repo.QueryRecords(ctx, RecordFilter{StudentID: capa.AccountID})
	return recs, errors.Wrap(err, "querying records")
}

// MySummary gives the calling student's percentage. It never sends anything.
func (svc *Service) MySummary(ctx context.Context, capa account.Capability) (Summary, error) {
	if err := capa.Require(account.RoleStudent); err != nil {
		return Summary{}, err
	}
	p, err := svc.profiles.ForStudent(ctx, capa.AccountID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		AttendedDays:  p.AttendedDays,
		TotalDays:     p.TotalDays,
		Percentage:    p.Percentage(),
		LowAttendance: p.BelowThreshold(svc.conf.Attendance.AlertThreshold),
	}, nil
}

// TeachersPresent lists the teachers who marked themselves present on day.
func (svc *Service) TeachersPresent(ctx context.Context, capa account.Capability, day core.Date) ([]account.Account, error) {
	if err := capa.Require(); err != nil {
		return nil, err
	}
	if day.IsZero() {
		day = svc.today()
	}
	recs, err := svc.repo.QueryTeacherRecords(ctx, TeacherRecordFilter{From: day, To: day.AddDays(1), PresentOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher records")
	}
	teachers := make([]account.Account, 0, len(recs))
	for _, rec := range recs {
		acc, err := svc.accounts.Lookup(ctx, rec.TeacherID)
		if err != nil {
			return nil, errors.Wrap(err, "finding teacher")
		}
		teachers = append(teachers, acc)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].DisplayName() < teachers[j].DisplayName() })
	return teachers, nil
}

func (svc *Service) monthRange(month core.Date) (core.Date, core.Date) {
	if month.IsZero() {
		month = svc.today()
	}
	from, to := core.MonthRange(month.Time)
	return core.DateFrom(from), core.DateFrom(to)
}

// List returns the month's records of students (default) or teachers, newest first.
func (svc *Service) List(ctx context.Context, capa account.Capability, filter ListFilter) ([]ListedRecord, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return nil, err
	}
	role := account.Role(strings.ToLower(string(filter.Role)))
	if role == "" {
		role = account.RoleStudent
	}
	if role != account.RoleStudent && role != account.RoleTeacher {
		return nil, core.NewFieldError("role", "role must be student or teacher")
	}
	from, to := svc.monthRange(filter.Month)

	accs, err := svc.accounts.ListByRole(ctx, role)
	if err != nil {
		return nil, errors.Wrap(err, "listing accounts")
	}
	byID := make(map[string]account.Account, len(accs))
	for _, acc := range accs {
		byID[acc.ID] = acc
	}
	listed := func(id string, day core.Date, present bool) ListedRecord {
		acc := byID[id]
		return ListedRecord{AccountID: id, Name: acc.DisplayName(), Email: acc.Email, Role: role, Date: day, Present: present}
	}

	var out []ListedRecord
	if role == account.RoleStudent {
		recs, err := svc.repo.QueryRecords(ctx, RecordFilter{From: from, To: to})
		if err != nil {
			return nil, errors.Wrap(err, "querying records")
		}
		out = make([]ListedRecord, 0, len(recs))
		for _, rec := range recs {
			out = append(out, listed(rec.StudentID, rec.Date, rec.Present))
		}
	} else {
		recs, err := svc.repo.QueryTeacherRecords(ctx, TeacherRecordFilter{From: from, To: to})
		if err != nil {
			return nil, errors.Wrap(err, "querying teacher records")
		}
		out = make([]ListedRecord, 0, len(recs))
		for _, rec := range recs {
			out = append(out, listed(rec.TeacherID, rec.Date, rec.Present))
		}
	}
	return out, nil
}

// Report builds one row per student for the month of month, ordered by name.
func (svc *Service) Report(ctx context.Context, capa account.Capability, month core.Date) ([]ReportRow, error) {
	if err := capa.Require(account.RoleAdmin); err != nil {
		return nil, err
	}
	from, to := svc.monthRange(month)

	students, err := svc.accounts.ListByRole(ctx, account.RoleStudent)
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	recs, err := svc.repo.QueryRecords(ctx, RecordFilter{From: from, To: to})
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	type counts struct{ present, marked int }
	byStudent := make(map[string]*counts, len(students))
	for _, rec := range recs {
		c, ok := byStudent[rec.StudentID]
		if !ok {
			c = &counts{}
			byStudent[rec.StudentID] = c
		}
		c.marked++
		if rec.Present {
			c.present++
		}
	}

	rows := make([]ReportRow, 0, len(students))
	for _, st := range students {
		p, err := svc.profiles.ForStudent(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		row := ReportRow{Name: st.DisplayName(), Email: st.Email, Semester: p.Semester}
		if c, ok := byStudent[st.ID]; ok {
			row.PresentDays, row.MarkedDays = c.present, c.marked
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

// ReportMonth is the first day of the month a report for month covers.
func (svc *Service) ReportMonth(month core.Date) core.Date {
	from, _ := svc.monthRange(month)
	return from
}

func alertMessage(acc account.Account, pct, threshold float64) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{acc.Address()},
		Subject:      "Low Attendance Alert - ShankerDev Campus",
		TemplateName: "attendance_alert",
		TemplateData: struct{ Name, Percentage, Threshold string }{
			Name:       acc.DisplayName(),
			Percentage: fmt.Sprintf("%.1f", pct),
			Threshold:  fmt.Sprintf("%.0f", threshold),
		},
	}
}
