// Package container assembles the repositories and services shared by the API and the admin CLI.
package container

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/attendance"
	"github.com/shankerdev/campus/core/calendar"
	"github.com/shankerdev/campus/core/course"
	"github.com/shankerdev/campus/core/coursework"
	"github.com/shankerdev/campus/core/fee"
	"github.com/shankerdev/campus/core/notification"
	"github.com/shankerdev/campus/core/profile"
	appfs "github.com/shankerdev/campus/fs"
	inmemdb "github.com/shankerdev/campus/storage/database/inmem"
	sqlxrepos "github.com/shankerdev/campus/storage/database/sqlx"
)

type Repositories struct {
	Accounts      account.Repository
	Profiles      profile.Repository
	Courses       course.Repository
	Notifications notification.Repository
	Tracker       notification.Tracker
	Attendance    attendance.Repository
	Coursework    coursework.Repository
	Fees          fee.Repository
	Calendar      calendar.Repository
}

// SQLRepositories are backed by PostgreSQL.
func SQLRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		Accounts:      sqlxrepos.NewAccountRepository(db),
		Profiles:      sqlxrepos.NewProfileRepository(db),
		Courses:       sqlxrepos.NewCourseRepository(db),
		Notifications: sqlxrepos.NewNotificationRepository(db),
		Tracker:       sqlxrepos.NewTrackerRepository(db),
		Attendance:    sqlxrepos.NewAttendanceRepository(db),
		Coursework:    sqlxrepos.NewCourseworkRepository(db),
		Fees:          sqlxrepos.NewFeeRepository(db),
		Calendar:      sqlxrepos.NewCalendarRepository(db),
	}
}

// InmemRepositories keep everything in db, for tests and local demos.
func InmemRepositories(db *inmemdb.DB) Repositories {
	return Repositories{
		Accounts:      inmemdb.NewAccountRepository(db),
		Profiles:      inmemdb.NewProfileRepository(db),
		Courses:       inmemdb.NewCourseRepository(db),
		Notifications: inmemdb.NewNotificationRepository(db),
		Tracker:       inmemdb.NewTrackerRepository(db),
		Attendance:    inmemdb.NewAttendanceRepository(db),
		Coursework:    inmemdb.NewCourseworkRepository(db),
		Fees:          inmemdb.NewFeeRepository(db),
		Calendar:      inmemdb.NewCalendarRepository(db),
	}
}

type Services struct {
	Account      *account.Service
	Profile      *profile.Service
	Course       *course.Service
	Notification *notification.Service
	Attendance   *attendance.Service
	Coursework   *coursework.Service
	Fee          *fee.Service
	Calendar     *calendar.Service
	Dispatcher   *notification.Dispatcher
}

// accountLookup breaks the account <-> profile construction cycle.
type accountLookup struct {
	repo account.Repository
}

func (l accountLookup) Lookup(ctx context.Context, id string) (account.Account, error) {
	return l.repo.GetAccount(ctx, id)
}

func NewServices(repos Repositories, mailSvc core.EmailService, metrics core.Metrics, validate *validator.Validate, conf *core.Config) *Services {
	if metrics == nil {
		metrics = core.NopMetrics
	}
	dispatcher := notification.NewDispatcher(repos.Tracker, mailSvc, metrics)

	profileSvc := profile.NewService(repos.Profiles, accountLookup{repos.Accounts}, repos.Courses, validate)
	accountSvc := account.NewService(repos.Accounts, profileSvc, mailSvc, validate, conf)
	notificationSvc := notification.NewService(repos.Notifications, accountSvc, profileSvc, dispatcher, validate)
	courseSvc := course.NewService(repos.Courses, notificationSvc, validate)

	return &Services{
		Account:      accountSvc,
		Profile:      profileSvc,
		Course:       courseSvc,
		Notification: notificationSvc,
		Attendance:   attendance.NewService(repos.Attendance, accountSvc, profileSvc, dispatcher, metrics, validate, conf),
		Coursework: coursework.NewService(
			repos.Coursework, accountSvc, profileSvc, courseSvc, notificationSvc, dispatcher, validate, conf,
		),
		Fee:        fee.NewService(repos.Fees, accountSvc, notificationSvc, dispatcher, validate, conf),
		Calendar:   calendar.NewService(repos.Calendar, courseSvc, profileSvc, notificationSvc, validate, conf),
		Dispatcher: dispatcher,
	}
}

// NewValidator returns a validator and its english translator with every custom rule registered.
func NewValidator(conf *core.Config) (*validator.Validate, ut.Translator, error) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator, conf.Location())
	if err := account.InitValidators(validate, translator, appfs.FS, appfs.CommonPasswords); err != nil {
		return nil, nil, errors.Wrap(err, "initializing account validators")
	}
	return validate, translator, nil
}

// ParseEmailTemplates loads the embedded email templates.
func ParseEmailTemplates(conf *core.Config) error {
	return core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
}
