// Package testutil holds the fixtures shared by the test suites.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/storage/database"
)

// DatabaseURLEnv names the variable pointing the SQL suites at a disposable PostgreSQL database.
const DatabaseURLEnv = "TEST_DATABASE_URL"

// tables in truncation order
var tables = []string{
	"submissions", "assignments", "fee_dues", "exam_routines", "events", "courses",
	"notification_trackers", "notifications",
	"teacher_attendance", "attendance_records",
	"teacher_subjects", "student_profiles", "subjects", "faculties", "accounts",
}

// PrepareDB opens the test database, migrates it and empties every table.
// The test is skipped when no database is configured.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv(DatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set", DatabaseURLEnv)
	}

	db, err := database.OpenURL(url)
	if err != nil {
		t.Fatalf("PrepareDB() failed to open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

type accountCreator interface {
	CreateAccount(ctx context.Context, acc account.Account) (account.Account, error)
}

// CreateAccount stores an account straight through repo. An empty pwd leaves the account unable to log in.
func CreateAccount(
	t *testing.T,
	repo accountCreator,
	name, email, phone string,
	role account.Role,
	approved bool,
	pwd string,
	createdAt ...time.Time,
) account.Account {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	acc := account.Account{
		ID:         uuid.New().String(),
		Name:       name,
		Email:      email,
		Phone:      null.NewString(phone, phone != ""),
		Role:       role,
		IsApproved: approved,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,

		PasswordHash: []byte{},
	}
	if pwd != "" {
		// bcrypt's default cost makes big suites crawl
		hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
		acc.PasswordHash = hash
	}
	acc, err := repo.CreateAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

// Logger sends everything to the test log.
type Logger struct {
	T testing.TB
}

var _ core.Logger = Logger{}

func (l Logger) print(level, msg string, args []interface{}) {
	l.T.Helper()
	if len(args) > 0 {
		l.T.Logf("%s: %s %v", level, msg, args)
		return
	}
	l.T.Logf("%s: %s", level, msg)
}

func (l Logger) Debug(msg string, args ...interface{}) { l.print("DEBUG", msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) {
	l.T.Helper()
	l.T.Fatal(fmt.Sprintf("FATAL: %s %v", msg, args))
}

// Date is a shortcut for core.NewDate.
func Date(year int, month time.Month, day int) core.Date {
	return core.NewDate(year, month, day)
}
