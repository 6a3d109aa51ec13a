package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shankerdev/campus/apps/container"
	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/fee"
	emailsvc "github.com/shankerdev/campus/services/email"
	inmemdb "github.com/shankerdev/campus/storage/database/inmem"
	"github.com/shankerdev/campus/testutil"
)

func setup(t *testing.T) (*commandLine, container.Repositories) {
	t.Helper()
	conf := core.NewTestConfig()
	validate, _, err := container.NewValidator(conf)
	require.NoError(t, err)
	require.NoError(t, container.ParseEmailTemplates(conf))

	emailsvc.ClearSentMessages()
	repos := container.InmemRepositories(inmemdb.Open())
	svcs := container.NewServices(repos, emailsvc.NewConsoleServiceMock(conf), core.NopMetrics, validate, conf)

	// start CLI
	return &commandLine{
		conf:       conf,
		logger:     testutil.Logger{T: t},
		accountSvc: svcs.Account,
		feeSvc:     svcs.Fee,
	}, repos
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErrStr string
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_help(t *testing.T) {
	cli, _ := setup(t)
	for _, args := range [][]string{{}, {"lol"}, {"createadmin"}, {"resetpassword"}, {"migrate"}} {
		t.Run(fmt.Sprint(args), func(t *testing.T) {
			assert.Equal(t, errHelp, cli.run(append([]string{"admin"}, args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "fee_waivers", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErrStr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
				return
			}
			assert.NoError(t, err)
		})
	}
}

func Test_commandLine_createAdmin(t *testing.T) {
	cli, repos := setup(t)
	testutil.CreateAccount(t, repos.Accounts, "Taken", "taken@campus.np", "", account.RoleStudent, true, "")

	tests := []struct {
		name    string
		args    []string
		pwd     string
		wantErr bool
	}{
		{name: "no password", args: []string{"createadmin", "-email", "root@campus.np"}, wantErr: true},
		{name: "weak password", args: []string{"createadmin", "-email", "root@campus.np"}, pwd: "root", wantErr: true},
		{name: "email taken", args: []string{"createadmin", "-email", "taken@campus.np"}, pwd: "Str0ng!Passw0rd", wantErr: true},
		{name: "bad phone", args: []string{"createadmin", "-email", "root@campus.np", "-phone", "123"}, pwd: "Str0ng!Passw0rd", wantErr: true},
		{name: "ok", args: []string{"createadmin", "-email", "Root@Campus.np", "-name", "Root"}, pwd: "Str0ng!Passw0rd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	acc, err := repos.Accounts.GetAccountByLogin(context.Background(), "root@campus.np")
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, acc.Role)
	assert.True(t, acc.IsApproved)
	assert.NoError(t, acc.CheckPassword("Str0ng!Passw0rd"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, repos := setup(t)
	acc := testutil.CreateAccount(t, repos.Accounts, "User", "user@campus.np", "9812345678", account.RoleTeacher, true, "0ld!Passw0rd")

	tests := []struct {
		name    string
		args    []string
		pwd     string
		wantErr func(t *testing.T, err error)
	}{
		{
			name: "login but no password", args: []string{"resetpassword", "-login", "user@campus.np"},
			wantErr: func(t *testing.T, err error) { assert.Equal(t, errHelp, err) },
		},
		{
			name: "account not found", args: []string{"resetpassword", "-login", "ghost@campus.np"}, pwd: "N3w!Passw0rd",
			wantErr: func(t *testing.T, err error) { assert.True(t, core.IsNotFound(err), "got %v", err) },
		},
		{
			name: "weak password", args: []string{"resetpassword", "-login", "user@campus.np"}, pwd: "12345678",
			wantErr: func(t *testing.T, err error) { assert.Error(t, err) },
		},
		{name: "reset with email", args: []string{"resetpassword", "-login", "USER@campus.np"}, pwd: "N3w!Passw0rd"},
		{name: "reset with phone", args: []string{"resetpassword", "-login", "9812345678"}, pwd: "N3w!Passw0rd2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErr != nil {
				tt.wantErr(t, err)
				return
			}
			require.NoError(t, err)

			refreshed, err := repos.Accounts.GetAccount(context.Background(), acc.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.pwd))
		})
	}
}

func Test_commandLine_remindFees(t *testing.T) {
	cli, repos := setup(t)
	soon := testutil.CreateAccount(t, repos.Accounts, "Soon", "soon@campus.np", "", account.RoleStudent, true, "")
	later := testutil.CreateAccount(t, repos.Accounts, "Later", "later@campus.np", "", account.RoleStudent, true, "")

	today := core.DateFrom(core.Today(time.UTC))
	for _, d := range []fee.Due{
		{StudentID: soon.ID, AmountCents: 500000, DueDate: today.AddDays(2)},
		{StudentID: later.ID, AmountCents: 500000, DueDate: today.AddDays(20)},
	} {
		d.CreatedAt = time.Now().UTC()
		_, err := repos.Fees.CreateDue(context.Background(), d)
		require.NoError(t, err)
	}

	t.Run("once", func(t *testing.T) {
		require.NoError(t, cli.run([]string{"admin", "remindfees"}))
		assert.Len(t, emailsvc.SentTo("soon@campus.np"), 1)
		assert.Empty(t, emailsvc.SentTo("later@campus.np"))
	})

	t.Run("again the same day", func(t *testing.T) {
		summary, err := cli.remindFees(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, fee.ReminderSummary{Students: 1, Suppressed: 1}, summary)
		assert.Len(t, emailsvc.SentTo("soon@campus.np"), 1)
	})

	t.Run("wider window", func(t *testing.T) {
		require.NoError(t, cli.run([]string{"admin", "remindfees", "-window", "30"}))
		assert.Len(t, emailsvc.SentTo("later@campus.np"), 1)
	})

	t.Run("daily stops on interrupt", func(t *testing.T) {
		cli.interrupt = func() <-chan os.Signal {
			ch := make(chan os.Signal, 1)
			ch <- syscall.SIGTERM
			return ch
		}
		defer func() { cli.interrupt = nil }()
		assert.NoError(t, cli.run([]string{"admin", "remindfees", "-daily"}))
	})

	t.Run("bad schedule", func(t *testing.T) {
		cli.conf.Fees.ReminderSchedule = "whenever"
		defer func() { cli.conf.Fees.ReminderSchedule = "@daily" }()
		assert.Error(t, cli.run([]string{"admin", "remindfees", "-daily"}))
	})
}
