package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
	"github.com/shankerdev/campus/core/fee"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	conf       *core.Config
	logger     core.Logger
	accountSvc *account.Service
	feeSvc     *fee.Service

	// interrupt stops the long-running commands. It defaults to SIGINT/SIGTERM.
	interrupt func() <-chan os.Signal
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createadmin -email EMAIL [-name NAME] [-phone PHONE] - create an approved admin account")
	fmt.Println("  resetpassword -login EMAIL|PHONE - reset an account's password")
	fmt.Println("  migrate COMMAND [ARGS] - run a database migration command (up, down, status, version...)")
	fmt.Println("  remindfees [-daily] [-window DAYS] - email the students whose fees are due soon")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	createAdminName := createAdminCmd.String("name", "", "The admin's name.")
	createAdminPhone := createAdminCmd.String("phone", "", "The admin's 10-digit phone number.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordLogin := resetPasswordCmd.String("login", "", "The account's email or phone number. The password will be prompted next.")

	remindFeesCmd := flag.NewFlagSet("remindfees", flag.ContinueOnError)
	remindFeesDaily := remindFeesCmd.Bool("daily", false, "Keep running and send the reminders on the configured schedule.")
	remindFeesWindow := remindFeesCmd.Int("window", cli.conf.Fees.ReminderWindowDays, "Remind dues falling within this many days.")

	switch args[1] {
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminEmail == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(account.NewAccount{
			Email:           *createAdminEmail,
			Name:            *createAdminName,
			Phone:           *createAdminPhone,
			Password:        pwd,
			PasswordConfirm: pwd,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordLogin == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordLogin, pwd)

	case "migrate":
		if len(args) < 3 {
			fmt.Println("Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])

	case "remindfees":
		if err := remindFeesCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *remindFeesDaily {
			return cli.remindFeesDaily(*remindFeesWindow)
		}
		_, err := cli.remindFees(context.Background(), *remindFeesWindow)
		return err

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) interruptSignal() <-chan os.Signal {
	if cli.interrupt != nil {
		return cli.interrupt()
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}
