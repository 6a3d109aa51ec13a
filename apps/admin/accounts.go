package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core/account"
)

func (cli *commandLine) createAdmin(na account.NewAccount) error {
	acc, err := cli.accountSvc.CreateSuperuser(context.Background(), na)
	if err != nil {
		return err
	}
	cli.logger.Info("admin created: " + acc.Email)
	return nil
}

func (cli *commandLine) resetPassword(login, pwd string) error {
	acc, err := cli.accountSvc.ResetPassword(context.Background(), account.ResetPassword{
		Login:           login,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	if err != nil {
		return errors.Cause(err)
	}
	cli.logger.Info("password reset: " + acc.Email)
	return nil
}
