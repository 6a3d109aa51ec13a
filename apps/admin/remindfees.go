package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/fee"
)

// remindFees runs one reminder pass for today.
func (cli *commandLine) remindFees(ctx context.Context, window int) (fee.ReminderSummary, error) {
	summary, err := cli.feeSvc.RemindUpcoming(ctx, core.Date{}, window)
	cli.logger.Info(fmt.Sprintf("fee reminders: %d students, %d sent, %d suppressed, %d failed",
		summary.Students, summary.Sent, summary.Suppressed, summary.Failed))
	if err != nil {
		return summary, errors.Wrap(err, "reminding fees")
	}
	return summary, nil
}

// remindFeesDaily runs remindFees on the configured schedule until interrupted.
// Reruns within a day are harmless: every student gets at most one reminder a day.
func (cli *commandLine) remindFeesDaily(window int) error {
	c := cron.New(cron.WithLocation(cli.conf.Location()))
	_, err := c.AddFunc(cli.conf.Fees.ReminderSchedule, func() {
		if _, err := cli.remindFees(context.Background(), window); err != nil {
			cli.logger.Error(err.Error(), err)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "invalid reminder schedule %q", cli.conf.Fees.ReminderSchedule)
	}

	cli.logger.Info("fee reminders scheduled: " + cli.conf.Fees.ReminderSchedule)
	c.Start()
	sig := <-cli.interruptSignal()
	cli.logger.Info(fmt.Sprintf("%v: stopping fee reminders...", sig))
	<-c.Stop().Done()
	return nil
}
