package account

import (
	"net/mail"

	"github.com/shankerdev/campus/core"
)

func welcomeMessage(acc Account, pending bool) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{acc.Address()},
		Subject:      "Welcome to ShankerDev Campus Portal",
		TemplateName: "welcome",
		TemplateData: struct {
			Name, Email, Role, Date string
			PendingApproval         bool
		}{
			Name:            acc.DisplayName(),
			Email:           acc.Email,
			Role:            acc.Role.String(),
			Date:            core.DateFrom(acc.CreatedAt).Long(),
			PendingApproval: pending,
		},
	}
}

func credentialsMessage(acc Account, pwd string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{acc.Address()},
		Subject:      "Your ShankerDev Campus Credentials",
		TemplateName: "credentials",
		TemplateData: struct{ Name, Email, Role, Password string }{
			Name:     acc.DisplayName(),
			Email:    acc.Email,
			Role:     acc.Role.String(),
			Password: pwd,
		},
	}
}

func approvedMessage(acc Account) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{acc.Address()},
		Subject:      "Account Approved",
		TemplateName: "account_approved",
		TemplateData: struct{ Name, Role string }{
			Name: acc.DisplayName(),
			Role: acc.Role.String(),
		},
	}
}
