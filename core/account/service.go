package account

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
)

var (
	// errors
	ErrEmailExists        = errors.New("this email is already in use")
	ErrPhoneExists        = errors.New("this phone number is already in use")
	ErrInvalidCredentials = errors.New("invalid email, phone number, or password")
	ErrRoleMismatch       = errors.New("the selected role does not match your account")
	ErrPendingApproval    = errors.New("account pending approval")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrEmailExists or ErrPhoneExists if another account
		// (other than excludedID) already uses email or phone.
		CheckUniqueness(ctx context.Context, email, phone, excludedID string) error
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccount(ctx context.Context, id string) (Account, error)
		// GetAccountByLogin finds an account by email or phone number.
		GetAccountByLogin(ctx context.Context, login string) (Account, error)
		// QueryAccounts applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Name, Email or Phone.
		QueryAccounts(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error)
		CountAccounts(ctx context.Context, filter *QueryFilter) (int, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
	}

	// ProfileProvisioner creates whatever a fresh account of a given role needs.
	ProfileProvisioner interface {
		Provision(ctx context.Context, acc Account) error
	}

	Service struct {
		repo     Repository
		profiles ProfileProvisioner
		mailSvc  core.EmailService
		validate *validator.Validate
		conf     *core.Config
	}
)

func NewService(repo Repository, profiles ProfileProvisioner, mailSvc core.EmailService, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		profiles: profiles,
		mailSvc:  mailSvc,
		validate: validate,
		conf:     conf,
	}
}

var orderableFields = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

func (svc *Service) checkUniqueness(ctx context.Context, email, phone, excludedID string) error {
	if err := svc.repo.CheckUniqueness(ctx, email, phone, excludedID); err != nil {
		var field string
		switch err {
		case ErrEmailExists:
			field = "email"
		case ErrPhoneExists:
			field = "phone"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) create(ctx context.Context, acc Account, pwd string) (Account, error) {
	now := core.NowFunc().UTC()
	acc.ID = uuid.New().String()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc, err := svc.repo.CreateAccount(ctx, acc)
	if err != nil {
		return Account{}, errors.Wrap(err, "creating account")
	}
	return acc, nil
}

func (svc *Service) provisionHook(acc Account) func(context.Context) error {
	return func(ctx context.Context) error {
		if svc.profiles == nil {
			return nil
		}
		return svc.profiles.Provision(ctx, acc)
	}
}

// Register creates an unapproved account.
func (svc *Service) Register(ctx context.Context, na NewAccount) (Account, core.AfterCommit, error) {
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return Account{}, nil, err
	}
	if err := svc.checkUniqueness(ctx, na.Email, na.Phone, ""); err != nil {
		return Account{}, nil, err
	}

	acc, err := svc.create(ctx, Account{
		Email: na.Email,
		Phone: null.NewString(na.Phone, na.Phone != ""),
		Name:  na.Name,
		Role:  na.Role,
	}, na.Password)
	if err != nil {
		return Account{}, nil, err
	}

	var hooks core.AfterCommit
	hooks.Add("provision profile", svc.provisionHook(acc))
	hooks.Add("welcome email", svc.sendHook(welcomeMessage(acc, true)))
	return acc, hooks, nil
}

// Create makes a pre-approved account with a random password, mailed to its owner.
func (svc *Service) Create(ctx context.Context, capa Capability, na AdminNewAccount) (Account, core.AfterCommit, error) {
	if err := capa.Require(RoleAdmin); err != nil {
		return Account{}, nil, err
	}
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return Account{}, nil, err
	}
	if err := svc.checkUniqueness(ctx, na.Email, na.Phone, ""); err != nil {
		return Account{}, nil, err
	}

	pwd, err := GeneratePassword(12)
	if err != nil {
		return Account{}, nil, errors.Wrap(err, "generating password")
	}
	acc, err := svc.create(ctx, Account{
		Email:      na.Email,
		Phone:      null.NewString(na.Phone, na.Phone != ""),
		Name:       na.Name,
		Role:       na.Role,
		IsApproved: true,
	}, pwd)
	if err != nil {
		return Account{}, nil, err
	}

	var hooks core.AfterCommit
	hooks.Add("provision profile", svc.provisionHook(acc))
	hooks.Add("credentials email", svc.sendHook(credentialsMessage(acc, pwd)))
	return acc, hooks, nil
}

// CreateSuperuser creates an approved admin with the given password.
// It is reserved to the admin CLI, which runs with shell access to the host.
func (svc *Service) CreateSuperuser(ctx context.Context, na NewAccount) (Account, error) {
	na.Role = RoleAdmin
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return Account{}, err
	}
	if err := svc.checkUniqueness(ctx, na.Email, na.Phone, ""); err != nil {
		return Account{}, err
	}
	return svc.create(ctx, Account{
		Email:      na.Email,
		Phone:      null.NewString(na.Phone, na.Phone != ""),
		Name:       na.Name,
		Role:       RoleAdmin,
		IsApproved: true,
	}, na.Password)
}

// Approve lets an account log in.
func (svc *Service) Approve(ctx context.Context, capa Capability, id string) (Account, core.AfterCommit, error) {
	if err := capa.Require(RoleAdmin); err != nil {
		return Account{}, nil, err
	}
	acc, err := svc.repo.GetAccount(ctx, id)
	if err != nil {
		return Account{}, nil, errors.Wrap(err, "finding account")
	}
	if acc.IsApproved {
		return acc, nil, nil
	}

	acc.IsApproved = true
	acc.UpdatedAt = core.NowFunc().UTC()
	if acc, err = svc.repo.UpdateAccount(ctx, acc); err != nil {
		return Account{}, nil, errors.Wrap(err, "approving account")
	}

	var hooks core.AfterCommit
	hooks.Add("approval email", svc.sendHook(approvedMessage(acc)))
	return acc, hooks, nil
}

// Authenticate checks credentials and stamps the account's last login.
func (svc *Service) Authenticate(ctx context.Context, creds LoginCredentials) (Account, error) {
	creds.Login = core.CleanString(creds.Login, true /* lower */)
	if err := svc.validate.Struct(creds); err != nil {
		return Account{}, err
	}

	acc, err := svc.repo.GetAccountByLogin(ctx, creds.Login)
	if err != nil {
		if core.IsNotFound(err) {
			return Account{}, core.NewValidationError(ErrInvalidCredentials)
		}
		return Account{}, errors.Wrap(err, "finding account by login")
	}
	if err = acc.CheckPassword(creds.Password); err != nil {
		return Account{}, core.NewValidationError(ErrInvalidCredentials)
	}
	if acc.Role != creds.Role {
		return Account{}, core.NewValidationError(ErrRoleMismatch)
	}
	if !acc.IsApproved {
		return Account{}, ErrPendingApproval
	}

	acc.LastLogin = null.TimeFrom(core.NowFunc().UTC())
	if acc, err = svc.repo.UpdateAccount(ctx, acc); err != nil {
		return Account{}, errors.Wrap(err, "setting last login")
	}
	return acc, nil
}

// Get returns an account to an admin or to its owner.
func (svc *Service) Get(ctx context.Context, capa Capability, id string) (Account, error) {
	if err := capa.Require(); err != nil {
		return Account{}, err
	}
	if capa.AccountID != id && capa.Role != RoleAdmin {
		return Account{}, core.ErrForbidden
	}
	acc, err := svc.repo.GetAccount(ctx, id)
	if err != nil {
		return Account{}, errors.Wrap(err, "finding account")
	}
	return acc, nil
}

// Lookup fetches an account without a capability check, for in-process collaborators.
func (svc *Service) Lookup(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, id)
}

func (svc *Service) Query(ctx context.Context, capa Capability, filter *QueryFilter, ordering []core.DBOrdering) ([]Account, error) {
	if err := capa.Require(RoleAdmin); err != nil {
		return nil, err
	}
	if filter != nil {
		filter.Clean()
		if filter.Role != "" && !filter.Role.Valid() {
			return nil, core.NewFieldError("role", roleText)
		}
	}
	ordering = core.CleanOrderings(ordering, orderableFields)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	accs, err := svc.repo.QueryAccounts(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	return accs, nil
}

// ListByRole is used by fan-out collaborators that email every account of a role.
func (svc *Service) ListByRole(ctx context.Context, roles ...Role) ([]Account, error) {
	var all []Account
	for _, role := range roles {
		accs, err := svc.repo.QueryAccounts(ctx, &QueryFilter{Role: role}, []core.DBOrdering{{Field: "created_at", Ascending: true}})
		if err != nil {
			return nil, errors.Wrapf(err, "querying %s accounts", role)
		}
		all = append(all, accs...)
	}
	return all, nil
}

// Stats returns the admin dashboard counters.
func (svc *Service) Stats(ctx context.Context, capa Capability) (Stats, error) {
	if err := capa.Require(RoleAdmin); err != nil {
		return Stats{}, err
	}
	var stats Stats
	var err error
	if stats.Students, err = svc.repo.CountAccounts(ctx, &QueryFilter{Role: RoleStudent}); err != nil {
		return Stats{}, errors.Wrap(err, "counting students")
	}
	if stats.Teachers, err = svc.repo.CountAccounts(ctx, &QueryFilter{Role: RoleTeacher}); err != nil {
		return Stats{}, errors.Wrap(err, "counting teachers")
	}
	pending := false
	if stats.Pending, err = svc.repo.QueryAccounts(ctx, &QueryFilter{IsApproved: &pending}, []core.DBOrdering{{Field: "created_at"}}); err != nil {
		return Stats{}, errors.Wrap(err, "querying pending accounts")
	}
	return stats, nil
}

// ResetPassword sets a new password on the account identified by rp.Login.
// Reserved to the admin CLI.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) (Account, error) {
	rp.Login = core.CleanString(rp.Login, true /* lower */)
	if err := svc.validate.Struct(rp); err != nil {
		return Account{}, err
	}
	acc, err := svc.repo.GetAccountByLogin(ctx, rp.Login)
	if err != nil {
		return Account{}, errors.Wrap(err, "finding account by login")
	}
	if err = acc.SetPassword(rp.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc.UpdatedAt = core.NowFunc().UTC()
	if acc, err = svc.repo.UpdateAccount(ctx, acc); err != nil {
		return Account{}, errors.Wrap(err, "updating password")
	}
	return acc, nil
}

func (svc *Service) sendHook(msg *core.EmailMessage) func(context.Context) error {
	return func(ctx context.Context) error {
		return svc.mailSvc.SendMessage(ctx, msg)
	}
}

const (
	pwdLower   = "abcdefghijkmnopqrstuvwxyz"
	pwdUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	pwdDigits  = "23456789"
	pwdSpecial = "!@#$%&*?"
)

// GeneratePassword returns a random password of length n (min 8) with every character class.
func GeneratePassword(n int) (string, error) {
	if n < pwdMinLen {
		n = pwdMinLen
	}
	classes := []string{pwdLower, pwdUpper, pwdDigits, pwdSpecial}
	all := pwdLower + pwdUpper + pwdDigits + pwdSpecial

	pwd := make([]byte, n)
	for i := range pwd {
		set := all
		if i < len(classes) {
			set = classes[i]
		}
		c, err := randIndex(len(set))
		if err != nil {
			return "", err
		}
		pwd[i] = set[c]
	}
	// shuffle so the class prefix is not predictable
	for i := len(pwd) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return "", err
		}
		pwd[i], pwd[j] = pwd[j], pwd[i]
	}
	return string(pwd), nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
