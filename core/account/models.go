package account

import (
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/shankerdev/campus/core"
)

type Role string

// Roles
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var Roles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

type Account struct {
	ID           string      `json:"id" db:"id"`
	Email        string      `json:"email" db:"email"`
	Phone        null.String `json:"phone" db:"phone"`
	Name         string      `json:"name" db:"name"`
	Role         Role        `json:"role" db:"role"`
	IsApproved   bool        `json:"is_approved" db:"is_approved"`
	PasswordHash []byte      `json:"-" db:"password_hash"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    null.Time   `json:"last_login" db:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a *Account) IsTeacher() bool { return a.Role == RoleTeacher }
func (a *Account) IsStudent() bool { return a.Role == RoleStudent }

// DisplayName falls back to the email when no name was given.
func (a *Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

func (a *Account) Address() mail.Address {
	return mail.Address{Name: a.Name, Address: a.Email}
}

// Capability is derived once from an authenticated account.
func (a *Account) Capability() Capability {
	return Capability{AccountID: a.ID, Role: a.Role}
}

// NewAccount contains information needed to self-register.
type NewAccount struct {
	Email           string `json:"email" validate:"required,campusemail"`
	Phone           string `json:"phone" validate:"omitempty,phone10"`
	Name            string `json:"name" validate:"max=100"`
	Role            Role   `json:"role" validate:"required,role"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAccount) Clean() {
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanString(na.Phone)
	na.Name = core.CleanString(na.Name)
}

// AdminNewAccount is what an admin provides to create a pre-approved account.
// The password is generated.
type AdminNewAccount struct {
	Email string `json:"email" validate:"required,campusemail"`
	Phone string `json:"phone" validate:"omitempty,phone10"`
	Name  string `json:"name" validate:"max=100"`
	Role  Role   `json:"role" validate:"required,role"`
}

func (na *AdminNewAccount) Clean() {
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanString(na.Phone)
	na.Name = core.CleanString(na.Name)
}

// LoginCredentials identify an account by email or phone number.
type LoginCredentials struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role" validate:"required,role"`
}

type ResetPassword struct {
	Login           string `json:"login" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type QueryFilter struct {
	Search     string `query:"search"`
	Role       Role   `query:"role"`
	IsApproved *bool  `query:"is_approved"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsApproved == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = Role(core.CleanString(string(qf.Role), true /* lower */))
}

// Stats backs the admin dashboard.
type Stats struct {
	Students int       `json:"students"`
	Teachers int       `json:"teachers"`
	Pending  []Account `json:"pending"`
}
