package user

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/courseapp/courseapp/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleLearner = "learner"
)

var AllRoles = []string{RoleAdmin, RoleLearner}

type User struct {
	ID           string     `json:"_id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Role         string     `json:"role" db:"role"`
	PasswordHash []byte     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"` // UTC
	LastLogin    *time.Time `json:"lastLogin,omitempty" db:"last_login"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin learner"`
}

func (nu *NewUser) Validate(validate *validator.Validate, translator ut.Translator, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleLearner
	}

	if err := core.ValidateStruct(validate, translator, nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Email)
}

// ResetPasswordRequest sets a new password on the account with Email.
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`

	name string // checked for similarity with the password
}

func (rp *ResetPasswordRequest) Validate(validate *validator.Validate, translator ut.Translator, svc *Service) error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	usr, err := svc.GetByEmail(rp.Email)
	if err != nil {
		return err
	}
	rp.name = usr.Name
	return core.ValidateStruct(validate, translator, rp)
}

// LoginRequest is the body of both login routes.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate, translator ut.Translator) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.ValidateStruct(validate, translator, lr)
}
