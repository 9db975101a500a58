package service

import (
	"github.com/sakif/todo-manager/internal/apperror"
	"github.com/sakif/todo-manager/internal/auth"
	"github.com/sakif/todo-manager/internal/model"
)

// Credential is what a user presents at login. It is a closed set:
// PasswordCredential or OAuthCredential.
type Credential interface {
	authType() model.AuthType
	// validate checks the raw input before any store access.
	validate() error
	// newUser builds the record stored when the email is unknown.
	newUser() model.User
	// admit checks the credential against an existing record of the same
	// auth type and returns the record to use as the session, plus whether
	// the registry entry changed.
	admit(existing model.User) (model.User, bool, error)
	// greeting is the name used in the welcome-back message.
	greeting() string
}

// PasswordCredential is an email/password login. Passwords are compared in
// plain text.
type PasswordCredential struct {
	Email    string
	Password string
}

func (c PasswordCredential) authType() model.AuthType { return model.AuthPassword }

// validate reports every field problem at once. An empty field suppresses
// the format check for that field.
func (c PasswordCredential) validate() error {
	var errs apperror.FieldErrors

	if c.Email == "" {
		errs = append(errs, apperror.MissingField("email", "Email is required"))
	} else if !auth.ValidateEmail(c.Email) {
		errs = append(errs, apperror.InvalidFormat("email", "Invalid email format"))
	}

	switch {
	case c.Password == "":
		errs = append(errs, apperror.MissingField("password", "Password is required"))
	case len(c.Password) < auth.MinPasswordLength:
		errs = append(errs, apperror.InvalidFormat("password", "Password must be at least 6 characters"))
	case !auth.ValidatePassword(c.Password):
		errs = append(errs, apperror.InvalidFormat("password",
			"Invalid password format (Password must have at least one uppercase letter, one number, and one special character)"))
	}

	return errs.OrNil()
}

func (c PasswordCredential) newUser() model.User {
	return model.User{
		Name:     c.Email,
		Avatar:   model.DefaultAvatar,
		Email:    c.Email,
		Password: c.Password,
		AuthType: model.AuthPassword,
	}
}

func (c PasswordCredential) admit(existing model.User) (model.User, bool, error) {
	if existing.Password != c.Password {
		return model.User{}, false, apperror.IncorrectPassword()
	}
	return existing, false, nil
}

func (c PasswordCredential) greeting() string { return c.Email }

// OAuthCredential is an identity asserted by the OAuth2 provider. Nothing is
// checked beyond the presence of an email.
type OAuthCredential struct {
	Email  string
	Name   string
	Avatar string
}

func (c OAuthCredential) authType() model.AuthType { return model.AuthOAuth2 }

func (c OAuthCredential) validate() error {
	if c.Email == "" {
		return apperror.MissingField("email", "Email is required")
	}
	return nil
}

// newUser stores the email as the password placeholder; it is never checked.
func (c OAuthCredential) newUser() model.User {
	return model.User{
		Name:     c.Name,
		Avatar:   c.Avatar,
		Email:    c.Email,
		Password: c.Email,
		AuthType: model.AuthOAuth2,
	}
}

func (c OAuthCredential) admit(existing model.User) (model.User, bool, error) {
	changed := existing.Name != c.Name || existing.Avatar != c.Avatar
	existing.Name = c.Name
	existing.Avatar = c.Avatar
	return existing, changed, nil
}

func (c OAuthCredential) greeting() string { return c.Name }
