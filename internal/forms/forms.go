// Package forms validates the auth screens' input before anything is sent to
// the hosted service.
package forms

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// LoginForm is the sign-in screen
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminRegistrationForm is the administrator sign-up screen
type AdminRegistrationForm struct {
	FullName        string `json:"full_name" validate:"min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"min=8,hasupper,hasdigit"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

// CustomerRegistrationForm is the customer sign-up screen
type CustomerRegistrationForm struct {
	FullName        string `json:"full_name" validate:"min=2,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"min=8,hasupper,hasdigit"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

// ResetPasswordForm sets a new password from a recovery session
type ResetPasswordForm struct {
	Password string `json:"password" validate:"min=8,hasupper,hasdigit"`
	Confirm  string `json:"confirm" validate:"eqfield=Password"`
}

// ForgotPasswordForm requests a recovery link
type ForgotPasswordForm struct {
	Email string `json:"email" validate:"required,email"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their wire names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("hasupper", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), isASCIIUpper) >= 0
	})
	v.RegisterValidation("hasdigit", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), isASCIIDigit) >= 0
	})

	return v
}

func isASCIIUpper(r rune) bool {
	return r <= unicode.MaxASCII && unicode.IsUpper(r)
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Validate checks form and returns a *ValidationError listing one message per
// failing field
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out.Fields[field]; seen {
			continue
		}
		out.Fields[field] = message(field, fe.Tag(), fe.Param())
		out.order = append(out.order, field)
	}
	return out
}
