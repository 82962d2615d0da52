package forms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr
}

func TestLoginForm(t *testing.T) {
	tests := []struct {
		name   string
		form   LoginForm
		fields map[string]string
	}{
		{
			name: "valid",
			form: LoginForm{Email: "kasir@ivalora.id", Password: "x"},
		},
		{
			name:   "empty",
			form:   LoginForm{},
			fields: map[string]string{"email": "Email tidak valid", "password": "Password wajib diisi"},
		},
		{
			name:   "malformed email",
			form:   LoginForm{Email: "kasir@", Password: "secret"},
			fields: map[string]string{"email": "Email tidak valid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.form)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.fields, validationError(t, err).Fields)
		})
	}
}

func TestPasswordRules(t *testing.T) {
	tests := []struct {
		password string
		want     string
	}{
		{"Abc1", "Password minimal 8 karakter"},
		{"abcd1234", "Harus mengandung huruf kapital"},
		{"Abcdefgh", "Harus mengandung angka"},
		{"Abcd1234", ""},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := Validate(ResetPasswordForm{Password: tt.password, Confirm: tt.password})
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, validationError(t, err).Field("password"))
		})
	}
}

func TestPasswordMismatch(t *testing.T) {
	forms := map[string]any{
		"admin": AdminRegistrationForm{
			FullName: "Budi", Email: "new@x.com", Password: "Abcd1234", ConfirmPassword: "Abcd12345",
		},
		"customer": CustomerRegistrationForm{
			FullName: "Budi", Email: "new@x.com", Password: "Abcd1234", ConfirmPassword: "abcd1234",
		},
		"reset": ResetPasswordForm{Password: "Abcd1234", Confirm: "Abcd1235"},
	}

	for name, form := range forms {
		t.Run(name, func(t *testing.T) {
			verr := validationError(t, Validate(form))
			assert.Equal(t, "Password tidak cocok", verr.Error())
		})
	}
}

func TestCustomerRegistrationLimits(t *testing.T) {
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}

	err := Validate(CustomerRegistrationForm{
		FullName:        string(long),
		Email:           "new@x.com",
		Password:        "Abcd1234",
		ConfirmPassword: "Abcd1234",
	})
	verr := validationError(t, err)
	assert.Equal(t, []string{"full_name"}, verr.FieldNames())
	assert.Equal(t, "Nama maksimal 100 karakter", verr.First())

	// The admin form has no upper bound
	err = Validate(AdminRegistrationForm{
		FullName:        string(long),
		Email:           "new@x.com",
		Password:        "Abcd1234",
		ConfirmPassword: "Abcd1234",
	})
	assert.NoError(t, err)
}

func TestShortName(t *testing.T) {
	verr := validationError(t, Validate(AdminRegistrationForm{
		FullName:        "B",
		Email:           "new@x.com",
		Password:        "Abcd1234",
		ConfirmPassword: "Abcd1234",
	}))
	assert.Equal(t, "Nama minimal 2 karakter", verr.Field("full_name"))
}

func TestForgotPasswordForm(t *testing.T) {
	assert.NoError(t, Validate(ForgotPasswordForm{Email: "kasir@ivalora.id"}))
	assert.Equal(t, "Email tidak valid", validationError(t, Validate(ForgotPasswordForm{})).First())
}
