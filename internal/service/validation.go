package service

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"eato/internal/model"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var contactPattern = regexp.MustCompile(`^\+?\d{1,4}[\s-]?\d{4,15}$`)

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// validateStruct runs tag validation and converts the first failure into a
// domain error naming the field.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return model.Errorf(model.ErrCodeMissingField, "%s is required", lowerFirst(fe.Field()))
		}
		return model.Errorf(model.ErrCodeValidationFailed, "%s is invalid (%s)", lowerFirst(fe.Field()), fe.Tag())
	}
	return model.NewDomainError(model.ErrCodeValidationFailed, err.Error())
}

func validEmail(email string) bool {
	return validate.Var(email, "required,email,max=255") == nil
}

func validContact(contact string) bool {
	return contactPattern.MatchString(contact)
}

// checkPassword enforces the account password policy.
func checkPassword(pw string) error {
	if strings.ContainsAny(pw, " \t\r\n") {
		return model.NewDomainError(model.ErrCodeWeakPassword, "Password must not contain spaces")
	}
	if n := len([]rune(pw)); n < 6 || n > 15 {
		return model.NewDomainError(model.ErrCodeWeakPassword, "Password must be between 6 and 15 characters")
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return model.NewDomainError(model.ErrCodeWeakPassword,
			"Password must contain at least one uppercase letter, one lowercase letter, one number and one special character")
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
