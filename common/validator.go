package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// Password policy. bcrypt rejects inputs longer than 72 bytes, so the
// upper bound is measured in bytes rather than runes.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
	passwordTag       = "password"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation(passwordTag, validatePassword)
	return v
}

// StrongPassword reports whether s has at least 8 characters, fits in 72
// bytes and mixes ASCII lower case, upper case, digits and other characters.
func StrongPassword(s string) bool {
	if utf8.RuneCountInString(s) < MinPasswordLength || len(s) > MaxPasswordBytes {
		return false
	}
	var lower, upper, digit, special bool
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		default:
			special = true
		}
	}
	return lower && upper && digit && special
}

func validatePassword(fl validator.FieldLevel) bool {
	return StrongPassword(fl.Field().String())
}

// ValidateAndDecode decodes the JSON body into payload and runs its validate tags.
func ValidateAndDecode(r *http.Request, payload interface{}) *AppError {
	if r.Body == nil {
		return NewAppError(http.StatusBadRequest, "Invalid request body", nil)
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(payload); err != nil {
		return NewAppError(http.StatusBadRequest, "Invalid request body", err)
	}

	if err := validate.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewAppError(http.StatusBadRequest, validationErrors.Error(), nil)
		}
		return NewAppError(http.StatusBadRequest, "Invalid request body", err)
	}

	return nil
}
