// Package validation checks request payloads with go-playground/validator and the account and
// video text rules of the platform.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	fullNamePattern    = regexp.MustCompile(`^[a-zA-Z\s'-]{4,}$`)
	usernamePattern    = regexp.MustCompile(`^[a-zA-Z0-9_]{4,}$`)
	emailPattern       = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	titlePattern       = regexp.MustCompile(`^[a-zA-Z0-9\s.,!?'"()_-]{4,}$`)
	descriptionPattern = regexp.MustCompile(`^[\w\s.,!?'"()_-]{4,}$`)
)

// messages explains each custom tag to API clients.
var messages = map[string]string{
	"required":    "is required",
	"fullname":    "must be at least 4 letters, spaces, apostrophes or hyphens",
	"username":    "must be at least 4 letters, digits or underscores",
	"mailbox":     "must be a valid email address",
	"password":    "must be at least 8 letters and digits with one lowercase, one uppercase and one digit",
	"title":       "must be at least 4 characters of letters, digits, spaces or basic punctuation",
	"description": "must be at least 4 characters of letters, digits, spaces or basic punctuation",
	"max":         "is too long",
	"uuid":        "must be a valid identifier",
	"json":        "must be a valid JSON object",
}

// Validator wraps a configured validator.Validate. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New registers the custom rules and reports fields by their JSON names.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)

	_ = v.RegisterValidation("fullname", matches(fullNamePattern))
	_ = v.RegisterValidation("username", matches(usernamePattern))
	_ = v.RegisterValidation("mailbox", matches(emailPattern))
	_ = v.RegisterValidation("title", matches(titlePattern))
	_ = v.RegisterValidation("description", matches(descriptionPattern))
	_ = v.RegisterValidation("password", validatePassword)

	return &Validator{validate: v}
}

// Struct validates s and returns a *Error describing the first failing field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate: %w", err)
	}
	first := fieldErrs[0]
	return &Error{Field: first.Field(), Tag: first.Tag()}
}

// Var validates a single value against tag, naming it field in the error.
func (v *Validator) Var(field string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate %s: %w", field, err)
	}
	return &Error{Field: field, Tag: fieldErrs[0].Tag()}
}

// Error is a rule violation on one field.
type Error struct {
	Field string
	Tag   string
}

func (e *Error) Error() string {
	msg, ok := messages[e.Tag]
	if !ok {
		msg = "is invalid"
	}
	return fmt.Sprintf("%s %s", e.Field, msg)
}

// IsValidation reports whether err is a rule violation.
func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

func matches(pattern *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}
}

// validatePassword requires 8+ ASCII letters and digits with a lowercase, an uppercase and a digit.
func validatePassword(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) < 8 {
		return false
	}

	var hasUpper, hasLower, hasDigit bool
	for _, char := range value {
		if char > unicode.MaxASCII {
			return false
		}
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		default:
			return false
		}
	}
	return hasUpper && hasLower && hasDigit
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}
