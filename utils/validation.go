package utils

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldValidationError represents a validation error for a specific field
type FieldValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationErrors represents multiple field validation errors
type FieldValidationErrors []FieldValidationError

// Error implements the error interface
func (e FieldValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	htmlTagRegex  = regexp.MustCompile(`<[^>]*>`)
	hasLower      = regexp.MustCompile(`[a-z]`)
	hasUpper      = regexp.MustCompile(`[A-Z]`)
	hasNumber     = regexp.MustCompile(`[0-9]`)
)

// SanitizeString escapes HTML and strips tags from free text
func SanitizeString(input string) string {
	sanitized := html.EscapeString(strings.TrimSpace(input))
	return htmlTagRegex.ReplaceAllString(sanitized, "")
}

// ValidateUsername checks if the username meets the requirements
func ValidateUsername(username string) (bool, string) {
	if len(username) < 3 {
		return false, "Username must be at least 3 characters long"
	}
	if len(username) > 20 {
		return false, "Username must not exceed 20 characters"
	}
	if !usernameRegex.MatchString(username) {
		return false, "Username can only contain letters, numbers, and underscores"
	}
	return true, ""
}

// ValidateEmail checks if the email is valid
func ValidateEmail(email string) (bool, string) {
	if !emailRegex.MatchString(email) {
		return false, "Invalid email format. Please enter a valid email address"
	}
	return true, ""
}

// ValidatePassword checks if the password meets the requirements
func ValidatePassword(password string) (bool, string) {
	if len(password) < MinPasswordLength {
		return false, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return false, fmt.Sprintf("Password must not exceed %d characters", MaxPasswordLength)
	}
	if !hasLower.MatchString(password) {
		return false, "Password must contain at least one lowercase letter"
	}
	if !hasUpper.MatchString(password) {
		return false, "Password must contain at least one uppercase letter"
	}
	if !hasNumber.MatchString(password) {
		return false, "Password must contain at least one number"
	}
	return true, ""
}

// ErrInvalidMSISDN is returned for numbers that are not Kenyan mobile numbers.
var ErrInvalidMSISDN = errors.New(ErrInvalidPhone)

// NormalizeMSISDN converts a Kenyan mobile number to the 2547XXXXXXXX /
// 2541XXXXXXXX form the gateway charges. Accepted inputs include 0712345678,
// +254712345678, 254712345678 and 712345678, with spaces or dashes.
func NormalizeMSISDN(phone string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		if r == ' ' || r == '-' || r == '+' || r == '(' || r == ')' {
			return -1
		}
		return 'x'
	}, strings.TrimSpace(phone))
	if strings.ContainsRune(digits, 'x') {
		return "", ErrInvalidMSISDN
	}

	switch {
	case strings.HasPrefix(digits, "254") && len(digits) == 12:
		digits = digits[3:]
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		digits = digits[1:]
	}
	if len(digits) != 9 || (digits[0] != '7' && digits[0] != '1') {
		return "", ErrInvalidMSISDN
	}
	return "254" + digits, nil
}

func validateMSISDN(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := NormalizeMSISDN(fl.Field().String())
	return err == nil
}

// RegisterValidators adds the custom binding tags used by request structs:
// msisdn accepts any number NormalizeMSISDN understands.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not validator/v10")
	}
	return v.RegisterValidation("msisdn", validateMSISDN)
}

// BindingErrors turns validator errors into per-field messages.
func BindingErrors(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	out := make(FieldValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("failed on %s", fe.Tag())
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "msisdn":
			msg = ErrInvalidPhone
		case "oneof":
			msg = "must be one of: " + fe.Param()
		case "gt":
			msg = "must be greater than " + fe.Param()
		case "gte", "min":
			msg = "must be at least " + fe.Param()
		}
		out = append(out, FieldValidationError{Field: fe.Field(), Message: msg})
	}
	return out
}
