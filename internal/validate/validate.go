package validate

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Error is a rule violation on caller input. Handlers turn it into a 400.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func Errorf(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err (or anything it wraps) is a validation error.
func IsValidation(err error) bool {
	var v *Error
	return errors.As(err, &v)
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	urlPattern   = regexp.MustCompile(`^https?://[^\s/$.?#][^\s]*$`)
)

func Required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return Errorf(field, "is required")
	}
	return nil
}

func Email(field, v string) error {
	if err := Required(field, v); err != nil {
		return err
	}
	if !emailPattern.MatchString(strings.TrimSpace(v)) {
		return Errorf(field, "is not a valid email address")
	}
	return nil
}

// RedirectURL accepts absolute http(s) URLs only.
func RedirectURL(field, v string) error {
	v = strings.TrimSpace(v)
	if err := Required(field, v); err != nil {
		return err
	}
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		return Errorf(field, "must start with http:// or https://")
	}
	if !urlPattern.MatchString(v) {
		return Errorf(field, "is not a valid URL")
	}
	u, err := url.Parse(v)
	if err != nil || u.Host == "" {
		return Errorf(field, "is not a valid URL")
	}
	return nil
}

func MinLength(field, v string, n int) error {
	if len([]rune(v)) < n {
		return Errorf(field, "must be at least %d characters", n)
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
