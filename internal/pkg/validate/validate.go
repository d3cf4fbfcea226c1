package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return &Error{Fields: ve, msg: strings.Join(msgs, "; ")}
	}
	return nil
}

// Error wraps the validator's field errors so callers can pick a message per failure.
type Error struct {
	Fields validator.ValidationErrors
	msg    string
}

func (e *Error) Error() string { return e.msg }

// Failed reports whether err contains a failure of tag on field.
func Failed(err error, field, tag string) bool {
	var ve *Error
	if !errors.As(err, &ve) {
		return false
	}
	for _, fe := range ve.Fields {
		if fe.Field() == field && fe.Tag() == tag {
			return true
		}
	}
	return false
}
