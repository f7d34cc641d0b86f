package utils

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cityinfra/trafficcontrol/internal/shared/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Command options report their flag name, everything else its json name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("flag"); name != "" {
			return "--" + name
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateStruct returns a validation error listing every failed field.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, getFieldErrorMessage(fe))
	}
	return errors.NewValidationError("Validation failed", strings.Join(msgs, "; "))
}

// IsValidEmail reports whether addr is a single well-formed address.
func IsValidEmail(addr string) bool {
	if strings.ContainsAny(addr, "\r\n") {
		return false
	}
	return validate.Var(addr, "required,email") == nil
}

var fieldMessages = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"gt":       "%s must be greater than %s",
	"gte":      "%s must be greater than or equal to %s",
	"lte":      "%s must be less than or equal to %s",
	"oneof":    "%s must be one of [%s]",
	"uuid":     "%s must be a valid UUID",
	"file":     "%s must be an existing file",
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if tag == "min" || tag == "max" {
		bound := map[string]string{"min": "at least", "max": "at most"}[tag]
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s %s characters long", field, bound, param)
		}
		return fmt.Sprintf("%s must be %s %s", field, bound, param)
	}
	msg, ok := fieldMessages[tag]
	if !ok {
		return fmt.Sprintf("%s failed validation for '%s'", field, tag)
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, field, param)
	}
	return fmt.Sprintf(msg, field)
}
