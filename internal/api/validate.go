package api

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"example.com/mediascribe/internal/apperr"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their json names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return strings.ToLower(fld.Name)
			}
			return name
		})
	})
	return validate
}

// validateStruct returns an apperr validation error listing every failing
// field, or nil.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.InvalidInput("Invalid input").WithCause(err)
	}
	fields := make(map[string][]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = append(fields[e.Field()], fieldMessage(e))
	}
	return apperr.Validation(fields)
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Ensure this field has at least " + e.Param() + " characters."
	case "max":
		return "Ensure this field has no more than " + e.Param() + " characters."
	default:
		return "This field is invalid."
	}
}
