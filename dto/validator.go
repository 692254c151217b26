package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("notblank", validators.NotBlank)
}

func GetValidator() *validator.Validate {
	return validate
}

type ValidationError struct {
	Field   string `json:"field" example:"topic"`
	Message string `json:"message" example:"topic is required"`
}

func FormatValidationErrors(err error) []ValidationError {
	var out []ValidationError

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return out
	}

	for _, fieldError := range validationErrors {
		var message string

		switch fieldError.Tag() {
		case "required", "notblank":
			message = fieldError.Field() + " is required"
		case "min":
			message = fieldError.Field() + " must be at least " + fieldError.Param()
		case "max":
			message = fieldError.Field() + " must be at most " + fieldError.Param()
		case "url":
			message = fieldError.Field() + " must be a valid URL"
		case "oneof":
			message = fieldError.Field() + " must be one of: " + fieldError.Param()
		case "dive":
			message = fieldError.Field() + " contains invalid items"
		default:
			message = fieldError.Field() + " is invalid"
		}

		out = append(out, ValidationError{
			Field:   fieldError.Field(),
			Message: message,
		})
	}

	return out
}

type Validator interface {
	Validate() error
}
