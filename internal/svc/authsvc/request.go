package authsvc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Bars-377/web-chat/internal/domain"
)

//nolint:gochecknoglobals
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// RegisterRequest is the body of a registration request.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginRequest holds the form values of a login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate checks r and returns a *domain.ValidationError for the first failing field.
func (r RegisterRequest) Validate() error {
	return validateStruct(r)
}

// Validate checks r and returns a *domain.ValidationError for the first failing field.
func (r LoginRequest) Validate() error {
	return validateStruct(r)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fieldErr := fieldErrs[0]

		return &domain.ValidationError{
			Field: fieldErr.Field(),
			Err:   fmt.Errorf("failed %q rule", fieldErr.Tag()),
		}
	}

	return &domain.ValidationError{Err: err}
}
