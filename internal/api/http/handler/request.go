package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dtroode/accounts-server/internal/model"
)

const maxJSONBody = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type registerRequest struct {
	Phone           string  `json:"phone" validate:"required"`
	Username        string  `json:"username" validate:"required,max=150"`
	Password        string  `json:"password" validate:"required"`
	PasswordConfirm string  `json:"password_confirm" validate:"required"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Bio             string  `json:"bio" validate:"max=500"`
}

type tokenRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type smsSendRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type smsLoginRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,numeric"`
}

type changePasswordRequest struct {
	Old        string `json:"old"`
	New        string `json:"new" validate:"required"`
	NewConfirm string `json:"new_confirm" validate:"required"`
}

type updateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,max=150"`
	Phone    *string `json:"phone" validate:"omitempty"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
// Every failure is an invalid_input error.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return model.NewInvalidInput("", "request body is empty")
		case errors.As(err, &typeErr):
			return model.NewInvalidInput(typeErr.Field, fmt.Sprintf("%s has the wrong type", typeErr.Field))
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return model.NewInvalidInput(field, fmt.Sprintf("unknown field %s", field))
		default:
			return model.NewInvalidInput("", "request body is not valid JSON")
		}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return model.NewInvalidInput("", "request body must contain a single JSON object")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return validationError(verrs[0])
		}
		return model.NewInvalidInput("", "request is invalid")
	}
	return nil
}

func validationError(fe validator.FieldError) error {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return model.NewInvalidInput(field, fmt.Sprintf("%s is required", field))
	case "max":
		return model.NewInvalidInput(field, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	case "email":
		return model.NewInvalidInput(field, "email is not a valid address")
	case "numeric":
		return model.NewInvalidInput(field, fmt.Sprintf("%s must contain only digits", field))
	default:
		return model.NewInvalidInput(field, fmt.Sprintf("%s is invalid", field))
	}
}
