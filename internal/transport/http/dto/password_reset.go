package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

// MinNewPasswordLength matches the reset flow's binding minimum.
const MinNewPasswordLength = 8

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// -------- Password reset --------

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (r *PasswordResetRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validateStruct(r)
}

type ValidateTokenRequest struct {
	Token string `json:"token" validate:"required,max=256"`
}

func (r *ValidateTokenRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	return validateStruct(r)
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required,max=256"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (r *PasswordResetConfirmRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	return validateStruct(r)
}

// validateStruct maps the first validator failure onto the domain taxonomy.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.ErrInternal(err)
	}

	fe := verrs[0]
	switch {
	case fe.Tag() == "required":
		return domain.ErrMissingField(fe.Field())
	case fe.Field() == "newPassword" && fe.Tag() == "min":
		return domain.ErrWeakPassword(fmt.Sprintf("min length %d", MinNewPasswordLength))
	case fe.Tag() == "email":
		return domain.ErrInvalidField(fe.Field(), "invalid format")
	case fe.Tag() == "max":
		return domain.ErrInvalidField(fe.Field(), "too long")
	default:
		return domain.ErrInvalidField(fe.Field(), fe.Tag())
	}
}

// -------- Responses --------

type MessageResponse struct {
	Message string `json:"message"`
}

type DebugToken struct {
	Token     string `json:"token"`
	ResetURL  string `json:"resetUrl"`
	ExpiresAt string `json:"expiresAt"`
}

type PasswordResetRequestResponse struct {
	Message string      `json:"message"`
	Debug   *DebugToken `json:"debug,omitempty"`
}

type ValidateTokenResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}
