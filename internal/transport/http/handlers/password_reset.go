package http_handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/application/reset"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/transport/http/dto"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/transport/http/middleware"
	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/transport/http/response"
)

// ResetService is the slice of reset.Service the handlers call.
type ResetService interface {
	Request(ctx context.Context, email string) (reset.RequestResult, error)
	ValidateToken(ctx context.Context, secret string) (reset.ValidateResult, error)
	Reset(ctx context.Context, secret, newPassword string) error
}

type PasswordResetHandler struct {
	svc ResetService
}

func NewPasswordResetHandler(svc ResetService) *PasswordResetHandler {
	return &PasswordResetHandler{svc: svc}
}

// Request handles POST /password-reset/request
func (h *PasswordResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if !decodeAndValidate(w, r, &req, "request") {
		return
	}

	res, err := h.svc.Request(r.Context(), req.Email)
	if err != nil {
		fail(w, r, "request", err)
		return
	}

	out := dto.PasswordResetRequestResponse{Message: res.Message}
	if res.Debug != nil {
		out.Debug = &dto.DebugToken{
			Token:     res.Debug.Token,
			ResetURL:  res.Debug.ResetURL,
			ExpiresAt: res.Debug.ExpiresAt.UTC().Format(time.RFC3339),
		}
	}
	middleware.PasswordResetTotal.WithLabelValues("request", "accepted").Inc()
	response.OK(w, out)
}

// ValidateToken handles POST /password-reset/validate-token
func (h *PasswordResetHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateTokenRequest
	if !decodeAndValidate(w, r, &req, "validate") {
		return
	}

	res, err := h.svc.ValidateToken(r.Context(), req.Token)
	if err != nil {
		fail(w, r, "validate", err)
		return
	}

	middleware.PasswordResetTotal.WithLabelValues("validate", "valid").Inc()
	response.OK(w, dto.ValidateTokenResponse{Message: res.Message, Email: res.Email})
}

// Reset handles POST /password-reset/reset
func (h *PasswordResetHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetConfirmRequest
	if !decodeAndValidate(w, r, &req, "reset") {
		return
	}

	if err := h.svc.Reset(r.Context(), req.Token, req.NewPassword); err != nil {
		fail(w, r, "reset", err)
		return
	}

	middleware.PasswordResetTotal.WithLabelValues("reset", "completed").Inc()
	response.OK(w, dto.MessageResponse{Message: reset.ResetSuccessMessage})
}

type validatable interface {
	Validate() error
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req validatable, step string) bool {
	if err := response.DecodeJSON(r, req); err != nil {
		fail(w, r, step, err)
		return false
	}
	if err := req.Validate(); err != nil {
		fail(w, r, step, err)
		return false
	}
	return true
}

func fail(w http.ResponseWriter, r *http.Request, step string, err error) {
	middleware.PasswordResetTotal.WithLabelValues(step, string(domain.KindOf(err))).Inc()
	response.WriteError(w, r, err)
}
