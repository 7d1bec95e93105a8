package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	apperrors "github.com/tendant/simple-verify/pkg/errors"
	"github.com/tendant/simple-verify/pkg/flows"
)

// Handler exposes the flow operations over HTTP
type Handler struct {
	service *flows.Service
}

// NewHandler creates a new flows API handler
func NewHandler(service *flows.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// Routes returns a router with every flow endpoint mounted
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/email-verification", func(r chi.Router) {
		r.Post("/send", h.SendEmailVerification)
		r.Post("/verify", h.VerifyEmail)
		r.Post("/verify-code", h.VerifyEmailWithCode)
		r.Get("/status", h.GetVerificationStatus)
	})
	r.Route("/password-reset", func(r chi.Router) {
		r.Post("/request", h.RequestPasswordReset)
		r.Post("/validate", h.ValidatePasswordReset)
		r.Post("/complete", h.CompletePasswordReset)
	})
	r.Route("/email-change", func(r chi.Router) {
		r.Post("/request", h.RequestEmailChange)
		r.Post("/confirm", h.ConfirmEmailChange)
	})
	r.Route("/magic-link", func(r chi.Router) {
		r.Post("/request", h.RequestMagicLink)
		r.Post("/confirm", h.ConfirmMagicLink)
	})

	return r
}

func respond(w http.ResponseWriter, r *http.Request, result flows.Result) {
	render.Status(r, result.HTTPStatus())
	render.JSON(w, r, result)
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	respond(w, r, flows.ResultFromError(err))
}

// decode reads a JSON body into v, answering 400 itself on failure
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		slog.Error("Failed to decode request body", "path", r.URL.Path, "error", err)
		badRequest(w, r, flows.ErrInvalidInput)
		return false
	}
	return true
}

func parseUserID(w http.ResponseWriter, r *http.Request, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, r, apperrors.InvalidInput("user_id", "must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// SendEmailVerification handles POST /email-verification/send
func (h *Handler) SendEmailVerification(w http.ResponseWriter, r *http.Request) {
	var req SendVerificationRequest
	if !decode(w, r, &req) {
		return
	}
	userID, ok := parseUserID(w, r, req.UserID)
	if !ok {
		return
	}
	respond(w, r, h.service.SendEmailVerification(r.Context(), userID, req.Email))
}

// VerifyEmail handles POST /email-verification/verify
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, h.service.VerifyEmail(r.Context(), req.Token))
}

// VerifyEmailWithCode handles POST /email-verification/verify-code
func (h *Handler) VerifyEmailWithCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, h.service.VerifyEmailWithCode(r.Context(), req.Email, req.Code))
}

// GetVerificationStatus handles GET /email-verification/status?user_id=
func (h *Handler) GetVerificationStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}
	respond(w, r, h.service.GetVerificationStatus(r.Context(), userID))
}

// RequestPasswordReset handles POST /password-reset/request
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, h.service.RequestPasswordReset(r.Context(), req.Email))
}

// ValidatePasswordReset handles POST /password-reset/validate
func (h *Handler) ValidatePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, h.service.ValidatePasswordReset(r.Context(), req.Token))
}

// CompletePasswordReset handles POST /password-reset/complete
func (h *Handler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req CompletePasswordResetRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, h.service.CompletePasswordReset(r.Context(), req.Token, req.NewPassword))
}

// RequestEmailChange handles POST /email-change/request
func (h *Handler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	var req EmailChangeRequest
	if !decode(w, r, &req) {
		return
	}
	userID, ok := parseUserID(w, r, req.UserID)
	if !ok {
		return
	}
	respond(w, r, h.service.RequestEmailChange(r.Context(), userID, req.CurrentEmail, req.NewEmail))
}

// ConfirmEmailChange handles POST /email-change/confirm
func (h *Handler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, h.service.ConfirmEmailChange(r.Context(), req.Token))
}

// RequestMagicLink handles POST /magic-link/request
func (h *Handler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, h.service.RequestMagicLink(r.Context(), req.Email))
}

// ConfirmMagicLink handles POST /magic-link/confirm
func (h *Handler) ConfirmMagicLink(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, r, h.service.ConfirmMagicLink(r.Context(), req.Token))
}
