package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/arguslocks/emailpin/pkg/emailchange"
	"github.com/arguslocks/emailpin/pkg/pin"
)

// Handler exposes the email change and verification flows over HTTP. All
// routes assume a jwtauth verifier has already authenticated the request.
type Handler struct {
	service *emailchange.EmailChangeService
}

// NewHandler creates a new email change API handler
func NewHandler(service *emailchange.EmailChangeService) *Handler {
	return &Handler{
		service: service,
	}
}

// Routes returns the router for the email change API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/change", h.RequestEmailChange)
	r.Post("/change/confirm", h.ConfirmEmailChange)
	r.Delete("/change", h.CancelEmailChange)
	r.Post("/verify", h.RequestEmailVerification)
	r.Post("/verify/confirm", h.ConfirmEmailVerification)
	r.Get("/status", h.GetEmailStatus)
	return r
}

// RequestEmailChange handles POST /change
func (h *Handler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		slog.Error("Failed to get user ID from context", "error", err)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req RequestEmailChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.RequestEmailChange(r.Context(), userID, req.NewEmail, req.Password); err != nil {
		status, message := issueErrorStatus(err)
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: message})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RequestEmailChangeResponse{
		Message: "A confirmation PIN has been sent to the new address",
	})
}

// ConfirmEmailChange handles POST /change/confirm
func (h *Handler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		slog.Error("Failed to get user ID from context", "error", err)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.service.ConfirmEmailChange(r.Context(), userID, req.Pin)
	if err != nil {
		switch {
		case errors.Is(err, emailchange.ErrNoPendingChange):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{Error: "No pending email change"})
		default:
			slog.Error("Failed to confirm email change", "error", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "An error occurred while confirming the email change"})
		}
		return
	}

	writeConfirmResult(w, r, result, "Email address changed successfully")
}

// CancelEmailChange handles DELETE /change
func (h *Handler) CancelEmailChange(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		slog.Error("Failed to get user ID from context", "error", err)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.service.CancelEmailChange(r.Context(), userID); err != nil {
		slog.Error("Failed to cancel email change", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while cancelling the email change"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ConfirmResponse{Message: "Pending email change cancelled"})
}

// RequestEmailVerification handles POST /verify
func (h *Handler) RequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		slog.Error("Failed to get user ID from context", "error", err)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req RequestVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.RequestEmailVerification(r.Context(), userID, req.Password); err != nil {
		status, message := issueErrorStatus(err)
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: message})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RequestEmailChangeResponse{
		Message: "A verification PIN has been sent to your email address",
	})
}

// ConfirmEmailVerification handles POST /verify/confirm
func (h *Handler) ConfirmEmailVerification(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		slog.Error("Failed to get user ID from context", "error", err)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.service.ConfirmEmailVerification(r.Context(), userID, req.Pin)
	if err != nil {
		slog.Error("Failed to confirm email verification", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while verifying the email address"})
		return
	}

	writeConfirmResult(w, r, result, "Email address verified successfully")
}

// GetEmailStatus handles GET /status
func (h *Handler) GetEmailStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		slog.Error("Failed to get user ID from context", "error", err)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	status, err := h.service.GetEmailStatus(r.Context(), userID)
	if err != nil {
		if errors.Is(err, emailchange.ErrUserNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{Error: "User not found"})
			return
		}
		slog.Error("Failed to get email status", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while retrieving email status"})
		return
	}

	var response EmailStatusResponse
	if err := copier.Copy(&response, &status); err != nil {
		slog.Error("Failed to map email status", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while retrieving email status"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

// writeConfirmResult maps a PIN verification outcome to an HTTP response.
// Only infrastructure failures reach here as errors; every protocol outcome
// is an ordinary result.
func writeConfirmResult(w http.ResponseWriter, r *http.Request, result pin.VerifyResult, successMessage string) {
	switch result.Outcome {
	case pin.VerifySuccess:
		render.Status(r, http.StatusOK)
		render.JSON(w, r, ConfirmResponse{Message: successMessage})
	case pin.VerifyWrongPin:
		remaining := result.AttemptsRemaining
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ConfirmResponse{
			Message:           "Incorrect PIN",
			AttemptsRemaining: &remaining,
		})
	case pin.VerifyExpired:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ConfirmResponse{Message: "PIN has expired, request a new one"})
	case pin.VerifyExhausted:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ConfirmResponse{Message: "Too many incorrect attempts, request a new PIN"})
	default:
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ConfirmResponse{Message: "No active PIN for this account"})
	}
}

// issueErrorStatus maps PIN issuance failures to HTTP statuses.
func issueErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, emailchange.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, emailchange.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email address"
	case errors.Is(err, emailchange.ErrSameEmail):
		return http.StatusBadRequest, "New email is the same as the current one"
	case errors.Is(err, emailchange.ErrAlreadyVerified):
		return http.StatusBadRequest, "Email is already verified"
	case errors.Is(err, pin.ErrAuthFailed):
		return http.StatusUnauthorized, "Reauthentication failed"
	case errors.Is(err, pin.ErrCooldownActive):
		return http.StatusTooManyRequests, "A PIN was just sent, please wait before requesting another"
	case errors.Is(err, pin.ErrDeliveryFailed):
		slog.Error("Failed to deliver PIN email", "error", err)
		return http.StatusInternalServerError, "Failed to send the PIN email"
	default:
		slog.Error("Failed to issue PIN", "error", err)
		return http.StatusInternalServerError, "An error occurred while sending the PIN"
	}
}

// getUserIDFromContext extracts the user ID from the JWT claims placed in
// the request context by the jwtauth verifier.
func getUserIDFromContext(r *http.Request) (uuid.UUID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, err
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok || userIDStr == "" {
		return uuid.Nil, errors.New("user_id not found in JWT claims")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, errors.New("invalid user_id in JWT claims")
	}

	return userID, nil
}
