package api

// RequestEmailChangeRequest asks for a PIN to be sent to a new address.
type RequestEmailChangeRequest struct {
	NewEmail string `json:"new_email"`
	Password string `json:"password"`
}

// RequestEmailChangeResponse acknowledges a PIN was sent.
type RequestEmailChangeResponse struct {
	Message string `json:"message"`
}

// ConfirmRequest carries the PIN entered by the user.
type ConfirmRequest struct {
	Pin string `json:"pin"`
}

// ConfirmResponse reports the result of a confirmation attempt.
type ConfirmResponse struct {
	Message           string `json:"message"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
}

// RequestVerificationRequest asks for a PIN to be sent to the current
// address to prove continued control of it.
type RequestVerificationRequest struct {
	Password string `json:"password"`
}

// EmailStatusResponse describes the account's email state.
type EmailStatusResponse struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	PendingEmail  string `json:"pending_email,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
