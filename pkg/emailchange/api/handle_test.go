package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arguslocks/emailpin/pkg/emailchange"
	"github.com/arguslocks/emailpin/pkg/pin"
)

const (
	testJwtSecret = "test-jwt-secret-key"
	testPassword  = "account-password"
)

type captureSender struct {
	mutex   sync.Mutex
	lastPin string
}

func (s *captureSender) Send(ctx context.Context, toEmail, plaintextPin string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastPin = plaintextPin
	return nil
}

type staticReauth struct{ secret string }

func (p staticReauth) Reauthenticate(ctx context.Context, userID uuid.UUID, secret string) error {
	if secret != p.secret {
		return errors.New("invalid credential")
	}
	return nil
}

type apiFixture struct {
	router chi.Router
	auth   *jwtauth.JWTAuth
	sender *captureSender
	users  *emailchange.InMemoryUserRepository
	userID uuid.UUID
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	sender := &captureSender{}
	pins := pin.NewPinService(
		pin.NewInMemoryPinStore(),
		sender,
		staticReauth{secret: testPassword},
	)

	users := emailchange.NewInMemoryUserRepository()
	userID := uuid.New()
	users.SeedUser(emailchange.UserAccount{
		ID:            userID,
		Email:         "old@example.com",
		EmailVerified: true,
	})

	handler := NewHandler(emailchange.NewEmailChangeService(pins, users))

	auth := jwtauth.New("HS256", []byte(testJwtSecret), nil)
	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(auth))
		r.Use(jwtauth.Authenticator(auth))
		r.Mount("/api/email", handler.Routes())
	})

	return &apiFixture{
		router: router,
		auth:   auth,
		sender: sender,
		users:  users,
		userID: userID,
	}
}

func (f *apiFixture) request(t *testing.T, method, path string, body any, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if userID != uuid.Nil {
		_, tokenString, err := f.auth.Encode(map[string]interface{}{
			"sub":     userID.String(),
			"user_id": userID.String(),
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tokenString)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHandler_ChangeFlow(t *testing.T) {
	f := setupAPI(t)

	rec := f.request(t, http.MethodPost, "/api/email/change",
		RequestEmailChangeRequest{NewEmail: "new@example.com", Password: testPassword}, f.userID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.request(t, http.MethodGet, "/api/email/status", nil, f.userID)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeJSON[EmailStatusResponse](t, rec)
	assert.Equal(t, "old@example.com", status.Email)
	assert.Equal(t, "new@example.com", status.PendingEmail)

	rec = f.request(t, http.MethodPost, "/api/email/change/confirm",
		ConfirmRequest{Pin: f.sender.lastPin}, f.userID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.request(t, http.MethodGet, "/api/email/status", nil, f.userID)
	require.Equal(t, http.StatusOK, rec.Code)
	status = decodeJSON[EmailStatusResponse](t, rec)
	assert.Equal(t, "new@example.com", status.Email)
	assert.False(t, status.EmailVerified)
	assert.Empty(t, status.PendingEmail)
}

func TestHandler_ChangeRejections(t *testing.T) {
	f := setupAPI(t)

	t.Run("Unauthorized", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/email/change",
			RequestEmailChangeRequest{NewEmail: "new@example.com", Password: testPassword}, uuid.Nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/email/change",
			RequestEmailChangeRequest{NewEmail: "new@example.com", Password: "wrong"}, f.userID)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/email/change",
			RequestEmailChangeRequest{NewEmail: "not-an-email", Password: testPassword}, f.userID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("SameEmail", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/email/change",
			RequestEmailChangeRequest{NewEmail: "old@example.com", Password: testPassword}, f.userID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ConfirmWithoutPending", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/email/change/confirm",
			ConfirmRequest{Pin: "12345"}, f.userID)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_Cooldown(t *testing.T) {
	f := setupAPI(t)

	rec := f.request(t, http.MethodPost, "/api/email/change",
		RequestEmailChangeRequest{NewEmail: "new@example.com", Password: testPassword}, f.userID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodPost, "/api/email/change",
		RequestEmailChangeRequest{NewEmail: "new@example.com", Password: testPassword}, f.userID)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandler_WrongPinReportsAttemptsRemaining(t *testing.T) {
	f := setupAPI(t)

	rec := f.request(t, http.MethodPost, "/api/email/change",
		RequestEmailChangeRequest{NewEmail: "new@example.com", Password: testPassword}, f.userID)
	require.Equal(t, http.StatusOK, rec.Code)

	wrong := "00000"
	if f.sender.lastPin == wrong {
		wrong = "00001"
	}

	rec = f.request(t, http.MethodPost, "/api/email/change/confirm",
		ConfirmRequest{Pin: wrong}, f.userID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeJSON[ConfirmResponse](t, rec)
	require.NotNil(t, resp.AttemptsRemaining)
	assert.Equal(t, 9, *resp.AttemptsRemaining)
}

func TestHandler_CancelChange(t *testing.T) {
	f := setupAPI(t)

	rec := f.request(t, http.MethodPost, "/api/email/change",
		RequestEmailChangeRequest{NewEmail: "new@example.com", Password: testPassword}, f.userID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodDelete, "/api/email/change", nil, f.userID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodPost, "/api/email/change/confirm",
		ConfirmRequest{Pin: f.sender.lastPin}, f.userID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_VerificationFlow(t *testing.T) {
	f := setupAPI(t)

	rec := f.request(t, http.MethodPost, "/api/email/verify",
		RequestVerificationRequest{Password: testPassword}, f.userID)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "already verified account is rejected")

	require.NoError(t, f.users.SetEmailVerified(context.Background(), f.userID, false))

	rec = f.request(t, http.MethodPost, "/api/email/verify",
		RequestVerificationRequest{Password: testPassword}, f.userID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.request(t, http.MethodPost, "/api/email/verify/confirm",
		ConfirmRequest{Pin: f.sender.lastPin}, f.userID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.request(t, http.MethodGet, "/api/email/status", nil, f.userID)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeJSON[EmailStatusResponse](t, rec)
	assert.True(t, status.EmailVerified)
}
