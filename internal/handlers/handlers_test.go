package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sentMail struct {
	to  string
	msg notify.Message
}

type fakeMail struct {
	mu     sync.Mutex
	sent   []sentMail
	err    error
	smsErr error
}

func (f *fakeMail) SendEmail(_ context.Context, to string, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, msg: msg})
	return nil
}

func (f *fakeMail) SendSMS(context.Context, string) error {
	return f.smsErr
}

func (f *fakeMail) VerifySMS(context.Context, string, string) (bool, error) {
	return true, nil
}

func (f *fakeMail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type testEnv struct {
	store *memory.Store
	mail  *fakeMail
	svc   *auth.Service
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	mail := &fakeMail{}
	svc := auth.NewService(auth.Options{
		Users:       st.Users(),
		Tokens:      auth.NewTokenIssuer("handler-secret"),
		Notifier:    mail,
		Factors:     config.Factors{Email: true},
		FrontendURL: "http://shop.test",
		Logger:      zerolog.Nop(),
	})
	return &testEnv{store: st, mail: mail, svc: svc}
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test", Email: email, Role: models.RoleUser, IsVerified: true}
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

// asUser stands in for middleware.UserAuth.
func asUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", user.ID)
		c.Set("email", user.Email)
		c.Set("role", user.Role)
		c.Next()
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func bearer(token string) []string {
	return []string{"Authorization", "Bearer " + token}
}

func (e *testEnv) authRouter() *gin.Engine {
	r := gin.New()
	protected := middleware.UserAuth(e.svc)
	r.POST("/signup", Signup(e.svc))
	r.POST("/login", Login(e.svc))
	r.POST("/verify-otp", VerifyOTP(e.svc))
	r.POST("/resend-otp", ResendOTP(e.svc))
	r.POST("/send-otp", SendPhoneOTP(e.svc))
	r.POST("/google-signup", GoogleSignup(e.svc))
	r.POST("/google-login", GoogleLogin(e.svc))
	r.POST("/forgot-password", ForgotPassword(e.svc))
	r.POST("/reset-password/:token", ResetPassword(e.svc))
	r.GET("/me", protected, GetMe(e.svc))
	r.POST("/logout", protected, Logout(e.svc))
	return r
}

func TestSignupVerifyAndSession(t *testing.T) {
	e := newEnv(t)
	r := e.authRouter()

	w := doJSON(t, r, http.MethodPost, "/signup", gin.H{"name": "A", "email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "User created successfully. OTP sent to email.", body["message"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["userId"])

	user, err := e.store.Users().FindByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.False(t, user.IsVerified)
	assert.Len(t, user.OTP, 6)
	assert.Equal(t, 1, e.mail.count())

	w = doJSON(t, r, http.MethodPost, "/verify-otp", gin.H{"email": "a@b.com", "emailOtp": user.OTP})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.Equal(t, "User verified successfully.", body["message"])
	assert.NotEmpty(t, body["sessionId"])
	token := body["token"].(string)

	w = doJSON(t, r, http.MethodPost, "/verify-otp", gin.H{"email": "a@b.com", "emailOtp": user.OTP})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, auth.ErrAlreadyVerified.Error(), decodeBody(t, w)["error"])

	w = doJSON(t, r, http.MethodGet, "/me", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@b.com", decodeBody(t, w)["email"])

	w = doJSON(t, r, http.MethodPost, "/logout", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/me", nil, bearer(token)...)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Session expired or not authorized on this device", decodeBody(t, w)["error"])
}

func TestThirdLoginEvictsFirstSession(t *testing.T) {
	e := newEnv(t)
	r := e.authRouter()

	w := doJSON(t, r, http.MethodPost, "/signup", gin.H{"name": "A", "email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)

	tokens := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		w = doJSON(t, r, http.MethodPost, "/login", gin.H{"email": "a@b.com", "password": "secret1"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		tokens = append(tokens, decodeBody(t, w)["token"].(string))
	}

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, r, http.MethodGet, "/me", nil, bearer(tokens[0])...).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/me", nil, bearer(tokens[1])...).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/me", nil, bearer(tokens[2])...).Code)
}

func TestAuthErrorResponses(t *testing.T) {
	e := newEnv(t)
	r := e.authRouter()

	w := doJSON(t, r, http.MethodPost, "/signup", gin.H{"name": "A", "email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name    string
		path    string
		body    gin.H
		status  int
		message string
	}{
		{"signup duplicate", "/signup", gin.H{"name": "A", "email": "A@b.com", "password": "secret1"}, http.StatusConflict, "Email already registered"},
		{"signup bad email", "/signup", gin.H{"name": "A", "email": "nope", "password": "secret1"}, http.StatusBadRequest, "Invalid email format"},
		{"signup missing fields", "/signup", gin.H{}, http.StatusBadRequest, "validation failed"},
		{"login unknown", "/login", gin.H{"email": "x@b.com", "password": "secret1"}, http.StatusNotFound, "User not found."},
		{"login wrong password", "/login", gin.H{"email": "a@b.com", "password": "wrong"}, http.StatusUnauthorized, "Invalid credentials"},
		{"verify wrong code", "/verify-otp", gin.H{"email": "a@b.com", "emailOtp": "000000"}, http.StatusBadRequest, "Invalid email OTP."},
		{"resend unknown", "/resend-otp", gin.H{"email": "x@b.com"}, http.StatusNotFound, "User not found."},
		{"google login without account", "/google-login", gin.H{"email": "g@b.com", "googleId": "g-1"}, http.StatusUnauthorized, "No user found with this email."},
		{"reset unknown token", "/reset-password/deadbeef", gin.H{"password": "newsecret"}, http.StatusBadRequest, "Password reset token is invalid or has expired."},
		{"reset short password", "/reset-password/deadbeef", gin.H{"password": "abc"}, http.StatusBadRequest, "Password must be at least 6 characters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.message, decodeBody(t, w)["error"])
		})
	}
}

func TestSignupMissingFieldsListsDetails(t *testing.T) {
	e := newEnv(t)

	w := doJSON(t, e.authRouter(), http.MethodPost, "/signup", gin.H{"email": "a@b.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "validation failed", body["error"])
	assert.ElementsMatch(t, []interface{}{"name is required", "password is required"}, body["details"])
}

func TestAuthRoutesRejectEmptyBodies(t *testing.T) {
	e := newEnv(t)
	r := e.authRouter()

	tests := []struct {
		path    string
		details []interface{}
	}{
		{"/login", []interface{}{"email is required", "password is required"}},
		{"/verify-otp", []interface{}{"email is required", "emailOTP is required"}},
		{"/resend-otp", []interface{}{"email is required"}},
		{"/send-otp", []interface{}{"phone is required"}},
		{"/forgot-password", []interface{}{"email is required"}},
		{"/reset-password/deadbeef", []interface{}{"password is required"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, tt.path, gin.H{})
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decodeBody(t, w)
			assert.Equal(t, "validation failed", body["error"])
			assert.ElementsMatch(t, tt.details, body["details"])
		})
	}
	assert.Zero(t, e.mail.count())
}

func TestResendAndSendOTP(t *testing.T) {
	e := newEnv(t)
	r := e.authRouter()

	w := doJSON(t, r, http.MethodPost, "/signup", gin.H{"name": "A", "email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/resend-otp", gin.H{"email": "a@b.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OTP resent to email.", decodeBody(t, w)["message"])
	assert.Equal(t, 2, e.mail.count())

	w = doJSON(t, r, http.MethodPost, "/send-otp", gin.H{"phone": "+15550001"})
	require.Equal(t, http.StatusOK, w.Code)

	e.mail.smsErr = notify.ErrSMSUnavailable
	w = doJSON(t, r, http.MethodPost, "/send-otp", gin.H{"phone": "+15550001"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = doJSON(t, r, http.MethodPost, "/send-otp", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGoogleSignupThenLogin(t *testing.T) {
	e := newEnv(t)
	r := e.authRouter()

	w := doJSON(t, r, http.MethodPost, "/google-signup", gin.H{"name": "G", "email": "g@b.com", "googleId": "g-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Google signup/login successful", decodeBody(t, w)["message"])

	w = doJSON(t, r, http.MethodPost, "/google-login", gin.H{"email": "g@b.com", "googleId": "g-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Google login successful", decodeBody(t, w)["message"])

	w = doJSON(t, r, http.MethodPost, "/google-login", gin.H{"email": "g@b.com", "googleId": "other"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGoogleDisabledWithoutVerifier(t *testing.T) {
	e := newEnv(t)
	e.svc = auth.NewService(auth.Options{
		Users:        e.store.Users(),
		Tokens:       auth.NewTokenIssuer("handler-secret"),
		Notifier:     e.mail,
		Factors:      config.Factors{Email: true},
		Logger:       zerolog.Nop(),
		StrictGoogle: true,
	})
	r := e.authRouter()

	for _, path := range []string{"/google-signup", "/google-login"} {
		w := doJSON(t, r, http.MethodPost, path, gin.H{"name": "G", "email": "g@b.com", "googleId": "g-1"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Equal(t, "Google sign-in is not configured", decodeBody(t, w)["error"], path)
	}
}

func TestForgotPasswordIsGeneric(t *testing.T) {
	e := newEnv(t)
	r := e.authRouter()

	w := doJSON(t, r, http.MethodPost, "/forgot-password", gin.H{"email": "nobody@b.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, auth.ForgotPasswordMessage, decodeBody(t, w)["message"])
	assert.Zero(t, e.mail.count())

	w = doJSON(t, r, http.MethodPost, "/forgot-password", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	e.createUser(t, "a@b.com")
	e.mail.err = errors.New("smtp down")
	w = doJSON(t, r, http.MethodPost, "/forgot-password", gin.H{"email": "a@b.com"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An error occurred while attempting to send the reset email.", decodeBody(t, w)["error"])
}

func TestForgotThenResetPassword(t *testing.T) {
	e := newEnv(t)
	r := e.authRouter()

	w := doJSON(t, r, http.MethodPost, "/signup", gin.H{"name": "A", "email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/forgot-password", gin.H{"email": "a@b.com"})
	require.Equal(t, http.StatusOK, w.Code)

	e.mail.mu.Lock()
	last := e.mail.sent[len(e.mail.sent)-1]
	e.mail.mu.Unlock()
	idx := strings.Index(last.msg.Body, "/reset-password/")
	require.GreaterOrEqual(t, idx, 0, last.msg.Body)
	raw := last.msg.Body[idx+len("/reset-password/"):]
	raw = raw[:64]

	w = doJSON(t, r, http.MethodPost, "/reset-password/"+raw, gin.H{"password": "brandnew"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Password has been reset successfully.", body["message"])
	assert.NotEmpty(t, body["token"])

	w = doJSON(t, r, http.MethodPost, "/login", gin.H{"email": "a@b.com", "password": "brandnew"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/reset-password/"+raw, gin.H{"password": "another"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/ok", Health(func(context.Context) error { return nil }))
	r.GET("/down", Health(func(context.Context) error { return errors.New("no primary") }))

	w := doJSON(t, r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])

	w = doJSON(t, r, http.MethodGet, "/down", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRespondErrorHidesUnknownErrors(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		respondError(c, "GET /", errors.New("connection reset by peer"))
	})

	w := doJSON(t, r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeBody(t, w)["error"])
}
