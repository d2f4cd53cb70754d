package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopNotifier struct{}

func (nopNotifier) SendEmail(context.Context, string, notify.Message) error { return nil }
func (nopNotifier) SendSMS(context.Context, string) error                   { return nil }
func (nopNotifier) VerifySMS(context.Context, string, string) (bool, error) { return true, nil }

// budgetLimiter allows the first n calls per purpose.
type budgetLimiter struct {
	n     int
	calls map[string]int
}

func (l *budgetLimiter) Allow(_ context.Context, purpose, _ string) (bool, error) {
	l.calls[purpose]++
	return l.calls[purpose] <= l.n, nil
}

type testServer struct {
	handler http.Handler
	store   *memory.Store
	tokens  *auth.TokenIssuer
}

func newTestServer(t *testing.T, limiterBudget int) *testServer {
	t.Helper()

	st := memory.New()
	tokens := auth.NewTokenIssuer("router-secret")
	svc := auth.NewService(auth.Options{
		Users:    st.Users(),
		Tokens:   tokens,
		Notifier: nopNotifier{},
		Factors:  config.Factors{Email: true},
		Logger:   zerolog.Nop(),
	})

	router := NewRouter(Deps{
		Auth:          svc,
		Cart:          st.Cart(),
		Wishlist:      st.Wishlist(),
		Products:      st.Products(),
		Categories:    st.Categories(),
		Orders:        st.Orders(),
		Subscriptions: st.Subscriptions(),
		Contacts:      st.Contacts(),
		Mail:          nopNotifier{},
		Limiter:       &budgetLimiter{n: limiterBudget, calls: map[string]int{}},
		Ping:          func(context.Context) error { return nil },
		Logger:        zerolog.Nop(),
	})
	return &testServer{handler: WithCORS(router, []string{"http://shop.test"}), store: st, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) tokenFor(t *testing.T, role string) string {
	t.Helper()
	user := &models.User{Name: role, Email: role + "@shop.test", Role: role, IsVerified: true}
	require.NoError(t, s.store.Users().Create(context.Background(), user))
	token, err := s.tokens.Issue(user.ID, "")
	require.NoError(t, err)
	return token
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	msg, _ := body["error"].(string)
	return msg
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, 100)

	w := s.do(t, http.MethodGet, "/api/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route not found", errorOf(t, w))
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t, 100)

	w := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "x@b.com", "password": "secret1"}, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	w := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "x@b.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "too many requests", errorOf(t, w))

	w = s.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "x@b.com", "emailOtp": "123456"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyOTPIsRateLimited(t *testing.T) {
	s := newTestServer(t, 3)

	w := s.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"name": "A", "email": "a@b.com", "password": "secret1"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user, err := s.store.Users().FindByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)

	wrong := "100000"
	if user.OTP == wrong {
		wrong = "100001"
	}
	for i := 0; i < 3; i++ {
		w = s.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@b.com", "emailOtp": wrong}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/auth/verify-otp", map[string]string{"email": "a@b.com", "emailOtp": user.OTP}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, 100)

	for _, path := range []string{"/api/cart", "/api/wishlist", "/api/orders", "/api/auth/me"} {
		w := s.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Not authorized, no token", errorOf(t, w), path)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t, 100)

	w := s.do(t, http.MethodGet, "/api/admin/orders", nil, s.tokenFor(t, models.RoleUser))
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := s.tokenFor(t, models.RoleAdmin)
	w = s.do(t, http.MethodGet, "/api/admin/orders", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/categories", map[string]string{"name": "Fruit"}, admin)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/products/categories", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fruit"`)
}

func TestCartThroughRouter(t *testing.T) {
	s := newTestServer(t, 100)
	token := s.tokenFor(t, models.RoleUser)

	w := s.do(t, http.MethodPost, "/api/cart", map[string]interface{}{"product": map[string]string{"productId": "p1"}}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/cart", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"quantity":1`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, 100)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://shop.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	assert.Equal(t, "http://shop.test", w.Header().Get("Access-Control-Allow-Origin"))
}
