package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/auth"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/domain"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/service"
	apperrors "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/errors"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/health"
)

// --- Mock Auth Service ---

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) VerifyAccess(tokenString string) (*auth.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

func (m *mockAuthService) Register(ctx context.Context, email, plaintext, fingerprint string) (*domain.User, *domain.TokenPair, error) {
	args := m.Called(ctx, email, plaintext, fingerprint)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Get(1).(*domain.TokenPair), args.Error(2)
}

func (m *mockAuthService) Login(ctx context.Context, in service.LoginInput) (*domain.User, *domain.TokenPair, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Get(1).(*domain.TokenPair), args.Error(2)
}

func (m *mockAuthService) Refresh(ctx context.Context, rawToken, fingerprint string) (*domain.TokenPair, error) {
	args := m.Called(ctx, rawToken, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenPair), args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, userID, rawToken string) error {
	args := m.Called(ctx, userID, rawToken)
	return args.Error(0)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	args := m.Called(ctx, userID, current, next)
	return args.Error(0)
}

func (m *mockAuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAuthService) Deactivate(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Mock Audit Repository ---

type mockAuditRepository struct {
	mock.Mock
}

func (m *mockAuditRepository) Insert(ctx context.Context, event *domain.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockAuditRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEvent), args.Error(1)
}

func (m *mockAuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEvent), args.Error(1)
}

// --- Test Helpers ---

func newTestRouter(svc *mockAuthService, events *mockAuditRepository) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRouter(svc, events, health.NewHandler(), logger, CORSConfig{Environment: "development"})
}

func doJSON(t *testing.T, router http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sampleUser() *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:        "5b2d1f80-9f3a-4a7c-9f51-0a4a1d9a0001",
		Email:     "jane@example.com",
		Role:      domain.RoleCustomer,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func samplePair() *domain.TokenPair {
	return &domain.TokenPair{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresIn:    900,
	}
}

func claimsFor(userID string, role domain.Role) *auth.Claims {
	return &auth.Claims{UserID: userID, Role: role.String()}
}

// --- Register / Login ---

func TestRegisterEndpoint_Created(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	svc.On("Register", mock.Anything, "jane@example.com", "SecurePass1!", "fp-1").
		Return(sampleUser(), samplePair(), nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		`{"email":"jane@example.com","password":"SecurePass1!","fingerprint":"fp-1"}`, "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		User   *domain.User      `json:"user"`
		Tokens *domain.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.Equal(t, "access-token", resp.Tokens.AccessToken)
	svc.AssertExpectations(t)
}

func TestRegisterEndpoint_InvalidEmail(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		`{"email":"not-an-email","password":"SecurePass1!"}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterEndpoint_MalformedBody(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", `{"email": `, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterEndpoint_WrongContentType(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("email=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestLoginEndpoint_Success(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	svc.On("Login", mock.Anything, mock.MatchedBy(func(in service.LoginInput) bool {
		return in.Email == "jane@example.com" && in.Password == "SecurePass1!" && in.ClientIP != ""
	})).Return(sampleUser(), samplePair(), nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"jane@example.com","password":"SecurePass1!"}`, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestLoginEndpoint_ForwardedClientIP(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	svc.On("Login", mock.Anything, mock.MatchedBy(func(in service.LoginInput) bool {
		return in.ClientIP == "203.0.113.9"
	})).Return(sampleUser(), samplePair(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"jane@example.com","password":"SecurePass1!"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestLoginEndpoint_FailuresShareOneBody(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	svc.On("Login", mock.Anything, mock.MatchedBy(func(in service.LoginInput) bool {
		return in.Email == "wrong@example.com"
	})).Return(nil, nil, apperrors.InvalidCredentials())
	svc.On("Login", mock.Anything, mock.MatchedBy(func(in service.LoginInput) bool {
		return in.Email == "disabled@example.com"
	})).Return(nil, nil, apperrors.AccountDisabled())

	wrong := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"wrong@example.com","password":"SecurePass1!"}`, "")
	disabled := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"disabled@example.com","password":"SecurePass1!"}`, "")

	// Wrong password and disabled account must be indistinguishable.
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, disabled.Code)
	assert.JSONEq(t, wrong.Body.String(), disabled.Body.String())
	assert.Contains(t, wrong.Body.String(), "invalid email or password")
}

func TestLoginEndpoint_Locked(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	svc.On("Login", mock.Anything, mock.Anything).Return(nil, nil, apperrors.Locked("300s"))

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"jane@example.com","password":"SecurePass1!"}`, "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

// --- Refresh ---

func TestRefreshEndpoint_Success(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	svc.On("Refresh", mock.Anything, "old-refresh", "fp-1").Return(samplePair(), nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh",
		`{"refresh_token":"old-refresh","fingerprint":"fp-1"}`, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "refresh-token")
	svc.AssertExpectations(t)
}

func TestRefreshEndpoint_ReuseDetected(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	svc.On("Refresh", mock.Anything, "stolen-token", "").Return(nil, apperrors.TokenReuse())

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh",
		`{"refresh_token":"stolen-token"}`, "")

	// The client sees only the generic session message.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "session invalid")
	assert.NotContains(t, rec.Body.String(), "reuse")
}

// --- Authenticated endpoints ---

func TestMeEndpoint_RequiresToken(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeEndpoint_Success(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))
	user := sampleUser()

	svc.On("VerifyAccess", "valid-token").Return(claimsFor(user.ID, domain.RoleCustomer), nil)
	svc.On("GetProfile", mock.Anything, user.ID).Return(user, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", "", "valid-token")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jane@example.com")
	// The password hash is never serialized.
	assert.NotContains(t, rec.Body.String(), "password")
	svc.AssertExpectations(t)
}

func TestMeEndpoint_ExpiredToken(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	svc.On("VerifyAccess", "expired-token").Return(nil, apperrors.TokenExpired())

	rec := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", "", "expired-token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndpoint_NoContent(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))
	user := sampleUser()

	svc.On("VerifyAccess", "valid-token").Return(claimsFor(user.ID, domain.RoleCustomer), nil)
	svc.On("Logout", mock.Anything, user.ID, "refresh-token").Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout",
		`{"refresh_token":"refresh-token"}`, "valid-token")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestChangePasswordEndpoint_NoContent(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))
	user := sampleUser()

	svc.On("VerifyAccess", "valid-token").Return(claimsFor(user.ID, domain.RoleCustomer), nil)
	svc.On("ChangePassword", mock.Anything, user.ID, "OldSecure1!", "NewSecure2@").Return(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/change-password",
		`{"current_password":"OldSecure1!","new_password":"NewSecure2@"}`, "valid-token")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

// --- Admin endpoints ---

func TestAuditEventsEndpoint_CustomerForbidden(t *testing.T) {
	svc := new(mockAuthService)
	events := new(mockAuditRepository)
	router := newTestRouter(svc, events)

	svc.On("VerifyAccess", "customer-token").Return(claimsFor("u-1", domain.RoleCustomer), nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/admin/audit-events", "", "customer-token")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	events.AssertNotCalled(t, "ListRecent", mock.Anything, mock.Anything)
}

func TestAuditEventsEndpoint_ManagerAllowed(t *testing.T) {
	svc := new(mockAuthService)
	events := new(mockAuditRepository)
	router := newTestRouter(svc, events)

	svc.On("VerifyAccess", "manager-token").Return(claimsFor("u-2", domain.RoleManager), nil)
	events.On("ListRecent", mock.Anything, 50).Return([]domain.AuditEvent{
		{ID: "e1", EventType: domain.AuditRefreshReuseDetected, OccurredAt: time.Now().UTC()},
	}, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/admin/audit-events", "", "manager-token")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "refresh_reuse_detected")
	events.AssertExpectations(t)
}

func TestAuditEventsEndpoint_FilterByUser(t *testing.T) {
	svc := new(mockAuthService)
	events := new(mockAuditRepository)
	router := newTestRouter(svc, events)
	userID := "5b2d1f80-9f3a-4a7c-9f51-0a4a1d9a0001"

	svc.On("VerifyAccess", "manager-token").Return(claimsFor("u-2", domain.RoleManager), nil)
	events.On("ListByUser", mock.Anything, userID, 10).Return([]domain.AuditEvent{}, nil)

	rec := doJSON(t, router, http.MethodGet,
		"/api/v1/admin/audit-events?user_id="+userID+"&limit=10", "", "manager-token")

	assert.Equal(t, http.StatusOK, rec.Code)
	events.AssertExpectations(t)
}

func TestDeactivateEndpoint_ManagerForbidden(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	svc.On("VerifyAccess", "manager-token").Return(claimsFor("u-2", domain.RoleManager), nil)

	rec := doJSON(t, router, http.MethodPost,
		"/api/v1/admin/users/5b2d1f80-9f3a-4a7c-9f51-0a4a1d9a0001/deactivate", "", "manager-token")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}

func TestDeactivateEndpoint_AdminAllowed(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))
	targetID := "5b2d1f80-9f3a-4a7c-9f51-0a4a1d9a0001"

	svc.On("VerifyAccess", "admin-token").Return(claimsFor("u-3", domain.RoleAdmin), nil)
	svc.On("Deactivate", mock.Anything, targetID).Return(nil)

	rec := doJSON(t, router, http.MethodPost,
		"/api/v1/admin/users/"+targetID+"/deactivate", "", "admin-token")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestDeactivateEndpoint_BadUUID(t *testing.T) {
	svc := new(mockAuthService)
	router := newTestRouter(svc, new(mockAuditRepository))

	svc.On("VerifyAccess", "admin-token").Return(claimsFor("u-3", domain.RoleAdmin), nil)

	rec := doJSON(t, router, http.MethodPost,
		"/api/v1/admin/users/not-a-uuid/deactivate", "", "admin-token")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}

// --- Infrastructure routes ---

func TestHealthLive(t *testing.T) {
	router := newTestRouter(new(mockAuthService), new(mockAuditRepository))

	rec := doJSON(t, router, http.MethodGet, "/health/live", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(new(mockAuthService), new(mockAuditRepository))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
