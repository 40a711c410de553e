package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/marketplace-service/internal/api/http"
	"github.com/spec-kit/marketplace-service/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/mail"
	"github.com/spec-kit/marketplace-service/internal/observability"
	"github.com/spec-kit/marketplace-service/internal/persistence"
	"github.com/spec-kit/marketplace-service/internal/service"
	"github.com/spec-kit/marketplace-service/internal/store"
	"github.com/spec-kit/marketplace-service/internal/worker"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	authCfg := config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLMinutes:   60,
		PasswordResetTTLMinutes: 10,
		BcryptCost:              bcrypt.MinCost,
		CookieName:              "jwt",
		CookieTTLDays:           7,
	}

	logger := zap.NewNop()
	colls := store.NewMemoryCollections()
	mailer := mail.New(config.MailConfig{From: "noreply@example.com"}, logger)
	dispatcher := worker.StartNotificationWorker(mailer, logger)

	authService := service.NewAuthService(authCfg, service.AuthDependencies{
		Users:      colls.Users,
		Mailer:     mailer,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	session := auth.NewSessionResolver(authService.TokenManager(), colls.Users, authCfg.CookieName)

	metrics := observability.NewMetrics()
	normalizer := apperrors.NewNormalizer(apperrors.ModeSafe)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, normalizer, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler("marketplace-service", "test", &persistence.Postgres{}, &persistence.Redis{}, metrics),
		Users:      handlers.NewUsersHandler(authService, authCfg, false),
		UsersAdmin: handlers.NewUsersAdminHandler(colls),
		Jobs:       handlers.NewJobsHandler(colls, dispatcher),
		Reviews:    handlers.NewReviewsHandler(colls, dispatcher),
		Tours:      handlers.NewToursHandler(colls),
		Session:    session,
	})
	return app
}

func jsonRequest(method, target string, payload map[string]any) *http.Request {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func parseBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func signup(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/users/signup", map[string]any{
		"name":            "Ann",
		"email":           email,
		"password":        "pass1234",
		"passwordConfirm": "pass1234",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := parseBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSignupSetsCookieAndHidesSecrets(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/users/signup", map[string]any{
		"name":            "Ann",
		"email":           "ann@example.com",
		"password":        "pass1234",
		"passwordConfirm": "pass1234",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cookieSet bool
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "jwt" && cookie.Value != "" {
			cookieSet = true
			assert.True(t, cookie.HttpOnly)
		}
	}
	assert.True(t, cookieSet)

	body := parseBody(t, resp)
	assert.Equal(t, "success", body["status"])
	user := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "ann@example.com", user["email"])
	_, leaked := user["passwordHash"]
	assert.False(t, leaked)
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)
	signup(t, app, "ann@example.com")

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]any{
		"email":    "ann@example.com",
		"password": "wrong123",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := parseBody(t, resp)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "incorrect email or password", body["message"])
}

func TestJobsPublicReadProtectedWrite(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/jobs", map[string]any{
		"name": "mowing", "description": "lawns", "price": 25,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJobCreateStampsProviderFromSession(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "ann@example.com")

	req := jsonRequest(http.MethodPost, "/api/v1/jobs", map[string]any{
		"name": "mowing", "description": "lawns", "price": 25,
	})
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := parseBody(t, resp)
	job := body["data"].(map[string]any)["data"].(map[string]any)
	assert.NotEmpty(t, job["provider"])
}

func TestTourWritesRequirePrivilegedRole(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "ann@example.com")

	req := jsonRequest(http.MethodPost, "/api/v1/tours", map[string]any{
		"name": "forest hike", "duration": 3, "price": 100, "difficulty": "easy", "summary": "walk",
	})
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminListRequiresAdminRole(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "ann@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/nothing-here", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := parseBody(t, resp)
	assert.Equal(t, "fail", body["status"])
}

func TestHealthLive(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetMe(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "ann@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := parseBody(t, resp)
	user := body["data"].(map[string]any)["data"].(map[string]any)
	assert.Equal(t, "ann@example.com", user["email"])
}

func TestUpdateMeRejectsPasswordField(t *testing.T) {
	app := newTestApp(t)
	token := signup(t, app, "ann@example.com")

	req := jsonRequest(http.MethodPatch, "/api/v1/users/updateMe", map[string]any{
		"name":     "Annie",
		"password": "sneaky123",
	})
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
