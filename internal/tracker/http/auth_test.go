package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
)

func TestLoginWithoutSecondFactor(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "alice@example.com", "hunter2!", env.userRole)

	// Protected endpoints reject the anonymous session.
	resp := env.do(t, http.MethodGet, "/v1/categories", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter2!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "/dashboard", body["redirect_to"])

	// The session cookie now opens protected endpoints.
	resp = env.do(t, http.MethodGet, "/v1/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Logout closes them again.
	resp = env.do(t, http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/v1/categories", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginFailureIsGeneric(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "bob@example.com", "correct-horse", env.userRole)

	for _, creds := range []map[string]string{
		{"email": "nobody@example.com", "password": "whatever"},
		{"email": "bob@example.com", "password": "wrong"},
	} {
		resp := env.do(t, http.MethodPost, "/v1/auth/login", creds)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decodeBody[map[string]string](t, resp)
		require.Equal(t, "invalid_credentials", body["error"])
	}
}

func TestLoginWithSecondFactorFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	const secret = "JBSWY3DPEHPK3PXP"
	u := env.seedUser(t, "dana@example.com", "pw123456", env.userRole)
	require.NoError(t, env.store.Users().EnableTwoFactor(context.Background(), u.ID, secret))

	resp := env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "dana@example.com",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	require.Equal(t, "2fa_required", body["status"])

	// Pending is not authenticated.
	resp = env.do(t, http.MethodGet, "/v1/categories", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// A wrong code keeps the pending state.
	resp = env.do(t, http.MethodPost, "/v1/auth/2fa/verify", map[string]string{"code": "000000"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errBody := decodeBody[map[string]string](t, resp)
	require.Equal(t, "invalid_code", errBody["error"])

	// The right code completes the login.
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	resp = env.do(t, http.MethodPost, "/v1/auth/2fa/verify", map[string]string{"code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody[map[string]any](t, resp)
	require.Equal(t, "ok", body["status"])

	resp = env.do(t, http.MethodGet, "/v1/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestVerifyWithoutPendingLogin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/auth/2fa/verify", map[string]string{"code": "123456"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	require.Equal(t, "no_pending_login", body["error"])
}

func TestEnrollmentLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "erin@example.com", "pw123456", env.userRole)

	resp := env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "erin@example.com",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// QR before enrollment starts is a 404.
	resp = env.do(t, http.MethodGet, "/v1/auth/2fa/qr", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/auth/2fa/enroll", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	enr := decodeBody[map[string]string](t, resp)
	require.NotEmpty(t, enr["secret"])
	require.Contains(t, enr["url"], "otpauth://totp/")

	// The QR renders the pending secret.
	resp = env.do(t, http.MethodGet, "/v1/auth/2fa/qr", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	// A wrong code leaves 2FA off and the pending secret usable.
	resp = env.do(t, http.MethodPost, "/v1/auth/2fa/confirm", map[string]string{"code": "000000"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	code, err := totp.GenerateCode(enr["secret"], time.Now())
	require.NoError(t, err)
	resp = env.do(t, http.MethodPost, "/v1/auth/2fa/confirm", map[string]string{"code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// From now on, logins demand the second factor.
	resp = env.do(t, http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "erin@example.com",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	require.Equal(t, "2fa_required", body["status"])
}

func TestDisableSecondFactor(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	const secret = "JBSWY3DPEHPK3PXP"
	u := env.seedUser(t, "frank@example.com", "pw123456", env.userRole)
	require.NoError(t, env.store.Users().EnableTwoFactor(context.Background(), u.ID, secret))

	resp := env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "frank@example.com",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	resp = env.do(t, http.MethodPost, "/v1/auth/2fa/verify", map[string]string{"code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodDelete, "/v1/auth/2fa", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// Next login goes straight through.
	resp = env.do(t, http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "frank@example.com",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	require.Equal(t, "ok", body["status"])
}

func TestChangePasswordEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "grace@example.com", "old-password", env.userRole)

	// Requires an authenticated session.
	resp := env.do(t, http.MethodPost, "/v1/auth/password", map[string]string{
		"current_password": "old-password",
		"new_password":     "new-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "old-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/auth/password", map[string]string{
		"current_password": "not-it",
		"new_password":     "new-password",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	require.Equal(t, "invalid_password", body["error"])

	resp = env.do(t, http.MethodPost, "/v1/auth/password", map[string]string{
		"current_password": "old-password",
		"new_password":     "new-password",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// The old password is dead; the new one works.
	resp = env.do(t, http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "old-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "new-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminAuditListing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "admin@example.com", "pw123456", env.adminRole)
	env.seedUser(t, "user@example.com", "pw123456", env.userRole)

	// Regular users are forbidden.
	resp := env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/v1/audit", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Admins see the trail, including their own login.
	resp = env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "admin@example.com",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	require.Equal(t, "/admin", body["redirect_to"])

	resp = env.do(t, http.MethodGet, "/v1/audit?action=login_success", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[map[string][]domain.AuditEvent](t, resp)
	require.NotEmpty(t, list["events"])
	for _, e := range list["events"] {
		require.Equal(t, "login_success", e.Action)
		require.NotEmpty(t, e.RequestID)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	for _, path := range []string{"/livez", "/readyz", "/metrics"} {
		resp := env.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		resp.Body.Close()
	}
}
