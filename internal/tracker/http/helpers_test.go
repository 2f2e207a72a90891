package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/untoldhq/fintrack/internal/tracker/audit"
	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/metrics"
	"github.com/untoldhq/fintrack/internal/tracker/service"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/internal/tracker/store/drivers/sqlite"
	"github.com/untoldhq/fintrack/pkg/cryptox"
	"github.com/untoldhq/fintrack/pkg/idx"
	"github.com/untoldhq/fintrack/pkg/sessionx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "fintrack-http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testEnv struct {
	server *httptest.Server
	client *http.Client
	store  store.Store

	adminRole domain.Role
	userRole  domain.Role
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	logger := slog.New(slog.DiscardHandler)
	sessions, err := sessionx.NewManager("", "fintrack_session", time.Hour, false)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	rec := audit.NewRecorder(logger, collector, audit.NewStoreSink(st))

	router := NewRouter("test", st, sessions, reg, logger)
	router.LoginService = &service.LoginService{
		Store:       st,
		Credentials: &service.CredentialService{Store: st},
		TwoFactor:   &service.TwoFactorService{Store: st, Issuer: "FinTrack"},
		Audit:       rec,
		Metrics:     collector,
	}
	router.TwoFactorService = &service.TwoFactorService{Store: st, Issuer: "FinTrack"}
	router.CategoryService = &service.CategoryService{Store: st, Audit: rec}
	router.TransactionService = &service.TransactionService{Store: st, Audit: rec}
	router.AuditRecorder = rec
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	env := &testEnv{
		server: server,
		client: &http.Client{Jar: jar},
		store:  st,
	}
	env.adminRole = env.seedRole(t, domain.RoleAdmin)
	env.userRole = env.seedRole(t, domain.RoleUser)
	return env
}

func (e *testEnv) seedRole(t *testing.T, name string) domain.Role {
	t.Helper()

	role := domain.Role{ID: idx.New().String(), Name: name}
	require.NoError(t, e.store.Roles().CreateRole(context.Background(), role))
	return role
}

func (e *testEnv) seedUser(t *testing.T, email, password string, role domain.Role) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     email,
		FullName:     "Test User",
		Email:        email,
		PasswordHash: hash,
		RoleID:       role.ID,
		Status:       domain.StatusActive,
	}
	require.NoError(t, e.store.Users().CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
