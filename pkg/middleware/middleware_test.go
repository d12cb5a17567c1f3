package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/lead-rotation/pkg/composables"
	"github.com/iota-uz/lead-rotation/pkg/configuration"
	"github.com/iota-uz/lead-rotation/pkg/constants"
	"github.com/iota-uz/lead-rotation/pkg/logging"
)

func testConfig() *configuration.Configuration {
	return &configuration.Configuration{
		TenantHeader:    "X-Tenant-Id",
		RequestIDHeader: "X-Request-Id",
		RealIPHeader:    "X-Real-Ip",
	}
}

func TestWithLogger_BindsRequestID(t *testing.T) {
	var seen string
	h := WithLogger(logging.Nop().Logger, testConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(constants.RequestIDKey).(string)
		require.NotNil(t, composables.UseLogger(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/rotation/next", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "req-42", seen)
	require.Equal(t, "req-42", rr.Header().Get("X-Request-Id"))
}

func TestWithLogger_RecoversPanics(t *testing.T) {
	h := WithLogger(logrus.New(), testConfig())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestWithTenant(t *testing.T) {
	conf := testConfig()
	fallback := uuid.New()
	conf.DefaultTenantID = fallback.String()

	var got uuid.UUID
	h := WithTenant(conf)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		got, err = composables.UseTenantID(r.Context())
		require.NoError(t, err)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, fallback, got)

	explicit := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-Id", explicit.String())
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, explicit, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-Id", "nope")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	conf.DefaultTenantID = ""
	rr = httptest.NewRecorder()
	WithTenant(conf)(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
