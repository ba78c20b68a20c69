package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/useradmin/internal/metrics"
)

func TestCounters(t *testing.T) {
	m := metrics.New()

	m.UserDeletions.WithLabelValues("transfer", metrics.OutcomeSuccess).Inc()
	m.UserDeletions.WithLabelValues("transfer", metrics.OutcomeSuccess).Inc()
	m.RoleChanges.WithLabelValues("global:member", metrics.OutcomeFailure).Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UserDeletions.WithLabelValues("transfer", metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoleChanges.WithLabelValues("global:member", metrics.OutcomeFailure)))
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	m := metrics.New()
	m.ProjectsCreated.Add(3)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/abc", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "useradmin_personal_projects_created_total 3")
	assert.Contains(t, string(body), `route="/users/{id}"`)
	assert.Contains(t, string(body), `status="204"`)
}
