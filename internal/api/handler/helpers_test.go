package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/daap14/useradmin/internal/api/middleware"
	"github.com/daap14/useradmin/internal/auth"
)

func makeChiRequest(method, path string, body []byte, routePattern string, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		rctx.RoutePatterns = append(rctx.RoutePatterns, routePattern)
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, w
}

func withIdentity(req *http.Request, identity *auth.Identity) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := parseEnvelope(t, w)
	apiErr, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "expected an error envelope, got %s", w.Body.String())
	return apiErr["code"].(string)
}
