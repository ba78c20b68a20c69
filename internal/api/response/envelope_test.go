package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/useradmin/internal/api/response"
	"github.com/daap14/useradmin/internal/api/validation"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestNewMeta_GeneratesUUID(t *testing.T) {
	meta := response.NewMeta("")

	_, err := uuid.Parse(meta.RequestID)
	assert.NoError(t, err, "requestId should be a valid UUID")
}

func TestNewMeta_UsesProvidedRequestID(t *testing.T) {
	assert.Equal(t, "req-42", response.NewMeta("req-42").RequestID)
}

func TestNewMeta_TimestampIsRFC3339(t *testing.T) {
	before := time.Now().UTC().Add(-1 * time.Second)

	parsed, err := time.Parse(time.RFC3339, response.NewMeta("").Timestamp)
	require.NoError(t, err)
	assert.False(t, parsed.Before(before), "timestamp should be recent")
}

func TestSuccess_WritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	response.Success(w, http.StatusOK, map[string]string{"email": "ada@example.com"}, "req-1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	env := decode(t, w)
	assert.Nil(t, env["error"])
	assert.Equal(t, "ada@example.com", env["data"].(map[string]interface{})["email"])
	assert.Equal(t, "req-1", env["meta"].(map[string]interface{})["requestId"])
}

func TestSuccessList_IncludesTotal(t *testing.T) {
	w := httptest.NewRecorder()

	response.SuccessList(w, http.StatusOK, []string{"a", "b", "c"}, 3, "req-2")

	env := decode(t, w)
	assert.Len(t, env["data"], 3)
	meta := env["meta"].(map[string]interface{})
	assert.Equal(t, float64(3), meta["total"])
	assert.Equal(t, "req-2", meta["requestId"])
}

func TestErr_WritesErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()

	response.Err(w, http.StatusConflict, "IN_PROGRESS", "another request for this user is in progress", "req-3")

	assert.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Nil(t, env["data"])
	apiErr := env["error"].(map[string]interface{})
	assert.Equal(t, "IN_PROGRESS", apiErr["code"])
	assert.NotContains(t, apiErr, "details")
}

func TestErrWithDetails_IncludesFieldErrors(t *testing.T) {
	w := httptest.NewRecorder()
	details := []validation.FieldError{{Field: "newRoleName", Message: "must be a known role"}}

	response.ErrWithDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "validation failed", details, "req-4")

	apiErr := decode(t, w)["error"].(map[string]interface{})
	det := apiErr["details"].([]interface{})
	require.Len(t, det, 1)
	assert.Equal(t, "newRoleName", det[0].(map[string]interface{})["field"])
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	response.NoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}
