package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/daap14/useradmin/internal/api/middleware"
	"github.com/daap14/useradmin/internal/api/response"
)

// OpenAPIHandler serves the embedded OpenAPI document as JSON.
type OpenAPIHandler struct {
	rawYAML []byte

	once sync.Once
	doc  []byte
	etag string
	err  error
}

// NewOpenAPIHandler creates a handler for yamlDoc. The conversion to JSON
// happens once, on the first request.
func NewOpenAPIHandler(yamlDoc []byte) *OpenAPIHandler {
	return &OpenAPIHandler{rawYAML: yamlDoc}
}

func (h *OpenAPIHandler) load() {
	h.doc, h.err = yaml.YAMLToJSON(h.rawYAML)
	if h.err == nil {
		sum := sha256.Sum256(h.doc)
		h.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
	}
}

// ServeHTTP handles GET /openapi.json. Clients revalidating with
// If-None-Match get 304 while the document is unchanged.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.once.Do(h.load)

	if h.err != nil {
		middleware.Logger(r.Context()).Error("failed to convert OpenAPI document to JSON", "error", h.err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to convert OpenAPI document", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("ETag", h.etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == h.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.doc); err != nil {
		middleware.Logger(r.Context()).Error("failed to write OpenAPI response", "error", err)
	}
}
