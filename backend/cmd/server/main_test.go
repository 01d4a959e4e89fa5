package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"blog-graph/backend/internal/blogsource"
	"blog-graph/backend/internal/graph"
	"blog-graph/backend/internal/services"
	"blog-graph/backend/pkg/config"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{BatchConcurrency: 1, Tuning: config.DefaultTuning()}
	sm := services.NewServiceManager(cfg, zap.NewNop())
	return setupRouter(sm, graph.NewMemoryStore(), blogsource.NewStaticSource(), nil, zap.NewNop())
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
}

func TestProcessBlogEndpoint_InvalidRequest(t *testing.T) {
	router := testRouter()

	// Test missing fields
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/process-blog", bytes.NewBuffer([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessBlogEndpoint_AsyncWithoutQueue(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/process-blog?async=true", bytes.NewBuffer([]byte(`{"slug":"flexbox"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
