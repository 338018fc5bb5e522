package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ukydev/bus-tracker/internal/config"
)

func TestPages(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path string
		want string
	}{
		{"/", `href="/passenger"`},
		{"/passenger", `id="search"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := srv.serve(httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := newTestServer(t)
		srv.buses.On("Ping", mock.Anything).Return(nil)

		w := srv.serve(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		srv := newTestServer(t)
		srv.buses.On("Ping", mock.Anything).Return(errors.New("no reachable servers"))

		w := srv.serve(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"error","error":"no reachable servers"}`, w.Body.String())
	})
}

func TestRouter_MethodsAndCORS(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.CORS.AllowedOrigins = []string{"https://tracker.example"}
	})

	w := srv.serve(httptest.NewRequest(http.MethodGet, "/add_bus", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = srv.serve(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://tracker.example")
	w = srv.serve(req)
	assert.Equal(t, "https://tracker.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	w = srv.serve(req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
