package router

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func named(name string) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, name)
	}
}

func serve(r *Router, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouting(t *testing.T) {
	r := New(zaptest.NewLogger(t))
	r.GET("/api/v1/runs", named("list"))
	r.POST("/api/v1/runs", named("create"))
	r.GET("/api/v1/runs/*", named("get"))
	r.DELETE("/api/v1/runs/*", named("delete"))
	r.GET("/api/v1/runs/*/output", named("output"))
	r.GET("/api/v1/runs/*/logs", named("logs"))
	r.GET("/api/v1/download/*/*", named("download"))
	r.GET("/swagger/**", named("swagger"))

	tests := []struct {
		method, path string
		status       int
		body         string
	}{
		{http.MethodGet, "/api/v1/runs", http.StatusOK, "list"},
		{http.MethodPost, "/api/v1/runs", http.StatusOK, "create"},
		{http.MethodGet, "/api/v1/runs/abc", http.StatusOK, "get"},
		{http.MethodDelete, "/api/v1/runs/abc", http.StatusOK, "delete"},
		{http.MethodGet, "/api/v1/runs/abc/output", http.StatusOK, "output"},
		{http.MethodGet, "/api/v1/runs/abc/logs", http.StatusOK, "logs"},
		{http.MethodGet, "/api/v1/download/abc/out.csv", http.StatusOK, "download"},
		{http.MethodGet, "/swagger/index.html", http.StatusOK, "swagger"},
		{http.MethodGet, "/swagger/", http.StatusOK, "swagger"},
		{http.MethodGet, "/api/v1/download/abc", http.StatusNotFound, ""},
		{http.MethodGet, "/api/v1/runs/abc/output/extra", http.StatusNotFound, ""},
		{http.MethodGet, "/nothing", http.StatusNotFound, ""},
		{http.MethodPut, "/api/v1/runs", http.StatusMethodNotAllowed, ""},
		{http.MethodPost, "/api/v1/runs/abc/logs", http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(r, tt.method, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestMatchWildcardRoute(t *testing.T) {
	assert.True(t, matchWildcardRoute("/a/x/c", "/a/*/c"))
	assert.False(t, matchWildcardRoute("/a//c", "/a/*/c"))
	assert.False(t, matchWildcardRoute("/a/x/d", "/a/*/c"))
	assert.True(t, matchWildcardRoute("/a/x/y/z", "/a/**"))
	assert.False(t, matchWildcardRoute("/b/x", "/a/**"))
}

func TestRoutesAndPaths(t *testing.T) {
	r := New(nil)
	r.PUT("/x", named("put"))
	r.PATCH("/x", named("patch"))

	assert.Len(t, r.Routes(), 2)
	assert.Equal(t, map[string]bool{"/x": true}, r.Paths())
	assert.Equal(t, "patch", serve(r, http.MethodPatch, "/x").Body.String())
}

func TestStartShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	r := New(zaptest.NewLogger(t))
	r.GET("/ping", named("pong"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/ping")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
