package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/storefront-admin/internal/model"
	"github.com/iyhunko/storefront-admin/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		handler gin.HandlerFunc
	}{
		{name: "string panic", handler: func(c *gin.Context) { panic("test panic") }},
		{name: "error panic", handler: func(c *gin.Context) { panic(assert.AnError) }},
		{name: "nil pointer dereference", handler: func(c *gin.Context) {
			var p *model.Product
			_ = p.Name
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(Recovery())
			router.GET("/panic", tt.handler)

			w := serve(router, http.MethodGet, "/panic")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Contains(t, w.Body.String(), "Internal Server Error")
		})
	}

	t.Run("normal requests pass through", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery())
		router.GET("/normal", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})

		w := serve(router, http.MethodGet, "/normal")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "success")
	})
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	assertHeaders := func(t *testing.T, w *httptest.ResponseRecorder) {
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, PUT, PATCH, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	}

	t.Run("adds headers to regular requests", func(t *testing.T) {
		router := gin.New()
		router.Use(CORS())
		router.POST("/test", func(c *gin.Context) {
			c.JSON(http.StatusCreated, gin.H{"message": "created"})
		})

		w := serve(router, http.MethodPost, "/test")

		assert.Equal(t, http.StatusCreated, w.Code)
		assertHeaders(t, w)
	})

	t.Run("answers preflight without reaching the handler", func(t *testing.T) {
		router := gin.New()
		router.Use(CORS())
		router.OPTIONS("/test", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
		})

		w := serve(router, http.MethodOptions, "/test")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
		assertHeaders(t, w)
	})
}

func TestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "success", status: http.StatusOK, wantLevel: "INFO"},
		{name: "client error", status: http.StatusNotFound, wantLevel: "WARN"},
		{name: "server error", status: http.StatusBadGateway, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			var buf bytes.Buffer
			prev := slog.Default()
			slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
			t.Cleanup(func() { slog.SetDefault(prev) })

			router := gin.New()
			router.Use(Logger())
			router.GET("/test", func(c *gin.Context) {
				c.Status(tt.status)
			})

			// when
			w := serve(router, http.MethodGet, "/test")

			// then
			assert.Equal(t, tt.status, w.Code)
			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "HTTP request", entry["msg"])
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "GET", entry["method"])
			assert.Equal(t, "/test", entry["path"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Contains(t, entry, "latency")
		})
	}
}

type stubAuth struct{}

func (stubAuth) Login(context.Context, string) (model.Credentials, error) {
	return model.Credentials{Access: "acc"}, nil
}

func (stubAuth) ListCategories(context.Context, string) ([]model.Category, error) {
	return []model.Category{}, nil
}

func TestRequireSignIn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sess := session.New(stubAuth{})
	router := gin.New()
	router.Use(New(sess).RequireSignIn())
	router.GET("/admin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "welcome"})
	})

	t.Run("signed out", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/admin")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Please sign in.")
	})

	t.Run("signed in", func(t *testing.T) {
		require.NoError(t, sess.Start(context.Background(), "admin"))

		w := serve(router, http.MethodGet, "/admin")

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
