package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-recently-viewed/internal/services"
)

func Test_fail_500_LogsAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Status != "error" || resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal || resp.Message != "kaboom" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func Test_Fail_4xxIsFailAndNotLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-404")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/missing", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusNotFound || er.Status != "fail" || er.RequestID != "rid-404" || er.Code != ErrCodeNotFound {
		t.Fatalf("unexpected 404: %d %+v", w.Code, er)
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx must not be logged by fail: %s", buf.String())
	}
}

func Test_failErr_KindMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		err      error
		status   int
		code     string
		message  string
		envelope string
	}{
		{"product id", services.ErrProductIDRequired, http.StatusBadRequest, ErrCodeBadRequest, "Product ID is required", "fail"},
		{"invalid", services.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest, "invalid input", "fail"},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required", "fail"},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden, "Unauthorized access to user data", "fail"},
		{"not found", fmt.Errorf("wrap: %w", services.ErrProductNotFound), http.StatusNotFound, ErrCodeNotFound, "Product not found", "fail"},
		{"tx", services.ErrTransactionFailed, http.StatusInternalServerError, ErrCodeTransactionFailed, "server msg", "error"},
		{"upstream", services.ErrUpstreamUnavailable, http.StatusInternalServerError, ErrCodeUpstreamUnavailable, "server msg", "error"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal, "server msg", "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &Handlers{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.failErr(c, tc.err, "server msg")

			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d", w.Code, tc.status)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.code || er.Message != tc.message || er.Status != tc.envelope {
				t.Fatalf("unexpected body: %+v", er)
			}
			if er.Detail != "" {
				t.Fatalf("detail must be hidden by default: %q", er.Detail)
			}
		})
	}
}

func Test_failErr_DetailOnlyWhenExposedAndServerSide(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handlers{exposeDetail: true}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h.failErr(c, fmt.Errorf("record view: %w", services.ErrTransactionFailed), "Failed to record product view")

	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if !strings.Contains(er.Detail, "record view") {
		t.Fatalf("expected detail with error chain, got %+v", er)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h.failErr(c, services.ErrForbidden, "")
	er = ErrorResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Detail != "" {
		t.Fatalf("client errors never carry detail: %+v", er)
	}
}

func Test_ok(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ok(c, http.StatusCreated, gin.H{"n": 1})
	if w.Code != http.StatusCreated || !strings.Contains(w.Body.String(), `"n":1`) {
		t.Fatalf("ok wrote %d %s", w.Code, w.Body.String())
	}
}
