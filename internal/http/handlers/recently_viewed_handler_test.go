package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recently-viewed/internal/auth"
	"github.com/tbourn/go-recently-viewed/internal/domain"
	"github.com/tbourn/go-recently-viewed/internal/http/middleware"
	"github.com/tbourn/go-recently-viewed/internal/services"
)

// ---------- stubs ----------

type stubRV struct {
	entries []domain.ViewEntry
	top     []domain.TopProduct

	getErr, addErr, clearErr, topErr error

	gotCaller    services.Caller
	gotProductID string
	getCalls     int
	cleared      string
}

func (s *stubRV) GetRecentlyViewed(_ context.Context, caller services.Caller, userID string) ([]domain.ViewEntry, error) {
	s.getCalls++
	s.gotCaller = caller
	if caller.ID != userID {
		return nil, services.ErrForbidden
	}
	return s.entries, s.getErr
}

func (s *stubRV) AddRecentlyViewed(_ context.Context, caller services.Caller, userID, productID string) (*domain.ViewRecord, error) {
	s.gotCaller = caller
	s.gotProductID = productID
	if caller.ID == "" {
		return nil, services.ErrUnauthorized
	}
	if caller.ID != userID {
		return nil, services.ErrForbidden
	}
	if productID == "" {
		return nil, services.ErrProductIDRequired
	}
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &domain.ViewRecord{UserID: userID, ProductID: productID, ViewCount: 1}, nil
}

func (s *stubRV) ClearUserCache(_ context.Context, userID string) error {
	s.cleared = userID
	return s.clearErr
}

func (s *stubRV) TopViewed(context.Context) ([]domain.TopProduct, error) {
	return s.top, s.topErr
}

const testToken = "tok"

func newRVRouter(rv *stubRV, products ProductService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())

	h := New(rv, products, false)
	authn := middleware.Authenticate(auth.StaticVerifier{
		Token:    testToken,
		Identity: auth.Identity{UserID: "u1", Email: "u1@example.com"},
	})
	users := r.Group("/users/:userId", authn)
	users.GET("/recentlyViewed", h.GetRecentlyViewed)
	users.POST("/recentlyViewed", h.AddRecentlyViewed)
	r.DELETE("/users/:userId/cache", h.ClearUserCache)
	r.GET("/products/top-viewed", h.TopViewed)
	if products != nil {
		r.GET("/products", h.ListProducts)
		r.GET("/products/:productId", h.GetProduct)
	}
	return r
}

func do(r http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var bearer = map[string]string{"Authorization": "Bearer " + testToken}

// ---------- GET /users/:userId/recentlyViewed ----------

func TestGetRecentlyViewed_SuccessEnvelope(t *testing.T) {
	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rv := &stubRV{
		entries: []domain.ViewEntry{{
			ProductID: "product2",
			ViewCount: 2,
			Timestamp: ts,
			ProductDetails: domain.ProductDetails{
				Name: "Smart Watch", Price: 249.99, Features: []string{"GPS"},
			},
		}},
	}
	r := newRVRouter(rv, nil)

	w := do(r, http.MethodGet, "/users/u1/recentlyViewed", "", bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Status string `json:"status"`
		Data   []struct {
			ProductID      string         `json:"productId"`
			ViewCount      int64          `json:"viewCount"`
			Timestamp      time.Time      `json:"timestamp"`
			ProductDetails map[string]any `json:"productDetails"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Status != "success" || len(body.Data) != 1 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	e := body.Data[0]
	if e.ProductID != "product2" || e.ViewCount != 2 || !e.Timestamp.Equal(ts) || e.ProductDetails["name"] != "Smart Watch" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	for _, k := range []string{"price", "imageUrl", "category", "description", "features"} {
		if _, found := e.ProductDetails[k]; !found {
			t.Fatalf("productDetails missing %q", k)
		}
	}
	if rv.gotCaller.Email != "u1@example.com" {
		t.Fatalf("caller identity not forwarded: %+v", rv.gotCaller)
	}
}

func TestGetRecentlyViewed_ETagRoundTrip(t *testing.T) {
	rv := &stubRV{entries: []domain.ViewEntry{{ProductID: "product1", ViewCount: 3}}}
	r := newRVRouter(rv, nil)

	w := do(r, http.MethodGet, "/users/u1/recentlyViewed", "", bearer)
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || !strings.HasPrefix(etag, `W/"rv-`) {
		t.Fatalf("first GET: %d etag=%q", w.Code, etag)
	}
	if etag != bodyETag("rv", w.Body.Bytes()) {
		t.Fatalf("ETag must describe the body sent: %q", etag)
	}

	hdr := map[string]string{"Authorization": "Bearer " + testToken, "If-None-Match": etag}
	w = do(r, http.MethodGet, "/users/u1/recentlyViewed", "", hdr)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("expected empty 304, got %d %q", w.Code, w.Body.String())
	}
}

func TestGetRecentlyViewed_StaleCacheNeverPinsClient(t *testing.T) {
	old := []domain.ViewEntry{{ProductID: "product1", ViewCount: 1, Timestamp: time.Unix(1700000000, 0).UTC()}}
	fresh := []domain.ViewEntry{
		{ProductID: "product2", ViewCount: 1, Timestamp: time.Unix(1700000100, 0).UTC()},
		old[0],
	}

	// A client that already saw the committed list asks again while the
	// cache still holds the older one: it must get the older body, not 304.
	rv := &stubRV{entries: fresh}
	r := newRVRouter(rv, nil)
	freshTag := do(r, http.MethodGet, "/users/u1/recentlyViewed", "", bearer).Header().Get("ETag")

	rv.entries = old
	hdr := map[string]string{"Authorization": "Bearer " + testToken, "If-None-Match": freshTag}
	w := do(r, http.MethodGet, "/users/u1/recentlyViewed", "", hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("stale list answered with %d", w.Code)
	}
	staleTag := w.Header().Get("ETag")
	if staleTag == freshTag {
		t.Fatalf("old list must not carry the fresh list's ETag")
	}

	// Once the cache entry is rebuilt the stale tag stops matching.
	rv.entries = fresh
	hdr["If-None-Match"] = staleTag
	w = do(r, http.MethodGet, "/users/u1/recentlyViewed", "", hdr)
	var resp RecentlyViewedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusOK || len(resp.Data) != 2 || resp.Data[0].ProductID != "product2" {
		t.Fatalf("expected the rebuilt list, got %d %+v", w.Code, resp)
	}
}

func TestGetRecentlyViewed_EmptyHistory(t *testing.T) {
	r := newRVRouter(&stubRV{}, nil)

	w := do(r, http.MethodGet, "/users/u1/recentlyViewed", "", bearer)
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"success","data":[]}` {
		t.Fatalf("empty history must serialize as []: %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}
}

func TestGetRecentlyViewed_AuthErrors(t *testing.T) {
	rv := &stubRV{}
	r := newRVRouter(rv, nil)

	cases := []struct {
		name   string
		path   string
		hdr    map[string]string
		status int
		code   string
	}{
		{"no token", "/users/u1/recentlyViewed", nil, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"bad token", "/users/u1/recentlyViewed", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"other user", "/users/u2/recentlyViewed", bearer, http.StatusForbidden, ErrCodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodGet, tc.path, "", tc.hdr)
			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d", w.Code, tc.status)
			}
			var er ErrorResponse
			_ = json.Unmarshal(w.Body.Bytes(), &er)
			if er.Code != tc.code || er.Status != "fail" {
				t.Fatalf("unexpected body: %+v", er)
			}
		})
	}
	// Token failures stop in the middleware; ownership is the service's call.
	if rv.getCalls != 1 {
		t.Fatalf("getCalls = %d; want 1", rv.getCalls)
	}
}

func TestGetRecentlyViewed_ServerError(t *testing.T) {
	rv := &stubRV{getErr: errors.New("db down")}
	r := newRVRouter(rv, nil)
	w := do(r, http.MethodGet, "/users/u1/recentlyViewed", "", bearer)
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if w.Code != http.StatusInternalServerError || er.Status != "error" || er.Detail != "" {
		t.Fatalf("unexpected: %d %+v", w.Code, er)
	}
}

// ---------- POST /users/:userId/recentlyViewed ----------

func TestAddRecentlyViewed_Success(t *testing.T) {
	rv := &stubRV{}
	r := newRVRouter(rv, nil)

	w := do(r, http.MethodPost, "/users/u1/recentlyViewed", `{"productId":"product1"}`, bearer)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", w.Code, w.Body.String())
	}
	var resp RecordViewResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Status != "success" || resp.Data.UserID != "u1" || resp.Data.ProductID != "product1" ||
		resp.Data.Message != "Product view recorded successfully" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestAddRecentlyViewed_Errors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		hdr    map[string]string
		addErr error
		status int
		msg    string
	}{
		{"missing productId", "/users/u1/recentlyViewed", `{}`, bearer, nil, http.StatusBadRequest, "Product ID is required"},
		{"malformed body", "/users/u1/recentlyViewed", `{`, bearer, nil, http.StatusBadRequest, "Product ID is required"},
		{"forbidden beats invalid body", "/users/u2/recentlyViewed", `{`, bearer, nil, http.StatusForbidden, "Unauthorized access to user data"},
		{"no token", "/users/u1/recentlyViewed", `{"productId":"p"}`, nil, nil, http.StatusUnauthorized, "no authentication token provided"},
		{"unknown product", "/users/u1/recentlyViewed", `{"productId":"ghost"}`, bearer, services.ErrProductNotFound, http.StatusNotFound, "Product not found"},
		{"tx failed", "/users/u1/recentlyViewed", `{"productId":"p"}`, bearer, services.ErrTransactionFailed, http.StatusInternalServerError, "Failed to record product view"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRVRouter(&stubRV{addErr: tc.addErr}, nil)
			w := do(r, http.MethodPost, tc.path, tc.body, tc.hdr)
			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d (body=%s)", w.Code, tc.status, w.Body.String())
			}
			var er ErrorResponse
			_ = json.Unmarshal(w.Body.Bytes(), &er)
			if er.Message != tc.msg {
				t.Fatalf("message = %q; want %q", er.Message, tc.msg)
			}
		})
	}
}

// ---------- DELETE /users/:userId/cache, GET /products/top-viewed ----------

func TestClearUserCache(t *testing.T) {
	rv := &stubRV{}
	r := newRVRouter(rv, nil)

	w := do(r, http.MethodDelete, "/users/u9/cache", "", nil)
	if w.Code != http.StatusOK || rv.cleared != "u9" {
		t.Fatalf("status=%d cleared=%q", w.Code, rv.cleared)
	}
	var resp MessageResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "success" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	rv.clearErr = errors.New("boom")
	if w := do(r, http.MethodDelete, "/users/u9/cache", "", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestTopViewed_BareArray(t *testing.T) {
	rv := &stubRV{top: []domain.TopProduct{{
		ProductID: "product2", ViewCount: 7,
		ProductDetails: domain.ProductDetails{Name: "Smart Watch", Price: 249.99, Features: []string{}},
	}}}
	r := newRVRouter(rv, nil)

	w := do(r, http.MethodGet, "/products/top-viewed", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("expected a bare JSON array: %v (%s)", err, w.Body.String())
	}
	if len(got) != 1 || got[0]["productId"] != "product2" || got[0]["viewCount"] != float64(7) || got[0]["name"] != "Smart Watch" {
		t.Fatalf("unexpected ranking: %v", got)
	}

	rv.topErr = services.ErrUpstreamUnavailable
	w = do(r, http.MethodGet, "/products/top-viewed", "", nil)
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if w.Code != http.StatusInternalServerError || er.Code != ErrCodeUpstreamUnavailable {
		t.Fatalf("unexpected: %d %+v", w.Code, er)
	}
}
