// Recently viewed HTTP handlers.
//
// This file exposes the per-user history endpoints and the global ranking:
//   - GET    /users/{userId}/recentlyViewed   (list, ETag support)
//   - POST   /users/{userId}/recentlyViewed   (record a view)
//   - DELETE /users/{userId}/cache            (drop the cached list)
//   - GET    /products/top-viewed             (global ranking)
//
// Handlers are transport-thin: they read the authenticated identity, call the
// service and translate results (and error kinds) into HTTP responses.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recently-viewed/internal/domain"
	"github.com/tbourn/go-recently-viewed/internal/http/middleware"
	"github.com/tbourn/go-recently-viewed/internal/services"
)

//
// Service contracts (context-aware)
//

// RecentlyViewedService defines the recency and ranking operations consumed
// by HTTP handlers. Implementations must be safe for concurrent use.
type RecentlyViewedService interface {
	// GetRecentlyViewed returns the caller's history, most recent first.
	GetRecentlyViewed(ctx context.Context, caller services.Caller, userID string) ([]domain.ViewEntry, error)
	// AddRecentlyViewed records one view of productID.
	AddRecentlyViewed(ctx context.Context, caller services.Caller, userID, productID string) (*domain.ViewRecord, error)
	// ClearUserCache drops the cached history of userID.
	ClearUserCache(ctx context.Context, userID string) error
	// TopViewed returns the global ranking.
	TopViewed(ctx context.Context) ([]domain.TopProduct, error)
}

// ProductService defines catalog reads.
type ProductService interface {
	List(ctx context.Context, page, pageSize int) ([]domain.Product, int64, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the service.
type Handlers struct {
	rv       RecentlyViewedService
	products ProductService

	// exposeDetail adds the error chain to 5xx bodies (non-production only).
	exposeDetail bool
}

// New constructs a Handlers instance bound to the given services.
func New(rv RecentlyViewedService, products ProductService, exposeDetail bool) *Handlers {
	return &Handlers{rv: rv, products: products, exposeDetail: exposeDetail}
}

// caller returns the identity verified by the authentication middleware. An
// unauthenticated request yields the zero Caller, which services reject.
func caller(c *gin.Context) services.Caller {
	id, found := middleware.IdentityFrom(c)
	if !found {
		return services.Caller{}
	}
	return services.Caller{ID: id.UserID, Email: id.Email}
}

//
// DTOs
//

// RecordViewRequest is the JSON payload for recording a view.
type RecordViewRequest struct {
	ProductID string `json:"productId" example:"product1"`
}

// RecordViewData describes the recorded view.
type RecordViewData struct {
	UserID    string `json:"userId" example:"user123"`
	ProductID string `json:"productId" example:"product1"`
	Message   string `json:"message" example:"Product view recorded successfully"`
}

// RecordViewResponse wraps RecordViewData in the success envelope.
type RecordViewResponse struct {
	Status string         `json:"status" example:"success"`
	Data   RecordViewData `json:"data"`
}

// RecentlyViewedResponse wraps a user's history in the success envelope.
type RecentlyViewedResponse struct {
	Status string             `json:"status" example:"success"`
	Data   []domain.ViewEntry `json:"data"`
}

//
// Handlers
//

// GetRecentlyViewed godoc
// @ID          getRecentlyViewed
// @Summary     List recently viewed products
// @Description Returns the caller's most recently viewed products, newest first. The weak ETag is a hash of the returned body, so If-None-Match yields 304 only while the same list would be served.
// @Tags        RecentlyViewed
// @Produce     json
// @Security    BearerAuth
//
// @Param       userId         path    string  true  "User ID (must match the token subject)"  example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"               example(W/\"rv-9f86d081884c7d65\")
//
// @Success     200  {object} handlers.RecentlyViewedResponse
// @Header      200  {string} ETag  "Weak ETag for current history"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Token subject does not match userId"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{userId}/recentlyViewed [get]
func (h *Handlers) GetRecentlyViewed(c *gin.Context) {
	entries, err := h.rv.GetRecentlyViewed(c.Request.Context(), caller(c), c.Param("userId"))
	if err != nil {
		h.failErr(c, err, "Failed to fetch recently viewed products")
		return
	}
	if entries == nil {
		entries = []domain.ViewEntry{}
	}

	// The list may come from the cache, so the tag is derived from exactly
	// what is sent rather than from the store.
	body, err := json.Marshal(RecentlyViewedResponse{Status: "success", Data: entries})
	if err != nil {
		h.failErr(c, err, "Failed to encode recently viewed products")
		return
	}
	etag := bodyETag("rv", body)
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// bodyETag returns a weak ETag over body.
func bodyETag(prefix string, body []byte) string {
	return fmt.Sprintf(`W/"%s-%016x"`, prefix, xxhash.Sum64(body))
}

// AddRecentlyViewed godoc
// @ID          addRecentlyViewed
// @Summary     Record a product view
// @Description Records one view of a product by the caller. Each call counts as a distinct view.
// @Tags        RecentlyViewed
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       userId  path  string                       true  "User ID (must match the token subject)"  example(user123)
// @Param       body    body  handlers.RecordViewRequest   true  "Viewed product"
//
// @Success     200  {object} handlers.RecordViewResponse
// @Failure     400  {object} handlers.ErrorResponse "Product ID is required"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     403  {object} handlers.ErrorResponse "Token subject does not match userId"
// @Failure     404  {object} handlers.ErrorResponse "Product not found"
// @Failure     429  {object} handlers.ErrorResponse "Too many views (only when VIEW_RATE_RPS > 0)"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{userId}/recentlyViewed [post]
func (h *Handlers) AddRecentlyViewed(c *gin.Context) {
	uid := c.Param("userId")

	// A malformed body leaves ProductID empty; the service checks the caller
	// before it validates the payload.
	var req RecordViewRequest
	_ = c.ShouldBindJSON(&req)

	rec, err := h.rv.AddRecentlyViewed(c.Request.Context(), caller(c), uid, req.ProductID)
	if err != nil {
		h.failErr(c, err, "Failed to record product view")
		return
	}
	ok(c, http.StatusOK, RecordViewResponse{
		Status: "success",
		Data: RecordViewData{
			UserID:    rec.UserID,
			ProductID: rec.ProductID,
			Message:   "Product view recorded successfully",
		},
	})
}

// ClearUserCache godoc
// @ID          clearUserCache
// @Summary     Drop a user's cached history
// @Description Removes the cached recently viewed list; the next read rebuilds it from the store.
// @Tags        RecentlyViewed
// @Produce     json
//
// @Param       userId  path  string  true  "User ID"  example(user123)
//
// @Success     200  {object} handlers.MessageResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{userId}/cache [delete]
func (h *Handlers) ClearUserCache(c *gin.Context) {
	if err := h.rv.ClearUserCache(c.Request.Context(), c.Param("userId")); err != nil {
		h.failErr(c, err, "Failed to clear cache")
		return
	}
	ok(c, http.StatusOK, MessageResponse{Status: "success", Message: "Cache cleared"})
}

// TopViewed godoc
// @ID          topViewed
// @Summary     Most viewed products
// @Description Returns the global ranking of products by total views across all users.
// @Tags        Products
// @Produce     json
//
// @Success     200  {array}  domain.TopProduct
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /products/top-viewed [get]
func (h *Handlers) TopViewed(c *gin.Context) {
	top, err := h.rv.TopViewed(c.Request.Context())
	if err != nil {
		h.failErr(c, err, "Failed to fetch top viewed products")
		return
	}
	ok(c, http.StatusOK, top)
}
