// Product catalog HTTP handlers.
//
//   - GET /products              (list, paginated)
//   - GET /products/{productId}  (detail)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-recently-viewed/internal/domain"
	"github.com/tbourn/go-recently-viewed/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListProductsResponse wraps a page of products in the success envelope.
type ListProductsResponse struct {
	Status     string           `json:"status" example:"success"`
	Data       []domain.Product `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// ProductResponse wraps a single product in the success envelope.
type ProductResponse struct {
	Status string         `json:"status" example:"success"`
	Data   domain.Product `json:"data"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// ListProducts godoc
// @ID          listProducts
// @Summary     List products (paginated)
// @Description Returns a page of the catalog ordered by product ID.
// @Tags        Products
// @Produce     json
//
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListProductsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.products.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.failErr(c, err, "Failed to fetch products")
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListProductsResponse{
		Status: "success",
		Data:   items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Get a product
// @Tags        Products
// @Produce     json
//
// @Param       productId  path  string  true  "Product ID"  example(product1)
//
// @Success     200  {object} handlers.ProductResponse
// @Failure     404  {object} handlers.ErrorResponse "Product not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /products/{productId} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("productId"))
	p, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err, "Failed to fetch product")
		return
	}
	ok(c, http.StatusOK, ProductResponse{Status: "success", Data: *p})
}
