package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/storefront-admin/internal/admin"
	"github.com/iyhunko/storefront-admin/internal/catalog"
	"github.com/iyhunko/storefront-admin/internal/session"
	"github.com/iyhunko/storefront-admin/internal/view"
)

// Controller handles health, sign-in and the public catalog.
type Controller struct {
	session *session.Session
	admin   *admin.Controller
	catalog *catalog.Catalog
}

// New creates a new Controller.
func New(sess *session.Session, adminCtr *admin.Controller, cat *catalog.Catalog) *Controller {
	return &Controller{
		session: sess,
		admin:   adminCtr,
		catalog: cat,
	}
}

// Ping handles the HTTP GET request for health check endpoint.
func (con *Controller) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// CatalogResponse represents the public catalog page.
type CatalogResponse struct {
	Categories []CategoryResponse `json:"categories"`
	ListProductsResponse
}

// CategoryResponse represents a category in the catalog.
type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Catalog handles the HTTP GET request for the shopper catalog.
func (con *Controller) Catalog(c *gin.Context) {
	state, err := stateFromQuery(c, view.DefaultState())
	if err != nil {
		respondError(c, err)
		return
	}

	page, err := con.catalog.Browse(c.Request.Context(), state)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := CatalogResponse{
		Categories:           make([]CategoryResponse, 0, len(page.Categories)),
		ListProductsResponse: toListResponse(page.Products, page.State, nil),
	}
	for _, cat := range page.Categories {
		resp.Categories = append(resp.Categories, CategoryResponse{ID: cat.ID, Name: cat.Name, Slug: cat.Slug})
	}
	c.JSON(http.StatusOK, resp)
}

// LoginRequest represents the request body for signing in.
type LoginRequest struct {
	Username string `json:"username"`
}

// Login handles the HTTP POST request that starts the admin session and
// loads the product list.
func (con *Controller) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := con.session.Start(ctx, req.Username); err != nil {
		respondError(c, err)
		return
	}
	if err := con.admin.Refresh(ctx); err != nil {
		// signed in regardless; the list can be refreshed later
		slog.Warn("Failed to load products after sign-in", slog.Any("err", err))
	}

	c.JSON(http.StatusOK, con.admin.State())
}

// Logout handles the HTTP POST request that ends the admin session.
func (con *Controller) Logout(c *gin.Context) {
	con.session.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}
