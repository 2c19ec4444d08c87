package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/storefront-admin/internal/admin"
	"github.com/iyhunko/storefront-admin/internal/view"
)

// ProductController handles HTTP requests for the admin product list.
type ProductController struct {
	admin *admin.Controller
}

// NewProductController creates a new ProductController.
func NewProductController(adminCtr *admin.Controller) *ProductController {
	return &ProductController{
		admin: adminCtr,
	}
}

// View handles the HTTP GET request for the active view and form state.
func (pc *ProductController) View(c *gin.Context) {
	c.JSON(http.StatusOK, pc.admin.State())
}

// ListProducts handles the HTTP GET request for the admin product list.
// Filter and sort parameters present in the query are kept for later requests.
func (pc *ProductController) ListProducts(c *gin.Context) {
	_, err := pc.admin.UpdateListState(func(s view.State) (view.State, error) {
		return stateFromQuery(c, s)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	pc.list(c)
}

// ToggleSort handles the HTTP POST request that selects a sort field. The
// current field flips direction; a new field sorts ascending.
func (pc *ProductController) ToggleSort(c *gin.Context) {
	field, err := view.ParseSortField(c.Param("field"))
	if err != nil {
		respondError(c, err)
		return
	}
	_, _ = pc.admin.UpdateListState(func(s view.State) (view.State, error) {
		return s.ToggleSort(field), nil
	})
	pc.list(c)
}

// RefreshProducts handles the HTTP POST request that reloads the product list.
func (pc *ProductController) RefreshProducts(c *gin.Context) {
	if err := pc.admin.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	pc.list(c)
}

// DeleteProduct handles the HTTP DELETE request for deleting a product by ID.
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, err := productID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := pc.admin.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "product deleted successfully"})
}

// ToggleAvailability handles the HTTP POST request that flips a product's availability.
func (pc *ProductController) ToggleAvailability(c *gin.Context) {
	id, err := productID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	p, err := pc.admin.ToggleAvailability(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(p, pc.admin.Pending(p.ID)))
}

func (pc *ProductController) list(c *gin.Context) {
	c.JSON(http.StatusOK, toListResponse(pc.admin.Products(), pc.admin.ListState(), pc.admin.Pending))
}
