package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/storefront-admin/internal/admin"
	"github.com/iyhunko/storefront-admin/internal/model"
)

const maxImageSize = 10 << 20

// FormController handles HTTP requests for the add and edit product forms.
type FormController struct {
	admin *admin.Controller
}

// NewFormController creates a new FormController.
func NewFormController(adminCtr *admin.Controller) *FormController {
	return &FormController{
		admin: adminCtr,
	}
}

// EditFieldRequest represents the request body for a single field edit.
type EditFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

// OpenAdd handles the HTTP POST request that opens the create form.
func (fc *FormController) OpenAdd(c *gin.Context) {
	if err := fc.admin.OpenAdd(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc.admin.State())
}

// OpenEdit handles the HTTP POST request that opens the edit form for a product.
func (fc *FormController) OpenEdit(c *gin.Context) {
	id, err := productID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := fc.admin.OpenEdit(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc.admin.State())
}

// EditField handles the HTTP PATCH request that replaces one draft field.
func (fc *FormController) EditField(c *gin.Context) {
	var req EditFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := fc.admin.EditField(req.Field, req.Value); err != nil {
		fc.respondFormError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc.admin.State())
}

// SetImage handles the HTTP PUT request that attaches an image to the draft.
func (fc *FormController) SetImage(c *gin.Context) {
	img, err := readImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := fc.admin.SetImage(img); err != nil {
		fc.respondFormError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc.admin.State())
}

// Submit handles the HTTP POST request that validates and saves the draft.
func (fc *FormController) Submit(c *gin.Context) {
	p, err := fc.admin.Submit(c.Request.Context())
	if err != nil {
		fc.respondFormError(c, err)
		return
	}

	state := fc.admin.State()
	c.JSON(http.StatusOK, gin.H{
		"product": toProductResponse(p, p.ID != 0 && fc.admin.Pending(p.ID)),
		"state":   state,
	})
}

// Cancel handles the HTTP DELETE request that discards the open form.
func (fc *FormController) Cancel(c *gin.Context) {
	if err := fc.admin.Cancel(); err != nil {
		fc.respondFormError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc.admin.State())
}

// respondFormError includes the form state so field errors can be shown
// next to their inputs.
func (fc *FormController) respondFormError(c *gin.Context, err error) {
	n := admin.Describe(err)
	state := fc.admin.State()
	c.JSON(n.Status, ErrorResponse{Notice: n, State: &state})
}

func readImage(c *gin.Context) (model.Image, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return model.Image{}, fmt.Errorf("missing image file: %w", err)
	}
	if header.Size > maxImageSize {
		return model.Image{}, errors.New("image is too large")
	}
	f, err := header.Open()
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return model.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if len(content) > maxImageSize {
		return model.Image{}, errors.New("image is too large")
	}
	return model.Image{Filename: header.Filename, Content: content}, nil
}
