package handler

import (
	"errors"
	"net/http"
	"strings"

	"smartdecor/internal/repository"
	"smartdecor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	svc *service.CatalogService
	log *zap.Logger
}

func NewCatalogHandler(svc *service.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: log.Named("catalog_handler")}
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
}

type ProductRequest struct {
	Name        string          `json:"name" binding:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  uint            `json:"category_id" binding:"required"`
	Stock       int             `json:"stock" binding:"gte=0"`
	ImageURL    string          `json:"image_url"`
	Colors      string          `json:"colors"`
	Warranty    string          `json:"warranty"`
	Images      []string        `json:"images" binding:"omitempty,dive,required"`
	Videos      []string        `json:"videos" binding:"omitempty,dive,required"`
}

func (r ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		CategoryID:  r.CategoryID,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
		Colors:      r.Colors,
		Warranty:    r.Warranty,
		Images:      r.Images,
		Videos:      r.Videos,
	}
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	limit, offset := page(c)
	list, err := h.svc.ListCategories(limit, offset)
	if err != nil {
		respondError(c, h.log, err, "list failed")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cat, err := h.svc.GetCategory(id)
	if err != nil {
		respondError(c, h.log, err, "lookup failed")
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.svc.CreateCategory(req.Name, req.Description)
	if err != nil {
		respondError(c, h.log, err, "create failed")
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req CategoryUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.svc.UpdateCategory(id, req.Name, req.Description)
	if err != nil {
		respondError(c, h.log, err, "update failed")
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(id); err != nil {
		respondError(c, h.log, err, "delete failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListProducts supports ?name= (substring), ?category= (category name), ?skip= and ?limit=.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	limit, offset := page(c)
	list, err := h.svc.ListProducts(repository.ProductFilter{
		Name:     strings.TrimSpace(c.Query("name")),
		Category: strings.TrimSpace(c.Query("category")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondError(c, h.log, err, "list failed")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(id)
	if err != nil {
		respondError(c, h.log, err, "lookup failed")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if !h.bindProduct(c, &req) {
		return
	}
	p, err := h.svc.CreateProduct(req.toInput())
	if err != nil {
		h.productError(c, err, "create failed")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if !h.bindProduct(c, &req) {
		return
	}
	p, err := h.svc.UpdateProduct(id, req.toInput())
	if err != nil {
		h.productError(c, err, "update failed")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteProduct(id); err != nil {
		respondError(c, h.log, err, "delete failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadMedia takes a multipart "file" and "media_type" (IMAGE or VIDEO) and attaches it to the product.
func (h *CatalogHandler) UploadMedia(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	mediaType := strings.ToUpper(c.DefaultPostForm("media_type", "IMAGE"))
	asset, err := h.svc.AddMedia(c.Request.Context(), id, mediaType, f)
	if err != nil {
		h.mediaError(c, err, "upload failed")
		return
	}
	c.JSON(http.StatusCreated, asset)
}

// DeleteMedia removes one image or video; ?type=VIDEO selects videos.
func (h *CatalogHandler) DeleteMedia(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	mediaID, ok := parseID(c, "media_id")
	if !ok {
		return
	}
	mediaType := strings.ToUpper(c.DefaultQuery("type", "IMAGE"))
	if err := h.svc.RemoveMedia(c.Request.Context(), id, mediaType, mediaID); err != nil {
		h.mediaError(c, err, "delete failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) bindProduct(c *gin.Context, req *ProductRequest) bool {
	if !bindJSON(c, req) {
		return false
	}
	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
		return false
	}
	return true
}

func (h *CatalogHandler) productError(c *gin.Context, err error, msg string) {
	if errors.Is(err, service.ErrInvalidCategory) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	respondError(c, h.log, err, msg)
}

func (h *CatalogHandler) mediaError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidMediaType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrMediaDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		respondError(c, h.log, err, msg)
	}
}
