package api

import (
	"context"
	"net/http"

	"rollout/internal/dto/req"
	"rollout/internal/dto/resp"

	"github.com/gin-gonic/gin"
)

type AdminProvider interface {
	ListCatalog(ctx context.Context) ([]resp.CatalogItem, error)
	SaveFeature(ctx context.Context, slug string, enabled bool, description, featureType, operator string) error
	ListAudits(ctx context.Context, subjectKind string, subjectID int64, slug string) ([]resp.AuditLogItem, error)
}

type AdminHandler struct {
	service AdminProvider
}

func NewAdminHandler(service AdminProvider) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) ListFeatures(c *gin.Context) {
	features, err := h.service.ListCatalog(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, features)
}

func (h *AdminHandler) SaveFeature(c *gin.Context) {
	op := operator(c)
	if op == nil {
		return
	}
	var r req.SaveFeatureRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON format error"})
		return
	}

	err := h.service.SaveFeature(c.Request.Context(), c.Param("slug"), *r.Enabled, r.Description, r.Type, op.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp.SuccessResponse{Success: true})
}

func (h *AdminHandler) ListAudits(c *gin.Context) {
	var r req.ListAuditsRequest
	if err := c.ShouldBindQuery(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid params"})
		return
	}

	audits, err := h.service.ListAudits(c.Request.Context(), r.SubjectKind, r.SubjectID, r.Slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, audits)
}
