package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"rollout/internal/dto/req"
	"rollout/internal/dto/resp"
	"rollout/internal/service"
	v1 "rollout/pkg/api/v1"

	"github.com/gin-gonic/gin"
)

type FeatureProvider interface {
	ListFeaturesForUser(ctx context.Context, userID int64) ([]v1.FeatureStatus, error)
	ListFeaturesForTeam(ctx context.Context, teamID int64) ([]v1.FeatureStatus, error)
	ListFeaturesForOrganization(ctx context.Context, organizationID int64) ([]v1.FeatureStatus, error)
	SetUserFeatureEnabled(ctx context.Context, userID int64, slug string, enabled bool, assignedBy string) error
	SetTeamFeatureEnabled(ctx context.Context, teamID int64, slug string, enabled bool, assignedBy string) error
	SetOrganizationFeatureEnabled(ctx context.Context, organizationID int64, slug string, enabled bool, assignedBy string) error
	GetEligibleOptInFeatures(ctx context.Context, userID int64) ([]v1.EligibleOptInFeature, error)
	HasUserOptedIn(ctx context.Context, userID int64, slug string) (bool, error)
	OptInToFeature(ctx context.Context, userID int64, slug string) error
	Health(ctx context.Context) error
}

type FeatureHandler struct {
	service FeatureProvider
}

func NewFeatureHandler(service FeatureProvider) *FeatureHandler {
	return &FeatureHandler{service: service}
}

// operator returns the authenticated caller, aborting with 401 when absent.
func operator(c *gin.Context) *service.OperatorInfo {
	op := service.GetOperatorInfo(c.Request.Context())
	if op == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return op
}

func assignedBy(op *service.OperatorInfo) string {
	return fmt.Sprintf("user:%d", op.UserID)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func (h *FeatureHandler) ListMyFeatures(c *gin.Context) {
	op := operator(c)
	if op == nil {
		return
	}

	features, err := h.service.ListFeaturesForUser(c.Request.Context(), op.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, features)
}

func (h *FeatureHandler) ListTeamFeatures(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	features, err := h.service.ListFeaturesForTeam(c.Request.Context(), teamID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, features)
}

func (h *FeatureHandler) ListOrganizationFeatures(c *gin.Context) {
	organizationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	features, err := h.service.ListFeaturesForOrganization(c.Request.Context(), organizationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, features)
}

func (h *FeatureHandler) SetMyFeature(c *gin.Context) {
	op := operator(c)
	if op == nil {
		return
	}
	var r req.SetFeatureRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON format error"})
		return
	}

	err := h.service.SetUserFeatureEnabled(c.Request.Context(), op.UserID, c.Param("slug"), *r.Enabled, assignedBy(op))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp.SuccessResponse{Success: true})
}

func (h *FeatureHandler) SetTeamFeature(c *gin.Context) {
	op := operator(c)
	if op == nil {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var r req.SetFeatureRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON format error"})
		return
	}

	err := h.service.SetTeamFeatureEnabled(c.Request.Context(), teamID, c.Param("slug"), *r.Enabled, assignedBy(op))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp.SuccessResponse{Success: true})
}

func (h *FeatureHandler) SetOrganizationFeature(c *gin.Context) {
	op := operator(c)
	if op == nil {
		return
	}
	organizationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var r req.SetFeatureRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON format error"})
		return
	}

	err := h.service.SetOrganizationFeatureEnabled(c.Request.Context(), organizationID, c.Param("slug"), *r.Enabled, assignedBy(op))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp.SuccessResponse{Success: true})
}

func (h *FeatureHandler) EligibleOptIns(c *gin.Context) {
	op := operator(c)
	if op == nil {
		return
	}

	features, err := h.service.GetEligibleOptInFeatures(c.Request.Context(), op.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, features)
}

func (h *FeatureHandler) HasOptedIn(c *gin.Context) {
	op := operator(c)
	if op == nil {
		return
	}

	optedIn, err := h.service.HasUserOptedIn(c.Request.Context(), op.UserID, c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp.OptedInResponse{OptedIn: optedIn})
}

func (h *FeatureHandler) OptIn(c *gin.Context) {
	op := operator(c)
	if op == nil {
		return
	}

	err := h.service.OptInToFeature(c.Request.Context(), op.UserID, c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrNotAllowlisted) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp.SuccessResponse{Success: true})
}

func (h *FeatureHandler) HealthCheck(c *gin.Context) {
	if err := h.service.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
