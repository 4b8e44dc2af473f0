package handlers

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-revisions/internal/app"
	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

// RevisionHandler handles quote revision, lineage and bundle endpoints.
// Every route expects RequireAuth and RequireTenant to have run.
type RevisionHandler struct {
	revisions *app.RevisionService
	archive   *app.ArchiveService
}

// NewRevisionHandler creates a revision handler. archive may be nil, in which
// case the export routes are not registered.
func NewRevisionHandler(revisions *app.RevisionService, archive *app.ArchiveService) *RevisionHandler {
	return &RevisionHandler{
		revisions: revisions,
		archive:   archive,
	}
}

// BeginLineage handles POST /api/v1/quotes
// Creates version 1 of a new lineage.
func (h *RevisionHandler) BeginLineage(c *gin.Context) {
	var req dto.BeginLineageRequest
	if !bindRequest(c, &req) {
		return
	}

	rev, err := h.revisions.BeginLineage(c.Request.Context(), req.ToSeed(middleware.GetTenant(c)), actor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewRevisionResponse(rev))
}

// CreateBundleContainer handles POST /api/v1/bundles
// Creates a bundle container, which is version 1 of its own lineage.
func (h *RevisionHandler) CreateBundleContainer(c *gin.Context) {
	var req dto.CreateBundleRequest
	if !bindRequest(c, &req) {
		return
	}

	rev, err := h.revisions.CreateBundleContainer(c.Request.Context(), req.ToSeed(middleware.GetTenant(c)), actor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewRevisionResponse(rev))
}

// GetRevision handles GET /api/v1/quotes/:id
func (h *RevisionHandler) GetRevision(c *gin.Context) {
	rev, err := h.revisions.GetRevision(c.Request.Context(), c.Param("id"), middleware.GetTenant(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRevisionResponse(rev))
}

// CreateNextVersion handles POST /api/v1/quotes/:id/versions
// An empty body copies the prior revision unchanged.
func (h *RevisionHandler) CreateNextVersion(c *gin.Context) {
	var req dto.NextVersionRequest
	if c.Request.ContentLength != 0 && !bindRequest(c, &req) {
		return
	}

	rev, err := h.revisions.CreateNextVersion(c.Request.Context(), c.Param("id"), middleware.GetTenant(c), actor(c), req.ToOverrides())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewRevisionResponse(rev))
}

// ActivateVersion handles POST /api/v1/quotes/:id/activate
func (h *RevisionHandler) ActivateVersion(c *gin.Context) {
	rev, err := h.revisions.ActivateVersion(c.Request.Context(), c.Param("id"), middleware.GetTenant(c), actor(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRevisionResponse(rev))
}

// CloseVersion handles POST /api/v1/quotes/:id/close
func (h *RevisionHandler) CloseVersion(c *gin.Context) {
	var req dto.CloseVersionRequest
	if !bindRequest(c, &req) {
		return
	}

	rev, err := h.revisions.CloseVersion(c.Request.Context(), c.Param("id"), middleware.GetTenant(c), actor(c),
		domain.LifecycleStatus(req.Status))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRevisionResponse(rev))
}

// ListLineage handles GET /api/v1/lineages/:rootId
func (h *RevisionHandler) ListLineage(c *gin.Context) {
	lineage, err := h.revisions.ListLineage(c.Request.Context(), c.Param("rootId"), middleware.GetTenant(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewLineageResponse(lineage))
}

// ActiveRevision handles GET /api/v1/lineages/:rootId/active
func (h *RevisionHandler) ActiveRevision(c *gin.Context) {
	rev, err := h.revisions.ActiveRevision(c.Request.Context(), c.Param("rootId"), middleware.GetTenant(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRevisionResponse(rev))
}

// ListBundle handles GET /api/v1/bundles/:id/members
func (h *RevisionHandler) ListBundle(c *gin.Context) {
	bundleID := c.Param("id")

	lineages, err := h.revisions.ListBundle(c.Request.Context(), bundleID, middleware.GetTenant(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewBundleResponse(bundleID, lineages))
}

// ExportLineage handles POST /api/v1/lineages/:rootId/export
func (h *RevisionHandler) ExportLineage(c *gin.Context) {
	result, err := h.archive.ExportLineage(c.Request.Context(), c.Param("rootId"), middleware.GetTenant(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toExportResponse(result))
}

// ExportBundle handles POST /api/v1/bundles/:id/export
func (h *RevisionHandler) ExportBundle(c *gin.Context) {
	results, err := h.archive.ExportBundle(c.Request.Context(), c.Param("id"), middleware.GetTenant(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toExportResponse(results...))
}

// RegisterRevisionRoutes registers the revision routes on the given router group.
// Export routes exist only when an archive is configured and run behind exportGuard.
func (h *RevisionHandler) RegisterRevisionRoutes(rg *gin.RouterGroup, exportGuard ...gin.HandlerFunc) {
	quotes := rg.Group("/quotes")
	quotes.POST("", h.BeginLineage)
	quotes.GET("/:id", h.GetRevision)
	quotes.POST("/:id/versions", h.CreateNextVersion)
	quotes.POST("/:id/activate", h.ActivateVersion)
	quotes.POST("/:id/close", h.CloseVersion)

	lineages := rg.Group("/lineages")
	lineages.GET("/:rootId", h.ListLineage)
	lineages.GET("/:rootId/active", h.ActiveRevision)

	bundles := rg.Group("/bundles")
	bundles.POST("", h.CreateBundleContainer)
	bundles.GET("/:id/members", h.ListBundle)

	if h.archive != nil {
		lineages.POST("/:rootId/export", slices.Concat(exportGuard, []gin.HandlerFunc{h.ExportLineage})...)
		bundles.POST("/:id/export", slices.Concat(exportGuard, []gin.HandlerFunc{h.ExportBundle})...)
	}
}

// bindRequest binds and validates the JSON body, writing the 400 response on failure.
func bindRequest(c *gin.Context, v any) bool {
	err := dto.BindAndValidate(c, v)
	if err == nil {
		return true
	}

	if errors.Is(err, dto.ErrValidation) {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"request validation failed",
			dto.ValidationErrors(err),
		).WithTraceID(dto.GetTraceID(c)))

		return false
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
		dto.ErrorCodeBadRequest,
		"request body is not valid JSON",
	).WithTraceID(dto.GetTraceID(c)))

	return false
}

// actor is the authenticated subject making the change.
func actor(c *gin.Context) string {
	if claims := middleware.GetClaims(c); claims != nil {
		return claims.Subject
	}

	return ""
}

func toExportResponse(results ...*app.ExportResult) *dto.ExportResponse {
	resp := &dto.ExportResponse{Snapshots: make([]dto.SnapshotRef, 0, len(results))}

	for _, r := range results {
		resp.Snapshots = append(resp.Snapshots, dto.SnapshotRef{
			Key:       r.Key,
			RootID:    r.RootID,
			Revisions: r.Revisions,
		})
	}

	return resp
}
