package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jengzang/geomap/internal/config"
	"github.com/jengzang/geomap/internal/models"
	"github.com/jengzang/geomap/internal/service"
	"github.com/jengzang/geomap/pkg/response"
)

// MapHandler handles HTTP requests for maps
type MapHandler struct {
	service *service.MapService
}

// NewMapHandler creates a new map handler
func NewMapHandler(service *service.MapService) *MapHandler {
	return &MapHandler{service: service}
}

// CreateMap handles POST /api/v1/maps
func (h *MapHandler) CreateMap(c *gin.Context) {
	var spec config.MapSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid map spec", err)
		return
	}

	run, err := h.service.Render(c.Request.Context(), spec)
	if err != nil {
		respondRunError(c, run, err)
		return
	}

	response.Created(c, run)
}

// ValidateMap handles POST /api/v1/maps/validate
func (h *MapHandler) ValidateMap(c *gin.Context) {
	var spec config.MapSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid map spec", err)
		return
	}

	run, err := h.service.Validate(c.Request.Context(), spec)
	if err != nil {
		respondRunError(c, run, err)
		return
	}

	response.Success(c, run)
}

// respondRunError maps pipeline failures to status codes: rejected requests
// are 400, data that cannot be mapped is 422, and failed writes are 500
func respondRunError(c *gin.Context, run *models.MapRun, err error) {
	var exportErr *models.ExportError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		response.Error(c, http.StatusBadRequest, "Invalid map spec", err)
	case errors.As(err, &exportErr):
		response.ErrorWithData(c, http.StatusInternalServerError, "Failed to export map", err, run)
	default:
		response.ErrorWithData(c, http.StatusUnprocessableEntity, "Map generation failed", err, run)
	}
}

// GetRuns handles GET /api/v1/maps
func (h *MapHandler) GetRuns(c *gin.Context) {
	var filter models.RunFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	runs, total, err := h.service.ListRuns(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get runs", err)
		return
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}

	response.Success(c, gin.H{
		"data":     runs,
		"total":    total,
		"page":     filter.Page,
		"pageSize": filter.PageSize,
	})
}

// GetRun handles GET /api/v1/maps/:id/report
func (h *MapHandler) GetRun(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	response.Success(c, run)
}

// GetPage handles GET /api/v1/maps/:id and serves the exported page
func (h *MapHandler) GetPage(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}

	page := h.service.PagePath(run)
	if page == "" {
		response.Error(c, http.StatusNotFound, "Map was not exported", nil)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.File(page)
}

func (h *MapHandler) lookup(c *gin.Context) (*models.MapRun, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid map ID", err)
		return nil, false
	}

	run, err := h.service.GetRun(c.Request.Context(), id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get map", err)
		return nil, false
	}
	if run == nil {
		response.Error(c, http.StatusNotFound, "Map not found", nil)
		return nil, false
	}
	return run, true
}
