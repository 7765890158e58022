package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DarienLibrary/covercache-public/internal/works"
)

const providerTimeout = 60 * time.Second

// WorksController serves covers, polling, overrides, stats and
// recommendations for works.
type WorksController struct {
	service WorksService
}

func NewWorksController(service WorksService) *WorksController {
	return &WorksController{service: service}
}

type CoversResponse struct {
	Covers  []works.CoverView `json:"covers"`
	Success bool              `json:"success"`
}

type RecommendationsResponse struct {
	Recommendations []works.RecommendedWork `json:"recommendations"`
	Success         bool                    `json:"success"`
}

type OverrideRequest struct {
	URL string `json:"url" form:"url"`
}

// Retrieve handles GET /works/:id
func (wc *WorksController) Retrieve(c *gin.Context) {
	notFound := CoversResponse{Covers: []works.CoverView{}, Success: false}
	id, ok := parseWorkID(c)
	if !ok {
		c.JSON(http.StatusNotFound, notFound)
		return
	}

	covers, err := wc.service.GetCovers(id)
	if works.IsNotFound(err) {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	if err != nil {
		respondInternalError(c, err, "get covers")
		return
	}
	c.JSON(http.StatusOK, CoversResponse{Covers: covers, Success: true})
}

// PollSources handles POST /works/:id/poll_sources
func (wc *WorksController) PollSources(c *gin.Context) {
	id, ok := parseWorkID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), providerTimeout)
	defer cancel()

	err := wc.service.PollSources(ctx, id)
	if works.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{})
		return
	}
	if err != nil {
		respondInternalError(c, err, "poll sources")
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Override handles POST /works/:id/override
func (wc *WorksController) Override(c *gin.Context) {
	id, ok := parseWorkID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{})
		return
	}
	var req OverrideRequest
	if err := c.ShouldBind(&req); err != nil || req.URL == "" {
		respondBadRequest(c, "url is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), providerTimeout)
	defer cancel()

	covers, err := wc.service.Override(ctx, id, req.URL)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, covers)
	case works.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{})
	case errors.Is(err, works.ErrNoManifestations),
		errors.Is(err, works.ErrInvalidURL),
		errors.Is(err, works.ErrConflict),
		errors.Is(err, works.ErrFetchFailed):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, "override cover")
	}
}

// Stats handles GET /works/stats
func (wc *WorksController) Stats(c *gin.Context) {
	stats, err := wc.service.Stats()
	if err != nil {
		respondInternalError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Recommendations handles GET /works/:id/recommendations
func (wc *WorksController) Recommendations(c *gin.Context) {
	id, ok := parseWorkID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), providerTimeout)
	defer cancel()

	recs, err := wc.service.Recommendations(ctx, id)
	if works.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{})
		return
	}
	if err != nil {
		respondInternalError(c, err, "recommendations")
		return
	}
	c.JSON(http.StatusOK, RecommendationsResponse{Recommendations: recs, Success: true})
}
