package runner

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventhub/internal/pipeline"
)

// Handler exposes the scheduling surface: run one slug, or run a batch.
// Both are idempotent to re-invoke since the merge engine is.
type Handler struct {
	Runner  *Runner
	Reports *pipeline.ReportStore
}

func NewHandler(r *Runner, reports *pipeline.ReportStore) *Handler {
	return &Handler{Runner: r, Reports: reports}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/crawl", h.crawlBatch)
	router.POST("/crawl/:slug", h.crawlSlug)
	router.GET("/sources", h.listSources)
	router.GET("/reports", h.listReports)
	router.GET("/reports/:name", h.getReport)
}

func (h *Handler) crawlSlug(c *gin.Context) {
	slug := c.Param("slug")
	if !h.Runner.HasSource(slug) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source slug"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	jobID, err := h.Runner.Submit([]string{slug}, limit)
	if err != nil {
		h.submitError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "slugs": []string{slug}, "limit": limit})
}

type batchRequest struct {
	Slugs []string `json:"slugs"`
	Limit int      `json:"limit"`
}

func (h *Handler) crawlBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slugs := req.Slugs
	if len(slugs) == 0 {
		slugs = h.Runner.Slugs()
	}
	for _, slug := range slugs {
		if !h.Runner.HasSource(slug) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown source slug: " + slug})
			return
		}
	}

	jobID, err := h.Runner.Submit(slugs, req.Limit)
	if err != nil {
		h.submitError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "slugs": slugs, "limit": req.Limit})
}

func (h *Handler) listSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.Runner.Slugs()})
}

func (h *Handler) listReports(c *gin.Context) {
	names, err := h.Reports.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list reports failed"})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": names})
}

func (h *Handler) getReport(c *gin.Context) {
	b, err := h.Reports.Read(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.Data(http.StatusOK, "application/json", b)
}

func (h *Handler) submitError(c *gin.Context, err error) {
	if errors.Is(err, ErrQueueFull) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue full, retry later"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "submit failed"})
}
