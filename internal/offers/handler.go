package offers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventhub/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.GET("/nearby", h.nearby)
	rg.GET("/:id", h.getByID)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:           c.Query("q"),
		Category:    c.Query("category"),
		City:        c.Query("city"),
		FreeOnly:    c.Query("free") == "true",
		OutdoorOnly: c.Query("outdoor") == "true",
		Limit:       parseInt(c.Query("limit"), 20),
		Offset:      parseInt(c.Query("offset"), 0),
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	offer, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if offer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, offer)
}

func (h *Handler) nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required"})
		return
	}
	radius, err := strconv.ParseFloat(c.Query("radius_km"), 64)
	if err != nil || radius <= 0 {
		radius = 5
	}

	items, err := h.Repo.ListNearby(c.Request.Context(), lat, lon, radius)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "nearby failed"})
		return
	}
	if items == nil {
		items = []models.Offer{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "radius_km": radius})
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
