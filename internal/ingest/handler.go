package ingest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eventhub/pkg/models"
)

// Handler exposes the manual-entry boundary: submissions carry the same
// canonical field set the crawlers produce and go through the identical
// upsert path. The OCR feature feeds this same endpoint.
type Handler struct {
	Engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/manual", h.submitManual)
}

type manualEntry struct {
	ExternalID      string     `json:"external_id"`
	Title           string     `json:"title" binding:"required"`
	Description     string     `json:"description"`
	Summary         string     `json:"summary"`
	ImageURL        string     `json:"image_url"`
	DtStart         *time.Time `json:"dt_start"`
	DtEnd           *time.Time `json:"dt_end"`
	LocationName    string     `json:"location_name"`
	LocationAddress string     `json:"location_address"`
	LocationCity    string     `json:"location_city"`
	Categories      []string   `json:"categories"`
	PriceText       string     `json:"price_text"`
	IsFree          *bool      `json:"is_free"`
	IsOutdoor       *bool      `json:"is_outdoor"`
}

func (h *Handler) submitManual(c *gin.Context) {
	var req manualEntry
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	externalID := req.ExternalID
	if externalID == "" {
		externalID = uuid.NewString()
	}

	payload := &models.EventPayload{
		SourceSlug:      "manual",
		SourceName:      "manual entry",
		SourceType:      models.SourceTypeManual,
		ExternalID:      externalID,
		Title:           req.Title,
		Description:     req.Description,
		Summary:         req.Summary,
		ImageURL:        req.ImageURL,
		DtStart:         req.DtStart,
		DtEnd:           req.DtEnd,
		LocationName:    req.LocationName,
		LocationAddress: req.LocationAddress,
		LocationCity:    req.LocationCity,
		Categories:      req.Categories,
		PriceText:       req.PriceText,
		IsFree:          req.IsFree,
		IsOutdoor:       req.IsOutdoor,
	}
	Normalize(payload)

	result, err := h.Engine.Upsert(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upsert failed"})
		return
	}

	status := http.StatusOK
	if result == ResultCreated {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"status":      string(result),
		"external_id": "manual:" + externalID,
	})
}
