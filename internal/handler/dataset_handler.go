package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/service"
	"github.com/jengzang/taxi-explorer-go/pkg/response"
)

// DatasetHandler handles HTTP requests for dataset statistics
type DatasetHandler struct {
	service *service.DatasetService
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service *service.DatasetService) *DatasetHandler {
	return &DatasetHandler{service: service}
}

// GetSummary handles GET /api/v1/dataset/summary
func (h *DatasetHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.Summary()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to summarize dataset", err)
		return
	}
	response.Success(c, summary)
}

// GetHistogram handles GET /api/v1/dataset/histogram
func (h *DatasetHandler) GetHistogram(c *gin.Context) {
	var q models.HistogramQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}
	if q.By == "" {
		q.By = models.HistogramByHour
	}

	hist, err := h.service.Histogram(q.By)
	if err != nil {
		response.BadRequest(c, "Invalid histogram dimension", err)
		return
	}
	response.Success(c, hist)
}
