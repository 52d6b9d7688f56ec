package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/taxi-explorer-go/internal/explorer"
	"github.com/jengzang/taxi-explorer-go/internal/middleware"
	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/params"
	"github.com/jengzang/taxi-explorer-go/pkg/response"
)

// ParamsHandler handles HTTP requests for session parameter state
type ParamsHandler struct{}

// NewParamsHandler creates a new params handler
func NewParamsHandler() *ParamsHandler {
	return &ParamsHandler{}
}

// GetSchema handles GET /api/v1/explorer/schema. The schema is static per
// deployment, so no session is needed.
func (h *ParamsHandler) GetSchema(c *gin.Context) {
	specs := explorer.Schema()
	fields := make([]models.FieldSchema, 0, len(specs))
	for _, spec := range specs {
		fields = append(fields, models.FieldSchema{
			Name:    spec.Name,
			Kind:    spec.Kind.String(),
			Doc:     spec.Doc,
			Default: spec.Default,
			Allowed: spec.Allowed,
			BoundLo: spec.Bounds.Lo,
			BoundHi: spec.Bounds.Hi,
		})
	}
	response.Success(c, models.SchemaResponse{Fields: fields})
}

// GetParams handles GET /api/v1/sessions/current/params
func (h *ParamsHandler) GetParams(c *gin.Context) {
	session := middleware.SessionFrom(c)
	response.Success(c, session.Explorer.Params().Snapshot())
}

// SetParam handles PUT /api/v1/sessions/current/params/:name
func (h *ParamsHandler) SetParam(c *gin.Context) {
	session := middleware.SessionFrom(c)
	name := c.Param("name")

	var req models.ParamUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	if err := session.Explorer.Params().Set(name, req.Value); err != nil {
		var verr *params.ValidationError
		if errors.As(err, &verr) {
			response.UnprocessableEntity(c, "Validation failed", gin.H{
				"field":      verr.Field,
				"value":      verr.Value,
				"constraint": verr.Constraint,
			})
			return
		}
		var uerr *params.UnknownFieldError
		if errors.As(err, &uerr) {
			response.NotFound(c, "Unknown field "+uerr.Field)
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to set field", err)
		return
	}

	value, err := session.Explorer.Params().Get(name)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to read field back", err)
		return
	}
	response.Success(c, gin.H{"field": name, "value": value})
}
