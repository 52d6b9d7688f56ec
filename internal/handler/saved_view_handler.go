package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/taxi-explorer-go/internal/explorer"
	"github.com/jengzang/taxi-explorer-go/internal/middleware"
	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/params"
	"github.com/jengzang/taxi-explorer-go/internal/service"
	"github.com/jengzang/taxi-explorer-go/internal/spatial"
	"github.com/jengzang/taxi-explorer-go/internal/store"
	"github.com/jengzang/taxi-explorer-go/pkg/response"
)

// SavedViewHandler handles HTTP requests for saved views
type SavedViewHandler struct {
	views *service.ViewService
}

// NewSavedViewHandler creates a new saved view handler
func NewSavedViewHandler(views *service.ViewService) *SavedViewHandler {
	return &SavedViewHandler{views: views}
}

// ListViews handles GET /api/v1/views
func (h *SavedViewHandler) ListViews(c *gin.Context) {
	views, err := h.views.List()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to list views", err)
		return
	}
	response.Success(c, gin.H{"data": views, "count": len(views)})
}

// GetView handles GET /api/v1/views/:id
func (h *SavedViewHandler) GetView(c *gin.Context) {
	view, err := h.views.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNoView) {
			response.NotFound(c, "View not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to get view", err)
		return
	}
	response.Success(c, view)
}

// CreateView handles POST /api/v1/views. It captures the calling session's
// current parameter state under the given name.
func (h *SavedViewHandler) CreateView(c *gin.Context) {
	session := middleware.SessionFrom(c)

	var req models.SaveViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid view payload", err)
		return
	}

	saved, err := h.views.Save(models.SavedView{
		Name:   req.Name,
		Params: session.Explorer.Params().Snapshot(),
		MinX:   req.Bounds.MinX,
		MinY:   req.Bounds.MinY,
		MaxX:   req.Bounds.MaxX,
		MaxY:   req.Bounds.MaxY,
		Width:  req.Bounds.Width,
		Height: req.Bounds.Height,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to save view", err)
		return
	}
	response.Success(c, saved)
}

// DeleteView handles DELETE /api/v1/views/:id
func (h *SavedViewHandler) DeleteView(c *gin.Context) {
	id := c.Param("id")
	if err := h.views.Delete(id); err != nil {
		if errors.Is(err, store.ErrNoView) {
			response.NotFound(c, "View not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to delete view", err)
		return
	}
	response.Success(c, gin.H{"deleted": id})
}

// ApplyView handles POST /api/v1/views/:id/apply. It restores the saved
// parameter values into the calling session and queues its viewport.
func (h *SavedViewHandler) ApplyView(c *gin.Context) {
	session := middleware.SessionFrom(c)

	view, err := h.views.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNoView) {
			response.NotFound(c, "View not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to load view", err)
		return
	}

	space := session.Explorer.Params()
	for field, value := range view.Params {
		if err := space.Set(field, value); err != nil {
			var verr *params.ValidationError
			if errors.As(err, &verr) {
				response.UnprocessableEntity(c, "Saved value no longer valid", gin.H{
					"field":      verr.Field,
					"value":      verr.Value,
					"constraint": verr.Constraint,
				})
				return
			}
			// Fields the schema no longer declares are skipped.
			var uerr *params.UnknownFieldError
			if errors.As(err, &uerr) {
				continue
			}
			response.Error(c, http.StatusInternalServerError, "Failed to apply view", err)
			return
		}
	}

	bounds := spatial.BBox{MinX: view.MinX, MinY: view.MinY, MaxX: view.MaxX, MaxY: view.MaxY}
	if bounds.Valid() {
		session.Loop.PostViewport(explorer.ViewRequest{
			Bounds: bounds,
			Width:  view.Width,
			Height: view.Height,
		})
	}
	response.Success(c, gin.H{"applied": view.ID, "params": space.Snapshot()})
}
