package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/taxi-explorer-go/internal/explorer"
	"github.com/jengzang/taxi-explorer-go/internal/middleware"
	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/spatial"
	"github.com/jengzang/taxi-explorer-go/pkg/response"
)

// ExplorerHandler handles HTTP requests for session rendering
type ExplorerHandler struct{}

// NewExplorerHandler creates a new explorer handler
func NewExplorerHandler() *ExplorerHandler {
	return &ExplorerHandler{}
}

// RenderView handles GET /api/v1/sessions/current/view. Without bounds it
// renders the configured extent; format=json returns the metadata envelope
// instead of the raw PNG.
func (h *ExplorerHandler) RenderView(c *gin.Context) {
	session := middleware.SessionFrom(c)

	var q models.ViewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	req := &explorer.ViewRequest{Width: q.Width, Height: q.Height}
	if q.HasBounds() {
		req.Bounds = spatial.BBox{MinX: q.MinX, MinY: q.MinY, MaxX: q.MaxX, MaxY: q.MaxY}
		if !req.Bounds.Valid() {
			response.BadRequest(c, "Invalid viewport bounds", nil)
			return
		}
	}

	view, err := session.Explorer.Render(c.Request.Context(), req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to render view", err)
		return
	}

	if q.Format == "json" {
		response.Success(c, toViewResponse(view))
		return
	}
	c.Data(http.StatusOK, "image/png", view.PNG)
}

// PostViewport handles POST /api/v1/sessions/current/viewport. The change is
// queued into the session's view loop; the rendered frame arrives on the
// frame stream.
func (h *ExplorerHandler) PostViewport(c *gin.Context) {
	session := middleware.SessionFrom(c)

	var req models.ViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid viewport payload", err)
		return
	}

	session.Loop.PostViewport(explorer.ViewRequest{
		Bounds: spatial.BBox{MinX: req.MinX, MinY: req.MinY, MaxX: req.MaxX, MaxY: req.MaxY},
		Width:  req.Width,
		Height: req.Height,
	})
	response.Success(c, gin.H{"queued": true})
}

// StreamFrames handles GET /api/v1/sessions/current/frames as a server-sent
// event stream of rendered views. The stream ends when the client goes away
// or the session is torn down.
func (h *ExplorerHandler) StreamFrames(c *gin.Context) {
	session := middleware.SessionFrom(c)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case view, ok := <-session.Loop.Frames():
			if !ok {
				return
			}
			c.SSEvent("frame", toViewResponse(view))
			c.Writer.Flush()
		}
	}
}

func toViewResponse(view *explorer.RenderedView) models.ViewResponse {
	return models.ViewResponse{
		Plot:       view.Plot,
		Params:     view.Params,
		MinX:       view.Bounds.MinX,
		MinY:       view.Bounds.MinY,
		MaxX:       view.Bounds.MaxX,
		MaxY:       view.Bounds.MaxY,
		Width:      view.Width,
		Height:     view.Height,
		PointCount: view.PointCount,
		PeakCount:  view.PeakCount,
		ImagePNG:   base64.StdEncoding.EncodeToString(view.PNG),
		Basemap:    view.Basemap,
	}
}
