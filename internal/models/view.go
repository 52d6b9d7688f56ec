package models

import "time"

// ViewportRequest represents a viewport change posted into a session's view
// loop. Zero bounds reset to the default extent.
type ViewportRequest struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	MaxX   float64 `json:"max_x"`
	MaxY   float64 `json:"max_y"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

// BasemapSpec names the tile layer a client should compose under the data
// layer. The server never fetches tiles.
type BasemapSpec struct {
	URLTemplate string   `json:"url_template"`
	Attribution string   `json:"attribution"`
	Zoom        int      `json:"zoom"`
	TileURLs    []string `json:"tile_urls"`
}

// ViewResponse represents a rendered view in the JSON envelope format:
// metadata plus the data layer as base64 PNG.
type ViewResponse struct {
	Plot       string                 `json:"plot"`
	Params     map[string]interface{} `json:"params"`
	MinX       float64                `json:"min_x"`
	MinY       float64                `json:"min_y"`
	MaxX       float64                `json:"max_x"`
	MaxY       float64                `json:"max_y"`
	Width      int                    `json:"width"`
	Height     int                    `json:"height"`
	PointCount int64                  `json:"point_count"`
	PeakCount  uint32                 `json:"peak_count"`
	ImagePNG   string                 `json:"image_png"` // base64
	Basemap    BasemapSpec            `json:"basemap"`
}

// SavedView is a named, persisted exploration state: parameter snapshot plus
// viewport. Per-session live state is never persisted; saving is explicit.
type SavedView struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Params    map[string]interface{} `json:"params"`
	MinX      float64                `json:"min_x"`
	MinY      float64                `json:"min_y"`
	MaxX      float64                `json:"max_x"`
	MaxY      float64                `json:"max_y"`
	Width     int                    `json:"width,omitempty"`
	Height    int                    `json:"height,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// SaveViewRequest represents the create-view payload
type SaveViewRequest struct {
	Name   string          `json:"name" binding:"required"`
	Bounds ViewportRequest `json:"bounds"`
}
