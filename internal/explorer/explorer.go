package explorer

import (
	"context"
	"fmt"

	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/params"
	"github.com/jengzang/taxi-explorer-go/internal/render"
	"github.com/jengzang/taxi-explorer-go/internal/spatial"
)

// Canonical exploration field names.
const (
	FieldAlpha      = "alpha"
	FieldPlot       = "plot"
	FieldColormap   = "colormap"
	FieldPassengers = "passengers"
)

// PointSource streams projected trip endpoints for one query. The trip
// repository implements it; tests substitute fakes.
type PointSource interface {
	ForEachPoint(ctx context.Context, q models.PointQuery, fn func(x, y float64) error) error
}

// Options tune one explorer instance. Zero values fall back to defaults.
type Options struct {
	Extent        spatial.BBox // full-dataset viewport
	PlotWidth     int
	PlotHeight    int
	MaxPoints     int64 // per-render row cap; negative lifts the cap
	ResolutionCap int   // max aggregation grid dimension
	Normalization string
	SpreadRadius  int     // dynamic spreading ceiling
	SpreadCutoff  float64 // nonzero fraction below which spreading kicks in
	TileURL       string
	Attribution   string
}

// DefaultOptions returns the dashboard defaults for the NYC dataset.
func DefaultOptions() Options {
	return Options{
		Extent:        spatial.NYCExtent(),
		PlotWidth:     900,
		PlotHeight:    600,
		MaxPoints:     5000000,
		ResolutionCap: 1200,
		Normalization: "eqhist",
		SpreadRadius:  2,
		SpreadCutoff:  0.05,
		TileURL:       "https://a.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}.png",
		Attribution:   "© OpenStreetMap contributors © CARTO",
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if !o.Extent.Valid() {
		o.Extent = def.Extent
	}
	if o.PlotWidth <= 0 {
		o.PlotWidth = def.PlotWidth
	}
	if o.PlotHeight <= 0 {
		o.PlotHeight = def.PlotHeight
	}
	if o.MaxPoints == 0 {
		o.MaxPoints = def.MaxPoints
	}
	if o.ResolutionCap <= 0 {
		o.ResolutionCap = def.ResolutionCap
	}
	if o.Normalization == "" {
		o.Normalization = def.Normalization
	}
	if o.SpreadRadius < 0 {
		o.SpreadRadius = 0
	}
	if o.TileURL == "" {
		o.TileURL = def.TileURL
		if o.Attribution == "" {
			o.Attribution = def.Attribution
		}
	}
	return o
}

// ViewRequest is the transient per-render viewport. A nil request or zero
// bounds means the configured extent at the default plot size. Requests are
// not persisted anywhere.
type ViewRequest struct {
	Bounds spatial.BBox
	Width  int
	Height int
}

// RenderedView is one rendered data layer plus the basemap reference needed
// to compose it. It carries no timestamp and no identity: a fresh one is
// produced on every render.
type RenderedView struct {
	Plot       string
	Params     map[string]interface{}
	Bounds     spatial.BBox
	Width      int
	Height     int
	PointCount int64
	PeakCount  uint32
	PNG        []byte
	Basemap    models.BasemapSpec
}

// Explorer binds one parameter space, one point source, and the render
// pipeline for a single dashboard session. Parameter state lives in the
// space; the explorer itself holds no mutable view state.
type Explorer struct {
	space  *params.ParameterSpace
	source PointSource
	opts   Options
	norm   render.Normalizer
}

// Schema returns the canonical field declarations, for widget generation.
func Schema() []params.FieldSpec {
	return fieldSpecs()
}

func fieldSpecs() []params.FieldSpec {
	return []params.FieldSpec{
		{
			Name:    FieldAlpha,
			Kind:    params.KindMagnitude,
			Doc:     "data layer opacity",
			Default: 0.75,
		},
		{
			Name:    FieldPlot,
			Kind:    params.KindSelector,
			Doc:     "which trip endpoint to plot",
			Default: models.PlotPickup,
			Allowed: []string{models.PlotPickup, models.PlotDropoff},
		},
		{
			Name:    FieldColormap,
			Kind:    params.KindSelector,
			Doc:     "density color ramp",
			Default: "fire",
			Allowed: render.ColormapNames(),
		},
		{
			Name:    FieldPassengers,
			Kind:    params.KindRange,
			Doc:     "passenger count filter",
			Default: params.Span{Lo: models.PassengerMin, Hi: models.PassengerMax},
			Bounds:  params.Span{Lo: models.PassengerMin, Hi: models.PassengerMax},
		},
	}
}

// New builds an explorer with the canonical field set: alpha, plot, colormap
// and the passenger span.
func New(source PointSource, opts Options) (*Explorer, error) {
	opts = opts.withDefaults()

	norm, err := render.NormalizerByName(opts.Normalization)
	if err != nil {
		return nil, fmt.Errorf("failed to configure normalization: %w", err)
	}

	space, err := params.New(fieldSpecs()...)
	if err != nil {
		return nil, fmt.Errorf("failed to declare fields: %w", err)
	}

	return &Explorer{space: space, source: source, opts: opts, norm: norm}, nil
}

// Params exposes the session's parameter space.
func (e *Explorer) Params() *params.ParameterSpace { return e.space }

// Extent returns the configured full-dataset viewport.
func (e *Explorer) Extent() spatial.BBox { return e.opts.Extent }

// Render produces a view of the current field values plus the optional
// transient viewport. It reads parameter state but never mutates it: the
// same state and request always yield an equivalent view.
func (e *Explorer) Render(ctx context.Context, req *ViewRequest) (*RenderedView, error) {
	bounds, width, height := e.resolveRequest(req)

	alpha, err := e.space.Magnitude(FieldAlpha)
	if err != nil {
		return nil, err
	}
	plot, err := e.space.Selection(FieldPlot)
	if err != nil {
		return nil, err
	}
	cmapName, err := e.space.Selection(FieldColormap)
	if err != nil {
		return nil, err
	}
	span, err := e.space.Range(FieldPassengers)
	if err != nil {
		return nil, err
	}

	cmap, err := render.ColormapByName(cmapName)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	aggW, aggH := aggregationSize(width, height, e.opts.ResolutionCap)
	canvas, err := render.NewCanvas(aggW, aggH, bounds)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	query := models.PointQuery{
		Mode:        plot,
		PassengerLo: span.Lo,
		PassengerHi: span.Hi,
		MinX:        bounds.MinX,
		MinY:        bounds.MinY,
		MaxX:        bounds.MaxX,
		MaxY:        bounds.MaxY,
		MaxPoints:   e.opts.MaxPoints,
	}
	var count int64
	err = e.source.ForEachPoint(ctx, query, func(x, y float64) error {
		canvas.Add(x, y)
		count++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("point source: %w", err)
	}

	grid := canvas.Grid()
	grid = render.DynSpread(grid, e.opts.SpreadRadius, e.opts.SpreadCutoff)

	img := render.Shade(grid, e.norm, cmap, alpha)
	if aggW != width || aggH != height {
		img = render.Resample(img, width, height)
	}

	data, err := render.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	return &RenderedView{
		Plot:       plot,
		Params:     e.space.Snapshot(),
		Bounds:     bounds,
		Width:      width,
		Height:     height,
		PointCount: count,
		PeakCount:  grid.Peak(),
		PNG:        data,
		Basemap:    e.basemapFor(bounds, width),
	}, nil
}

func (e *Explorer) resolveRequest(req *ViewRequest) (spatial.BBox, int, int) {
	bounds := e.opts.Extent
	width, height := e.opts.PlotWidth, e.opts.PlotHeight
	if req == nil {
		return bounds, width, height
	}
	if req.Bounds.Valid() {
		bounds = req.Bounds
	}
	if req.Width > 0 {
		width = req.Width
	}
	if req.Height > 0 {
		height = req.Height
	}
	return bounds, width, height
}

// basemapFor names the slippy-map tiles under a viewport without fetching
// them. The client composites the data layer over these.
func (e *Explorer) basemapFor(b spatial.BBox, pixelWidth int) models.BasemapSpec {
	zoom := spatial.ZoomFor(b, pixelWidth)
	tiles := spatial.TilesFor(b, zoom)
	urls := make([]string, 0, len(tiles))
	for _, t := range tiles {
		urls = append(urls, t.URL(e.opts.TileURL))
	}
	return models.BasemapSpec{
		URLTemplate: e.opts.TileURL,
		Attribution: e.opts.Attribution,
		Zoom:        zoom,
		TileURLs:    urls,
	}
}

// aggregationSize caps the count grid resolution while keeping the output
// aspect ratio. Oversized outputs aggregate at the cap and resample up.
func aggregationSize(width, height, limit int) (int, int) {
	if width <= limit && height <= limit {
		return width, height
	}
	scale := float64(limit) / float64(width)
	if height > width {
		scale = float64(limit) / float64(height)
	}
	w := int(float64(width)*scale + 0.5)
	h := int(float64(height)*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
