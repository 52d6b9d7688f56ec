package models

// ViewQuery represents the optional viewport query parameters of a render
// request. Zero values mean "use the session defaults".
type ViewQuery struct {
	MinX   float64 `form:"min_x"` // Web-Mercator meters
	MinY   float64 `form:"min_y"`
	MaxX   float64 `form:"max_x"`
	MaxY   float64 `form:"max_y"`
	Width  int     `form:"width"`  // Output pixels
	Height int     `form:"height"`
	Format string  `form:"format"` // png | json
}

// HasBounds reports whether the query carries an explicit viewport.
func (q ViewQuery) HasBounds() bool {
	return q.MinX != 0 || q.MinY != 0 || q.MaxX != 0 || q.MaxY != 0
}

// PointQuery represents the streaming scan parameters of one render pass.
type PointQuery struct {
	Mode        string  // pickup | dropoff
	PassengerLo int     // Inclusive
	PassengerHi int     // Inclusive
	MinX        float64 // Web-Mercator viewport
	MinY        float64
	MaxX        float64
	MaxY        float64
	MaxPoints   int64   // non-positive means unlimited
}

// TripFilter represents filter parameters for counting/summarizing trips
type TripFilter struct {
	StartTime     int64 `form:"startTime"` // Unix timestamp
	EndTime       int64 `form:"endTime"`   // Unix timestamp
	MinPassengers int   `form:"minPassengers"`
	MaxPassengers int   `form:"maxPassengers"`
}

// HistogramQuery represents the dataset histogram request
type HistogramQuery struct {
	By string `form:"by"` // hour | passengers
}

// Histogram dimension constants
const (
	HistogramByHour       = "hour"
	HistogramByPassengers = "passengers"
)
