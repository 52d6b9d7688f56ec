package models

// DatasetSummary represents aggregate statistics over the loaded trips,
// backing the dashboard's static side panels.
type DatasetSummary struct {
	TripCount     int64   `json:"trip_count"`
	FirstPickup   int64   `json:"first_pickup,omitempty"` // Unix timestamp
	LastPickup    int64   `json:"last_pickup,omitempty"`  // Unix timestamp
	AvgDistanceKm float64 `json:"avg_distance_km"`
	AvgFare       float64 `json:"avg_fare"`
	AvgPassengers float64 `json:"avg_passengers"`

	// Distance distribution (sampled)
	DistanceP50 float64 `json:"distance_p50,omitempty"`
	DistanceP90 float64 `json:"distance_p90,omitempty"`
	DistanceP99 float64 `json:"distance_p99,omitempty"`
}

// HistogramBucket is one bar of a dataset histogram.
type HistogramBucket struct {
	Key   int   `json:"key"` // Hour of day (0-23) or passenger count
	Count int64 `json:"count"`
}

// HistogramResponse represents the dataset histogram API response
type HistogramResponse struct {
	By      string            `json:"by"`
	Buckets []HistogramBucket `json:"buckets"`
	Total   int64             `json:"total"`
}
