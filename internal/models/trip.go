package models

// TaxiTrip represents one yellow-cab trip record. Coordinates are stored
// both as WGS84 lon/lat (as ingested) and pre-projected Web-Mercator meters
// so render scans never re-project.
type TaxiTrip struct {
	ID int64 `json:"id" db:"id"`

	// Temporal info
	PickupTime  int64 `json:"pickup_time" db:"pickup_time"`   // Unix timestamp
	DropoffTime int64 `json:"dropoff_time" db:"dropoff_time"` // Unix timestamp

	// Pickup location
	PickupLon float64 `json:"pickup_lon" db:"pickup_lon"`
	PickupLat float64 `json:"pickup_lat" db:"pickup_lat"`
	PickupX   float64 `json:"pickup_x" db:"pickup_x"` // Web-Mercator meters
	PickupY   float64 `json:"pickup_y" db:"pickup_y"`

	// Dropoff location
	DropoffLon float64 `json:"dropoff_lon" db:"dropoff_lon"`
	DropoffLat float64 `json:"dropoff_lat" db:"dropoff_lat"`
	DropoffX   float64 `json:"dropoff_x" db:"dropoff_x"`
	DropoffY   float64 `json:"dropoff_y" db:"dropoff_y"`

	// Trip characteristics
	PassengerCount int     `json:"passenger_count" db:"passenger_count"`
	TripDistanceKm float64 `json:"trip_distance_km" db:"trip_distance_km"`
	FareAmount     float64 `json:"fare_amount,omitempty" db:"fare_amount"`
	TipAmount      float64 `json:"tip_amount,omitempty" db:"tip_amount"`
}

// Plot mode constants: which coordinate pair of a trip a view renders
const (
	PlotPickup  = "pickup"
	PlotDropoff = "dropoff"
)

// Passenger count bounds of the dataset
const (
	PassengerMin = 0
	PassengerMax = 10
)
