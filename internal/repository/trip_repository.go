package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jengzang/taxi-explorer-go/internal/database"
	"github.com/jengzang/taxi-explorer-go/internal/models"
)

// tripMigrations defines the trip table schema. The x/y columns hold
// pre-projected Web-Mercator meters; render scans touch nothing else.
var tripMigrations = []database.Migration{
	{
		Version: 1,
		Name:    "create_taxi_trips",
		SQL: `
			CREATE TABLE IF NOT EXISTS taxi_trips (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				pickup_time INTEGER NOT NULL,
				dropoff_time INTEGER NOT NULL,
				pickup_lon REAL NOT NULL,
				pickup_lat REAL NOT NULL,
				pickup_x REAL NOT NULL,
				pickup_y REAL NOT NULL,
				dropoff_lon REAL NOT NULL,
				dropoff_lat REAL NOT NULL,
				dropoff_x REAL NOT NULL,
				dropoff_y REAL NOT NULL,
				passenger_count INTEGER NOT NULL DEFAULT 1,
				trip_distance_km REAL NOT NULL DEFAULT 0,
				fare_amount REAL NOT NULL DEFAULT 0,
				tip_amount REAL NOT NULL DEFAULT 0
			)
		`,
	},
	{
		Version: 2,
		Name:    "trip_scan_indexes",
		SQL: `
			CREATE INDEX IF NOT EXISTS idx_trips_pickup_xy ON taxi_trips(pickup_x, pickup_y);
			CREATE INDEX IF NOT EXISTS idx_trips_dropoff_xy ON taxi_trips(dropoff_x, dropoff_y);
			CREATE INDEX IF NOT EXISTS idx_trips_passengers ON taxi_trips(passenger_count);
		`,
	},
}

// TripRepository handles database operations for taxi trips
type TripRepository struct {
	db *sql.DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db}
}

// EnsureSchema applies any pending trip table migrations
func (r *TripRepository) EnsureSchema() error {
	return database.NewMigrationManager(r.db, tripMigrations).RunMigrations()
}

// InsertTrips inserts a batch of trips in a single transaction with a
// prepared statement
func (r *TripRepository) InsertTrips(trips []models.TaxiTrip) error {
	if len(trips) == 0 {
		return nil
	}

	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO taxi_trips (
				pickup_time, dropoff_time,
				pickup_lon, pickup_lat, pickup_x, pickup_y,
				dropoff_lon, dropoff_lat, dropoff_x, dropoff_y,
				passenger_count, trip_distance_km, fare_amount, tip_amount
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range trips {
			_, err := stmt.Exec(
				t.PickupTime, t.DropoffTime,
				t.PickupLon, t.PickupLat, t.PickupX, t.PickupY,
				t.DropoffLon, t.DropoffLat, t.DropoffX, t.DropoffY,
				t.PassengerCount, t.TripDistanceKm, t.FareAmount, t.TipAmount,
			)
			if err != nil {
				return fmt.Errorf("failed to insert trip: %w", err)
			}
		}
		return nil
	})
}

// ForEachPoint streams the plot mode's x/y columns for every trip matching
// the query, in storage order. The callback's error aborts the scan and is
// returned as-is.
func (r *TripRepository) ForEachPoint(ctx context.Context, q models.PointQuery, fn func(x, y float64) error) error {
	var prefix string
	switch q.Mode {
	case models.PlotPickup:
		prefix = "pickup"
	case models.PlotDropoff:
		prefix = "dropoff"
	default:
		return fmt.Errorf("unknown plot mode %q", q.Mode)
	}

	query := fmt.Sprintf(`
		SELECT %[1]s_x, %[1]s_y FROM taxi_trips
		WHERE %[1]s_x >= ? AND %[1]s_x < ?
		  AND %[1]s_y >= ? AND %[1]s_y < ?
		  AND passenger_count BETWEEN ? AND ?
	`, prefix)
	args := []interface{}{q.MinX, q.MaxX, q.MinY, q.MaxY, q.PassengerLo, q.PassengerHi}

	if q.MaxPoints > 0 {
		query += " LIMIT ?"
		args = append(args, q.MaxPoints)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var x, y float64
		if err := rows.Scan(&x, &y); err != nil {
			return fmt.Errorf("failed to scan point: %w", err)
		}
		if err := fn(x, y); err != nil {
			return err
		}
	}

	return rows.Err()
}

// CountTrips counts trips matching the filter
func (r *TripRepository) CountTrips(filter models.TripFilter) (int64, error) {
	query := "SELECT COUNT(*) FROM taxi_trips"

	var conditions []string
	var args []interface{}

	if filter.StartTime > 0 {
		conditions = append(conditions, "pickup_time >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "pickup_time <= ?")
		args = append(args, filter.EndTime)
	}
	if filter.MinPassengers > 0 {
		conditions = append(conditions, "passenger_count >= ?")
		args = append(args, filter.MinPassengers)
	}
	if filter.MaxPassengers > 0 {
		conditions = append(conditions, "passenger_count <= ?")
		args = append(args, filter.MaxPassengers)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int64
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return count, nil
}

// Summary returns aggregate statistics over all loaded trips
func (r *TripRepository) Summary() (*models.DatasetSummary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(MIN(pickup_time), 0),
		       COALESCE(MAX(pickup_time), 0),
		       COALESCE(AVG(trip_distance_km), 0),
		       COALESCE(AVG(fare_amount), 0),
		       COALESCE(AVG(passenger_count), 0)
		FROM taxi_trips
	`

	var s models.DatasetSummary
	err := r.db.QueryRow(query).Scan(
		&s.TripCount, &s.FirstPickup, &s.LastPickup,
		&s.AvgDistanceKm, &s.AvgFare, &s.AvgPassengers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	return &s, nil
}

// SampleDistances returns up to limit positive trip distances. A prefix
// sample is good enough for the dashboard's percentile readouts.
func (r *TripRepository) SampleDistances(limit int) ([]float64, error) {
	rows, err := r.db.Query(
		"SELECT trip_distance_km FROM taxi_trips WHERE trip_distance_km > 0 LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query distances: %w", err)
	}
	defer rows.Close()

	var distances []float64
	for rows.Next() {
		var d float64
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan distance: %w", err)
		}
		distances = append(distances, d)
	}
	return distances, rows.Err()
}

// HourlyCounts buckets trips by pickup hour of day
func (r *TripRepository) HourlyCounts() ([]models.HistogramBucket, error) {
	query := `
		SELECT CAST(strftime('%H', datetime(pickup_time, 'unixepoch')) AS INTEGER) AS hour,
		       COUNT(*)
		FROM taxi_trips
		GROUP BY hour
		ORDER BY hour
	`
	return r.queryBuckets(query)
}

// PassengerCounts buckets trips by passenger count
func (r *TripRepository) PassengerCounts() ([]models.HistogramBucket, error) {
	query := `
		SELECT passenger_count, COUNT(*)
		FROM taxi_trips
		GROUP BY passenger_count
		ORDER BY passenger_count
	`
	return r.queryBuckets(query)
}

func (r *TripRepository) queryBuckets(query string) ([]models.HistogramBucket, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query histogram: %w", err)
	}
	defer rows.Close()

	var buckets []models.HistogramBucket
	for rows.Next() {
		var b models.HistogramBucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}
