package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/spatial"
)

const (
	defaultBatchSize = 5000
	progressEvery    = 100000
	milesToKm        = 1.609344
)

// timeLayout matches the yellow-cab export datetime format.
const timeLayout = "2006-01-02 15:04:05"

// columnAliases maps the header spellings seen across yellow-cab export
// generations onto canonical names. Unmapped columns are ignored.
var columnAliases = map[string]string{
	"tpep_pickup_datetime":  "pickup_time",
	"pickup_datetime":       "pickup_time",
	"tpep_dropoff_datetime": "dropoff_time",
	"dropoff_datetime":      "dropoff_time",
	"pickup_longitude":      "pickup_lon",
	"pickup_lon":            "pickup_lon",
	"pickup_latitude":       "pickup_lat",
	"pickup_lat":            "pickup_lat",
	"dropoff_longitude":     "dropoff_lon",
	"dropoff_lon":           "dropoff_lon",
	"dropoff_latitude":      "dropoff_lat",
	"dropoff_lat":           "dropoff_lat",
	"pickup_x":              "pickup_x",
	"pickup_y":              "pickup_y",
	"dropoff_x":             "dropoff_x",
	"dropoff_y":             "dropoff_y",
	"passenger_count":       "passenger_count",
	"trip_distance":         "trip_distance_mi",
	"fare_amount":           "fare_amount",
	"tip_amount":            "tip_amount",
}

// TripWriter is the sink half of the trip repository the loader needs.
type TripWriter interface {
	InsertTrips(trips []models.TaxiTrip) error
}

// LoadStats reports what a load pass did.
type LoadStats struct {
	Read     int64
	Inserted int64
	Skipped  int64
}

// Loader streams trip CSVs into the repository in batches. Rows with
// malformed fields or out-of-range coordinates are counted and skipped, not
// fatal: the raw exports are dirty.
type Loader struct {
	writer    TripWriter
	batchSize int
}

// NewLoader creates a loader writing to the given sink.
func NewLoader(writer TripWriter, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Loader{writer: writer, batchSize: batchSize}
}

// LoadFile loads a CSV file by path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()
	return l.LoadCSV(ctx, f)
}

// LoadCSV streams one CSV. The header row decides the column mapping;
// lon/lat-only exports are projected to Web-Mercator on the fly and missing
// trip distances are backfilled with the haversine length.
func (l *Loader) LoadCSV(ctx context.Context, r io.Reader) (*LoadStats, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int)
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := columnAliases[key]; ok {
			cols[canonical] = i
		}
	}
	if err := checkColumns(cols); err != nil {
		return nil, err
	}

	stats := &LoadStats{}
	batch := make([]models.TaxiTrip, 0, l.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.writer.InsertTrips(batch); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		stats.Inserted += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return stats, fmt.Errorf("failed to read csv: %w", err)
			}
			stats.Read++
			stats.Skipped++
			continue
		}
		stats.Read++

		trip, ok := parseRow(row, cols)
		if !ok {
			stats.Skipped++
			continue
		}
		batch = append(batch, trip)

		if len(batch) >= l.batchSize {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := flush(); err != nil {
				return stats, err
			}
		}
		if stats.Read%progressEvery == 0 {
			log.Printf("[Ingest] %d rows read, %d inserted, %d skipped",
				stats.Read, stats.Inserted+int64(len(batch)), stats.Skipped)
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}
	log.Printf("[Ingest] done: %d rows read, %d inserted, %d skipped",
		stats.Read, stats.Inserted, stats.Skipped)
	return stats, nil
}

// checkColumns verifies the header carries timestamps plus either lon/lat or
// pre-projected coordinates for both trip ends.
func checkColumns(cols map[string]int) error {
	if _, ok := cols["pickup_time"]; !ok {
		return fmt.Errorf("csv missing pickup datetime column")
	}
	hasLonLat := has(cols, "pickup_lon", "pickup_lat", "dropoff_lon", "dropoff_lat")
	hasXY := has(cols, "pickup_x", "pickup_y", "dropoff_x", "dropoff_y")
	if !hasLonLat && !hasXY {
		return fmt.Errorf("csv missing coordinate columns (lon/lat or x/y)")
	}
	return nil
}

func has(cols map[string]int, names ...string) bool {
	for _, n := range names {
		if _, ok := cols[n]; !ok {
			return false
		}
	}
	return true
}

func parseRow(row []string, cols map[string]int) (models.TaxiTrip, bool) {
	var t models.TaxiTrip

	get := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}
	getFloat := func(name string) (float64, bool) {
		s, ok := get(name)
		if !ok || s == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}

	// Timestamps.
	s, _ := get("pickup_time")
	pickup, err := time.Parse(timeLayout, s)
	if err != nil {
		return t, false
	}
	t.PickupTime = pickup.Unix()
	if s, ok := get("dropoff_time"); ok && s != "" {
		dropoff, err := time.Parse(timeLayout, s)
		if err != nil {
			return t, false
		}
		t.DropoffTime = dropoff.Unix()
	} else {
		t.DropoffTime = t.PickupTime
	}

	// Coordinates: prefer lon/lat (project ourselves), fall back to x/y.
	if lon, ok := getFloat("pickup_lon"); ok {
		lat, ok2 := getFloat("pickup_lat")
		dlon, ok3 := getFloat("dropoff_lon")
		dlat, ok4 := getFloat("dropoff_lat")
		if !ok2 || !ok3 || !ok4 {
			return t, false
		}
		if !validLonLat(lon, lat) || !validLonLat(dlon, dlat) {
			return t, false
		}
		t.PickupLon, t.PickupLat = lon, lat
		t.DropoffLon, t.DropoffLat = dlon, dlat
		t.PickupX, t.PickupY = spatial.MercatorFromLonLat(lon, lat)
		t.DropoffX, t.DropoffY = spatial.MercatorFromLonLat(dlon, dlat)
	} else {
		x, ok1 := getFloat("pickup_x")
		y, ok2 := getFloat("pickup_y")
		dx, ok3 := getFloat("dropoff_x")
		dy, ok4 := getFloat("dropoff_y")
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return t, false
		}
		t.PickupX, t.PickupY = x, y
		t.DropoffX, t.DropoffY = dx, dy
		t.PickupLon, t.PickupLat = spatial.LonLatFromMercator(x, y)
		t.DropoffLon, t.DropoffLat = spatial.LonLatFromMercator(dx, dy)
	}

	// Passengers: missing counts ride as 1, absurd ones are clamped.
	if v, ok := getFloat("passenger_count"); ok {
		t.PassengerCount = int(v)
		if t.PassengerCount < models.PassengerMin {
			t.PassengerCount = models.PassengerMin
		}
		if t.PassengerCount > models.PassengerMax {
			t.PassengerCount = models.PassengerMax
		}
	} else {
		t.PassengerCount = 1
	}

	// Distance: the export column is miles; backfill from the endpoints
	// when absent.
	if mi, ok := getFloat("trip_distance_mi"); ok && mi > 0 {
		t.TripDistanceKm = mi * milesToKm
	} else {
		t.TripDistanceKm = spatial.HaversineKm(t.PickupLat, t.PickupLon, t.DropoffLat, t.DropoffLon)
	}

	if v, ok := getFloat("fare_amount"); ok {
		t.FareAmount = v
	}
	if v, ok := getFloat("tip_amount"); ok {
		t.TipAmount = v
	}

	return t, true
}

// validLonLat rejects the (0, 0) GPS failures and off-planet values the raw
// exports contain.
func validLonLat(lon, lat float64) bool {
	if lon == 0 && lat == 0 {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -85 && lat <= 85
}
