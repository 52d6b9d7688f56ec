package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jengzang/taxi-explorer-go/internal/database"
	"github.com/jengzang/taxi-explorer-go/internal/models"
)

func newTestRepo(t *testing.T) *TripRepository {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewTripRepository(db)
	if err := repo.EnsureSchema(); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return repo
}

// trip builds a minimal record around one pickup point; the dropoff is
// offset east so the two modes are distinguishable in scans.
func trip(pickupTime int64, x, y float64, passengers int, distanceKm float64) models.TaxiTrip {
	return models.TaxiTrip{
		PickupTime:     pickupTime,
		DropoffTime:    pickupTime + 600,
		PickupX:        x,
		PickupY:        y,
		DropoffX:       x + 1000,
		DropoffY:       y,
		PassengerCount: passengers,
		TripDistanceKm: distanceKm,
		FareAmount:     10,
		TipAmount:      2,
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.EnsureSchema(); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestInsertAndCount(t *testing.T) {
	repo := newTestRepo(t)

	trips := []models.TaxiTrip{
		trip(1452844800, 10, 10, 1, 2.5), // 2016-01-15 08:00 UTC
		trip(1452848400, 20, 20, 2, 5.0), // 09:00
		trip(1452852000, 30, 30, 5, 1.0), // 10:00
	}
	if err := repo.InsertTrips(trips); err != nil {
		t.Fatalf("InsertTrips: %v", err)
	}

	count, err := repo.CountTrips(models.TripFilter{})
	if err != nil {
		t.Fatalf("CountTrips: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	count, err = repo.CountTrips(models.TripFilter{MinPassengers: 2})
	if err != nil {
		t.Fatalf("CountTrips: %v", err)
	}
	if count != 2 {
		t.Errorf("count with min passengers = %d, want 2", count)
	}

	count, err = repo.CountTrips(models.TripFilter{StartTime: 1452848400, EndTime: 1452848400})
	if err != nil {
		t.Fatalf("CountTrips: %v", err)
	}
	if count != 1 {
		t.Errorf("count in time window = %d, want 1", count)
	}

	if err := repo.InsertTrips(nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

func TestForEachPointFiltering(t *testing.T) {
	repo := newTestRepo(t)

	trips := []models.TaxiTrip{
		trip(1452844800, 10, 10, 1, 2),
		trip(1452844800, 50, 50, 3, 2),
		trip(1452844800, 90, 90, 1, 2), // outside the scan window
	}
	if err := repo.InsertTrips(trips); err != nil {
		t.Fatalf("InsertTrips: %v", err)
	}

	scan := func(q models.PointQuery) [][2]float64 {
		t.Helper()
		var got [][2]float64
		err := repo.ForEachPoint(context.Background(), q, func(x, y float64) error {
			got = append(got, [2]float64{x, y})
			return nil
		})
		if err != nil {
			t.Fatalf("ForEachPoint: %v", err)
		}
		return got
	}

	base := models.PointQuery{
		Mode:        models.PlotPickup,
		PassengerLo: 0,
		PassengerHi: 10,
		MinX:        0, MinY: 0, MaxX: 60, MaxY: 60,
	}

	got := scan(base)
	want := [][2]float64{{10, 10}, {50, 50}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pickup scan mismatch (-want +got):\n%s", diff)
	}

	// Dropoff mode reads the other coordinate pair.
	dq := base
	dq.Mode = models.PlotDropoff
	dq.MaxX = 2000
	if got := scan(dq); len(got) != 1 || got[0] != [2]float64{1010, 10} {
		t.Errorf("dropoff scan = %v, want [[1010 10]]", got)
	}

	// Passenger span filter.
	pq := base
	pq.PassengerLo, pq.PassengerHi = 2, 4
	if got := scan(pq); len(got) != 1 || got[0] != [2]float64{50, 50} {
		t.Errorf("passenger-filtered scan = %v, want [[50 50]]", got)
	}

	// MaxPoints caps the scan.
	cq := base
	cq.MaxPoints = 1
	if got := scan(cq); len(got) != 1 {
		t.Errorf("capped scan returned %d points, want 1", len(got))
	}
}

func TestForEachPointErrors(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.InsertTrips([]models.TaxiTrip{trip(1452844800, 10, 10, 1, 2)}); err != nil {
		t.Fatalf("InsertTrips: %v", err)
	}

	err := repo.ForEachPoint(context.Background(), models.PointQuery{Mode: "transit"}, func(x, y float64) error {
		return nil
	})
	if err == nil {
		t.Error("unknown mode accepted")
	}

	// The callback's error aborts the scan and comes back unchanged.
	sentinel := errors.New("stop")
	q := models.PointQuery{Mode: models.PlotPickup, PassengerHi: 10, MaxX: 100, MaxY: 100}
	err = repo.ForEachPoint(context.Background(), q, func(x, y float64) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("callback error = %v, want sentinel", err)
	}
}

func TestSummaryAndHistograms(t *testing.T) {
	repo := newTestRepo(t)

	trips := []models.TaxiTrip{
		trip(1452844800, 10, 10, 1, 2.0), // 08:00
		trip(1452845100, 20, 20, 1, 4.0), // 08:05
		trip(1452852000, 30, 30, 3, 6.0), // 10:00
	}
	if err := repo.InsertTrips(trips); err != nil {
		t.Fatalf("InsertTrips: %v", err)
	}

	s, err := repo.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.TripCount != 3 {
		t.Errorf("TripCount = %d, want 3", s.TripCount)
	}
	if s.FirstPickup != 1452844800 || s.LastPickup != 1452852000 {
		t.Errorf("time range = (%d, %d)", s.FirstPickup, s.LastPickup)
	}
	if s.AvgDistanceKm != 4.0 {
		t.Errorf("AvgDistanceKm = %v, want 4.0", s.AvgDistanceKm)
	}

	hours, err := repo.HourlyCounts()
	if err != nil {
		t.Fatalf("HourlyCounts: %v", err)
	}
	wantHours := []models.HistogramBucket{{Key: 8, Count: 2}, {Key: 10, Count: 1}}
	if diff := cmp.Diff(wantHours, hours); diff != "" {
		t.Errorf("HourlyCounts mismatch (-want +got):\n%s", diff)
	}

	pass, err := repo.PassengerCounts()
	if err != nil {
		t.Fatalf("PassengerCounts: %v", err)
	}
	wantPass := []models.HistogramBucket{{Key: 1, Count: 2}, {Key: 3, Count: 1}}
	if diff := cmp.Diff(wantPass, pass); diff != "" {
		t.Errorf("PassengerCounts mismatch (-want +got):\n%s", diff)
	}

	distances, err := repo.SampleDistances(10)
	if err != nil {
		t.Fatalf("SampleDistances: %v", err)
	}
	if len(distances) != 3 {
		t.Errorf("SampleDistances returned %d values, want 3", len(distances))
	}
}

func TestSummaryEmpty(t *testing.T) {
	repo := newTestRepo(t)

	s, err := repo.Summary()
	if err != nil {
		t.Fatalf("Summary on empty table: %v", err)
	}
	if s.TripCount != 0 || s.FirstPickup != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}
