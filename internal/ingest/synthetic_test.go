package ingest

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(42).Trips(10)
	b := NewGenerator(42).Trips(10)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different trips (-a +b):\n%s", diff)
	}

	c := NewGenerator(7).Trips(10)
	if diff := cmp.Diff(a, c); diff == "" {
		t.Error("different seeds produced identical trips")
	}
}

func TestGeneratorTripShape(t *testing.T) {
	trips := NewGenerator(1337).Trips(3000)
	if len(trips) != 3000 {
		t.Fatalf("got %d trips, want 3000", len(trips))
	}

	hourCounts := make(map[int]int)
	passengerCounts := make(map[int]int)

	for i, trip := range trips {
		if trip.PickupX < -8260000 || trip.PickupX > -8190000 ||
			trip.PickupY < 4940000 || trip.PickupY > 5010000 {
			t.Fatalf("trip %d pickup (%f, %f) outside the metro area", i, trip.PickupX, trip.PickupY)
		}
		if trip.DropoffTime < trip.PickupTime+300 {
			t.Fatalf("trip %d dropoff %d before pickup %d + 5min", i, trip.DropoffTime, trip.PickupTime)
		}
		if trip.TripDistanceKm < 0 {
			t.Fatalf("trip %d negative distance %f", i, trip.TripDistanceKm)
		}
		if trip.FareAmount <= 0 {
			t.Fatalf("trip %d fare %f, want > 0", i, trip.FareAmount)
		}
		if trip.PassengerCount < 1 || trip.PassengerCount > 6 {
			t.Fatalf("trip %d passengers %d, want 1..6", i, trip.PassengerCount)
		}
		hourCounts[time.Unix(trip.PickupTime, 0).UTC().Hour()]++
		passengerCounts[trip.PassengerCount]++
	}

	// Rush hour beats the dead of night by a wide margin.
	if hourCounts[8] <= hourCounts[3]*3 {
		t.Errorf("hour 8 count %d not well above hour 3 count %d", hourCounts[8], hourCounts[3])
	}
	// Solo riders dominate.
	if passengerCounts[1] <= passengerCounts[6] {
		t.Errorf("solo count %d not above six-rider count %d", passengerCounts[1], passengerCounts[6])
	}
}

func TestGeneratorLonLatConsistent(t *testing.T) {
	trips := NewGenerator(5).Trips(50)
	for i, trip := range trips {
		if trip.PickupLon > -73 || trip.PickupLon < -75 {
			t.Fatalf("trip %d pickup lon %f outside NYC", i, trip.PickupLon)
		}
		if trip.PickupLat < 40 || trip.PickupLat > 41.5 {
			t.Fatalf("trip %d pickup lat %f outside NYC", i, trip.PickupLat)
		}
	}
}
