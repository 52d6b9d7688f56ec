package ingest

import (
	"math"
	"math/rand"
	"time"

	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/spatial"
)

// Hotspot is a gaussian cluster of trip endpoints around a real landmark.
type Hotspot struct {
	Name   string
	Lon    float64
	Lat    float64
	SigmaM float64 // spread in meters
	Weight float64
}

func defaultHotspots() []Hotspot {
	return []Hotspot{
		{Name: "midtown", Lon: -73.9857, Lat: 40.7549, SigmaM: 900, Weight: 5},
		{Name: "downtown", Lon: -74.0090, Lat: 40.7128, SigmaM: 700, Weight: 3},
		{Name: "upper_east", Lon: -73.9595, Lat: 40.7736, SigmaM: 800, Weight: 2},
		{Name: "williamsburg", Lon: -73.9573, Lat: 40.7081, SigmaM: 600, Weight: 1.5},
		{Name: "jfk", Lon: -73.7781, Lat: 40.6413, SigmaM: 400, Weight: 1},
		{Name: "lga", Lon: -73.8740, Lat: 40.7769, SigmaM: 350, Weight: 1},
	}
}

// hourWeights shapes pickup times into the familiar double rush-hour curve.
var hourWeights = [24]float64{
	1.0, 0.6, 0.4, 0.3, 0.3, 0.6, // 00-05
	1.5, 3.0, 4.0, 3.5, 3.0, 3.0, // 06-11
	3.0, 3.0, 3.0, 3.5, 4.0, 5.0, // 12-17
	5.0, 4.5, 4.0, 3.0, 2.5, 1.8, // 18-23
}

// passengerWeights: solo riders dominate.
var passengerWeights = []float64{0, 10, 3, 1.5, 1, 2, 1.5}

// Generator produces deterministic synthetic trips for demos and tests. The
// same seed always yields the same sequence.
type Generator struct {
	rnd      *rand.Rand
	hotspots []Hotspot
	start    time.Time
	days     int
}

// NewGenerator creates a generator seeded for reproducibility.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd:      rand.New(rand.NewSource(seed)),
		hotspots: defaultHotspots(),
		start:    time.Date(2016, 1, 11, 0, 0, 0, 0, time.UTC),
		days:     7,
	}
}

// Trips generates n synthetic trips.
func (g *Generator) Trips(n int) []models.TaxiTrip {
	trips := make([]models.TaxiTrip, 0, n)
	for i := 0; i < n; i++ {
		trips = append(trips, g.trip())
	}
	return trips
}

func (g *Generator) trip() models.TaxiTrip {
	var t models.TaxiTrip

	pickup := g.pickHotspot()
	dropoff := g.pickHotspot()

	t.PickupX, t.PickupY = g.jitter(pickup)
	t.DropoffX, t.DropoffY = g.jitter(dropoff)
	t.PickupLon, t.PickupLat = spatial.LonLatFromMercator(t.PickupX, t.PickupY)
	t.DropoffLon, t.DropoffLat = spatial.LonLatFromMercator(t.DropoffX, t.DropoffY)

	day := g.rnd.Intn(g.days)
	hour := g.pickHour()
	minute := g.rnd.Intn(60)
	second := g.rnd.Intn(60)
	start := g.start.AddDate(0, 0, day).
		Add(time.Duration(hour)*time.Hour +
			time.Duration(minute)*time.Minute +
			time.Duration(second)*time.Second)
	t.PickupTime = start.Unix()

	t.TripDistanceKm = spatial.HaversineKm(t.PickupLat, t.PickupLon, t.DropoffLat, t.DropoffLon)

	// Rough Manhattan traffic speed with noise, floor at 5 minutes.
	speedKmh := 14 + g.rnd.Float64()*10
	durationSec := int64(t.TripDistanceKm / speedKmh * 3600)
	if durationSec < 300 {
		durationSec = 300
	}
	t.DropoffTime = t.PickupTime + durationSec

	t.PassengerCount = g.pickPassengers()

	t.FareAmount = 2.5 + t.TripDistanceKm*1.56 + g.rnd.Float64()*2
	if g.rnd.Float64() < 0.6 {
		t.TipAmount = t.FareAmount * (0.1 + g.rnd.Float64()*0.15)
	}
	t.FareAmount = math.Round(t.FareAmount*100) / 100
	t.TipAmount = math.Round(t.TipAmount*100) / 100

	return t
}

func (g *Generator) pickHotspot() Hotspot {
	total := 0.0
	for _, h := range g.hotspots {
		total += h.Weight
	}
	r := g.rnd.Float64() * total
	for _, h := range g.hotspots {
		r -= h.Weight
		if r <= 0 {
			return h
		}
	}
	return g.hotspots[len(g.hotspots)-1]
}

// jitter spreads an endpoint around the hotspot center in mercator meters.
func (g *Generator) jitter(h Hotspot) (x, y float64) {
	cx, cy := spatial.MercatorFromLonLat(h.Lon, h.Lat)
	x = cx + g.rnd.NormFloat64()*h.SigmaM
	y = cy + g.rnd.NormFloat64()*h.SigmaM
	return x, y
}

func (g *Generator) pickHour() int {
	total := 0.0
	for _, w := range hourWeights {
		total += w
	}
	r := g.rnd.Float64() * total
	for h, w := range hourWeights {
		r -= w
		if r <= 0 {
			return h
		}
	}
	return 23
}

func (g *Generator) pickPassengers() int {
	total := 0.0
	for _, w := range passengerWeights {
		total += w
	}
	r := g.rnd.Float64() * total
	for c, w := range passengerWeights {
		r -= w
		if r <= 0 {
			return c
		}
	}
	return 1
}
