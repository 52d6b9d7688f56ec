package service

import (
	"fmt"

	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/repository"
	"github.com/jengzang/taxi-explorer-go/internal/stats"
)

// distanceSampleSize bounds the rows scanned for distance percentiles.
const distanceSampleSize = 50000

// DatasetService serves the dashboard's static panels: dataset summary and
// the hour/passenger histograms.
type DatasetService struct {
	repo *repository.TripRepository
}

// NewDatasetService creates a new dataset service
func NewDatasetService(repo *repository.TripRepository) *DatasetService {
	return &DatasetService{repo: repo}
}

// Summary returns dataset-wide aggregates plus distance percentiles.
func (s *DatasetService) Summary() (*models.DatasetSummary, error) {
	summary, err := s.repo.Summary()
	if err != nil {
		return nil, err
	}

	distances, err := s.repo.SampleDistances(distanceSampleSize)
	if err != nil {
		return nil, err
	}
	if len(distances) > 0 {
		ps := stats.Percentiles(distances, []float64{50, 90, 99})
		summary.DistanceP50 = ps[0]
		summary.DistanceP90 = ps[1]
		summary.DistanceP99 = ps[2]
	}
	return summary, nil
}

// Histogram returns trip counts bucketed by the requested dimension.
func (s *DatasetService) Histogram(by string) (*models.HistogramResponse, error) {
	var (
		buckets []models.HistogramBucket
		err     error
	)
	switch by {
	case models.HistogramByHour:
		buckets, err = s.repo.HourlyCounts()
	case models.HistogramByPassengers:
		buckets, err = s.repo.PassengerCounts()
	default:
		return nil, fmt.Errorf("unknown histogram dimension %q", by)
	}
	if err != nil {
		return nil, err
	}

	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	return &models.HistogramResponse{By: by, Buckets: buckets, Total: total}, nil
}
