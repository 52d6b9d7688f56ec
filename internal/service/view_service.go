package service

import (
	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/store"
)

// ViewService handles saved-view persistence.
type ViewService struct {
	store *store.ViewStore
}

// NewViewService creates a new view service
func NewViewService(s *store.ViewStore) *ViewService {
	return &ViewService{store: s}
}

// Save persists a named view.
func (s *ViewService) Save(view models.SavedView) (models.SavedView, error) {
	return s.store.Save(view)
}

// Get retrieves a single saved view by ID
func (s *ViewService) Get(id string) (*models.SavedView, error) {
	return s.store.Get(id)
}

// List returns all saved views, oldest first.
func (s *ViewService) List() ([]models.SavedView, error) {
	return s.store.List()
}

// Delete removes a saved view by ID
func (s *ViewService) Delete(id string) error {
	return s.store.Delete(id)
}
