package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/jengzang/taxi-explorer-go/internal/models"
)

const bucketViews = "saved_views"

// ErrNoView is returned when a saved view id does not exist.
var ErrNoView = errors.New("no such view")

// ViewStore persists named parameter snapshots in a bbolt file. Live session
// state never touches disk; only views the user explicitly saves land here.
type ViewStore struct {
	db *bolt.DB
}

// Open opens or creates the store file and ensures the bucket exists.
func Open(path string) (*ViewStore, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open view store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketViews))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init view store: %w", err)
	}
	return &ViewStore{db: db}, nil
}

// Close releases the store file.
func (s *ViewStore) Close() error {
	return s.db.Close()
}

// Save persists a view, assigning an id and creation time if missing, and
// returns the stored record.
func (s *ViewStore) Save(view models.SavedView) (models.SavedView, error) {
	if view.ID == "" {
		view.ID = uuid.New().String()
	}
	if view.CreatedAt.IsZero() {
		view.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(view)
	if err != nil {
		return models.SavedView{}, fmt.Errorf("failed to encode view: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketViews))
		return b.Put([]byte(view.ID), data)
	})
	if err != nil {
		return models.SavedView{}, fmt.Errorf("failed to save view: %w", err)
	}
	return view, nil
}

// Get loads one view by id.
func (s *ViewStore) Get(id string) (*models.SavedView, error) {
	var view models.SavedView
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketViews))
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNoView
		}
		return json.Unmarshal(data, &view)
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// List returns every saved view, oldest first.
func (s *ViewStore) List() ([]models.SavedView, error) {
	var views []models.SavedView
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketViews))
		return b.ForEach(func(k, v []byte) error {
			var view models.SavedView
			if err := json.Unmarshal(v, &view); err != nil {
				return fmt.Errorf("failed to decode view %s: %w", k, err)
			}
			views = append(views, view)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.Before(views[j].CreatedAt)
		}
		return views[i].ID < views[j].ID
	})
	return views, nil
}

// Delete removes one view by id.
func (s *ViewStore) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketViews))
		if b.Get([]byte(id)) == nil {
			return ErrNoView
		}
		return b.Delete([]byte(id))
	})
}
