package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustinel/risk-engine/internal/models"
)

// MemoryStore keeps documents in process. It backs local runs without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	workers map[string]models.Worker
	records map[string]models.HealthRecord
	alerts  map[string]models.Alert
}

// NewMemoryStore seeds the store with the given workers.
func NewMemoryStore(workers ...models.Worker) *MemoryStore {
	s := &MemoryStore{
		workers: make(map[string]models.Worker, len(workers)),
		records: make(map[string]models.HealthRecord),
		alerts:  make(map[string]models.Alert),
	}
	for _, w := range workers {
		s.workers[w.ID] = w
	}
	return s
}

// LoadWorkers reads a JSON array of workers used to seed a MemoryStore.
func LoadWorkers(path string) ([]models.Worker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var workers []models.Worker
	if err := json.Unmarshal(data, &workers); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i, w := range workers {
		if w.ID == "" {
			return nil, fmt.Errorf("seed worker %d has no workerId", i)
		}
	}
	return workers, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// GetWorker returns the worker or ErrNotFound.
func (s *MemoryStore) GetWorker(_ context.Context, workerID string) (models.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workers[workerID]
	if !ok {
		return models.Worker{}, ErrNotFound
	}
	return w, nil
}

// CreateHealthRecord stores a check-in record.
func (s *MemoryStore) CreateHealthRecord(_ context.Context, rec models.HealthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

// UpdateHealthProfile sets the risk level, last check-in and low-risk streak.
func (s *MemoryStore) UpdateHealthProfile(_ context.Context, workerID string, level models.RiskLevel, checkedIn time.Time, streak int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[workerID]
	if !ok {
		return ErrNotFound
	}
	w.Health.CurrentRiskLevel = level
	w.Health.LastCheckin = &checkedIn
	w.Health.LowRiskStreak = streak
	s.workers[workerID] = w
	return nil
}

// LastAlertTime returns the newest alert of a type for a worker.
func (s *MemoryStore) LastAlertTime(_ context.Context, workerID string, alertType models.AlertType) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		latest time.Time
		found  bool
	)
	for _, a := range s.alerts {
		if a.WorkerID != workerID || a.Type != alertType {
			continue
		}
		if !found || a.CreatedAt.After(latest) {
			latest, found = a.CreatedAt, true
		}
	}
	return latest, found, nil
}

// CreateAlert stores an alert.
func (s *MemoryStore) CreateAlert(_ context.Context, a models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = a
	return nil
}

// RecordNotifications sets the channels an alert was sent through.
func (s *MemoryStore) RecordNotifications(_ context.Context, alertID string, channels []models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return ErrNotFound
	}
	a.NotificationsSent = append([]models.Channel(nil), channels...)
	s.alerts[alertID] = a
	return nil
}

// AttachAlert links an alert to its health record.
func (s *MemoryStore) AttachAlert(_ context.Context, recordID, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordID]
	if !ok {
		return ErrNotFound
	}
	id := alertID
	rec.AlertID = &id
	s.records[recordID] = rec
	return nil
}

// HealthRecord returns a stored record.
func (s *MemoryStore) HealthRecord(id string) (models.HealthRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Alert returns a stored alert.
func (s *MemoryStore) Alert(id string) (models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	return a, ok
}

// Alerts returns the number of stored alerts.
func (s *MemoryStore) Alerts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}
