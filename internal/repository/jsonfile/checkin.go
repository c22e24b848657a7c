// Package jsonfile stores the attendance log as a single JSON array on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/checkin"
)

type checkinRepositoryImpl struct {
	mu   sync.Mutex
	path string
}

func NewCheckinRepository(path string) (checkin.Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve check-in log path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return nil, fmt.Errorf("failed to create check-in log directory: %w", err)
	}
	return &checkinRepositoryImpl{path: abs}, nil
}

// load reads the whole log. A missing or empty file is an empty log; a file
// that does not hold a JSON array is an error and is never overwritten.
func (r *checkinRepositoryImpl) load() ([]checkin.Event, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []checkin.Event{}, nil
		}
		return nil, fmt.Errorf("%w: %v", checkin.ErrLogUnreadable, err)
	}
	if len(data) == 0 {
		return []checkin.Event{}, nil
	}

	events := []checkin.Event{}
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("%w: %v", checkin.ErrLogUnreadable, err)
	}
	return events, nil
}

func (r *checkinRepositoryImpl) save(events []checkin.Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode check-in log: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write check-in log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync check-in log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close check-in log: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace check-in log: %w", err)
	}
	return nil
}

// Append implements checkin.Repository.
func (r *checkinRepositoryImpl) Append(ctx context.Context, event checkin.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	events, err := r.load()
	if err != nil {
		return err
	}
	return r.save(append(events, event))
}

// List implements checkin.Repository.
func (r *checkinRepositoryImpl) List(ctx context.Context) ([]checkin.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// ListByDate implements checkin.Repository.
func (r *checkinRepositoryImpl) ListByDate(ctx context.Context, date string) ([]checkin.Event, error) {
	return r.filter(func(e checkin.Event) bool { return e.Date == date })
}

// ListByEmployeeCode implements checkin.Repository.
func (r *checkinRepositoryImpl) ListByEmployeeCode(ctx context.Context, employeeCode string) ([]checkin.Event, error) {
	return r.filter(func(e checkin.Event) bool {
		return e.EmployeeCode != nil && *e.EmployeeCode == employeeCode
	})
}

// Count implements checkin.Repository.
func (r *checkinRepositoryImpl) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	events, err := r.load()
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

func (r *checkinRepositoryImpl) filter(match func(checkin.Event) bool) ([]checkin.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	events, err := r.load()
	if err != nil {
		return nil, err
	}
	result := []checkin.Event{}
	for _, e := range events {
		if match(e) {
			result = append(result, e)
		}
	}
	return result, nil
}
