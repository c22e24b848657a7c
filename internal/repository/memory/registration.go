// Package memory keeps registrations in process memory. It backs local
// development without a database and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/google/uuid"
)

type registrationRepositoryImpl struct {
	mu            sync.RWMutex
	registrations map[string]registration.Registration // by empCode
}

func NewRegistrationRepository() registration.Repository {
	return &registrationRepositoryImpl{
		registrations: make(map[string]registration.Registration),
	}
}

func clone(reg registration.Registration) registration.Registration {
	if reg.TodayCheckin != nil {
		checkin := *reg.TodayCheckin
		reg.TodayCheckin = &checkin
	}
	if reg.UpdatedAt != nil {
		updatedAt := *reg.UpdatedAt
		reg.UpdatedAt = &updatedAt
	}
	return reg
}

func (r *registrationRepositoryImpl) lineUserTaken(lineUserID, exceptEmpCode string) bool {
	if lineUserID == "" {
		return false
	}
	for empCode, reg := range r.registrations {
		if empCode != exceptEmpCode && reg.LineUserID == lineUserID {
			return true
		}
	}
	return false
}

// Create implements registration.Repository.
func (r *registrationRepositoryImpl) Create(ctx context.Context, newRegistration registration.Registration) (registration.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registrations[newRegistration.EmpCode]; ok {
		return registration.Registration{}, registration.ErrEmpCodeExists
	}
	if r.lineUserTaken(newRegistration.LineUserID, "") {
		return registration.Registration{}, registration.ErrLineUserExists
	}

	if newRegistration.ID == "" {
		newRegistration.ID = uuid.NewString()
	}
	if newRegistration.CreatedAt.IsZero() {
		newRegistration.CreatedAt = time.Now()
	}
	newRegistration.TodayCheckin = nil
	r.registrations[newRegistration.EmpCode] = clone(newRegistration)
	return clone(newRegistration), nil
}

// GetByEmpCode implements registration.Repository.
func (r *registrationRepositoryImpl) GetByEmpCode(ctx context.Context, empCode string) (registration.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.registrations[empCode]
	if !ok {
		return registration.Registration{}, registration.ErrRegistrationNotFound
	}
	return clone(reg), nil
}

// GetByLineUserID implements registration.Repository.
func (r *registrationRepositoryImpl) GetByLineUserID(ctx context.Context, lineUserID string) (registration.Registration, error) {
	regs, err := r.ListByLineUserID(ctx, lineUserID)
	if err != nil {
		return registration.Registration{}, err
	}
	if len(regs) == 0 {
		return registration.Registration{}, registration.ErrRegistrationNotFound
	}
	return regs[0], nil
}

// ListByLineUserID implements registration.Repository.
func (r *registrationRepositoryImpl) ListByLineUserID(ctx context.Context, lineUserID string) ([]registration.Registration, error) {
	if lineUserID == "" {
		return []registration.Registration{}, nil
	}
	return r.filter(func(reg registration.Registration) bool {
		return reg.LineUserID == lineUserID
	}), nil
}

// List implements registration.Repository.
func (r *registrationRepositoryImpl) List(ctx context.Context) ([]registration.Registration, error) {
	return r.filter(func(registration.Registration) bool { return true }), nil
}

func (r *registrationRepositoryImpl) filter(match func(registration.Registration) bool) []registration.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []registration.Registration{}
	for _, reg := range r.registrations {
		if match(reg) {
			result = append(result, clone(reg))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Update implements registration.Repository.
func (r *registrationRepositoryImpl) Update(ctx context.Context, empCode string, req registration.UpdateRegistrationRequest) (registration.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.registrations[empCode]
	if !ok {
		return registration.Registration{}, registration.ErrRegistrationNotFound
	}
	if req.LineUserID != nil && r.lineUserTaken(*req.LineUserID, empCode) {
		return registration.Registration{}, registration.ErrLineUserExists
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = time.Now()
	}
	req.Apply(&reg)
	r.registrations[empCode] = reg
	return clone(reg), nil
}

// Delete implements registration.Repository.
func (r *registrationRepositoryImpl) Delete(ctx context.Context, empCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registrations[empCode]; !ok {
		return registration.ErrRegistrationNotFound
	}
	delete(r.registrations, empCode)
	return nil
}

// Ping implements registration.Repository.
func (r *registrationRepositoryImpl) Ping(ctx context.Context) error {
	return ctx.Err()
}

// OpenCheckin implements registration.Repository.
func (r *registrationRepositoryImpl) OpenCheckin(ctx context.Context, lineUserID string, checkin registration.TodayCheckin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lineUserID == "" {
		return registration.ErrRegistrationNotFound
	}
	found := false
	for empCode, reg := range r.registrations {
		if reg.LineUserID == lineUserID {
			c := checkin
			reg.TodayCheckin = &c
			r.registrations[empCode] = reg
			found = true
		}
	}
	if !found {
		return registration.ErrRegistrationNotFound
	}
	return nil
}

// CloseCheckin implements registration.Repository.
func (r *registrationRepositoryImpl) CloseCheckin(ctx context.Context, lineUserID string, timeRecordID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	closed := false
	for empCode, reg := range r.registrations {
		if reg.LineUserID == lineUserID && reg.TodayCheckin != nil && reg.TodayCheckin.TimeRecordID == timeRecordID {
			reg.TodayCheckin = nil
			r.registrations[empCode] = reg
			closed = true
		}
	}
	return closed, nil
}

// ExpireCheckins implements registration.Repository.
func (r *registrationRepositoryImpl) ExpireCheckins(ctx context.Context, beforeDate string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for empCode, reg := range r.registrations {
		if reg.TodayCheckin != nil && reg.TodayCheckin.Date < beforeDate {
			reg.TodayCheckin = nil
			r.registrations[empCode] = reg
			n++
		}
	}
	return n, nil
}
