package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/cmlabs-hris/linebot-hrm/internal/domain/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistration(empCode, lineUserID string) registration.Registration {
	return registration.Registration{
		DeptCode:   "D01",
		DeptName:   "Operations",
		EmpCode:    empCode,
		FirstName:  "Somchai",
		LastName:   "Jaidee",
		LineUserID: lineUserID,
		Status:     registration.StatusActive,
	}
}

func TestRegistrationRepository_Create(t *testing.T) {
	repo := NewRegistrationRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, newRegistration("1001", "U1"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = repo.Create(ctx, newRegistration("1001", "U2"))
	assert.ErrorIs(t, err, registration.ErrEmpCodeExists)

	_, err = repo.Create(ctx, newRegistration("1002", "U1"))
	assert.ErrorIs(t, err, registration.ErrLineUserExists)

	_, err = repo.Create(ctx, newRegistration("1003", ""))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newRegistration("1004", ""))
	require.NoError(t, err)
}

func TestRegistrationRepository_ConcurrentCreateSameEmpCode(t *testing.T) {
	repo := NewRegistrationRepository()
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Create(ctx, newRegistration("1001", "")); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestRegistrationRepository_UpdateKeepsOtherFields(t *testing.T) {
	repo := NewRegistrationRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, newRegistration("1001", "U1"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newRegistration("1002", "U2"))
	require.NoError(t, err)

	mobile := "0899999999"
	updated, err := repo.Update(ctx, "1001", registration.UpdateRegistrationRequest{Mobile: &mobile})
	require.NoError(t, err)
	assert.Equal(t, mobile, updated.Mobile)
	assert.Equal(t, "Operations", updated.DeptName)
	assert.NotNil(t, updated.UpdatedAt)

	taken := "U2"
	_, err = repo.Update(ctx, "1001", registration.UpdateRegistrationRequest{LineUserID: &taken})
	assert.ErrorIs(t, err, registration.ErrLineUserExists)
}

func TestRegistrationRepository_ReturnsCopies(t *testing.T) {
	repo := NewRegistrationRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, newRegistration("1001", "U1"))
	require.NoError(t, err)
	require.NoError(t, repo.OpenCheckin(ctx, "U1", registration.TodayCheckin{Date: "2026-10-16", TimeRecordID: "rec-1", StartTime: "09.00"}))

	reg, err := repo.GetByEmpCode(ctx, "1001")
	require.NoError(t, err)
	reg.TodayCheckin.TimeRecordID = "mutated"

	again, err := repo.GetByEmpCode(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", again.TodayCheckin.TimeRecordID)
}

func TestRegistrationRepository_CheckinPointer(t *testing.T) {
	repo := NewRegistrationRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, newRegistration("1001", "U1"))
	require.NoError(t, err)

	assert.ErrorIs(t, repo.OpenCheckin(ctx, "U9", registration.TodayCheckin{}), registration.ErrRegistrationNotFound)

	require.NoError(t, repo.OpenCheckin(ctx, "U1", registration.TodayCheckin{Date: "2026-10-15", TimeRecordID: "rec-1", StartTime: "09.00"}))

	closed, err := repo.CloseCheckin(ctx, "U1", "rec-2")
	require.NoError(t, err)
	assert.False(t, closed)

	n, err := repo.ExpireCheckins(ctx, "2026-10-15")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.ExpireCheckins(ctx, "2026-10-16")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	closed, err = repo.CloseCheckin(ctx, "U1", "rec-1")
	require.NoError(t, err)
	assert.False(t, closed)
}
