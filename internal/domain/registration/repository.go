package registration

import "context"

type Repository interface {
	Create(ctx context.Context, newRegistration Registration) (Registration, error)
	GetByEmpCode(ctx context.Context, empCode string) (Registration, error)
	GetByLineUserID(ctx context.Context, lineUserID string) (Registration, error)
	ListByLineUserID(ctx context.Context, lineUserID string) ([]Registration, error)
	List(ctx context.Context) ([]Registration, error)
	// Update applies the non-nil fields of req and stamps UpdatedAt.
	Update(ctx context.Context, empCode string, req UpdateRegistrationRequest) (Registration, error)
	Delete(ctx context.Context, empCode string) error
	Ping(ctx context.Context) error

	// OpenCheckin replaces any pointer on the registration of lineUserID.
	OpenCheckin(ctx context.Context, lineUserID string, checkin TodayCheckin) error
	// CloseCheckin clears the pointer only while it still refers to
	// timeRecordID and reports whether it did.
	CloseCheckin(ctx context.Context, lineUserID string, timeRecordID string) (bool, error)
	// ExpireCheckins clears pointers dated before beforeDate (YYYY-MM-DD).
	ExpireCheckins(ctx context.Context, beforeDate string) (int64, error)
}
