package checkin

import "context"

// Repository is the append-only attendance log.
type Repository interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context) ([]Event, error)
	ListByDate(ctx context.Context, date string) ([]Event, error)
	ListByEmployeeCode(ctx context.Context, employeeCode string) ([]Event, error)
	Count(ctx context.Context) (int, error)
}
